// Package dna decodes, encodes and queries layout tables ("SDNA"): the
// self-describing list of type names, member names and struct shapes that a
// writer embeds next to its binary data.
//
// # Tables
//
// A table holds three parts, all index addressed and immutable once decoded:
//
//   - TypeTable: (name, size) for basic types, opaque types and struct types
//   - NameTable: member names with their declarator ("*next", "co[3]", "(*cb)()")
//   - StructDefs: a struct type index plus (type index, name index) pairs in the
//     exact order the struct was serialized
//
// The table also records the pointer width and byte order of the writer. Both
// govern how data stored under the table must be read, regardless of the
// running process.
//
// # Decoding
//
//	sdna, err := dna.Decode(blob, dna.WithRenames(renames))
//	if err != nil {
//	    return err // *DecodeError wrapping ErrFormat, ErrTruncated, ...
//	}
//	defer sdna.Release()
//
// Decode validates every index, that each struct's members add up to its
// recorded size, and that no bytes trail the last struct. On failure nothing
// is returned. Encode reproduces the decoded blob byte for byte.
//
// # Lookups and renames
//
// Resolve maps a struct type name to its position through a hash index built
// on first use. When the literal name is missing, the name is translated
// through the table's Renames and tried again, so a current name resolves in
// an old table and an old name resolves in the current one.
//
// # Static tables
//
// Builder produces the table describing the running build from declarations.
// It goes through Encode and Decode so static and stored tables are validated
// by the same code.
package dna
