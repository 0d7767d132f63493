package dna

import (
	"encoding/binary"
	"sync"

	"github.com/joshuapare/dnakit/alloc"
	"github.com/joshuapare/dnakit/index"
)

// Type is one TypeTable entry.
type Type struct {
	Name string
	Size int
}

// Member is one (type index, name index) pair of a StructDef.
type Member struct {
	Type uint16
	Name uint16
}

// StructDef describes a struct exactly as it was serialized: its type index
// and its members in on-disk order.
type StructDef struct {
	Type    uint16
	Members []Member
}

// SDNA is a decoded layout table. It is immutable apart from the struct
// index and alias data, which are built once on first use and are safe to
// build from concurrent readers.
type SDNA struct {
	order       binary.ByteOrder
	pointerSize int

	types   []Type
	names   []string
	parsed  []Name
	structs []StructDef
	byType  []int32 // type index -> struct position, -1 for non-struct types

	raw   []byte // encoded blob; arena-owned unless borrowed
	arena *alloc.Arena
	owned bool // arena was created by Decode and is released by Release

	renames *Renames

	indexOnce sync.Once
	index     *index.Table
	indexErr  error

	aliasOnce sync.Once
	alias     aliasData
}

// Order returns the byte order recorded in the blob signature.
func (s *SDNA) Order() binary.ByteOrder { return s.order }

// PointerSize returns the pointer width (4 or 8) recorded at encoding time.
// It governs every old address stored under this layout, independent of the
// running process.
func (s *SDNA) PointerSize() int { return s.pointerSize }

// NumTypes returns the TypeTable length.
func (s *SDNA) NumTypes() int { return len(s.types) }

// Type returns TypeTable entry i.
func (s *SDNA) Type(i int) Type { return s.types[i] }

// TypeName returns the name of type i.
func (s *SDNA) TypeName(i int) string { return s.types[i].Name }

// TypeSize returns the byte size of type i.
func (s *SDNA) TypeSize(i int) int { return s.types[i].Size }

// TypeKind classifies type i.
func (s *SDNA) TypeKind(i int) Kind {
	if s.byType[i] >= 0 {
		return KindStruct
	}
	if k, ok := PrimitiveKind(s.types[i].Name); ok {
		return k
	}
	return KindOpaque
}

// NumNames returns the NameTable length.
func (s *SDNA) NumNames() int { return len(s.names) }

// Name returns NameTable entry i as stored.
func (s *SDNA) Name(i int) string { return s.names[i] }

// ParsedName returns the parsed declarator of NameTable entry i.
func (s *SDNA) ParsedName(i int) Name { return s.parsed[i] }

// NumStructs returns the number of StructDefs.
func (s *SDNA) NumStructs() int { return len(s.structs) }

// Struct returns StructDef i.
func (s *SDNA) Struct(i int) StructDef { return s.structs[i] }

// StructName returns the type name of StructDef i as stored.
func (s *SDNA) StructName(i int) string { return s.types[s.structs[i].Type].Name }

// StructSize returns the byte size of StructDef i.
func (s *SDNA) StructSize(i int) int { return s.types[s.structs[i].Type].Size }

// StructForType returns the StructDef position describing type index t.
func (s *SDNA) StructForType(t int) (int, bool) {
	if t < 0 || t >= len(s.byType) || s.byType[t] < 0 {
		return 0, false
	}
	return int(s.byType[t]), true
}

// MemberSize returns the byte size a member occupies inside its struct.
func (s *SDNA) MemberSize(m Member) int {
	n := s.parsed[m.Name]
	if n.IsPointer() {
		return s.pointerSize * n.ArrayLen
	}
	return s.types[m.Type].Size * n.ArrayLen
}

// MemberOffsets returns the byte offset of every member of StructDef i.
func (s *SDNA) MemberOffsets(i int) []int {
	members := s.structs[i].Members
	offs := make([]int, len(members))
	off := 0
	for j, m := range members {
		offs[j] = off
		off += s.MemberSize(m)
	}
	return offs
}

// Raw returns the encoded blob this table was decoded from.
func (s *SDNA) Raw() []byte { return s.raw }

// Renames returns the rename definitions attached at decode time, or nil.
func (s *SDNA) Renames() *Renames { return s.renames }

// Release frees the arena holding the blob copy when Decode created it.
// The SDNA must not be used afterwards.
func (s *SDNA) Release() {
	if s.owned && s.arena != nil {
		s.arena.Free()
	}
	s.raw = nil
}
