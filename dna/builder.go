package dna

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// FieldDecl declares one struct member for a Builder.
type FieldDecl struct {
	Type string
	Name string // declarator, e.g. "co[3]", "*next", "(*cb)()"
}

// Field is shorthand for FieldDecl{Type: typ, Name: name}.
func Field(typ, name string) FieldDecl { return FieldDecl{Type: typ, Name: name} }

type structDecl struct {
	typ    int
	fields []FieldDecl
}

// Builder assembles a layout table from declarations, typically the static
// table describing the running build:
//
//	sdna, err := dna.NewBuilder(8, binary.LittleEndian).
//	    Struct("Vertex", dna.Field("float", "co[3]"), dna.Field("uchar", "flag")).
//	    Build()
//
// Types appear in the TypeTable in order of first mention and member names
// are de-duplicated. Struct sizes are the packed sum of their members. Errors
// are collected and reported by Encode or Build.
type Builder struct {
	order binary.ByteOrder
	ptr   int

	types   []Type
	typeIdx map[string]int
	opaque  map[int]bool

	names   []string
	nameIdx map[string]int

	structs   []structDecl
	structIdx map[int]int // type index -> structs position

	errs []error
}

// NewBuilder returns an empty Builder for the given pointer width and byte order.
func NewBuilder(pointerSize int, order binary.ByteOrder) *Builder {
	return &Builder{
		order:     order,
		ptr:       pointerSize,
		typeIdx:   make(map[string]int),
		opaque:    make(map[int]bool),
		nameIdx:   make(map[string]int),
		structIdx: make(map[int]int),
	}
}

// Opaque declares a non-struct, non-basic type of a fixed size.
func (b *Builder) Opaque(name string, size int) *Builder {
	t := b.typeRef(name)
	if _, ok := PrimitiveKind(name); ok {
		b.errs = append(b.errs, fmt.Errorf("opaque %q: redeclares a basic type", name))
		return b
	}
	if _, ok := b.structIdx[t]; ok || b.opaque[t] {
		b.errs = append(b.errs, fmt.Errorf("opaque %q: declared twice", name))
		return b
	}
	b.opaque[t] = true
	b.types[t].Size = size
	return b
}

// Struct declares a struct and its members in serialization order.
func (b *Builder) Struct(name string, fields ...FieldDecl) *Builder {
	if _, ok := PrimitiveKind(name); ok {
		b.errs = append(b.errs, fmt.Errorf("struct %q: redeclares a basic type", name))
		return b
	}
	t := b.typeRef(name)
	if _, ok := b.structIdx[t]; ok || b.opaque[t] {
		b.errs = append(b.errs, fmt.Errorf("struct %q: declared twice", name))
		return b
	}
	for _, f := range fields {
		if _, err := ParseName(f.Name); err != nil {
			b.errs = append(b.errs, fmt.Errorf("struct %q: %w", name, err))
			return b
		}
		b.typeRef(f.Type)
		b.nameRef(f.Name)
	}
	b.structIdx[t] = len(b.structs)
	b.structs = append(b.structs, structDecl{typ: t, fields: fields})
	return b
}

// Encode lays out every declared struct and returns the encoded blob.
func (b *Builder) Encode() ([]byte, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("dna: builder: %w", errors.Join(b.errs...))
	}

	types := append([]Type(nil), b.types...)
	state := make(map[int]int) // 1 = sizing, 2 = done
	var size func(t int, path string) (int, error)
	size = func(t int, path string) (int, error) {
		si, isStruct := b.structIdx[t]
		if !isStruct {
			if _, ok := PrimitiveKind(types[t].Name); ok || b.opaque[t] {
				return types[t].Size, nil
			}
			return 0, fmt.Errorf("%s: unknown type %q", path, types[t].Name)
		}
		switch state[t] {
		case 1:
			return 0, fmt.Errorf("%s: struct %q contains itself by value", path, types[t].Name)
		case 2:
			return types[t].Size, nil
		}
		state[t] = 1
		total := 0
		for _, f := range b.structs[si].fields {
			n, _ := ParseName(f.Name)
			ft := b.typeIdx[f.Type]
			if n.IsPointer() {
				total += b.ptr * n.ArrayLen
				continue
			}
			if k, _ := PrimitiveKind(f.Type); k == KindVoid {
				return 0, fmt.Errorf("%s.%s: void member must be a pointer", types[t].Name, f.Name)
			}
			fs, err := size(ft, types[t].Name+"."+n.Bare)
			if err != nil {
				return 0, err
			}
			total += fs * n.ArrayLen
		}
		state[t] = 2
		types[t].Size = total
		return total, nil
	}

	structs := make([]StructDef, len(b.structs))
	for i, sd := range b.structs {
		if _, err := size(sd.typ, types[sd.typ].Name); err != nil {
			return nil, fmt.Errorf("dna: builder: %w", err)
		}
		members := make([]Member, len(sd.fields))
		for j, f := range sd.fields {
			members[j] = Member{Type: uint16(b.typeIdx[f.Type]), Name: uint16(b.nameIdx[f.Name])}
		}
		structs[i] = StructDef{Type: uint16(sd.typ), Members: members}
	}
	// Pointer-only references to undeclared types are legal; size them 0.
	for i := range types {
		if types[i].Size < 0 {
			types[i].Size = 0
		}
	}
	return encodeTables(b.order, b.ptr, types, b.names, structs)
}

// Build encodes the declarations and decodes them back, so the result has
// passed the same validation as a table read from storage.
func (b *Builder) Build(opts ...Option) (*SDNA, error) {
	blob, err := b.Encode()
	if err != nil {
		return nil, err
	}
	return Decode(blob, opts...)
}

func (b *Builder) typeRef(name string) int {
	if i, ok := b.typeIdx[name]; ok {
		return i
	}
	size := -1
	if k, ok := PrimitiveKind(name); ok {
		size = k.Size()
	}
	b.typeIdx[name] = len(b.types)
	b.types = append(b.types, Type{Name: name, Size: size})
	return len(b.types) - 1
}

func (b *Builder) nameRef(name string) int {
	if i, ok := b.nameIdx[name]; ok {
		return i
	}
	b.nameIdx[name] = len(b.names)
	b.names = append(b.names, name)
	return len(b.names) - 1
}
