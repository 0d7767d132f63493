package dna

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/joshuapare/dnakit/alloc"
	"github.com/joshuapare/dnakit/internal/buf"
)

// Blob layout. All counts and sizes use the byte order named by the last
// signature byte.
//
//	Offset  Size  Description
//	------  ----  ------------------------------------------------------
//	 0x00    3    'D' 'N' 'A'
//	 0x03    1    'v' little-endian, 'V' big-endian
//	 0x04    1    pointer size in bytes (4 or 8)
//	 0x05    4    type count, then per type: name NUL, size u16
//	  ..     4    name count, then per name: name NUL
//	  ..     4    struct count, then per struct:
//	              type index u16, member count u16,
//	              per member: type index u16, name index u16
const (
	SignaturePrefix = "DNA"
	OrderLittle     = 'v'
	OrderBig        = 'V'
	HeaderSize      = 5
)

// Option configures Decode.
type Option func(*decodeConfig)

type decodeConfig struct {
	renames   *Renames
	arena     *alloc.Arena
	borrow    bool
	sizeCheck bool
}

// WithRenames attaches rename definitions used by Resolve and the alias
// accessors.
func WithRenames(r *Renames) Option {
	return func(c *decodeConfig) { c.renames = r }
}

// WithArena copies the blob into a caller-owned arena, typically the load
// session's. The caller frees it; Release leaves it alone.
func WithArena(a *alloc.Arena) Option {
	return func(c *decodeConfig) { c.arena = a }
}

// WithBorrowedData keeps a reference to the caller's buffer instead of
// copying it. The buffer must outlive the SDNA and must not be modified.
func WithBorrowedData() Option {
	return func(c *decodeConfig) { c.borrow = true }
}

// WithoutSizeCheck skips checking that struct members add up to the struct
// size recorded in the TypeTable.
func WithoutSizeCheck() Option {
	return func(c *decodeConfig) { c.sizeCheck = false }
}

// Decode parses an encoded layout table. Nothing is published on failure: the
// returned error is a *DecodeError wrapping ErrFormat, ErrTruncated,
// ErrCorruptIndex or ErrUnsupportedPointerWidth.
func Decode(b []byte, opts ...Option) (*SDNA, error) {
	cfg := decodeConfig{sizeCheck: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	s, err := decodeTables(b)
	if err != nil {
		return nil, err
	}
	if err := s.link(); err != nil {
		return nil, err
	}
	if cfg.sizeCheck {
		if err := s.checkSizes(); err != nil {
			return nil, err
		}
	}

	s.renames = cfg.renames
	switch {
	case cfg.borrow:
		s.raw = b
	default:
		a := cfg.arena
		if a == nil {
			a = alloc.NewArena("sdna", len(b))
			s.owned = true
		}
		raw, err := a.Copy(b)
		if err != nil {
			return nil, fmt.Errorf("dna: copy blob: %w", err)
		}
		s.raw = raw
		s.arena = a
	}
	return s, nil
}

func decodeTables(b []byte) (*SDNA, error) {
	if len(b) < HeaderSize {
		return nil, decodeErr("signature", 0, ErrTruncated, "need %d bytes, have %d", HeaderSize, len(b))
	}
	if !bytes.Equal(b[:3], []byte(SignaturePrefix)) {
		return nil, decodeErr("signature", 0, ErrFormat, "got %q", b[:4])
	}
	var order binary.ByteOrder
	switch b[3] {
	case OrderLittle:
		order = binary.LittleEndian
	case OrderBig:
		order = binary.BigEndian
	default:
		return nil, decodeErr("signature", 3, ErrFormat, "unknown byte order marker %q", b[3])
	}
	ptr := int(b[4])
	if ptr != 4 && ptr != 8 {
		return nil, decodeErr("signature", 4, ErrUnsupportedPointerWidth, "marker %d", ptr)
	}

	s := &SDNA{order: order, pointerSize: ptr}
	c := buf.NewCursor(b, order)
	if _, err := c.Bytes(HeaderSize); err != nil {
		return nil, decodeErr("signature", 0, ErrTruncated, "")
	}

	// types
	n, err := readCount(c, "types", 3)
	if err != nil {
		return nil, err
	}
	s.types = make([]Type, n)
	for i := range s.types {
		off := c.Offset()
		raw, err := c.CString()
		if err != nil {
			return nil, decodeErr("types", off, ErrTruncated, "type %d name", i)
		}
		name, err := decodeName(raw)
		if err != nil {
			return nil, decodeErr("types", off, ErrFormat, "type %d name: %v", i, err)
		}
		size, err := c.U16()
		if err != nil {
			return nil, decodeErr("types", c.Offset(), ErrTruncated, "type %d size", i)
		}
		s.types[i] = Type{Name: name, Size: int(size)}
	}

	// names
	n, err = readCount(c, "names", 1)
	if err != nil {
		return nil, err
	}
	s.names = make([]string, n)
	s.parsed = make([]Name, n)
	for i := range s.names {
		off := c.Offset()
		raw, err := c.CString()
		if err != nil {
			return nil, decodeErr("names", off, ErrTruncated, "name %d", i)
		}
		name, err := decodeName(raw)
		if err != nil {
			return nil, decodeErr("names", off, ErrFormat, "name %d: %v", i, err)
		}
		parsed, err := ParseName(name)
		if err != nil {
			return nil, decodeErr("names", off, ErrFormat, "%v", err)
		}
		s.names[i] = name
		s.parsed[i] = parsed
	}

	// structs
	n, err = readCount(c, "structs", 4)
	if err != nil {
		return nil, err
	}
	s.structs = make([]StructDef, n)
	for i := range s.structs {
		off := c.Offset()
		typ, err := c.U16()
		if err != nil {
			return nil, decodeErr("structs", off, ErrTruncated, "struct %d type", i)
		}
		if int(typ) >= len(s.types) {
			return nil, decodeErr("structs", off, ErrCorruptIndex, "struct %d type %d of %d", i, typ, len(s.types))
		}
		count, err := c.U16()
		if err != nil {
			return nil, decodeErr("structs", c.Offset(), ErrTruncated, "struct %d member count", i)
		}
		if _, err := buf.CheckListBounds(len(b), c.Offset(), int(count), 4); err != nil {
			return nil, decodeErr("structs", c.Offset(), ErrTruncated, "struct %d members: %v", i, err)
		}
		members := make([]Member, count)
		for j := range members {
			moff := c.Offset()
			mt, _ := c.U16()
			mn, _ := c.U16()
			if int(mt) >= len(s.types) {
				return nil, decodeErr("structs", moff, ErrCorruptIndex, "struct %d member %d type %d of %d", i, j, mt, len(s.types))
			}
			if int(mn) >= len(s.names) {
				return nil, decodeErr("structs", moff+2, ErrCorruptIndex, "struct %d member %d name %d of %d", i, j, mn, len(s.names))
			}
			members[j] = Member{Type: mt, Name: mn}
		}
		s.structs[i] = StructDef{Type: typ, Members: members}
	}

	if c.Remaining() != 0 {
		return nil, decodeErr("trailer", c.Offset(), ErrFormat, "%d unexpected trailing bytes", c.Remaining())
	}
	return s, nil
}

// readCount reads a u32 table length and rejects counts that cannot fit in the
// remaining input given each entry's minimum encoded size.
func readCount(c *buf.Cursor, op string, minEntry int) (int, error) {
	off := c.Offset()
	n, err := c.U32()
	if err != nil {
		if errors.Is(err, buf.ErrShort) {
			return 0, decodeErr(op, off, ErrTruncated, "count")
		}
		return 0, decodeErr(op, off, ErrFormat, "count: %v", err)
	}
	if uint64(n)*uint64(minEntry) > uint64(c.Remaining()) {
		return 0, decodeErr(op, off, ErrTruncated, "count %d exceeds remaining %d bytes", n, c.Remaining())
	}
	return int(n), nil
}

// link builds the type -> struct map. It rejects basic types recorded at
// the wrong size and struct definitions that cannot describe a struct.
func (s *SDNA) link() error {
	s.byType = make([]int32, len(s.types))
	for i, t := range s.types {
		s.byType[i] = -1
		if k, ok := PrimitiveKind(t.Name); ok && k != KindVoid && t.Size != k.Size() {
			return decodeErr("types", 0, ErrFormat, "basic type %q recorded as %d bytes, want %d", t.Name, t.Size, k.Size())
		}
	}
	for i, sd := range s.structs {
		name := s.types[sd.Type].Name
		if _, ok := PrimitiveKind(name); ok {
			return decodeErr("structs", 0, ErrFormat, "struct %d redefines basic type %q", i, name)
		}
		if prev := s.byType[sd.Type]; prev >= 0 {
			return decodeErr("structs", 0, ErrFormat, "struct %d duplicates struct %d (%q)", i, prev, name)
		}
		s.byType[sd.Type] = int32(i)
	}
	return nil
}

// checkSizes verifies each struct's members add up to its recorded size.
func (s *SDNA) checkSizes() error {
	for i, sd := range s.structs {
		total := 0
		for j, m := range sd.Members {
			n := s.parsed[m.Name]
			if !n.IsPointer() && s.TypeKind(int(m.Type)) == KindVoid {
				return decodeErr("structs", 0, ErrFormat, "struct %q member %d (%s) has type void", s.StructName(i), j, n.Raw)
			}
			total += s.MemberSize(m)
		}
		if want := s.StructSize(i); total != want {
			return decodeErr("structs", 0, ErrFormat, "struct %q members total %d bytes, type size is %d", s.StructName(i), total, want)
		}
	}
	return nil
}
