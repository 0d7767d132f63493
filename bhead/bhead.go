// Package bhead decodes and encodes the fixed-size header that precedes every
// stored data block.
//
// A header records the block's kind code, payload length, the address the
// block had in the writing process ("old address"), the StructDef describing
// the payload and the element count:
//
//	Offset  Size  Description
//	------  ----  -----------------------------------------
//	 0x00    4    code (four ASCII bytes, e.g. "DATA")
//	 0x04    4    payload length in bytes
//	 0x08   4|8   old address, width set by the writer
//	 ..      4    struct index into the writer's layout table
//	 ..      4    element count
//
// The old-address width follows the pointer size of the layout table that
// governs the file, so 4-byte and 8-byte writers produce 20- and 24-byte
// headers. Old addresses are always widened to uint64 (zero-extended) and are
// opaque keys: they are never dereferenced, only matched by a later relinking
// pass.
package bhead

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/joshuapare/dnakit/dna"
	"github.com/joshuapare/dnakit/internal/buf"
)

// Width selects the physical header variant.
type Width int

const (
	// WidthNative uses the running process's pointer width. Native headers
	// exist only in memory and are never persisted.
	WidthNative Width = 0
	// Width4 stores 4-byte old addresses (20-byte header).
	Width4 Width = 4
	// Width8 stores 8-byte old addresses (24-byte header).
	Width8 Width = 8
)

// ErrNativeWidth is returned when asked to persist a native-width header.
var ErrNativeWidth = errors.New("bhead: native-width headers are not persisted")

// Bytes returns the old-address width in bytes.
func (w Width) Bytes() int {
	if w == WidthNative {
		return strconv.IntSize / 8
	}
	return int(w)
}

// Size returns the encoded header size.
func (w Width) Size() int { return 16 + w.Bytes() }

func (w Width) valid() bool { return w == WidthNative || w == Width4 || w == Width8 }

// WidthFor returns the header variant for a layout table's pointer size.
func WidthFor(s *dna.SDNA) Width { return Width(s.PointerSize()) }

// Code identifies the kind of a block. Codes are four ASCII bytes packed in
// file order, so they compare equal regardless of the writer's byte order.
type Code uint32

// MakeCode packs a four-character code.
func MakeCode(id string) Code {
	var b [4]byte
	copy(b[:], id)
	return Code(binary.LittleEndian.Uint32(b[:]))
}

// Well-known block codes.
var (
	CodeDATA = MakeCode("DATA") // struct payload
	CodeDNA1 = MakeCode("DNA1") // encoded layout table
	CodeENDB = MakeCode("ENDB") // end of blocks
	CodeREND = MakeCode("REND") // render info
	CodeTEST = MakeCode("TEST") // thumbnail
	CodeGLOB = MakeCode("GLOB") // global state
	CodeUSER = MakeCode("USER") // user preferences
)

// String returns the code as text when it is printable, else its number.
func (c Code) String() string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(c))
	end := 4
	for end > 0 && b[end-1] == 0 {
		end--
	}
	if end == 0 {
		return strconv.FormatUint(uint64(c), 10)
	}
	for _, ch := range b[:end] {
		if ch < 0x20 || ch > 0x7e {
			return strconv.FormatUint(uint64(c), 10)
		}
	}
	return string(b[:end])
}

// Header is a decoded block header.
type Header struct {
	Code        Code
	Length      uint32
	OldAddress  uint64
	StructIndex uint32
	Count       uint32
}

// Decode reads one header of the given width from the start of b.
func Decode(b []byte, w Width, order binary.ByteOrder) (Header, error) {
	if !w.valid() {
		return Header{}, fmt.Errorf("bhead: width %d: %w", w, dna.ErrUnsupportedPointerWidth)
	}
	size := w.Size()
	if len(b) < size {
		return Header{}, fmt.Errorf("bhead: need %d bytes, have %d: %w", size, len(b), dna.ErrTruncated)
	}
	ptr := w.Bytes()
	return Header{
		Code:        Code(binary.LittleEndian.Uint32(b[0:4])),
		Length:      order.Uint32(b[4:8]),
		OldAddress:  buf.Uint(b[8:8+ptr], ptr, order),
		StructIndex: order.Uint32(b[8+ptr:]),
		Count:       order.Uint32(b[12+ptr:]),
	}, nil
}

// Validate checks the header's struct index against a layout table.
func (h Header) Validate(s *dna.SDNA) error {
	if int64(h.StructIndex) >= int64(s.NumStructs()) {
		return fmt.Errorf("bhead: %s block struct index %d of %d: %w", h.Code, h.StructIndex, s.NumStructs(), dna.ErrCorruptIndex)
	}
	return nil
}

// DecodeFor decodes a header using the width and byte order of s, then
// validates its struct index against s.
func DecodeFor(b []byte, s *dna.SDNA) (Header, error) {
	h, err := Decode(b, WidthFor(s), s.Order())
	if err != nil {
		return Header{}, err
	}
	if err := h.Validate(s); err != nil {
		return Header{}, err
	}
	return h, nil
}

// Append encodes h and appends it to dst.
func Append(dst []byte, h Header, w Width, order binary.ByteOrder) ([]byte, error) {
	if w == WidthNative {
		return dst, ErrNativeWidth
	}
	if !w.valid() {
		return dst, fmt.Errorf("bhead: width %d: %w", w, dna.ErrUnsupportedPointerWidth)
	}
	if w == Width4 && h.OldAddress > 0xFFFFFFFF {
		return dst, fmt.Errorf("bhead: old address %#x does not fit in 4 bytes", h.OldAddress)
	}
	out := make([]byte, w.Size())
	binary.LittleEndian.PutUint32(out[0:], uint32(h.Code))
	order.PutUint32(out[4:], h.Length)
	ptr := w.Bytes()
	buf.PutUint(out[8:], ptr, h.OldAddress, order)
	order.PutUint32(out[8+ptr:], h.StructIndex)
	order.PutUint32(out[12+ptr:], h.Count)
	return append(dst, out...), nil
}

// NarrowAddress folds a 64-bit old address into 32 bits the way 4-byte
// readers key 8-byte files: the low three bits are alignment and carry no
// identity, so they are shifted out first. ok is false when bits above the
// 35th were set and two addresses may now collide.
func NarrowAddress(addr uint64) (narrow uint32, ok bool) {
	shifted := addr >> 3
	return uint32(shifted), shifted <= 0xFFFFFFFF
}
