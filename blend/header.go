package blend

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/joshuapare/dnakit/bhead"
	"github.com/joshuapare/dnakit/dna"
)

const (
	// Magic opens every stored file.
	Magic = "BLENDER"
	// HeaderSize is the fixed file header length.
	HeaderSize = 12

	ptrMarker4    = '_'
	ptrMarker8    = '-'
	orderMarkerLE = 'v'
	orderMarkerBE = 'V'
)

var (
	// ErrNotBlend is returned when the file does not start with Magic.
	ErrNotBlend = errors.New("blend: not a stored file")
	// ErrNoLayout is returned when the block stream has no DNA1 block.
	ErrNoLayout = errors.New("blend: no layout table block")
)

// FileHeader is the decoded 12-byte file header:
//
//	Offset  Size  Description
//	------  ----  -----------------------------------------
//	 0x00    7    "BLENDER"
//	 0x07    1    pointer size: '_' = 4 bytes, '-' = 8 bytes
//	 0x08    1    byte order: 'v' = little, 'V' = big
//	 0x09    3    writer version, three ASCII digits
type FileHeader struct {
	PointerSize int
	Order       binary.ByteOrder
	Version     int
}

// ParseHeader decodes the file header at the start of b.
func ParseHeader(b []byte) (FileHeader, error) {
	if len(b) < HeaderSize {
		return FileHeader{}, fmt.Errorf("blend: header needs %d bytes, have %d: %w", HeaderSize, len(b), dna.ErrTruncated)
	}
	if string(b[:len(Magic)]) != Magic {
		return FileHeader{}, ErrNotBlend
	}
	var h FileHeader
	switch b[7] {
	case ptrMarker4:
		h.PointerSize = 4
	case ptrMarker8:
		h.PointerSize = 8
	default:
		return FileHeader{}, fmt.Errorf("blend: pointer marker %q: %w", b[7], dna.ErrUnsupportedPointerWidth)
	}
	switch b[8] {
	case orderMarkerLE:
		h.Order = binary.LittleEndian
	case orderMarkerBE:
		h.Order = binary.BigEndian
	default:
		return FileHeader{}, fmt.Errorf("blend: byte order marker %q: %w", b[8], dna.ErrFormat)
	}
	for _, c := range b[9:12] {
		if c < '0' || c > '9' {
			return FileHeader{}, fmt.Errorf("blend: version %q: %w", b[9:12], dna.ErrFormat)
		}
		h.Version = h.Version*10 + int(c-'0')
	}
	return h, nil
}

// Width returns the block header variant the file uses.
func (h FileHeader) Width() bhead.Width { return bhead.Width(h.PointerSize) }

// Append encodes h and appends it to dst.
func (h FileHeader) Append(dst []byte) ([]byte, error) {
	var ptr, order byte
	switch h.PointerSize {
	case 4:
		ptr = ptrMarker4
	case 8:
		ptr = ptrMarker8
	default:
		return dst, fmt.Errorf("blend: pointer size %d: %w", h.PointerSize, dna.ErrUnsupportedPointerWidth)
	}
	switch h.Order {
	case binary.LittleEndian:
		order = orderMarkerLE
	case binary.BigEndian:
		order = orderMarkerBE
	default:
		return dst, fmt.Errorf("blend: byte order %v: %w", h.Order, dna.ErrFormat)
	}
	if h.Version < 0 || h.Version > 999 {
		return dst, fmt.Errorf("blend: version %d does not fit three digits: %w", h.Version, dna.ErrFormat)
	}
	dst = append(dst, Magic...)
	dst = append(dst, ptr, order)
	return fmt.Appendf(dst, "%03d", h.Version), nil
}

// HeaderFor returns the file header matching a layout table.
func HeaderFor(s *dna.SDNA, version int) FileHeader {
	return FileHeader{PointerSize: s.PointerSize(), Order: s.Order(), Version: version}
}
