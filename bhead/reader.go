package bhead

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/joshuapare/dnakit/dna"
)

// Block is one header plus its payload. Data aliases the reader's buffer.
type Block struct {
	Header
	Offset int // byte offset of the header within the window
	Data   []byte
}

// Reader walks consecutive blocks in a byte window.
//
//	r := bhead.NewReader(data[fileHeaderSize:], bhead.Width8, binary.LittleEndian)
//	for {
//	    blk, err := r.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	}
//
// Next returns io.EOF after an ENDB block or at the exact end of the window.
type Reader struct {
	b     []byte
	off   int
	w     Width
	order binary.ByteOrder
	done  bool
}

// NewReader returns a Reader over b.
func NewReader(b []byte, w Width, order binary.ByteOrder) *Reader {
	return &Reader{b: b, w: w, order: order}
}

// Offset returns the position of the next header.
func (r *Reader) Offset() int { return r.off }

// Next decodes the next block.
func (r *Reader) Next() (Block, error) {
	if r.done || r.off == len(r.b) {
		r.done = true
		return Block{}, io.EOF
	}
	h, err := Decode(r.b[r.off:], r.w, r.order)
	if err != nil {
		return Block{}, fmt.Errorf("bhead: block at offset %d: %w", r.off, err)
	}
	if h.Code == CodeENDB {
		r.done = true
		return Block{}, io.EOF
	}
	start := r.off + r.w.Size()
	if uint64(h.Length) > uint64(len(r.b)-start) {
		return Block{}, fmt.Errorf("bhead: %s block at offset %d: payload %d bytes, %d remain: %w",
			h.Code, r.off, h.Length, len(r.b)-start, dna.ErrTruncated)
	}
	blk := Block{
		Header: h,
		Offset: r.off,
		Data:   r.b[start : start+int(h.Length) : start+int(h.Length)],
	}
	r.off = start + int(h.Length)
	return blk, nil
}
