package blend

import (
	"bufio"
	"fmt"
	"io"

	"github.com/joshuapare/dnakit/bhead"
	"github.com/joshuapare/dnakit/dna"
)

// WriteBlock is one block to store. StructIndex refers to the layout table
// passed to Write.
type WriteBlock struct {
	Code        bhead.Code
	OldAddress  uint64
	StructIndex uint32
	Count       uint32
	Data        []byte
}

// Write stores blocks under layout s: file header, the blocks in order, the
// DNA1 block and ENDB.
func Write(w io.Writer, s *dna.SDNA, version int, blocks []WriteBlock) error {
	hdr := HeaderFor(s, version)
	width := hdr.Width()
	bw := bufio.NewWriter(w)

	out, err := hdr.Append(make([]byte, 0, HeaderSize))
	if err != nil {
		return err
	}
	if _, err := bw.Write(out); err != nil {
		return err
	}

	put := func(h bhead.Header, payload []byte) error {
		head, err := bhead.Append(out[:0], h, width, hdr.Order)
		if err != nil {
			return err
		}
		out = head
		if _, err := bw.Write(head); err != nil {
			return err
		}
		_, err = bw.Write(payload)
		return err
	}

	for i, b := range blocks {
		if b.Code == bhead.CodeDNA1 || b.Code == bhead.CodeENDB {
			return fmt.Errorf("blend: block %d: %s is written by Write itself", i, b.Code)
		}
		h := bhead.Header{
			Code:        b.Code,
			Length:      uint32(len(b.Data)),
			OldAddress:  b.OldAddress,
			StructIndex: b.StructIndex,
			Count:       b.Count,
		}
		if err := h.Validate(s); err != nil {
			return fmt.Errorf("blend: block %d: %w", i, err)
		}
		if uint64(len(b.Data)) < uint64(b.Count)*uint64(s.StructSize(int(b.StructIndex))) {
			return fmt.Errorf("blend: block %d: %d x %s does not fit %d bytes: %w",
				i, b.Count, s.StructName(int(b.StructIndex)), len(b.Data), dna.ErrTruncated)
		}
		if err := put(h, b.Data); err != nil {
			return err
		}
	}

	layout, err := s.Encode()
	if err != nil {
		return err
	}
	if err := put(bhead.Header{Code: bhead.CodeDNA1, Length: uint32(len(layout)), Count: 1}, layout); err != nil {
		return err
	}
	if err := put(bhead.Header{Code: bhead.CodeENDB}, nil); err != nil {
		return err
	}
	return bw.Flush()
}

// Save writes the converted blocks under the current layout. Blocks whose
// struct the current build does not know are left out.
func (s *Session) Save(w io.Writer, version int) error {
	addrs := s.OldAddressTable()
	blocks := make([]WriteBlock, 0, len(s.Blocks))
	for _, b := range s.Blocks {
		if !b.Converted() {
			s.log.Debug("dropping unconverted block", "struct", b.Struct, "offset", b.Offset)
			continue
		}
		blocks = append(blocks, WriteBlock{
			Code:        b.Code,
			OldAddress:  addrs.key(b.OldAddress),
			StructIndex: uint32(b.Current),
			Count:       b.Count,
			Data:        b.Data,
		})
	}
	return Write(w, s.Current, version, blocks)
}
