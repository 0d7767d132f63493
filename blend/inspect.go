package blend

import (
	"github.com/joshuapare/dnakit/bhead"
	"github.com/joshuapare/dnakit/dna"
)

// Info is a file read without conversion: its header, stored layout table
// and raw blocks (DNA1 included).
type Info struct {
	Header FileHeader
	Stored *dna.SDNA
	Blocks []bhead.Block
}

// Inspect reads the header, block list and stored layout table of a file.
// Block payloads alias data.
func Inspect(data []byte, renames *dna.Renames) (*Info, error) {
	hdr, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	blocks, err := collect(data, hdr)
	if err != nil {
		return nil, err
	}
	stored, err := decodeLayout(blocks, hdr, renames)
	if err != nil {
		return nil, err
	}
	for _, blk := range blocks {
		if blk.Code == bhead.CodeDNA1 || blk.Code == bhead.CodeTEST || blk.Code == bhead.CodeREND {
			continue
		}
		if err := blk.Validate(stored); err != nil {
			stored.Release()
			return nil, err
		}
	}
	return &Info{Header: hdr, Stored: stored, Blocks: blocks}, nil
}

// Layout reads only the stored layout table of a file.
func Layout(data []byte, renames *dna.Renames) (*dna.SDNA, error) {
	info, err := Inspect(data, renames)
	if err != nil {
		return nil, err
	}
	return info.Stored, nil
}
