package blend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joshuapare/dnakit/bhead"
	"github.com/joshuapare/dnakit/dna"
	"github.com/joshuapare/dnakit/reconcile"
)

// Options configures Open.
type Options struct {
	// Logger receives debug records tagged with the session ID. Nil discards.
	Logger *slog.Logger

	// Warnings receives every lossy conversion as it happens, in addition to
	// the list kept on the session. Nil keeps only the list.
	Warnings reconcile.Sink

	// Renames translate stored struct and member names to current ones.
	Renames *dna.Renames

	Params ReadParams
}

// Block is one loaded block.
type Block struct {
	bhead.Header

	// Offset is the header position within the file.
	Offset int

	// Struct is the current name of the block's struct, or the stored name
	// when the current build does not know it.
	Struct string

	// Current is the position of the struct in the current table, -1 when
	// the block was not converted.
	Current int

	Flag reconcile.CompareFlag

	// Data holds Count structs in the current layout. It is nil when the
	// block was not converted.
	Data []byte

	// Raw is the stored payload. It aliases the buffer given to Open.
	Raw []byte
}

// Converted reports whether Data holds current-layout structs.
func (b *Block) Converted() bool { return b.Current >= 0 }

// Stats summarizes a load.
type Stats struct {
	Blocks    int // blocks kept on the session
	Converted int
	Raw       int // kept but not converted: struct unknown to the current build
	Skipped   int // left out by ReadParams
	Warnings  int
}

// Session is one load of a stored file. It owns its blocks; the current
// layout table is shared and never modified.
type Session struct {
	ID      uuid.UUID
	Header  FileHeader
	Stored  *dna.SDNA
	Current *dna.SDNA
	Params  ReadParams
	Blocks  []Block

	stats    Stats
	warnings []reconcile.Warning
	log      *slog.Logger
	addrs    *AddressTable
}

// Open loads a stored file from data and converts every struct block into
// the layout of current. Any structural error aborts the whole load; lossy
// conversions only produce warnings.
func Open(data []byte, current *dna.SDNA, opts Options) (*Session, error) {
	if current == nil {
		return nil, errors.New("blend: current layout table is required")
	}
	hdr, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:      uuid.New(),
		Header:  hdr,
		Current: current,
		Params:  opts.Params,
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s.log = log.With("session", s.ID.String())

	raw, err := collect(data, hdr)
	if err != nil {
		return nil, err
	}

	stored, err := decodeLayout(raw, hdr, opts.Renames)
	if err != nil {
		return nil, err
	}
	s.Stored = stored
	s.log.Debug("layout decoded",
		"version", hdr.Version,
		"pointer_size", hdr.PointerSize,
		"structs", stored.NumStructs(),
		"blocks", len(raw),
		"undo", opts.Params.UndoDirection.String())

	r := reconcile.New(stored, current, reconcile.WithLogger(s.log))
	if err := s.convert(r, raw, opts); err != nil {
		stored.Release()
		return nil, err
	}

	s.stats.Blocks = len(s.Blocks)
	s.stats.Warnings = len(s.warnings)
	s.log.Debug("file loaded",
		"kept", s.stats.Blocks,
		"converted", s.stats.Converted,
		"raw", s.stats.Raw,
		"skipped", s.stats.Skipped,
		"warnings", s.stats.Warnings)
	return s, nil
}

// collect reads every block header up to ENDB.
func collect(data []byte, hdr FileHeader) ([]bhead.Block, error) {
	rd := bhead.NewReader(data[HeaderSize:], hdr.Width(), hdr.Order)
	var blocks []bhead.Block
	for {
		blk, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return blocks, nil
		}
		if err != nil {
			return nil, err
		}
		blk.Offset += HeaderSize
		blocks = append(blocks, blk)
	}
}

func decodeLayout(blocks []bhead.Block, hdr FileHeader, renames *dna.Renames) (*dna.SDNA, error) {
	for _, blk := range blocks {
		if blk.Code != bhead.CodeDNA1 {
			continue
		}
		stored, err := dna.Decode(blk.Data, dna.WithRenames(renames))
		if err != nil {
			return nil, fmt.Errorf("blend: DNA1 block at offset %d: %w", blk.Offset, err)
		}
		if stored.PointerSize() != hdr.PointerSize || stored.Order() != hdr.Order {
			stored.Release()
			return nil, fmt.Errorf("blend: layout table (ptr %d) disagrees with file header (ptr %d): %w",
				stored.PointerSize(), hdr.PointerSize, dna.ErrFormat)
		}
		return stored, nil
	}
	return nil, ErrNoLayout
}

func (s *Session) convert(r *reconcile.Reconciler, raw []bhead.Block, opts Options) error {
	for _, blk := range raw {
		switch {
		case blk.Code == bhead.CodeDNA1, blk.Code == bhead.CodeTEST, blk.Code == bhead.CodeREND:
			continue
		case blk.Code == bhead.CodeDATA && opts.Params.Skip.Has(SkipData),
			blk.Code == bhead.CodeUSER && !opts.Params.keepUser():
			s.stats.Skipped++
			continue
		}

		if err := blk.Validate(s.Stored); err != nil {
			return fmt.Errorf("blend: block at offset %d: %w", blk.Offset, err)
		}
		b := Block{
			Header:  blk.Header,
			Offset:  blk.Offset,
			Struct:  s.Stored.AliasStructName(int(blk.StructIndex)),
			Current: -1,
			Flag:    r.Flag(int(blk.StructIndex)),
			Raw:     blk.Data,
		}

		cur, ok := r.Counterpart(int(blk.StructIndex))
		if !ok {
			s.log.Debug("struct not in current build, kept raw",
				"struct", b.Struct, "code", blk.Code.String(), "offset", blk.Offset)
			s.stats.Raw++
			s.Blocks = append(s.Blocks, b)
			continue
		}

		res, err := r.ReconcileBlock(int(blk.StructIndex), int(blk.Count), blk.Data)
		if err != nil {
			return fmt.Errorf("blend: %s block %s at offset %d: %w", blk.Code, b.Struct, blk.Offset, err)
		}
		b.Current = cur
		b.Data = res.Data
		for _, w := range res.Warnings {
			if opts.Warnings != nil {
				opts.Warnings.Warn(w)
			}
		}
		s.warnings = append(s.warnings, res.Warnings...)
		s.stats.Converted++
		s.Blocks = append(s.Blocks, b)
	}
	return nil
}

// Warnings returns every lossy conversion of the load.
func (s *Session) Warnings() []reconcile.Warning { return s.warnings }

// Stats returns load counters.
func (s *Session) Stats() Stats { return s.stats }

// Logger returns the session logger.
func (s *Session) Logger() *slog.Logger { return s.log }

// Relink hands every block to rl together with the old-address table. It
// stops at the first error or when ctx is done.
func (s *Session) Relink(ctx context.Context, rl Relinker) error {
	addrs := s.OldAddressTable()
	for i := range s.Blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := rl.Relink(ctx, &s.Blocks[i], addrs); err != nil {
			return fmt.Errorf("blend: relink %s block at offset %d: %w", s.Blocks[i].Struct, s.Blocks[i].Offset, err)
		}
	}
	return nil
}

// Close releases the stored layout table.
func (s *Session) Close() {
	if s.Stored != nil {
		s.Stored.Release()
		s.Stored = nil
	}
}
