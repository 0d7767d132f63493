package blend

import (
	"context"

	"github.com/joshuapare/dnakit/bhead"
	"github.com/joshuapare/dnakit/dna"
	"github.com/joshuapare/dnakit/internal/buf"
)

// AddressTable maps the old address recorded in each block header to the
// block. Keys are in the current pointer width: when an 8-byte file is
// loaded by a 4-byte build, header addresses are folded the same way pointer
// members were, so a pointer value read from converted data finds its block.
type AddressTable struct {
	blocks []Block
	byAddr map[uint64]int
	fold   bool
}

// OldAddressTable builds the table once all blocks are loaded. Later calls
// return the same table.
func (s *Session) OldAddressTable() *AddressTable {
	if s.addrs != nil {
		return s.addrs
	}
	t := &AddressTable{
		blocks: s.Blocks,
		byAddr: make(map[uint64]int, len(s.Blocks)),
		fold:   s.Header.PointerSize == 8 && s.Current.PointerSize() == 4,
	}
	for i := range s.Blocks {
		addr := t.key(s.Blocks[i].OldAddress)
		if addr == 0 {
			continue
		}
		if prev, dup := t.byAddr[addr]; dup {
			s.log.Debug("duplicate old address",
				"addr", addr, "first_offset", s.Blocks[prev].Offset, "offset", s.Blocks[i].Offset)
			continue
		}
		t.byAddr[addr] = i
	}
	s.addrs = t
	return t
}

func (t *AddressTable) key(addr uint64) uint64 {
	if t.fold {
		n, _ := bhead.NarrowAddress(addr)
		return uint64(n)
	}
	return addr
}

// Lookup returns the block a converted pointer value refers to.
func (t *AddressTable) Lookup(addr uint64) (*Block, bool) {
	if addr == 0 {
		return nil, false
	}
	i, ok := t.byAddr[addr]
	if !ok {
		return nil, false
	}
	return &t.blocks[i], true
}

// Len returns the number of distinct addresses.
func (t *AddressTable) Len() int { return len(t.byAddr) }

// Relinker rewrites the old addresses inside a converted block. The engine
// never dereferences old addresses itself; a Relinker is the collaborator
// that knows what the new addresses are.
type Relinker interface {
	Relink(ctx context.Context, b *Block, addrs *AddressTable) error
}

// RelinkFunc adapts a function to Relinker.
type RelinkFunc func(ctx context.Context, b *Block, addrs *AddressTable) error

func (f RelinkFunc) Relink(ctx context.Context, b *Block, addrs *AddressTable) error {
	return f(ctx, b, addrs)
}

// PointerOffsets returns the byte offset of every pointer inside one
// instance of struct i, descending into by-value struct members.
func PointerOffsets(s *dna.SDNA, i int) []int {
	var out []int
	var walk func(si, base, depth int)
	walk = func(si, base, depth int) {
		if depth > 64 {
			return
		}
		offs := s.MemberOffsets(si)
		for j, m := range s.Struct(si).Members {
			n := s.ParsedName(int(m.Name))
			if n.IsPointer() {
				for k := 0; k < n.ArrayLen; k++ {
					out = append(out, base+offs[j]+k*s.PointerSize())
				}
				continue
			}
			if nested, ok := s.StructForType(int(m.Type)); ok {
				size := s.StructSize(nested)
				for k := 0; k < n.ArrayLen; k++ {
					walk(nested, base+offs[j]+k*size, depth+1)
				}
			}
		}
	}
	walk(i, 0, 0)
	return out
}

// Pointers calls fn with every non-zero pointer value in a converted block,
// together with its offset in Data.
func (s *Session) Pointers(b *Block, fn func(off int, addr uint64)) {
	if !b.Converted() {
		return
	}
	size := s.Current.StructSize(b.Current)
	if size == 0 {
		return
	}
	ptr := s.Current.PointerSize()
	offs := PointerOffsets(s.Current, b.Current)
	for base := 0; base+size <= len(b.Data); base += size {
		for _, off := range offs {
			if addr := buf.Uint(b.Data[base+off:], ptr, s.Current.Order()); addr != 0 {
				fn(base+off, addr)
			}
		}
	}
}

// SetPointer overwrites the pointer at off in a converted block.
func (s *Session) SetPointer(b *Block, off int, addr uint64) {
	buf.PutUint(b.Data[off:], s.Current.PointerSize(), addr, s.Current.Order())
}
