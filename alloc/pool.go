package alloc

import (
	"encoding/binary"
	"fmt"
)

// FreeWord is written over the leading bytes of every freed slot.
const FreeWord uint64 = 0xFEEDFACEDEADBEEF

// Slot identifies one element of a Pool.
type Slot uint32

// NilSlot is never returned by Alloc.
const NilSlot Slot = ^Slot(0)

// PoolStats reports pool usage.
type PoolStats struct {
	Chunks int // chunks currently linked
	Live   int // slots currently allocated
	Free   int // slots on the free list
	Carved int // slots ever carved from chunks (high-water mark)
}

// Pool is a fixed-size slab allocator with free-list reuse. See the package
// documentation.
type Pool struct {
	elemSize  int
	perChunk  int
	maxChunks int

	chunks [][]byte
	carved int      // slots carved so far; slot i lives in chunk i/perChunk
	free   []Slot   // LIFO free list
	isFree []uint64 // bit per carved slot, set while the slot is free
	live   int
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithMaxChunks caps the number of chunks; Alloc returns ErrPoolExhausted past it.
func WithMaxChunks(n int) PoolOption {
	return func(p *Pool) { p.maxChunks = n }
}

// NewPool creates a pool of elemSize-byte slots, perChunk slots per chunk.
// Non-positive arguments fall back to 8 bytes and 512 slots.
func NewPool(elemSize, perChunk int, opts ...PoolOption) *Pool {
	if elemSize <= 0 {
		elemSize = 8
	}
	if perChunk <= 0 {
		perChunk = 512
	}
	p := &Pool{elemSize: elemSize, perChunk: perChunk}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ElemSize returns the slot size in bytes.
func (p *Pool) ElemSize() int { return p.elemSize }

// Alloc returns a zeroed slot, reusing the most recently freed one if any.
func (p *Pool) Alloc() (Slot, error) {
	if n := len(p.free); n > 0 {
		s := p.free[n-1]
		p.free = p.free[:n-1]
		p.clearFree(s)
		clear(p.bytes(s))
		p.live++
		return s, nil
	}

	if p.carved == len(p.chunks)*p.perChunk {
		if p.maxChunks > 0 && len(p.chunks) >= p.maxChunks {
			return NilSlot, fmt.Errorf("pool: %d chunks: %w", len(p.chunks), ErrPoolExhausted)
		}
		p.chunks = append(p.chunks, make([]byte, p.elemSize*p.perChunk))
	}

	s := Slot(p.carved)
	p.carved++
	if need := (p.carved + 63) / 64; need > len(p.isFree) {
		p.isFree = append(p.isFree, 0)
	}
	p.live++
	return s, nil
}

// Bytes returns the slot's storage, or nil for a slot that was never carved.
func (p *Pool) Bytes(s Slot) []byte {
	if int(s) >= p.carved {
		return nil
	}
	return p.bytes(s)
}

// Free returns s to the free list and stamps it with FreeWord.
func (p *Pool) Free(s Slot) error {
	if int(s) >= p.carved {
		return fmt.Errorf("pool: slot %d of %d: %w", s, p.carved, ErrBadSlot)
	}
	if p.slotFree(s) {
		return fmt.Errorf("pool: slot %d: %w", s, ErrDoubleFree)
	}
	stampFreeWord(p.bytes(s))
	p.setFree(s)
	p.free = append(p.free, s)
	p.live--
	return nil
}

// IsFree reports whether s is currently on the free list.
func (p *Pool) IsFree(s Slot) bool {
	return int(s) < p.carved && p.slotFree(s)
}

// Trim releases trailing chunks that hold no live slot, keeping at least one
// chunk. Free-list entries pointing into released chunks are dropped.
func (p *Pool) Trim() {
	if len(p.chunks) <= 1 {
		return
	}
	highest := -1
	for i := p.carved - 1; i >= 0; i-- {
		if !p.slotFree(Slot(i)) {
			highest = i
			break
		}
	}
	keep := max(1, highest/p.perChunk+1)
	if keep >= len(p.chunks) {
		return
	}
	limit := keep * p.perChunk
	for i := keep; i < len(p.chunks); i++ {
		p.chunks[i] = nil
	}
	p.chunks = p.chunks[:keep]

	kept := p.free[:0]
	for _, s := range p.free {
		if int(s) < limit {
			kept = append(kept, s)
		}
	}
	p.free = kept
	p.carved = min(p.carved, limit)
	p.isFree = p.isFree[:(p.carved+63)/64]
	if tail := p.carved % 64; tail != 0 && len(p.isFree) > 0 {
		p.isFree[len(p.isFree)-1] &= (1 << tail) - 1
	}
}

// Clear drops every slot and keeps at most keepChunks chunks for reuse.
func (p *Pool) Clear(keepChunks int) {
	keepChunks = max(0, min(keepChunks, len(p.chunks)))
	for i := keepChunks; i < len(p.chunks); i++ {
		p.chunks[i] = nil
	}
	p.chunks = p.chunks[:keepChunks]
	p.carved = 0
	p.free = p.free[:0]
	p.isFree = p.isFree[:0]
	p.live = 0
}

// Len returns the number of live slots.
func (p *Pool) Len() int { return p.live }

// ChunkCount returns the number of linked chunks.
func (p *Pool) ChunkCount() int { return len(p.chunks) }

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Chunks: len(p.chunks),
		Live:   p.live,
		Free:   len(p.free),
		Carved: p.carved,
	}
}

func (p *Pool) bytes(s Slot) []byte {
	chunk := p.chunks[int(s)/p.perChunk]
	off := (int(s) % p.perChunk) * p.elemSize
	return chunk[off : off+p.elemSize : off+p.elemSize]
}

func (p *Pool) slotFree(s Slot) bool { return p.isFree[s/64]&(1<<(s%64)) != 0 }
func (p *Pool) setFree(s Slot)       { p.isFree[s/64] |= 1 << (s % 64) }
func (p *Pool) clearFree(s Slot)     { p.isFree[s/64] &^= 1 << (s % 64) }

func stampFreeWord(b []byte) {
	var word [8]byte
	binary.LittleEndian.PutUint64(word[:], FreeWord)
	copy(b, word[:])
}
