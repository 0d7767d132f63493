package index

import (
	"encoding/binary"
	"fmt"

	"github.com/joshuapare/dnakit/alloc"
)

// FNV-1a constants for 32-bit hash.
const (
	fnvBasis32 uint32 = 2166136261
	fnvPrime32 uint32 = 16777619
)

const (
	// GrowLoad is the entries-per-bucket ratio above which the table doubles.
	GrowLoad = 3.0
	// ShrinkLoad is the entries-per-bucket ratio below which the table halves.
	ShrinkLoad = 0.4
	// DefaultMinBuckets is the smallest bucket array the table uses.
	DefaultMinBuckets = 8

	entrySize       = 12 // next(4) | hash(4) | value(4)
	entriesPerChunk = 256
)

// KeyFunc returns the key of a stored value.
type KeyFunc func(value uint32) string

// Stats reports table metrics.
type Stats struct {
	Entries  int
	Buckets  int
	MaxChain int
	Load     float64
	Chunks   int // pool chunks backing the entries
	Grows    int
	Shrinks  int
}

// Table is a chained hash table. See the package documentation.
type Table struct {
	keyOf   KeyFunc
	pool    *alloc.Pool
	buckets []alloc.Slot
	n       int
	minSize int
	grows   int
	shrinks int
}

// Option configures a Table.
type Option func(*Table)

// WithMinBuckets sets the minimum bucket count (rounded up to a power of two).
func WithMinBuckets(n int) Option {
	return func(t *Table) { t.minSize = roundPow2(n) }
}

// New creates an empty table.
func New(keyOf KeyFunc, opts ...Option) *Table {
	t := &Table{
		keyOf:   keyOf,
		pool:    alloc.NewPool(entrySize, entriesPerChunk),
		minSize: DefaultMinBuckets,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.buckets = newBuckets(t.minSize)
	return t
}

// Hash returns the FNV-1a hash of s.
func Hash(s string) uint32 {
	h := fnvBasis32
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime32
	}
	return h
}

// Insert maps key to value, replacing the value of an existing entry.
func (t *Table) Insert(key string, value uint32) error {
	h := Hash(key)
	if s, ok := t.find(key, h); ok {
		t.setValue(s, value)
		return nil
	}

	s, err := t.pool.Alloc()
	if err != nil {
		return fmt.Errorf("index: insert %q: %w", key, err)
	}
	b := t.bucket(h)
	t.writeEntry(s, t.buckets[b], h, value)
	t.buckets[b] = s
	t.n++

	if float64(t.n) > GrowLoad*float64(len(t.buckets)) {
		t.resize(len(t.buckets) * 2)
		t.grows++
	}
	return nil
}

// Lookup returns the value stored under key.
func (t *Table) Lookup(key string) (uint32, bool) {
	s, ok := t.find(key, Hash(key))
	if !ok {
		return 0, false
	}
	return t.value(s), true
}

// Contains reports whether key is present.
func (t *Table) Contains(key string) bool {
	_, ok := t.find(key, Hash(key))
	return ok
}

// Remove deletes key. It reports whether an entry was removed.
func (t *Table) Remove(key string) bool {
	h := Hash(key)
	b := t.bucket(h)
	prev := alloc.NilSlot
	for s := t.buckets[b]; s != alloc.NilSlot; s = t.next(s) {
		if t.hash(s) != h || t.keyOf(t.value(s)) != key {
			prev = s
			continue
		}
		if prev == alloc.NilSlot {
			t.buckets[b] = t.next(s)
		} else {
			t.setNext(prev, t.next(s))
		}
		// The slot was reached through a live chain, so Free cannot fail.
		_ = t.pool.Free(s)
		t.n--

		if len(t.buckets) > t.minSize && float64(t.n) < ShrinkLoad*float64(len(t.buckets)) {
			t.resize(max(t.minSize, len(t.buckets)/2))
			t.shrinks++
		}
		return true
	}
	return false
}

// Len returns the number of entries.
func (t *Table) Len() int { return t.n }

// Buckets returns the current bucket count.
func (t *Table) Buckets() int { return len(t.buckets) }

// Each calls fn for every entry in bucket order until fn returns false.
func (t *Table) Each(fn func(key string, value uint32) bool) {
	for _, head := range t.buckets {
		for s := head; s != alloc.NilSlot; s = t.next(s) {
			v := t.value(s)
			if !fn(t.keyOf(v), v) {
				return
			}
		}
	}
}

// Clear removes every entry and shrinks back to the minimum bucket count.
func (t *Table) Clear() {
	t.pool.Clear(1)
	t.buckets = newBuckets(t.minSize)
	t.n = 0
}

// Stats returns table metrics.
func (t *Table) Stats() Stats {
	longest := 0
	for _, head := range t.buckets {
		n := 0
		for s := head; s != alloc.NilSlot; s = t.next(s) {
			n++
		}
		longest = max(longest, n)
	}
	return Stats{
		Entries:  t.n,
		Buckets:  len(t.buckets),
		MaxChain: longest,
		Load:     float64(t.n) / float64(len(t.buckets)),
		Chunks:   t.pool.ChunkCount(),
		Grows:    t.grows,
		Shrinks:  t.shrinks,
	}
}

func (t *Table) find(key string, h uint32) (alloc.Slot, bool) {
	for s := t.buckets[t.bucket(h)]; s != alloc.NilSlot; s = t.next(s) {
		if t.hash(s) == h && t.keyOf(t.value(s)) == key {
			return s, true
		}
	}
	return alloc.NilSlot, false
}

func (t *Table) resize(n int) {
	old := t.buckets
	t.buckets = newBuckets(n)
	for _, head := range old {
		s := head
		for s != alloc.NilSlot {
			next := t.next(s)
			b := t.bucket(t.hash(s))
			t.setNext(s, t.buckets[b])
			t.buckets[b] = s
			s = next
		}
	}
}

func (t *Table) bucket(h uint32) int { return int(h & uint32(len(t.buckets)-1)) }

func (t *Table) writeEntry(s, next alloc.Slot, h, value uint32) {
	e := t.pool.Bytes(s)
	binary.LittleEndian.PutUint32(e[0:], uint32(next))
	binary.LittleEndian.PutUint32(e[4:], h)
	binary.LittleEndian.PutUint32(e[8:], value)
}

func (t *Table) next(s alloc.Slot) alloc.Slot {
	return alloc.Slot(binary.LittleEndian.Uint32(t.pool.Bytes(s)[0:]))
}

func (t *Table) setNext(s, next alloc.Slot) {
	binary.LittleEndian.PutUint32(t.pool.Bytes(s)[0:], uint32(next))
}

func (t *Table) hash(s alloc.Slot) uint32 {
	return binary.LittleEndian.Uint32(t.pool.Bytes(s)[4:])
}

func (t *Table) value(s alloc.Slot) uint32 {
	return binary.LittleEndian.Uint32(t.pool.Bytes(s)[8:])
}

func (t *Table) setValue(s alloc.Slot, v uint32) {
	binary.LittleEndian.PutUint32(t.pool.Bytes(s)[8:], v)
}

func newBuckets(n int) []alloc.Slot {
	b := make([]alloc.Slot, n)
	for i := range b {
		b[i] = alloc.NilSlot
	}
	return b
}

func roundPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
