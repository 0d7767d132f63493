package alloc

import "fmt"

// DefaultChunkSize is the arena chunk size used when none is given (64 KiB).
const DefaultChunkSize = 64 * 1024

// DefaultAlignment is used when Acquire is called with align == 0.
const DefaultAlignment = 8

// ArenaStats reports arena usage.
type ArenaStats struct {
	Chunks        int // chunks currently linked
	BytesReserved int // total bytes held by linked chunks
	BytesUsed     int // bytes handed out since the last Reset
	BytesWasted   int // alignment padding plus abandoned chunk tails
	Acquires      int // regions handed out since the last Reset
}

// Arena is a chunked bump allocator. See the package documentation.
type Arena struct {
	name      string
	chunkSize int
	zeroFill  bool

	chunks    [][]byte // chain; the last element is the current chunk
	off       int      // next free byte in the current chunk
	firstUsed int      // high-water mark of the first chunk since the last Reset
	freed     bool

	stats ArenaStats
}

// ArenaOption configures an Arena.
type ArenaOption func(*Arena)

// WithZeroFill makes every region read as zero, including regions reused after
// Reset.
func WithZeroFill() ArenaOption {
	return func(a *Arena) { a.zeroFill = true }
}

// NewArena creates an arena. chunkSize <= 0 selects DefaultChunkSize. The name
// only shows up in error messages.
func NewArena(name string, chunkSize int, opts ...ArenaOption) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	a := &Arena{name: name, chunkSize: chunkSize}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the label given at construction.
func (a *Arena) Name() string { return a.name }

// Acquire returns a region of exactly size bytes whose offset within its chunk
// is a multiple of align (align 0 means DefaultAlignment).
func (a *Arena) Acquire(size, align int) ([]byte, error) {
	if a.freed {
		return nil, fmt.Errorf("arena %q: %w", a.name, ErrArenaFreed)
	}
	if align == 0 {
		align = DefaultAlignment
	}
	if size < 0 || align < 0 || align&(align-1) != 0 {
		return nil, fmt.Errorf("arena %q: size=%d align=%d: %w", a.name, size, align, ErrBadSize)
	}

	start := alignUp(a.off, align)
	if len(a.chunks) == 0 || start+size > len(a.current()) {
		if len(a.chunks) > 0 {
			a.stats.BytesWasted += len(a.current()) - a.off
		}
		a.newChunk(size)
		start = 0
	}

	a.stats.BytesWasted += start - a.off
	a.stats.BytesUsed += size
	a.stats.Acquires++

	region := a.current()[start : start+size : start+size]
	a.off = start + size
	if len(a.chunks) == 1 {
		a.firstUsed = max(a.firstUsed, a.off)
	}
	return region, nil
}

// Copy acquires len(src) bytes and copies src into them.
func (a *Arena) Copy(src []byte) ([]byte, error) {
	dst, err := a.Acquire(len(src), 1)
	if err != nil {
		return nil, err
	}
	copy(dst, src)
	return dst, nil
}

// Reset rewinds the arena to its first chunk. Later chunks are released.
// Regions handed out before the call must not be used afterwards.
func (a *Arena) Reset() {
	if len(a.chunks) == 0 {
		return
	}
	first := a.chunks[0]
	if a.zeroFill {
		clear(first[:a.firstUsed])
	}
	a.firstUsed = 0
	for i := 1; i < len(a.chunks); i++ {
		a.chunks[i] = nil
	}
	a.chunks = a.chunks[:1]
	a.off = 0
	a.stats = ArenaStats{Chunks: 1, BytesReserved: len(first)}
}

// Free releases the whole chain. The arena cannot be used afterwards.
func (a *Arena) Free() {
	a.chunks = nil
	a.off = 0
	a.firstUsed = 0
	a.freed = true
	a.stats = ArenaStats{}
}

// Stats returns a snapshot of the usage counters.
func (a *Arena) Stats() ArenaStats { return a.stats }

func (a *Arena) current() []byte { return a.chunks[len(a.chunks)-1] }

func (a *Arena) newChunk(need int) {
	size := max(need, a.chunkSize)
	a.chunks = append(a.chunks, make([]byte, size))
	a.off = 0
	a.stats.Chunks++
	a.stats.BytesReserved += size
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
