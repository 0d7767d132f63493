// Package alloc provides the two session-scoped allocators used while decoding
// and converting stored layouts.
//
// # Arena
//
// Arena is a bump allocator over a chain of chunks. Regions are carved from the
// current chunk; when a request does not fit, a new chunk of
// max(request, chunk size) bytes is linked onto the chain. Regions are never
// released individually: Reset rewinds to the first chunk and Free drops the
// whole chain.
//
//	a := alloc.NewArena("sdna", 0, alloc.WithZeroFill())
//	region, err := a.Acquire(64, 8)
//	if err != nil {
//	    return err
//	}
//	defer a.Free()
//
// With WithZeroFill the arena guarantees every region it hands out reads as
// zero, including regions carved from chunks reused after Reset. The struct
// reconciler depends on this for default field values.
//
// # Pool
//
// Pool is a slab allocator for fixed-size slots. Slots are addressed by index
// (Slot), never by raw address. Freed slots go onto a LIFO free list and are
// reused before any new chunk is carved, so matched Alloc/Free churn never
// grows the chunk chain.
//
//	p := alloc.NewPool(12, 512)
//	s, err := p.Alloc()
//	copy(p.Bytes(s), entry)
//	_ = p.Free(s)
//
// Free overwrites the leading bytes of a slot with FreeWord so a stale read of
// a released slot is easy to spot in a dump. That is a debugging aid; double
// frees are detected from the pool's own bookkeeping and return ErrDoubleFree.
//
// # Thread Safety
//
// Neither allocator is safe for concurrent use. Each load session owns its own
// instances and releases them when it ends.
package alloc
