// Package index provides a chained hash table mapping string keys to uint32
// values, with entries allocated from an alloc.Pool.
//
// # Overview
//
// Table backs the struct lookup index of a decoded layout table. It does not
// store keys: every entry holds (next, hash, value) and the caller supplies a
// KeyFunc that recovers the key of a stored value. For struct lookups the value
// is a struct position and the key is that struct's type name, already held by
// the layout table, so the index costs 12 bytes per entry plus one bucket head.
//
//	t := index.New(func(v uint32) string { return names[v] })
//	if err := t.Insert("Vertex", 3); err != nil {
//	    return err
//	}
//	pos, ok := t.Lookup("Vertex")
//
// # Hashing
//
// Keys are hashed with 32-bit FNV-1a and compared case-sensitively. Bucket
// counts are powers of two, so the bucket is hash & (buckets-1).
//
// # Resizing
//
// The table doubles its bucket array when the load factor exceeds GrowLoad
// (3 entries per bucket) and halves it when a removal takes the load factor
// below ShrinkLoad (0.4), never going below the minimum bucket count. The gap
// between the two thresholds keeps alternating inserts and removals from
// resizing on every call. Resizing relinks existing entries in place; slots
// are not reallocated.
//
// # Thread Safety
//
// Table is not safe for concurrent mutation.
package index
