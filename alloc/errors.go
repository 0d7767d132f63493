package alloc

import "errors"

var (
	// ErrBadSize indicates a negative size or a zero/non-power-of-two alignment.
	ErrBadSize = errors.New("alloc: bad size or alignment")

	// ErrArenaFreed indicates an Acquire after the arena was freed.
	ErrArenaFreed = errors.New("alloc: arena already freed")

	// ErrPoolExhausted indicates the pool reached its chunk limit.
	ErrPoolExhausted = errors.New("alloc: pool exhausted")

	// ErrBadSlot indicates a slot index outside the carved range.
	ErrBadSlot = errors.New("alloc: bad slot")

	// ErrDoubleFree indicates Free was called on a slot that is already free.
	ErrDoubleFree = errors.New("alloc: slot already free")
)
