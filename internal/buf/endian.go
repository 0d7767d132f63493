// Package buf contains bounds-checked, byte-order aware decoding helpers.
package buf

import "encoding/binary"

// U16 reads a uint16 in the given order from b. Returns 0 when b is too short.
func U16(b []byte, order binary.ByteOrder) uint16 {
	if len(b) < 2 {
		return 0
	}
	return order.Uint16(b)
}

// U32 reads a uint32 in the given order from b. Returns 0 when b is too short.
func U32(b []byte, order binary.ByteOrder) uint32 {
	if len(b) < 4 {
		return 0
	}
	return order.Uint32(b)
}

// U64 reads a uint64 in the given order from b. Returns 0 when b is too short.
func U64(b []byte, order binary.ByteOrder) uint64 {
	if len(b) < 8 {
		return 0
	}
	return order.Uint64(b)
}

// I32 reads an int32 in the given order from b. Returns 0 when b is too short.
func I32(b []byte, order binary.ByteOrder) int32 {
	return int32(U32(b, order))
}

// Uint reads an unsigned integer of width 1, 2, 4 or 8 bytes, zero-extended to
// 64 bits. Any other width, or a short buffer, yields 0.
func Uint(b []byte, width int, order binary.ByteOrder) uint64 {
	if len(b) < width {
		return 0
	}
	switch width {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(order.Uint16(b))
	case 4:
		return uint64(order.Uint32(b))
	case 8:
		return order.Uint64(b)
	}
	return 0
}

// PutUint writes the low width bytes of v into b. It is a no-op when b is too
// short or width is unsupported.
func PutUint(b []byte, width int, v uint64, order binary.ByteOrder) {
	if len(b) < width {
		return
	}
	switch width {
	case 1:
		b[0] = byte(v)
	case 2:
		order.PutUint16(b, uint16(v))
	case 4:
		order.PutUint32(b, uint32(v))
	case 8:
		order.PutUint64(b, v)
	}
}

// Swap reverses b in place. Used to convert a single scalar between byte orders.
func Swap(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
