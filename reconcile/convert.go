package reconcile

import (
	"encoding/binary"
	"math"

	"github.com/joshuapare/dnakit/bhead"
	"github.com/joshuapare/dnakit/dna"
	"github.com/joshuapare/dnakit/internal/buf"
)

// scalar is one primitive value lifted out of its stored encoding.
type scalar struct {
	kind dna.Kind
	i    int64   // signed kinds
	u    uint64  // unsigned kinds
	f    float64 // float kinds
}

func readScalar(b []byte, k dna.Kind, order binary.ByteOrder) scalar {
	raw := buf.Uint(b, k.Size(), order)
	v := scalar{kind: k}
	switch k {
	case dna.KindInt8:
		v.i = int64(int8(raw))
	case dna.KindInt16:
		v.i = int64(int16(raw))
	case dna.KindInt32:
		v.i = int64(int32(raw))
	case dna.KindInt64:
		v.i = int64(raw)
	case dna.KindUint8, dna.KindUint16, dna.KindUint32, dna.KindUint64:
		v.u = raw
	case dna.KindFloat32:
		v.f = float64(math.Float32frombits(uint32(raw)))
	case dna.KindFloat64:
		v.f = math.Float64frombits(raw)
	}
	return v
}

// writeScalar converts v to kind k and stores it. It returns the category of
// the loss, or "" when the value was represented exactly or by a defined
// rounding (float narrowing, truncation toward zero).
func writeScalar(b []byte, k dna.Kind, order binary.ByteOrder, v scalar) Category {
	switch {
	case k.IsFloat():
		f, loss := v.float()
		if k == dna.KindFloat32 {
			if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
				loss = CatFloatOverflow
			}
			buf.PutUint(b, 4, uint64(math.Float32bits(float32(f))), order)
		} else {
			buf.PutUint(b, 8, math.Float64bits(f), order)
		}
		return loss
	case k.IsSigned():
		n, loss := v.toSigned(k.Size() * 8)
		buf.PutUint(b, k.Size(), uint64(n), order)
		return loss
	case k.IsInteger():
		n, loss := v.toUnsigned(k.Size() * 8)
		buf.PutUint(b, k.Size(), n, order)
		return loss
	}
	return CatIncompatible
}

func (v scalar) float() (float64, Category) {
	switch {
	case v.kind.IsFloat():
		return v.f, ""
	case v.kind.IsSigned():
		return float64(v.i), ""
	default:
		return float64(v.u), ""
	}
}

func (v scalar) toSigned(bits int) (int64, Category) {
	lo := -int64(1) << (bits - 1)
	hi := int64(uint64(1)<<(bits-1) - 1)
	switch {
	case v.kind.IsFloat():
		if math.IsNaN(v.f) {
			return 0, CatFloatRange
		}
		t := math.Trunc(v.f)
		if t < -math.Ldexp(1, bits-1) {
			return lo, CatFloatRange
		}
		if t >= math.Ldexp(1, bits-1) {
			return hi, CatFloatRange
		}
		return int64(t), ""
	case v.kind.IsSigned():
		if v.i < lo {
			return lo, CatSaturated
		}
		if v.i > hi {
			return hi, CatSaturated
		}
		return v.i, ""
	default:
		if v.u > uint64(hi) {
			return hi, CatSaturated
		}
		return int64(v.u), ""
	}
}

func (v scalar) toUnsigned(bits int) (uint64, Category) {
	hi := uint64(math.MaxUint64)
	if bits < 64 {
		hi = uint64(1)<<bits - 1
	}
	switch {
	case v.kind.IsFloat():
		if math.IsNaN(v.f) {
			return 0, CatFloatRange
		}
		t := math.Trunc(v.f)
		if t < 0 {
			return 0, CatFloatRange
		}
		if t >= math.Ldexp(1, bits) {
			return hi, CatFloatRange
		}
		return uint64(t), ""
	case v.kind.IsSigned():
		if v.i < 0 {
			return 0, CatSaturated
		}
		if uint64(v.i) > hi {
			return hi, CatSaturated
		}
		return uint64(v.i), ""
	default:
		if v.u > hi {
			return hi, CatSaturated
		}
		return v.u, ""
	}
}

// copyElements copies n elements of size bytes from src to dst, swapping each
// element when the orders differ.
func copyElements(dst, src []byte, n, size int, swap bool) {
	total := n * size
	copy(dst[:total], src[:total])
	if !swap || size < 2 {
		return
	}
	for off := 0; off < total; off += size {
		buf.Swap(dst[off : off+size])
	}
}

// convertAddress moves one stored old address to the current pointer width.
// ok is false when an 8-byte address does not survive folding to 4 bytes.
func convertAddress(addr uint64, fromWidth, toWidth int) (uint64, bool) {
	if fromWidth == 8 && toWidth == 4 {
		n, ok := bhead.NarrowAddress(addr)
		return uint64(n), ok
	}
	return addr, true
}
