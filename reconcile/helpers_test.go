package reconcile

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/dnakit/dna"
)

var le = binary.LittleEndian

// byteOrder reads and appends, like binary.LittleEndian and binary.BigEndian.
type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

func build(t testing.TB, ptr int, order binary.ByteOrder, decl func(b *dna.Builder), opts ...dna.Option) *dna.SDNA {
	t.Helper()
	b := dna.NewBuilder(ptr, order)
	decl(b)
	s, err := b.Build(opts...)
	require.NoError(t, err)
	return s
}

func mustResolve(t testing.TB, s *dna.SDNA, name string) int {
	t.Helper()
	i, ok := s.Resolve(name)
	require.True(t, ok, "struct %s", name)
	return i
}

// single builds a one-field struct "S" on each side and returns the
// reconciler plus the positions of S.
func single(t testing.TB, oldType, oldName, curType, curName string) (*Reconciler, int, int) {
	t.Helper()
	old := build(t, 8, le, func(b *dna.Builder) { b.Struct("S", dna.Field(oldType, oldName)) })
	cur := build(t, 8, le, func(b *dna.Builder) { b.Struct("S", dna.Field(curType, curName)) })
	return New(old, cur), mustResolve(t, old, "S"), mustResolve(t, cur, "S")
}

func f32(order byteOrder, vs ...float32) []byte {
	var out []byte
	for _, v := range vs {
		out = order.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

func i32(order byteOrder, vs ...int32) []byte {
	var out []byte
	for _, v := range vs {
		out = order.AppendUint32(out, uint32(v))
	}
	return out
}

func i16(order byteOrder, vs ...int16) []byte {
	var out []byte
	for _, v := range vs {
		out = order.AppendUint16(out, uint16(v))
	}
	return out
}

func categories(ws []Warning) []Category {
	out := make([]Category, len(ws))
	for i, w := range ws {
		out[i] = w.Category
	}
	return out
}
