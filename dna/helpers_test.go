package dna

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// meshBuilder declares a small mesh-like layout used across tests.
func meshBuilder(ptr int, order binary.ByteOrder) *Builder {
	return NewBuilder(ptr, order).
		Struct("Link", Field("Link", "*next"), Field("Link", "*prev")).
		Struct("MVert", Field("float", "co[3]"), Field("short", "no[3]"), Field("char", "flag"), Field("char", "bweight")).
		Struct("MEdge", Field("uint", "v1"), Field("uint", "v2"), Field("char", "crease"), Field("char", "bweight"), Field("ushort", "flag")).
		Struct("Mesh",
			Field("Link", "id"),
			Field("char", "name[66]"),
			Field("MVert", "*mvert"),
			Field("MEdge", "*medge"),
			Field("int", "totvert"),
			Field("int", "totedge"),
			Field("float", "obmat[4][4]"),
			Field("void", "(*callback)()"),
		)
}

func buildMesh(t testing.TB, ptr int, order binary.ByteOrder, opts ...Option) *SDNA {
	t.Helper()
	s, err := meshBuilder(ptr, order).Build(opts...)
	require.NoError(t, err)
	return s
}
