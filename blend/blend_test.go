package blend

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/dnakit/bhead"
	"github.com/joshuapare/dnakit/dna"
	"github.com/joshuapare/dnakit/reconcile"
)

var codeME = bhead.MakeCode("ME")

// byteOrder reads and appends, like binary.LittleEndian and binary.BigEndian.
type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

func storedLayout(t testing.TB, ptr int, order binary.ByteOrder) *dna.SDNA {
	t.Helper()
	s, err := dna.NewBuilder(ptr, order).
		Struct("ID", dna.Field("ID", "*next"), dna.Field("char", "name[8]")).
		Struct("Vertex", dna.Field("float", "pos[3]")).
		Struct("Mesh", dna.Field("ID", "id"), dna.Field("Vertex", "*verts"), dna.Field("int", "totvert")).
		Struct("Prefs", dna.Field("int", "flag")).
		Struct("Legacy", dna.Field("int", "x")).
		Build()
	require.NoError(t, err)
	return s
}

func currentLayout(t testing.TB, ptr int) *dna.SDNA {
	t.Helper()
	s, err := dna.NewBuilder(ptr, binary.LittleEndian).
		Struct("ID", dna.Field("ID", "*next"), dna.Field("char", "name[8]")).
		Struct("Vertex", dna.Field("float", "pos[3]"), dna.Field("uchar", "flag")).
		Struct("Mesh",
			dna.Field("ID", "id"),
			dna.Field("Vertex", "*verts"),
			dna.Field("short", "totvert"),
			dna.Field("float", "scale")).
		Struct("Prefs", dna.Field("int", "flag")).
		Build()
	require.NoError(t, err)
	return s
}

type fixture struct {
	stored   *dna.SDNA
	data     []byte
	vertAddr uint64
}

// writeFixture stores a mesh, its vertex array, user preferences and a block
// of a struct the current build no longer has.
func writeFixture(t testing.TB, ptr int, order byteOrder, vertAddr uint64) fixture {
	t.Helper()
	s := storedLayout(t, ptr, order)
	idx := func(name string) uint32 {
		i, ok := s.Resolve(name)
		require.True(t, ok)
		return uint32(i)
	}
	addr := func(v uint64) []byte {
		if ptr == 4 {
			return order.AppendUint32(nil, uint32(v))
		}
		return order.AppendUint64(nil, v)
	}

	var mesh []byte
	mesh = append(mesh, addr(0)...)
	mesh = append(mesh, "cube\x00\x00\x00\x00"...)
	mesh = append(mesh, addr(vertAddr)...)
	mesh = order.AppendUint32(mesh, 70000)

	var verts []byte
	for _, f := range []float32{1, 2, 3, 4, 5, 6} {
		verts = order.AppendUint32(verts, math.Float32bits(f))
	}

	var out bytes.Buffer
	require.NoError(t, Write(&out, s, 300, []WriteBlock{
		{Code: codeME, OldAddress: 0x1000, StructIndex: idx("Mesh"), Count: 1, Data: mesh},
		{Code: bhead.CodeDATA, OldAddress: vertAddr, StructIndex: idx("Vertex"), Count: 2, Data: verts},
		{Code: bhead.CodeUSER, OldAddress: 0x3000, StructIndex: idx("Prefs"), Count: 1, Data: order.AppendUint32(nil, 7)},
		{Code: bhead.CodeDATA, OldAddress: 0x4000, StructIndex: idx("Legacy"), Count: 1, Data: order.AppendUint32(nil, 9)},
	}))
	return fixture{stored: s, data: out.Bytes(), vertAddr: vertAddr}
}

func TestOpenConvertsBlocks(t *testing.T) {
	fx := writeFixture(t, 4, binary.BigEndian, 0x2000)
	cur := currentLayout(t, 8)
	sink := reconcile.NewCollector()

	sess, err := Open(fx.data, cur, Options{Warnings: sink})
	require.NoError(t, err)
	defer sess.Close()

	require.Equal(t, FileHeader{PointerSize: 4, Order: binary.BigEndian, Version: 300}, sess.Header)
	require.Equal(t, Stats{Blocks: 3, Converted: 2, Raw: 1, Skipped: 1, Warnings: 1}, sess.Stats())
	require.Len(t, sess.Blocks, 3)

	mesh := sess.Blocks[0]
	require.Equal(t, codeME, mesh.Code)
	require.Equal(t, "Mesh", mesh.Struct)
	require.True(t, mesh.Converted())
	require.Equal(t, reconcile.Different, mesh.Flag)
	require.Len(t, mesh.Data, 30)
	require.Equal(t, "cube", strings.TrimRight(string(mesh.Data[8:16]), "\x00"))
	require.Equal(t, uint64(0x2000), binary.LittleEndian.Uint64(mesh.Data[16:24]))
	require.Equal(t, int16(math.MaxInt16), int16(binary.LittleEndian.Uint16(mesh.Data[24:26])))
	require.Equal(t, make([]byte, 4), mesh.Data[26:30])

	verts := sess.Blocks[1]
	require.Equal(t, uint32(2), verts.Count)
	require.Len(t, verts.Data, 26)
	require.Equal(t, float32(4), math.Float32frombits(binary.LittleEndian.Uint32(verts.Data[13:17])))
	require.Zero(t, verts.Data[25])

	legacy := sess.Blocks[2]
	require.False(t, legacy.Converted())
	require.Equal(t, reconcile.NotInCurrent, legacy.Flag)
	require.Nil(t, legacy.Data)
	require.Equal(t, []byte{0, 0, 0, 9}, legacy.Raw)

	require.Len(t, sess.Warnings(), 1)
	w := sess.Warnings()[0]
	require.Equal(t, reconcile.CatSaturated, w.Category)
	require.Equal(t, "Mesh", w.Struct)
	require.Equal(t, "totvert", w.Field)
	require.Equal(t, sess.Warnings(), sink.Warnings())
}

func TestOpenReadParams(t *testing.T) {
	fx := writeFixture(t, 8, binary.LittleEndian, 0x2000)
	cur := currentLayout(t, 8)

	sess, err := Open(fx.data, cur, Options{Params: ReadParams{IsStartup: true}})
	require.NoError(t, err)
	codes := blockCodes(sess)
	require.Equal(t, []bhead.Code{codeME, bhead.CodeDATA, bhead.CodeUSER, bhead.CodeDATA}, codes)

	sess, err = Open(fx.data, cur, Options{Params: ReadParams{IsStartup: true, Skip: SkipUserDef}})
	require.NoError(t, err)
	require.Equal(t, []bhead.Code{codeME, bhead.CodeDATA, bhead.CodeDATA}, blockCodes(sess))

	sess, err = Open(fx.data, cur, Options{Params: ReadParams{Skip: SkipData, UndoDirection: UndoRedo}})
	require.NoError(t, err)
	require.Equal(t, []bhead.Code{codeME}, blockCodes(sess))
	require.Equal(t, 3, sess.Stats().Skipped)
	require.Equal(t, UndoRedo, sess.Params.UndoDirection)
}

func blockCodes(s *Session) []bhead.Code {
	out := make([]bhead.Code, len(s.Blocks))
	for i, b := range s.Blocks {
		out[i] = b.Code
	}
	return out
}

func TestRelinkThroughAddressTable(t *testing.T) {
	fx := writeFixture(t, 4, binary.LittleEndian, 0x2000)
	sess, err := Open(fx.data, currentLayout(t, 8), Options{})
	require.NoError(t, err)

	table := sess.OldAddressTable()
	require.Same(t, table, sess.OldAddressTable())
	require.Equal(t, 3, table.Len())
	_, ok := table.Lookup(0)
	require.False(t, ok)

	var links []string
	err = sess.Relink(context.Background(), RelinkFunc(func(_ context.Context, b *Block, addrs *AddressTable) error {
		sess.Pointers(b, func(off int, addr uint64) {
			target, ok := addrs.Lookup(addr)
			require.True(t, ok, "address %#x", addr)
			links = append(links, b.Struct+"->"+target.Struct)
			sess.SetPointer(b, off, 0xABCD)
		})
		return nil
	}))
	require.NoError(t, err)
	require.Equal(t, []string{"Mesh->Vertex"}, links)
	require.Equal(t, uint64(0xABCD), binary.LittleEndian.Uint64(sess.Blocks[0].Data[16:24]))
}

func TestRelinkStops(t *testing.T) {
	fx := writeFixture(t, 8, binary.LittleEndian, 0x2000)
	sess, err := Open(fx.data, currentLayout(t, 8), Options{})
	require.NoError(t, err)

	boom := errors.New("boom")
	calls := 0
	err = sess.Relink(context.Background(), RelinkFunc(func(context.Context, *Block, *AddressTable) error {
		calls++
		return boom
	}))
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = sess.Relink(ctx, RelinkFunc(func(context.Context, *Block, *AddressTable) error { return nil }))
	require.ErrorIs(t, err, context.Canceled)
}

func TestAddressesFoldForNarrowBuilds(t *testing.T) {
	fx := writeFixture(t, 8, binary.LittleEndian, 0x10000)
	cur := currentLayout(t, 4)
	sess, err := Open(fx.data, cur, Options{})
	require.NoError(t, err)

	mesh := sess.Blocks[0]
	verts := binary.LittleEndian.Uint32(mesh.Data[12:16])
	require.Equal(t, uint32(0x2000), verts)

	target, ok := sess.OldAddressTable().Lookup(uint64(verts))
	require.True(t, ok)
	require.Equal(t, "Vertex", target.Struct)
	require.Equal(t, uint64(0x10000), target.OldAddress, "header keeps the stored address")
}

func TestSaveRoundTrip(t *testing.T) {
	fx := writeFixture(t, 4, binary.BigEndian, 0x2000)
	cur := currentLayout(t, 8)
	first, err := Open(fx.data, cur, Options{})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, first.Save(&out, 301))

	second, err := Open(out.Bytes(), cur, Options{})
	require.NoError(t, err)
	require.Equal(t, 301, second.Header.Version)
	require.Equal(t, 8, second.Header.PointerSize)
	require.Empty(t, second.Warnings())
	require.Len(t, second.Blocks, 2, "unconverted and skipped blocks are not saved")
	for i, b := range second.Blocks {
		require.Equal(t, reconcile.Equal, b.Flag)
		require.Equal(t, first.Blocks[i].Data, b.Data)
		require.Equal(t, first.Blocks[i].OldAddress, b.OldAddress)
		require.Equal(t, first.Blocks[i].Current, b.Current)
	}
}

func TestOpenErrors(t *testing.T) {
	cur := currentLayout(t, 8)
	fx := writeFixture(t, 4, binary.BigEndian, 0x2000)

	t.Run("nil current", func(t *testing.T) {
		_, err := Open(fx.data, nil, Options{})
		require.Error(t, err)
	})
	t.Run("bad magic", func(t *testing.T) {
		data := append([]byte("BLANDER"), fx.data[7:]...)
		_, err := Open(data, cur, Options{})
		require.ErrorIs(t, err, ErrNotBlend)
	})
	t.Run("corrupt struct index", func(t *testing.T) {
		data := bytes.Clone(fx.data)
		binary.BigEndian.PutUint32(data[HeaderSize+12:], 99)
		_, err := Open(data, cur, Options{})
		require.ErrorIs(t, err, dna.ErrCorruptIndex)
	})
	t.Run("truncated block", func(t *testing.T) {
		_, err := Open(fx.data[:HeaderSize+20+5], cur, Options{})
		require.ErrorIs(t, err, dna.ErrTruncated)
	})
	t.Run("no layout", func(t *testing.T) {
		data, err := FileHeader{PointerSize: 8, Order: binary.LittleEndian, Version: 300}.Append(nil)
		require.NoError(t, err)
		data, err = bhead.Append(data, bhead.Header{Code: bhead.CodeENDB}, bhead.Width8, binary.LittleEndian)
		require.NoError(t, err)
		_, err = Open(data, cur, Options{})
		require.ErrorIs(t, err, ErrNoLayout)
	})
	t.Run("count exceeds payload", func(t *testing.T) {
		data := bytes.Clone(fx.data)
		binary.BigEndian.PutUint32(data[HeaderSize+16:], 5)
		_, err := Open(data, cur, Options{})
		require.ErrorIs(t, err, dna.ErrTruncated)
	})
}

func TestWriteRejects(t *testing.T) {
	s := storedLayout(t, 8, binary.LittleEndian)
	var out bytes.Buffer

	err := Write(&out, s, 300, []WriteBlock{{Code: bhead.CodeENDB}})
	require.Error(t, err)

	err = Write(&out, s, 300, []WriteBlock{{Code: bhead.CodeDATA, StructIndex: 42}})
	require.ErrorIs(t, err, dna.ErrCorruptIndex)

	err = Write(&out, s, 300, []WriteBlock{{Code: bhead.CodeDATA, StructIndex: 1, Count: 2, Data: make([]byte, 12)}})
	require.ErrorIs(t, err, dna.ErrTruncated)

	err = Write(&out, s, 1000, nil)
	require.ErrorIs(t, err, dna.ErrFormat)
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		in   string
		want FileHeader
		err  error
	}{
		{"BLENDER-v300", FileHeader{PointerSize: 8, Order: binary.LittleEndian, Version: 300}, nil},
		{"BLENDER_V279", FileHeader{PointerSize: 4, Order: binary.BigEndian, Version: 279}, nil},
		{"BLENDER-v30", FileHeader{}, dna.ErrTruncated},
		{"BLANDER-v300", FileHeader{}, ErrNotBlend},
		{"BLENDER*v300", FileHeader{}, dna.ErrUnsupportedPointerWidth},
		{"BLENDER-x300", FileHeader{}, dna.ErrFormat},
		{"BLENDER-v3a0", FileHeader{}, dna.ErrFormat},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseHeader([]byte(tc.in))
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)

			back, err := got.Append(nil)
			require.NoError(t, err)
			require.Equal(t, tc.in, string(back))
		})
	}
}

func TestPointerOffsets(t *testing.T) {
	cur := currentLayout(t, 8)
	mesh, ok := cur.Resolve("Mesh")
	require.True(t, ok)
	assert.Equal(t, []int{0, 16}, PointerOffsets(cur, mesh))

	vert, ok := cur.Resolve("Vertex")
	require.True(t, ok)
	assert.Empty(t, PointerOffsets(cur, vert))
}

func TestSessionLogsCarryID(t *testing.T) {
	fx := writeFixture(t, 8, binary.LittleEndian, 0x2000)
	var logs bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	sess, err := Open(fx.data, currentLayout(t, 8), Options{Logger: log})
	require.NoError(t, err)
	require.Same(t, sess.Logger(), sess.Logger())

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	require.NotEmpty(t, lines)
	seen := map[string]bool{}
	for _, line := range lines {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		seen[rec["msg"].(string)] = true
		require.Equal(t, sess.ID.String(), rec["session"])
	}
	require.True(t, seen["layout decoded"])
	require.True(t, seen["file loaded"])
}

func TestInspect(t *testing.T) {
	fx := writeFixture(t, 8, binary.LittleEndian, 0x2000)
	info, err := Inspect(fx.data, nil)
	require.NoError(t, err)
	require.Equal(t, 300, info.Header.Version)
	require.Len(t, info.Blocks, 5, "four struct blocks plus DNA1")
	require.Equal(t, bhead.CodeDNA1, info.Blocks[4].Code)
	require.Equal(t, fx.stored.NumStructs(), info.Stored.NumStructs())
	require.Equal(t, fx.stored.Raw(), info.Stored.Raw())

	layout, err := Layout(fx.data, nil)
	require.NoError(t, err)
	require.Equal(t, 5, layout.NumStructs())
}
