package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/dnakit/bhead"
	"github.com/joshuapare/dnakit/blend"
	"github.com/joshuapare/dnakit/dna"
	"github.com/joshuapare/dnakit/internal/blobio"
)

var codeME = bhead.MakeCode("ME")

// resetFlags sets every command flag to its test default, and again when
// the test ends.
func resetFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		verbose, quiet, jsonOut, noColor, debugLog = false, false, false, true, false
		logDir, renamesPath = "", ""
		infoJobs = 4
		structsFilter, structsMembers = "", false
		blocksCode = ""
		diffAll = false
		convertLayout, convertOut, convertCompress = "", "", "none"
		convertVersion, convertStrict = 0, false
	}
	reset()
	t.Cleanup(reset)
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.Bytes()
	}()

	fnErr := fn()

	w.Close()
	os.Stdout = origStdout
	return string(<-done), fnErr
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}

// assertNotContains checks that output doesn't contain unwanted strings
func assertNotContains(t *testing.T, output string, unwanted []string) {
	t.Helper()
	for _, dont := range unwanted {
		if strings.Contains(output, dont) {
			t.Errorf("output contains unwanted string %q\nGot: %s", dont, output)
		}
	}
}

func decodeJSON[T any](t *testing.T, output string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(output), &v), output)
	return v
}

// oldLayout is the layout of the build that wrote the "old" fixture.
func oldLayout(t *testing.T) *dna.SDNA {
	t.Helper()
	s, err := dna.NewBuilder(4, binary.BigEndian).
		Struct("ID", dna.Field("ID", "*next"), dna.Field("char", "name[8]")).
		Struct("MVert", dna.Field("float", "co[3]")).
		Struct("Mesh", dna.Field("ID", "id"), dna.Field("MVert", "*verts"), dna.Field("int", "totvert")).
		Struct("Prefs", dna.Field("int", "flag")).
		Struct("Legacy", dna.Field("int", "x")).
		Build()
	require.NoError(t, err)
	return s
}

// newLayout renames MVert to Vertex, grows it, narrows Mesh.totvert and
// replaces Legacy with Extra.
func newLayout(t *testing.T, ptr int, order binary.ByteOrder) *dna.SDNA {
	t.Helper()
	s, err := dna.NewBuilder(ptr, order).
		Struct("ID", dna.Field("ID", "*next"), dna.Field("char", "name[8]")).
		Struct("Vertex", dna.Field("float", "co[3]"), dna.Field("uchar", "flag")).
		Struct("Mesh",
			dna.Field("ID", "id"),
			dna.Field("Vertex", "*verts"),
			dna.Field("short", "totvert"),
			dna.Field("float", "scale")).
		Struct("Prefs", dna.Field("int", "flag")).
		Struct("Extra", dna.Field("int", "y")).
		Build()
	require.NoError(t, err)
	return s
}

func structIndex(t *testing.T, s *dna.SDNA, name string) uint32 {
	t.Helper()
	i, ok := s.Resolve(name)
	require.True(t, ok, name)
	return uint32(i)
}

// writeOld writes a file under oldLayout holding a mesh, its two vertices,
// user preferences and a Legacy block.
func writeOld(t *testing.T, dir string, codec blobio.Codec) string {
	t.Helper()
	s := oldLayout(t)
	be := binary.BigEndian

	var mesh []byte
	mesh = be.AppendUint32(mesh, 0)
	mesh = append(mesh, "cube\x00\x00\x00\x00"...)
	mesh = be.AppendUint32(mesh, 0x2000)
	mesh = be.AppendUint32(mesh, 70000)

	var verts []byte
	for _, f := range []float32{1, 2, 3, 4, 5, 6} {
		verts = be.AppendUint32(verts, math.Float32bits(f))
	}

	return writeFile(t, dir, "old.blend", s, codec, []blend.WriteBlock{
		{Code: codeME, OldAddress: 0x1000, StructIndex: structIndex(t, s, "Mesh"), Count: 1, Data: mesh},
		{Code: bhead.CodeDATA, OldAddress: 0x2000, StructIndex: structIndex(t, s, "MVert"), Count: 2, Data: verts},
		{Code: bhead.CodeUSER, OldAddress: 0x3000, StructIndex: structIndex(t, s, "Prefs"), Count: 1, Data: be.AppendUint32(nil, 7)},
		{Code: bhead.CodeDATA, OldAddress: 0x4000, StructIndex: structIndex(t, s, "Legacy"), Count: 1, Data: be.AppendUint32(nil, 9)},
	})
}

// writeNew writes a file under newLayout with no blocks besides its layout.
func writeNew(t *testing.T, dir string, ptr int, order binary.ByteOrder) string {
	t.Helper()
	return writeFile(t, dir, "new.blend", newLayout(t, ptr, order), blobio.CodecNone, nil)
}

func writeFile(t *testing.T, dir, name string, s *dna.SDNA, codec blobio.Codec, blocks []blend.WriteBlock) string {
	t.Helper()
	var raw bytes.Buffer
	require.NoError(t, blend.Write(&raw, s, 300, blocks))
	var out bytes.Buffer
	require.NoError(t, blobio.Compress(&out, raw.Bytes(), codec))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o644))
	return path
}

func writeRenames(t *testing.T, dir, text string) string {
	t.Helper()
	path := filepath.Join(dir, "renames.txt")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}
