package reconcile

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogSink(t *testing.T) {
	var out bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewJSONHandler(&out, nil)))
	sink.Warn(Warning{
		Category: CatSaturated,
		Struct:   "Mesh",
		Field:    "totvert",
		From:     "int totvert",
		To:       "short totvert",
		Detail:   "",
	})

	var rec map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &rec))
	require.Equal(t, "lossy conversion", rec["msg"])
	require.Equal(t, "WARN", rec["level"])
	require.Equal(t, "saturated", rec["category"])
	require.Equal(t, "Mesh", rec["struct"])
	require.Equal(t, "totvert", rec["field"])
	require.NotContains(t, rec, "detail")
}

func TestCollectorAndTee(t *testing.T) {
	c := NewCollector()
	var seen []Warning
	sink := Tee(c, nil, SinkFunc(func(w Warning) { seen = append(seen, w) }))

	sink.Warn(Warning{Category: CatArrayTruncated, Struct: "S", Field: "v"})
	sink.Warn(Warning{Category: CatArrayTruncated, Struct: "S", Field: "w"})
	sink.Warn(Warning{Category: CatIncompatible, Struct: "S", Field: "p"})

	require.Equal(t, 3, c.Len())
	require.Equal(t, 2, c.Count(CatArrayTruncated))
	require.Equal(t, 1, c.Count(CatIncompatible))
	require.Zero(t, c.Count(CatPointerFold))
	require.Equal(t, c.Warnings(), seen)
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Warn(Warning{Category: CatSaturated})
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 800, c.Count(CatSaturated))
}

func TestWarningString(t *testing.T) {
	w := Warning{Category: CatStringTruncated, Struct: "ID", Field: "name", From: "char name[66]", To: "char name[64]", Detail: "cut to 63 bytes"}
	require.Equal(t, "ID.name: string_truncated (char name[66] -> char name[64]): cut to 63 bytes", w.String())
	Discard.Warn(w)
}
