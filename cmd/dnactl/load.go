package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joshuapare/dnakit/blend"
	"github.com/joshuapare/dnakit/cmd/dnactl/logger"
	"github.com/joshuapare/dnakit/dna"
	"github.com/joshuapare/dnakit/internal/blobio"
)

// loaded is an opened file plus its unconverted view.
type loaded struct {
	path string
	blob *blobio.Blob
	info *blend.Info
}

func (l *loaded) Close() error {
	l.info.Stored.Release()
	return l.blob.Close()
}

// openFile opens and inspects path, decompressing it when needed.
func openFile(path string, renames *dna.Renames) (*loaded, error) {
	blob, err := blobio.Open(path, 0)
	if err != nil {
		return nil, err
	}
	info, err := blend.Inspect(blob.Data, renames)
	if err != nil {
		_ = blob.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("file inspected",
		"path", path,
		"codec", blob.Codec.String(),
		"blocks", len(info.Blocks),
		"structs", info.Stored.NumStructs())
	return &loaded{path: path, blob: blob, info: info}, nil
}

// loadRenames reads the --renames file, if any.
func loadRenames() (*dna.Renames, error) {
	if renamesPath == "" {
		return nil, nil
	}
	f, err := os.Open(renamesPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseRenames(f)
}

// parseRenames reads one rename per line:
//
//	# comment
//	type   <stored> <current>
//	member <current struct> <stored> <current>
func parseRenames(r io.Reader) (*dna.Renames, error) {
	out := dna.NewRenames()
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		switch {
		case fields[0] == "type" && len(fields) == 3:
			out.RenameType(fields[1], fields[2])
		case fields[0] == "member" && len(fields) == 4:
			out.RenameMember(fields[1], fields[2], fields[3])
		default:
			return nil, fmt.Errorf("renames line %d: expected \"type OLD NEW\" or \"member STRUCT OLD NEW\", got %q", line, text)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func formatSize(size int) string {
	switch {
	case size < 1024:
		return fmt.Sprintf("%d bytes", size)
	case size < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	}
}

func byteOrderName(s *dna.SDNA) string {
	if s.Order() == binary.BigEndian {
		return "big-endian"
	}
	return "little-endian"
}
