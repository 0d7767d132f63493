// Package blobio opens stored files for loading. Plain files are memory
// mapped; gzip, zstd and lz4 frame files are decompressed into memory.
package blobio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/joshuapare/dnakit/internal/mmfile"
)

// Codec identifies how a file is compressed.
type Codec uint8

const (
	CodecNone Codec = iota
	CodecGzip
	CodecZstd
	CodecLZ4
)

func (c Codec) String() string {
	switch c {
	case CodecGzip:
		return "gzip"
	case CodecZstd:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	}
	return "none"
}

// ParseCodec maps a codec name to its Codec.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "", "none":
		return CodecNone, nil
	case "gzip", "gz":
		return CodecGzip, nil
	case "zstd", "zst":
		return CodecZstd, nil
	case "lz4":
		return CodecLZ4, nil
	}
	return CodecNone, fmt.Errorf("blobio: unknown codec %q", name)
}

// DefaultMaxSize caps decompressed output (1 GiB).
const DefaultMaxSize = 1 << 30

// ErrTooLarge is returned when decompressed output exceeds the size cap.
var ErrTooLarge = errors.New("blobio: decompressed data exceeds limit")

var (
	magicGzip = []byte{0x1f, 0x8b}
	magicZstd = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLZ4  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// Sniff reports the codec of data from its leading magic bytes.
func Sniff(data []byte) Codec {
	switch {
	case bytes.HasPrefix(data, magicZstd):
		return CodecZstd
	case bytes.HasPrefix(data, magicLZ4):
		return CodecLZ4
	case bytes.HasPrefix(data, magicGzip):
		return CodecGzip
	}
	return CodecNone
}

// Blob is an opened file. Data is valid until Close.
type Blob struct {
	Data  []byte
	Codec Codec
	file  *mmfile.File
}

// Close releases the mapping behind an uncompressed blob.
func (b *Blob) Close() error {
	if b.file == nil {
		return nil
	}
	err := b.file.Close()
	b.file = nil
	b.Data = nil
	return err
}

// Open maps path and, when it is compressed, decompresses it. maxSize <= 0
// selects DefaultMaxSize.
func Open(path string, maxSize int64) (*Blob, error) {
	f, err := mmfile.Map(path)
	if err != nil {
		return nil, err
	}
	codec := Sniff(f.Data())
	if codec == CodecNone {
		return &Blob{Data: f.Data(), file: f}, nil
	}
	defer f.Close()
	data, err := Decompress(f.Data(), codec, maxSize)
	if err != nil {
		return nil, fmt.Errorf("blobio: %s: %w", path, err)
	}
	return &Blob{Data: data, Codec: codec}, nil
}

// Decompress decodes data compressed with codec.
func Decompress(data []byte, codec Codec, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	var r io.Reader
	switch codec {
	case CodecNone:
		return data, nil
	case CodecGzip:
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	case CodecZstd:
		zr, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderMaxMemory(uint64(maxSize)))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		r = zr
	case CodecLZ4:
		r = lz4.NewReader(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("blobio: unknown codec %d", codec)
	}

	out, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", codec, err)
	}
	if int64(len(out)) > maxSize {
		return nil, fmt.Errorf("%s: %w (%d bytes)", codec, ErrTooLarge, maxSize)
	}
	return out, nil
}

// Compress writes data to w using codec.
func Compress(w io.Writer, data []byte, codec Codec) error {
	var wc io.WriteCloser
	switch codec {
	case CodecNone:
		_, err := w.Write(data)
		return err
	case CodecGzip:
		wc = gzip.NewWriter(w)
	case CodecZstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("zstd: %w", err)
		}
		wc = zw
	case CodecLZ4:
		wc = lz4.NewWriter(w)
	default:
		return fmt.Errorf("blobio: unknown codec %d", codec)
	}
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		return fmt.Errorf("%s: %w", codec, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("%s: %w", codec, err)
	}
	return nil
}
