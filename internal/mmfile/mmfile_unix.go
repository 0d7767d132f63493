//go:build unix

package mmfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Map maps the file at path read-only.
func Map(path string) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close() // the mapping keeps the pages alive

	info, err := fd.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return &File{data: []byte{}, path: path}, nil
	}
	if size > int64(^uint(0)>>1) {
		return nil, fmt.Errorf("mmfile: %s: file too large to map (%d bytes)", path, size)
	}
	data, err := unix.Mmap(int(fd.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmfile: mmap %s: %w", path, err)
	}
	// Blocks are read front to back.
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	return &File{data: data, path: path, mapped: true}, nil
}

func (f *File) unmap() error {
	if !f.mapped {
		return nil
	}
	return unix.Munmap(f.data)
}
