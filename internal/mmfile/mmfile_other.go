//go:build !unix

package mmfile

import "os"

// Map reads the whole file; these platforms are not mapped.
func Map(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &File{data: data, path: path}, nil
}

func (f *File) unmap() error { return nil }
