// Package mmfile maps stored files read-only into memory.
package mmfile

// File is a read-only view of a file's contents. Data stays valid until
// Close; slices taken from it must not outlive the File.
type File struct {
	data   []byte
	path   string
	mapped bool
}

// Data returns the file contents.
func (f *File) Data() []byte { return f.data }

// Path returns the path the file was opened from.
func (f *File) Path() string { return f.path }

// Mapped reports whether Data is backed by a memory mapping rather than a
// heap copy.
func (f *File) Mapped() bool { return f.mapped }

// Close releases the mapping. Calling Close more than once is a no-op.
func (f *File) Close() error {
	if f == nil || f.data == nil {
		return nil
	}
	err := f.unmap()
	f.data = nil
	return err
}
