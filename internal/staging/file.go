package staging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// File is a payload staged on disk.
type File struct {
	path string
	size int64
}

// Path returns the location of the staged bytes.
func (f *File) Path() string {
	return f.path
}

// Size returns the number of bytes staged.
func (f *File) Size() int64 {
	return f.size
}

// Open reopens the staged bytes for reading. The caller closes the handle.
func (f *File) Open() (*os.File, error) {
	h, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	return h, nil
}

// Remove deletes the staged file. Removing an already removed file is not
// an error.
func (f *File) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove staged file: %w", err)
	}
	return nil
}
