// Package localfs is the local side of uploads and downloads: files read
// for upload and written by downloads, on top of go-billy.
package localfs

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	fmerrors "github.com/yarokim83/filemanager/errors"
)

// FS wraps a billy filesystem.
type FS struct {
	fs billy.Filesystem

	// abs resolves relative names against the working directory
	abs bool
}

// New wraps fsys. Names are passed to fsys unchanged.
func New(fsys billy.Filesystem) *FS {
	return &FS{fs: fsys}
}

// NewOS returns the native filesystem. Relative names are resolved against
// the process working directory.
func NewOS() *FS {
	return &FS{fs: osfs.New("/"), abs: true}
}

// NewInMemory returns an empty in-memory filesystem.
func NewInMemory() *FS {
	return New(memfs.New())
}

// Raw returns the underlying billy filesystem.
func (f *FS) Raw() billy.Filesystem {
	return f.fs
}

// Stat returns the size of the regular file at name. A missing file is
// ErrNotFound and a directory is ErrInvalidInput.
func (f *FS) Stat(name string) (int64, error) {
	const op = "stat local file"

	resolved, err := f.resolve(op, name)
	if err != nil {
		return 0, err
	}
	info, err := f.fs.Stat(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return 0, fmerrors.NewObjectError(op, name, fmerrors.ErrNotFound)
	case err != nil:
		return 0, fmerrors.NewObjectError(op, name, err)
	case info.IsDir():
		return 0, fmerrors.NewObjectError(op, name, fmerrors.ErrInvalidInput).
			WithMessage("is a directory")
	}
	return info.Size(), nil
}

// Open opens name for reading and returns its size.
func (f *FS) Open(name string) (io.ReadCloser, int64, error) {
	size, err := f.Stat(name)
	if err != nil {
		return nil, 0, err
	}
	resolved, err := f.resolve("open local file", name)
	if err != nil {
		return nil, 0, err
	}
	file, err := f.fs.Open(resolved)
	if err != nil {
		return nil, 0, fmerrors.NewObjectError("open local file", name, err)
	}
	return file, size, nil
}

// ReadFile returns the whole content of name.
func (f *FS) ReadFile(name string) ([]byte, error) {
	if _, err := f.Stat(name); err != nil {
		return nil, err
	}
	resolved, err := f.resolve("read local file", name)
	if err != nil {
		return nil, err
	}
	data, err := util.ReadFile(f.fs, resolved)
	if err != nil {
		return nil, fmerrors.NewObjectError("read local file", name, err)
	}
	return data, nil
}

// Create truncates or creates name, creating missing parent directories
// first.
func (f *FS) Create(name string) (io.WriteCloser, error) {
	const op = "create local file"

	resolved, err := f.resolve(op, name)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(resolved); dir != "." && dir != string(filepath.Separator) {
		if err := f.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmerrors.NewObjectError(op, dir, err).WithMessage("create parent directory")
		}
	}
	file, err := f.fs.Create(resolved)
	if err != nil {
		return nil, fmerrors.NewObjectError(op, name, err)
	}
	return file, nil
}

func (f *FS) resolve(op, name string) (string, error) {
	if !f.abs {
		return name, nil
	}
	resolved, err := filepath.Abs(name)
	if err != nil {
		return "", fmerrors.NewObjectError(op, name, err)
	}
	return resolved, nil
}
