package shred

import (
	"io"
	"io/fs"
	"os"
)

// File is the subset of *os.File a shred needs: positioned writes, durable
// flushes and truncation.
type File interface {
	io.WriteSeeker
	io.Closer
	Sync() error
	Truncate(size int64) error
	Stat() (fs.FileInfo, error)
}

// FS provides the raw filesystem primitives used by a Shredder.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	// OpenFile opens an existing file for synchronous read/write.
	OpenFile(name string) (File, error)
	Remove(name string) error
}

// OSFS is the FS backed by the host operating system.
type OSFS struct{}

func (OSFS) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

// OpenFile opens name with O_RDWR|O_SYNC so every write reaches the device
// before it returns. Sync is still called after each pass.
func (OSFS) OpenFile(name string) (File, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (OSFS) Remove(name string) error { return os.Remove(name) }
