package shred_test

import (
	"bytes"
	"io"
	"io/fs"
	"time"

	"shredder/pkg/shred"
)

type fakeInfo struct {
	name string
	size int64
	mode fs.FileMode
}

func (i fakeInfo) Name() string       { return i.name }
func (i fakeInfo) Size() int64        { return i.size }
func (i fakeInfo) Mode() fs.FileMode  { return i.mode }
func (i fakeInfo) ModTime() time.Time { return time.Time{} }
func (i fakeInfo) IsDir() bool        { return i.mode.IsDir() }
func (i fakeInfo) Sys() any           { return nil }

// memFile records every operation so tests can check the overwrite pattern.
type memFile struct {
	name string
	data []byte
	pos  int64

	seeks     int
	writes    []int
	sinceSync int64
	// syncedBytes holds the bytes written between consecutive Sync calls.
	syncedBytes []int64
	// snapshots holds the file contents at each Sync.
	snapshots [][]byte
	truncated bool
	closed    int

	// failWrite, when set, is consulted before every write with the number
	// of seeks so far (one per pass) and the current offset.
	failWrite func(seeks int, offset int64) error
	failSync  error
	failTrunc error
	failClose error
}

func (f *memFile) Write(p []byte) (int, error) {
	if f.failWrite != nil {
		if err := f.failWrite(f.seeks, f.pos); err != nil {
			return 0, err
		}
	}
	end := f.pos + int64(len(p))
	if end > int64(len(f.data)) {
		grown := make([]byte, end)
		copy(grown, f.data)
		f.data = grown
	}
	copy(f.data[f.pos:end], p)
	f.pos = end
	f.writes = append(f.writes, len(p))
	f.sinceSync += int64(len(p))
	return len(p), nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	f.seeks++
	switch whence {
	case io.SeekStart:
		f.pos = offset
	case io.SeekCurrent:
		f.pos += offset
	case io.SeekEnd:
		f.pos = int64(len(f.data)) + offset
	}
	return f.pos, nil
}

func (f *memFile) Sync() error {
	if f.failSync != nil {
		return f.failSync
	}
	f.syncedBytes = append(f.syncedBytes, f.sinceSync)
	f.snapshots = append(f.snapshots, bytes.Clone(f.data))
	f.sinceSync = 0
	return nil
}

func (f *memFile) Truncate(size int64) error {
	if f.failTrunc != nil {
		return f.failTrunc
	}
	f.data = f.data[:size]
	f.truncated = true
	return nil
}

func (f *memFile) Close() error {
	f.closed++
	return f.failClose
}

func (f *memFile) Stat() (fs.FileInfo, error) {
	return fakeInfo{name: f.name, size: int64(len(f.data)), mode: 0o600}, nil
}

// memFS is an in-memory shred.FS holding at most a handful of files.
type memFS struct {
	files     map[string]*memFile
	opened    int
	removed   []string
	openErr   error
	removeErr error
}

func newMemFS(files ...*memFile) *memFS {
	m := &memFS{files: make(map[string]*memFile)}
	for _, f := range files {
		m.files[f.name] = f
	}
	return m
}

func (m *memFS) Stat(name string) (fs.FileInfo, error) {
	f, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return fakeInfo{name: name, size: int64(len(f.data)), mode: 0o600}, nil
}

func (m *memFS) OpenFile(name string) (shred.File, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	f, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	m.opened++
	return f, nil
}

func (m *memFS) Remove(name string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.files, name)
	m.removed = append(m.removed, name)
	return nil
}

// countingReader counts bytes drawn from the random source.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
