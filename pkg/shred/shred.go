package shred

import (
	"crypto/rand"
	"errors"
	"io"
	"io/fs"
	"runtime"

	cerr "github.com/cockroachdb/errors"
)

const (
	// DefaultBlockSize is the number of bytes written per I/O call.
	DefaultBlockSize = 4096
	// MinPasses is the lowest number of random passes performed; smaller
	// requests are raised to it.
	MinPasses = 1
)

// Phase identifies the step an Event reports on.
type Phase string

const (
	PhaseRandom   Phase = "random"
	PhaseZero     Phase = "zero"
	PhaseTruncate Phase = "truncate"
	PhaseRemove   Phase = "remove"
	PhaseDone     Phase = "done"
)

// Event describes shred progress. Pass counts rounds from 1 and includes the
// zero-fill round, so Rounds is always the requested passes plus one.
type Event struct {
	Path    string
	Phase   Phase
	Pass    int
	Rounds  int
	Written int64
	Total   int64
}

// Fraction returns overall progress in [0, 1].
func (e Event) Fraction() float64 {
	if e.Phase == PhaseTruncate || e.Phase == PhaseRemove || e.Phase == PhaseDone {
		return 1
	}
	if e.Rounds == 0 || e.Total == 0 {
		return 0
	}
	done := float64(e.Pass-1)*float64(e.Total) + float64(e.Written)
	return done / (float64(e.Rounds) * float64(e.Total))
}

// Observer receives progress events synchronously from the shredding
// goroutine. Implementations must return quickly.
type Observer func(Event)

// Request is a single shred invocation.
type Request struct {
	Path string
	// Passes is the number of random overwrite rounds. Values below
	// MinPasses are clamped.
	Passes int
}

// Shredder performs secure deletes. The zero value is not usable; call New.
type Shredder struct {
	fs        FS
	random    io.Reader
	blockSize int
	observer  Observer
}

// Option configures a Shredder.
type Option func(*Shredder)

// WithBlockSize sets the write block size. Non-positive values are ignored.
func WithBlockSize(n int) Option {
	return func(s *Shredder) {
		if n > 0 {
			s.blockSize = n
		}
	}
}

// WithRandom replaces the random source. Only tests should use anything other
// than crypto/rand.
func WithRandom(r io.Reader) Option {
	return func(s *Shredder) {
		if r != nil {
			s.random = r
		}
	}
}

// WithFS replaces the filesystem primitives.
func WithFS(fsys FS) Option {
	return func(s *Shredder) {
		if fsys != nil {
			s.fs = fsys
		}
	}
}

// WithObserver registers a progress observer.
func WithObserver(o Observer) Option {
	return func(s *Shredder) { s.observer = o }
}

// New returns a Shredder using the host filesystem and crypto/rand.
func New(opts ...Option) *Shredder {
	s := &Shredder{
		fs:        OSFS{},
		random:    rand.Reader,
		blockSize: DefaultBlockSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BlockSize returns the configured block size.
func (s *Shredder) BlockSize() int { return s.blockSize }

// IsAvailable reports whether shredding can run on this platform. It is false
// only where the Go runtime has no file I/O.
func (s *Shredder) IsAvailable() bool {
	return runtime.GOOS != "js"
}

// ClampPasses returns passes raised to MinPasses.
func ClampPasses(passes int) int {
	return max(passes, MinPasses)
}

// SecurelyDelete overwrites path with passes rounds of random data and one
// round of zeros, truncates it and removes it.
//
// A failure before the overwrite starts leaves the file untouched. A failure
// during the overwrite leaves a partially overwritten file in place; it is
// never removed. The handle is closed before any error is returned.
func (s *Shredder) SecurelyDelete(path string, passes int) error {
	return s.Do(Request{Path: path, Passes: passes})
}

// Do runs req. See SecurelyDelete.
func (s *Shredder) Do(req Request) error {
	path := req.Path
	passes := ClampPasses(req.Passes)

	info, err := s.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newError(KindNotFound, "stat", path, 0, err)
		}
		return newError(KindUnexpected, "stat", path, 0, err)
	}
	if !info.Mode().IsRegular() {
		return newError(KindUnexpected, "stat", path, 0,
			cerr.Newf("not a regular file (mode %s)", info.Mode().Type()))
	}

	f, err := s.fs.OpenFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newError(KindNotFound, "open", path, 0, err)
		}
		return newError(KindNotWritable, "open", path, 0, err)
	}
	defer func() {
		if f != nil {
			_ = f.Close()
		}
	}()

	// The handle's length is authoritative for every pass.
	fi, err := f.Stat()
	if err != nil {
		return newError(KindUnexpected, "stat", path, 0, err)
	}
	size := fi.Size()

	if err := s.overwrite(f, path, size, passes); err != nil {
		return err
	}

	closeErr := f.Close()
	f = nil
	if closeErr != nil {
		return newError(KindIO, "close", path, 0, closeErr)
	}

	s.notify(Event{Path: path, Phase: PhaseRemove, Pass: passes + 1, Rounds: passes + 1, Written: size, Total: size})
	if err := s.fs.Remove(path); err != nil {
		return newError(KindDeleteFailed, "remove", path, 0, err)
	}
	s.notify(Event{Path: path, Phase: PhaseDone, Pass: passes + 1, Rounds: passes + 1, Written: size, Total: size})
	return nil
}

func (s *Shredder) overwrite(f File, path string, size int64, passes int) error {
	block := make([]byte, s.blockSize)
	defer clear(block)

	rounds := passes + 1
	for pass := 1; pass <= passes; pass++ {
		ev := Event{Path: path, Phase: PhaseRandom, Pass: pass, Rounds: rounds, Total: size}
		if err := s.writePass(f, block, ev); err != nil {
			return err
		}
	}

	clear(block)
	ev := Event{Path: path, Phase: PhaseZero, Pass: rounds, Rounds: rounds, Total: size}
	if err := s.writePass(f, block, ev); err != nil {
		return err
	}

	s.notify(Event{Path: path, Phase: PhaseTruncate, Pass: rounds, Rounds: rounds, Written: size, Total: size})
	if err := f.Truncate(0); err != nil {
		return newError(KindIO, "truncate", path, 0, err)
	}
	if err := f.Sync(); err != nil {
		return newError(KindIO, "sync", path, 0, err)
	}
	return nil
}

// writePass writes ev.Total bytes from offset 0 and syncs. Random passes
// refill block before every write; the zero pass writes block as is.
func (s *Shredder) writePass(f File, block []byte, ev Event) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return newError(KindIO, "seek", ev.Path, ev.Pass, err)
	}

	blockSize := int64(len(block))
	for ev.Written < ev.Total {
		chunk := block[:min(blockSize, ev.Total-ev.Written)]
		if ev.Phase == PhaseRandom {
			if _, err := io.ReadFull(s.random, chunk); err != nil {
				return newError(KindIO, "random", ev.Path, ev.Pass, err)
			}
		}
		n, err := f.Write(chunk)
		if err == nil && n != len(chunk) {
			err = io.ErrShortWrite
		}
		if err != nil {
			return newError(KindIO, "write", ev.Path, ev.Pass, err)
		}
		ev.Written += int64(n)
		s.notify(ev)
	}

	if err := f.Sync(); err != nil {
		return newError(KindIO, "sync", ev.Path, ev.Pass, err)
	}
	return nil
}

func (s *Shredder) notify(ev Event) {
	if s.observer != nil {
		s.observer(ev)
	}
}
