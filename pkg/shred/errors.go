package shred

import (
	"errors"
	"fmt"

	cerr "github.com/cockroachdb/errors"
)

// Kind classifies a shred failure.
type Kind int

const (
	// KindUnexpected covers conditions outside the other kinds, such as
	// unreadable file metadata or a target that is not a regular file.
	KindUnexpected Kind = iota
	// KindNotFound means the target did not exist at call time.
	KindNotFound
	// KindNotWritable means the target could not be opened for read/write.
	KindNotWritable
	// KindIO means a random-fill, zero-fill, sync or truncate step failed.
	// The file is left on disk, partially overwritten.
	KindIO
	// KindDeleteFailed means the contents were destroyed but the directory
	// entry could not be removed.
	KindDeleteFailed
)

// Sentinel errors matched by errors.Is against any *Error of the same kind.
var (
	ErrUnexpected   = errors.New("unexpected shred error")
	ErrNotFound     = errors.New("file not found")
	ErrNotWritable  = errors.New("file not writable")
	ErrIO           = errors.New("shred I/O error")
	ErrDeleteFailed = errors.New("delete failed after shredding")
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindNotWritable:
		return "NotWritable"
	case KindIO:
		return "ShredIOError"
	case KindDeleteFailed:
		return "DeleteFailed"
	default:
		return "UnexpectedError"
	}
}

// Code returns the stable error code used by invocation layers that report
// failures as strings.
func (k Kind) Code() string {
	switch k {
	case KindNotFound:
		return "FILE_NOT_FOUND"
	case KindNotWritable:
		return "FILE_NOT_WRITABLE"
	case KindIO:
		return "SHRED_ERROR"
	case KindDeleteFailed:
		return "DELETE_FAILED"
	default:
		return "UNEXPECTED_ERROR"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindNotWritable:
		return ErrNotWritable
	case KindIO:
		return ErrIO
	case KindDeleteFailed:
		return ErrDeleteFailed
	default:
		return ErrUnexpected
	}
}

func (k Kind) hint() string {
	switch k {
	case KindNotFound:
		return "check the path; nothing was modified"
	case KindNotWritable:
		return "check the file permissions and that it is not locked by another process"
	case KindIO:
		return "the file was left on disk partially overwritten; fix the I/O problem and shred it again"
	case KindDeleteFailed:
		return "the contents were destroyed; remove the empty file manually"
	default:
		return ""
	}
}

// Error is the failure returned by Shredder operations.
type Error struct {
	Kind Kind
	// Op is the step that failed: stat, open, seek, random, write, sync,
	// truncate, close or remove.
	Op   string
	Path string
	// Pass is the 1-based overwrite round in progress when the failure
	// happened, or 0 outside the overwrite phase. The zero-fill round is
	// numbered after the random rounds.
	Pass int
	Err  error
}

func newError(kind Kind, op, path string, pass int, cause error) *Error {
	if cause != nil {
		cause = cerr.WithStack(cause)
		if h := kind.hint(); h != "" {
			cause = cerr.WithHint(cause, h)
		}
	}
	return &Error{Kind: kind, Op: op, Path: path, Pass: pass, Err: cause}
}

func (e *Error) Error() string {
	msg := e.Kind.sentinel().Error()
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Pass > 0 {
		msg = fmt.Sprintf("%s (pass %d)", msg, e.Pass)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s: %v", msg, e.Op, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel error for e's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf returns the kind of err. Errors that did not come from this package
// are reported as KindUnexpected.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnexpected
}

// Hints returns the remediation hints attached to err, if any.
func Hints(err error) []string {
	return cerr.GetAllHints(err)
}
