package fileops

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Validation failures. Wrapped errors carry the offending path.
var (
	ErrEmptyPath   = errors.New("path cannot be empty")
	ErrReserved    = errors.New("path is inside a reserved system directory")
	ErrIsDirectory = errors.New("path is a directory")
	ErrSymlink     = errors.New("path is a symbolic link")
	ErrNotRegular  = errors.New("path is not a regular file")
	ErrDepthLimit  = errors.New("directory tree is deeper than the scan depth limit")
)

// TargetOptions relaxes ValidateShredTarget.
type TargetOptions struct {
	// AllowSymlinks shreds the file a link resolves to instead of refusing it.
	AllowSymlinks bool
}

// Target is a validated shred target.
type Target struct {
	// Path is the absolute, cleaned path to overwrite.
	Path string
	// Link is the original link path when Path was reached through a
	// symbolic link, and empty otherwise.
	Link string
	// Exists is false when nothing was found at Path.
	Exists bool
	Size   int64
}

// ValidateShredTarget checks that path is safe to overwrite and returns the
// absolute path that should be shredded.
//
// Parameters:
//   - path: The user-supplied path, possibly relative or starting with "~/"
//   - opts: Relaxations of the default policy
//
// Returns:
//   - Target: The resolved target; Exists is false for missing paths
//   - error: ErrEmptyPath, ErrReserved, ErrIsDirectory, ErrSymlink or
//     ErrNotRegular wrapped with the path, or a metadata error
//
// Missing paths are not an error here so that the shredder can report them with
// its own not-found result and perform no mutation.
func ValidateShredTarget(path string, opts TargetOptions) (Target, error) {
	if strings.TrimSpace(path) == "" {
		return Target{}, ErrEmptyPath
	}

	abs, err := filepath.Abs(ExpandPath(path))
	if err != nil {
		return Target{}, fmt.Errorf("cannot resolve path: %w", err)
	}
	abs = filepath.Clean(abs)

	if IsReservedDirectory(abs) {
		return Target{}, fmt.Errorf("%w: %s", ErrReserved, abs)
	}

	info, err := os.Lstat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Target{Path: abs}, nil
		}
		return Target{}, fmt.Errorf("cannot access path: %w", err)
	}

	target := Target{Path: abs, Exists: true, Size: info.Size()}

	if info.Mode()&os.ModeSymlink != 0 {
		if !opts.AllowSymlinks {
			return Target{}, fmt.Errorf("%w: %s", ErrSymlink, abs)
		}
		resolved, err := ResolveSymlink(abs)
		if err != nil {
			return Target{}, err
		}
		if IsReservedDirectory(resolved) {
			return Target{}, fmt.Errorf("%w: %s (via %s)", ErrReserved, resolved, abs)
		}
		if info, err = os.Stat(resolved); err != nil {
			return Target{}, fmt.Errorf("cannot access link target: %w", err)
		}
		target = Target{Path: resolved, Link: abs, Exists: true, Size: info.Size()}
	}

	switch {
	case info.IsDir():
		return Target{}, fmt.Errorf("%w: %s", ErrIsDirectory, target.Path)
	case !info.Mode().IsRegular():
		return Target{}, fmt.Errorf("%w: %s (%s)", ErrNotRegular, target.Path, info.Mode().Type())
	}

	return target, nil
}

// ExpandPath expands a leading "~/" to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// IsReservedDirectory reports whether path is, or lies inside, a system
// directory whose files must never be shredded. Symlinks in path are resolved
// before comparison. Temporary directories are never reserved.
func IsReservedDirectory(path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	absPath = filepath.Clean(absPath)
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = resolved
	}

	if absPath == "/" || absPath == "\\" || strings.EqualFold(absPath, "C:\\") {
		return true
	}
	if isTempDirectory(absPath) {
		return false
	}

	for _, reserved := range reservedDirectories() {
		reservedAbs := filepath.Clean(reserved)
		if resolved, err := filepath.EvalSymlinks(reservedAbs); err == nil {
			reservedAbs = resolved
		}
		if pathHasPrefix(absPath, reservedAbs) || pathHasPrefix(absPath, filepath.Clean(reserved)) {
			return true
		}
	}
	return false
}

// pathHasPrefix reports whether path equals dir or lies below it, ignoring case.
func pathHasPrefix(path, dir string) bool {
	if strings.EqualFold(path, dir) {
		return true
	}
	prefix := strings.ToLower(dir) + string(os.PathSeparator)
	return strings.HasPrefix(strings.ToLower(path), prefix)
}

// reservedDirectories returns the platform's operating system directories.
func reservedDirectories() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			"C:\\Windows",
			"C:\\Program Files",
			"C:\\Program Files (x86)",
			"C:\\ProgramData\\Microsoft",
		}
	case "darwin":
		return []string{
			"/System",
			"/bin",
			"/sbin",
			"/usr/bin",
			"/usr/sbin",
			"/usr/lib",
			"/etc",
			"/private/etc",
			"/var/db",
			"/Library/System",
		}
	default:
		return []string{
			"/bin",
			"/sbin",
			"/lib",
			"/lib64",
			"/usr/bin",
			"/usr/sbin",
			"/usr/lib",
			"/etc",
			"/boot",
			"/dev",
			"/proc",
			"/sys",
			"/var/lib",
		}
	}
}

// isTempDirectory detects system and per-user temp directories.
func isTempDirectory(path string) bool {
	switch runtime.GOOS {
	case "darwin":
		if strings.Contains(path, "/var/folders/") {
			return true
		}
	case "linux":
		if path == "/tmp" || strings.HasPrefix(path, "/tmp/") {
			return true
		}
	case "windows":
		lower := strings.ToLower(path)
		if strings.Contains(lower, "\\temp\\") || strings.Contains(lower, "\\tmp\\") {
			return true
		}
	}

	systemTemp := filepath.Clean(os.TempDir())
	if resolved, err := filepath.EvalSymlinks(systemTemp); err == nil {
		systemTemp = resolved
	}
	return pathHasPrefix(filepath.Clean(path), systemTemp)
}
