package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IsSymlink checks if a given path is a symbolic link without following it.
//
// Parameters:
//   - path: File path to check
//
// Returns:
//   - bool: true if the path is a symbolic link
//   - error: File system access errors
func IsSymlink(path string) (bool, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, fmt.Errorf("failed to stat path: %w", err)
	}
	return info.Mode()&os.ModeSymlink != 0, nil
}

// ResolveSymlink follows the full chain of links at linkPath and returns the
// absolute path of the final target.
//
// Usage example:
//
//	target, err := fileops.ResolveSymlink("/home/me/current-key")
//	if err != nil {
//	    return fmt.Errorf("failed to resolve symlink: %w", err)
//	}
func ResolveSymlink(linkPath string) (string, error) {
	resolved, err := filepath.EvalSymlinks(linkPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve symlink: %w", err)
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to resolve symlink: %w", err)
	}
	return abs, nil
}

// ValidateSymlinkSecurity checks that the link at linkPath resolves inside one
// of allowedBasePaths. Broken links and links escaping every base are rejected.
//
// Parameters:
//   - linkPath: Path to the symbolic link to validate
//   - allowedBasePaths: Directories the target must be within
//
// Returns:
//   - error: Security validation errors
func ValidateSymlinkSecurity(linkPath string, allowedBasePaths []string) error {
	isLink, err := IsSymlink(linkPath)
	if err != nil {
		return fmt.Errorf("cannot check if path is symlink: %w", err)
	}
	if !isLink {
		return fmt.Errorf("path is not a symbolic link: %s", linkPath)
	}

	resolved, err := ResolveSymlink(linkPath)
	if err != nil {
		return fmt.Errorf("symlink resolution failed: %w", err)
	}

	for _, basePath := range allowedBasePaths {
		base, err := filepath.Abs(basePath)
		if err != nil {
			continue
		}
		// macOS temp dirs live behind /var -> /private/var
		if canonical, err := filepath.EvalSymlinks(base); err == nil {
			base = canonical
		}

		rel, err := filepath.Rel(base, resolved)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil
		}
	}

	return fmt.Errorf("symlink target is not within any allowed base path: %s", resolved)
}
