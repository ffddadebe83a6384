package fileops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RemoveEmptyDirs deletes every empty directory below root, deepest first, and
// root itself when includeRoot is set and it ends up empty. Directories that
// still hold entries are left alone. It returns the removed paths.
//
// Symbolic links to directories are not descended into.
func RemoveEmptyDirs(root string, includeRoot bool) ([]string, error) {
	absRoot, err := filepath.Abs(ExpandPath(root))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve directory: %w", err)
	}
	if IsReservedDirectory(absRoot) {
		return nil, fmt.Errorf("%w: %s", ErrReserved, absRoot)
	}

	var dirs []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && (includeRoot || path != absRoot) {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", absRoot, err)
	}

	sort.SliceStable(dirs, func(i, j int) bool {
		return strings.Count(dirs[i], string(os.PathSeparator)) > strings.Count(dirs[j], string(os.PathSeparator))
	})

	var removed []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("failed to read %s: %w", dir, err)
		}
		if len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", dir, err)
		}
		removed = append(removed, dir)
	}
	return removed, nil
}
