// Package batch expands user-supplied paths into shred targets and runs the
// shredder over them, optionally in parallel.
package batch

import (
	"errors"
	"fmt"
	"path/filepath"

	"shredder/pkg/fileops"
)

// Target is one file scheduled for shredding.
type Target struct {
	// Path is the absolute path handed to the shredder.
	Path string
	// Link is set when Path was reached through a symbolic link.
	Link string
	Size int64
	// Root is the directory argument this file was found under, or empty
	// when the file was named directly.
	Root string
	// Missing marks a named path that did not exist at planning time. It is
	// still scheduled so the shredder reports it as not found.
	Missing bool
}

// Name returns the path as the user is likely to recognise it.
func (t Target) Name() string {
	if t.Link != "" {
		return t.Link
	}
	return t.Path
}

// PlanOptions controls path expansion.
type PlanOptions struct {
	// Recursive expands directory arguments to the regular files below them.
	Recursive     bool
	AllowSymlinks bool
	// MaxDepth bounds directory expansion; zero means unlimited. Trees
	// deeper than the bound produce a PlanError next to the targets found.
	MaxDepth int
}

// PlanError records an argument that could not be fully planned. A
// directory argument may still have contributed targets.
type PlanError struct {
	Path string
	Err  error
}

func (e *PlanError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e *PlanError) Unwrap() error { return e.Err }

// Plan resolves paths into an ordered, duplicate-free list of targets.
// Arguments that cannot be shredded are returned as PlanErrors and do not
// stop the rest of the plan.
func Plan(paths []string, opts PlanOptions) ([]Target, []*PlanError) {
	var (
		targets []Target
		errs    []*PlanError
		seen    = make(map[string]bool)
	)
	add := func(t Target) {
		if seen[t.Path] {
			return
		}
		seen[t.Path] = true
		targets = append(targets, t)
	}

	scanOpts := fileops.DefaultScanOptions()
	scanOpts.MaxDepth = opts.MaxDepth

	for _, p := range paths {
		validated, err := fileops.ValidateShredTarget(p, fileops.TargetOptions{AllowSymlinks: opts.AllowSymlinks})
		switch {
		case err == nil:
			add(Target{
				Path:    validated.Path,
				Link:    validated.Link,
				Size:    validated.Size,
				Missing: !validated.Exists,
			})
		case errors.Is(err, fileops.ErrIsDirectory) && opts.Recursive:
			found, err := expandDir(p, scanOpts)
			for _, t := range found {
				add(t)
			}
			if err != nil {
				errs = append(errs, &PlanError{Path: p, Err: err})
			}
		case errors.Is(err, fileops.ErrIsDirectory):
			errs = append(errs, &PlanError{Path: p, Err: fmt.Errorf("%w (use --recursive)", err)})
		default:
			errs = append(errs, &PlanError{Path: p, Err: err})
		}
	}
	return targets, errs
}

// Roots returns the distinct directory arguments targets were expanded from.
func Roots(targets []Target) []string {
	var roots []string
	seen := make(map[string]bool)
	for _, t := range targets {
		if t.Root != "" && !seen[t.Root] {
			seen[t.Root] = true
			roots = append(roots, t.Root)
		}
	}
	return roots
}

// expandDir lists the files below dir. It returns the files it found together
// with ErrDepthLimit when part of the tree was beyond opts.MaxDepth.
func expandDir(dir string, opts *fileops.DirectoryScanOptions) ([]Target, error) {
	abs, err := filepath.Abs(fileops.ExpandPath(dir))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve directory: %w", err)
	}

	scanner, err := fileops.NewDirectoryScanner(abs, opts)
	if err != nil {
		return nil, err
	}
	defer scanner.Close()

	files, err := scanner.ScanDirectory()
	if err != nil {
		return nil, err
	}

	root := scanner.Root()
	targets := make([]Target, 0, len(files))
	for _, f := range files {
		if fileops.IsReservedDirectory(f.AbsPath) {
			continue
		}
		targets = append(targets, Target{Path: f.AbsPath, Size: f.Size, Root: root})
	}
	if n := scanner.GetScanStats().DepthLimitedDirs; n > 0 {
		return targets, fmt.Errorf("%w: %d directories not entered", fileops.ErrDepthLimit, n)
	}
	return targets, nil
}
