// Package gitcheck detects files whose contents survive in git history.
//
// Overwriting a working-tree file does nothing to the blobs already committed,
// so a shred of a tracked file is only a partial erase. The guard looks the
// path up in the HEAD tree of the enclosing repository and applies a Policy.
package gitcheck

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// Policy decides what happens to a target that is tracked by git.
type Policy string

const (
	PolicyWarn   Policy = "warn"
	PolicyRefuse Policy = "refuse"
	PolicyOff    Policy = "off"
)

// ParsePolicy accepts warn, refuse or off (case-insensitive). An empty
// string means warn.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyWarn, nil
	case PolicyWarn, PolicyRefuse, PolicyOff:
		return p, nil
	}
	return "", fmt.Errorf("unknown git check policy %q (want warn, refuse or off)", s)
}

// Status is the result of looking a path up in its repository.
type Status struct {
	Tracked  bool
	RepoRoot string
	RelPath  string
}

// RefusedError is returned by Check under PolicyRefuse.
type RefusedError struct {
	Path     string
	RepoRoot string
}

func (e *RefusedError) Error() string {
	return fmt.Sprintf("refusing to shred %s: tracked in git repository %s (history keeps a copy)", e.Path, e.RepoRoot)
}

// Tracked reports whether path is part of the HEAD commit of the repository
// that contains it. Paths outside any repository, and repositories without
// commits, are reported as untracked with a nil error.
func Tracked(path string) (Status, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Status{}, fmt.Errorf("resolve path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	repo, err := git.PlainOpenWithOptions(filepath.Dir(abs), &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return Status{}, nil
		}
		return Status{}, fmt.Errorf("open repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		// Bare repositories have no working tree to shred from.
		if errors.Is(err, git.ErrIsBareRepository) {
			return Status{}, nil
		}
		return Status{}, fmt.Errorf("open worktree: %w", err)
	}
	root := wt.Filesystem.Root()
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return Status{RepoRoot: root}, nil
	}
	status := Status{RepoRoot: root, RelPath: filepath.ToSlash(rel)}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return status, nil
		}
		return status, fmt.Errorf("read HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return status, fmt.Errorf("read HEAD commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return status, fmt.Errorf("read HEAD tree: %w", err)
	}

	if _, err := tree.File(status.RelPath); err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return status, nil
		}
		return status, fmt.Errorf("look up %s: %w", status.RelPath, err)
	}
	status.Tracked = true
	return status, nil
}

// Check applies policy to path. It returns warn=true when the file is
// tracked and the policy is PolicyWarn, and a *RefusedError under
// PolicyRefuse. Lookup failures are returned as-is so callers can decide
// whether to continue.
func Check(path string, policy Policy) (warn bool, err error) {
	if policy == PolicyOff {
		return false, nil
	}
	status, err := Tracked(path)
	if err != nil {
		return false, err
	}
	if !status.Tracked {
		return false, nil
	}
	if policy == PolicyRefuse {
		return false, &RefusedError{Path: path, RepoRoot: status.RepoRoot}
	}
	return true, nil
}
