package fileops

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// DirectoryScanOptions configures a SecureDirectoryScanner.
type DirectoryScanOptions struct {
	// SkipUnreadableDirs skips directories that cannot be read instead of
	// failing the whole scan. Skipped directories are counted in ScanStats.
	SkipUnreadableDirs bool

	// MaxDepth limits recursion. The scan root has depth 1; zero or less
	// means no limit. Directories beyond the limit are counted in
	// ScanStats.DepthLimitedDirs.
	MaxDepth int

	// IncludeHidden includes entries whose name starts with '.'.
	IncludeHidden bool

	// SkipPatterns lists directory names (not paths) that are never entered.
	SkipPatterns []string

	// FileFilter, when set, decides whether a file name is returned.
	FileFilter func(filename string) bool
}

// FileInfo describes an entry found during a scan.
type FileInfo struct {
	// Name is the base name.
	Name string

	// Path is relative to the scan root.
	Path string

	// AbsPath is the absolute path of the entry.
	AbsPath string

	Size    int64
	ModTime time.Time
	Mode    os.FileMode
}

// ScanStats summarises the last scan.
type ScanStats struct {
	TotalFiles   int
	TotalSize    int64
	LargestFile  int64
	SkippedDirs  int
	SkippedLinks int
	// DepthLimitedDirs counts directories not entered because of MaxDepth.
	DepthLimitedDirs int
	// ContainedLinks counts links whose target lies inside the scan root.
	ContainedLinks int
}

// SecureDirectoryScanner walks a directory tree inside an os.Root so that no
// entry outside the scan root can be reached. Symbolic links are never followed.
type SecureDirectoryScanner struct {
	root     *os.Root
	opts     *DirectoryScanOptions
	scanRoot string

	results []FileInfo
	links   []FileInfo
	visited map[string]bool
	stats   ScanStats
}

// NewDirectoryScanner creates a scanner rooted at scanPath.
//
// Parameters:
//   - scanPath: The directory to scan (relative, absolute or "~/")
//   - opts: Scanning options (nil selects DefaultScanOptions)
//
// Returns:
//   - *SecureDirectoryScanner: Scanner that must be closed after use
//   - error: Setup errors, including reserved or non-directory paths
//
// Usage example:
//
//	scanner, err := fileops.NewDirectoryScanner("~/old-project", nil)
//	if err != nil {
//	    return fmt.Errorf("failed to create scanner: %w", err)
//	}
//	defer scanner.Close()
//	files, err := scanner.ScanDirectory()
func NewDirectoryScanner(scanPath string, opts *DirectoryScanOptions) (*SecureDirectoryScanner, error) {
	if opts == nil {
		opts = DefaultScanOptions()
	}
	if strings.TrimSpace(scanPath) == "" {
		return nil, fmt.Errorf("scan path cannot be empty")
	}

	absPath, err := filepath.Abs(ExpandPath(scanPath))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve scan path: %w", err)
	}

	if IsReservedDirectory(absPath) {
		return nil, fmt.Errorf("%w: %s", ErrReserved, absPath)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("cannot access scan path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan path is not a directory: %s", absPath)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("cannot create secure scan root: %w", err)
	}

	return &SecureDirectoryScanner{
		root:     root,
		opts:     opts,
		scanRoot: absPath,
		visited:  make(map[string]bool),
	}, nil
}

// DefaultScanOptions returns options suited to recursive shredding: every file,
// hidden or not, at any depth.
func DefaultScanOptions() *DirectoryScanOptions {
	return &DirectoryScanOptions{
		SkipUnreadableDirs: false,
		IncludeHidden:      true,
	}
}

// Root returns the absolute scan root.
func (s *SecureDirectoryScanner) Root() string { return s.scanRoot }

// Close releases the os.Root.
func (s *SecureDirectoryScanner) Close() error {
	if s.root != nil {
		err := s.root.Close()
		s.root = nil
		return err
	}
	return nil
}

// ScanDirectory walks the tree and returns every regular file that matches the
// options. Entries are visited in name order, so results are deterministic.
func (s *SecureDirectoryScanner) ScanDirectory() ([]FileInfo, error) {
	if s.root == nil {
		return nil, fmt.Errorf("scanner has been closed")
	}

	s.results = nil
	s.links = nil
	s.visited = make(map[string]bool)
	s.stats = ScanStats{}

	if err := s.scanRecursive(".", 1); err != nil {
		return nil, fmt.Errorf("directory scan failed: %w", err)
	}
	return slices.Clone(s.results), nil
}

// ContainedLinks returns the symbolic links from the last scan whose targets
// resolve inside the scan root. They dangle once the tree is shredded.
func (s *SecureDirectoryScanner) ContainedLinks() []FileInfo {
	return slices.Clone(s.links)
}

// GetScanStats returns statistics about the last scan.
func (s *SecureDirectoryScanner) GetScanStats() ScanStats {
	return s.stats
}

func (s *SecureDirectoryScanner) scanRecursive(relativePath string, depth int) error {
	if s.opts.MaxDepth > 0 && depth > s.opts.MaxDepth {
		s.stats.DepthLimitedDirs++
		return nil
	}

	cleanPath := filepath.Clean(relativePath)
	if s.visited[cleanPath] {
		return nil
	}
	s.visited[cleanPath] = true

	if s.shouldSkipDirectory(filepath.Base(cleanPath)) {
		s.stats.SkippedDirs++
		return nil
	}

	dir, err := s.root.Open(cleanPath)
	if err != nil {
		if s.opts.SkipUnreadableDirs {
			s.stats.SkippedDirs++
			return nil
		}
		return fmt.Errorf("failed to open directory %s: %w", cleanPath, err)
	}
	defer dir.Close()

	entries, err := dir.ReadDir(-1)
	if err != nil {
		if s.opts.SkipUnreadableDirs {
			s.stats.SkippedDirs++
			return nil
		}
		return fmt.Errorf("failed to read directory %s: %w", cleanPath, err)
	}
	slices.SortFunc(entries, func(a, b os.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})

	for _, entry := range entries {
		entryPath := filepath.Join(cleanPath, entry.Name())
		fullPath := filepath.Join(s.scanRoot, entryPath)

		switch {
		case entry.Type()&os.ModeSymlink != 0:
			s.recordLink(entry, entryPath, fullPath)

		case entry.IsDir():
			if err := s.scanRecursive(entryPath, depth+1); err != nil {
				return err
			}

		case entry.Type().IsRegular():
			if !s.shouldIncludeFile(entry.Name()) {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					continue
				}
				return fmt.Errorf("failed to get file info for %s: %w", entryPath, err)
			}
			s.results = append(s.results, FileInfo{
				Name:    entry.Name(),
				Path:    entryPath,
				AbsPath: fullPath,
				Size:    info.Size(),
				ModTime: info.ModTime(),
				Mode:    info.Mode(),
			})
			s.stats.TotalFiles++
			s.stats.TotalSize += info.Size()
			s.stats.LargestFile = max(s.stats.LargestFile, info.Size())
		}
	}

	return nil
}

// recordLink keeps links that resolve inside the scan root and counts the rest.
func (s *SecureDirectoryScanner) recordLink(entry os.DirEntry, entryPath, fullPath string) {
	if err := ValidateSymlinkSecurity(fullPath, []string{s.scanRoot}); err != nil {
		s.stats.SkippedLinks++
		return
	}
	link := FileInfo{Name: entry.Name(), Path: entryPath, AbsPath: fullPath, Mode: os.ModeSymlink}
	if info, err := entry.Info(); err == nil {
		link.ModTime = info.ModTime()
	}
	s.links = append(s.links, link)
	s.stats.ContainedLinks++
}

func (s *SecureDirectoryScanner) shouldSkipDirectory(dirName string) bool {
	if dirName == "." || dirName == ".." {
		return false
	}
	if !s.opts.IncludeHidden && strings.HasPrefix(dirName, ".") {
		return true
	}
	return slices.Contains(s.opts.SkipPatterns, dirName)
}

func (s *SecureDirectoryScanner) shouldIncludeFile(fileName string) bool {
	if !s.opts.IncludeHidden && strings.HasPrefix(fileName, ".") {
		return false
	}
	if s.opts.FileFilter != nil {
		return s.opts.FileFilter(fileName)
	}
	return true
}

// ScanFiles returns every regular file below dir using DefaultScanOptions.
func ScanFiles(dir string) ([]FileInfo, error) {
	scanner, err := NewDirectoryScanner(dir, nil)
	if err != nil {
		return nil, err
	}
	defer scanner.Close()

	return scanner.ScanDirectory()
}
