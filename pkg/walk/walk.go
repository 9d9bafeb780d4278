// Package walk enumerates the candidate source files under a root directory.
package walk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/src-d/enry/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	tracerName = "pyimports"
	spanWalk   = "pyimports.walk"
)

// GitignoreName is the ignore file read from the walked root.
const GitignoreName = ".gitignore"

// Sentinel errors for walking.
var (
	ErrEmptyRoot   = errors.New("root path is empty")
	ErrRootNotDir  = errors.New("root path is not a directory")
	errFileTooBig  = errors.New("file exceeds size limit")
	errSymlinkLoop = errors.New("directory already visited")
)

// DefaultIncludes returns the default candidate file patterns.
func DefaultIncludes() []string {
	return []string{"*.py", "*.enaml", "*.rst"}
}

// DefaultIgnores returns the ignore rules applied to every walk. Lines
// containing a slash are anchored at the root, hence the "**/" prefix.
func DefaultIgnores() []string {
	return []string{
		"**/.git/",
		"**/.hg/",
		"**/__pycache__/",
		"**/.tox/",
		"**/.venv/",
		"**/node_modules/",
	}
}

// Skip records an entry that could not be considered.
type Skip struct {
	Path string
	Err  error
}

// Listing is the result of a walk.
type Listing struct {
	// Root is the absolute, cleaned root.
	Root string
	// Files are absolute candidate paths in lexical walk order.
	Files []string
	// Skipped are entries that were unreadable or rejected with a reason.
	Skipped []Skip
}

// Rel returns p relative to the listing root, slash separated.
func (l *Listing) Rel(p string) string {
	rel, err := filepath.Rel(l.Root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}

	return filepath.ToSlash(rel)
}

// Walker enumerates files whose names match Include.
type Walker struct {
	// Include holds doublestar patterns matched against the base name and
	// the slash separated path relative to the root.
	Include []string
	// Ignore holds extra gitignore-style lines.
	Ignore []string
	// UseGitignore reads .gitignore from the root when present.
	UseGitignore bool
	// SkipVendor drops paths that enry classifies as vendored.
	SkipVendor bool
	// FollowSymlinks descends into symlinked directories and lists symlinked
	// files. Revisits of the same real directory are skipped.
	FollowSymlinks bool
	// MaxFileSize skips larger files; zero disables the limit.
	MaxFileSize int64
}

// New returns a Walker with the default include patterns.
func New() *Walker {
	return &Walker{
		Include:      DefaultIncludes(),
		UseGitignore: true,
	}
}

// Walk lists the candidate files under root. An inaccessible root is fatal;
// problems with individual entries are recorded in Listing.Skipped.
func (w *Walker) Walk(ctx context.Context, root string) (*Listing, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, spanWalk)
	defer span.End()

	absRoot, err := resolveRoot(root)
	if err != nil {
		span.SetStatus(codes.Error, "bad root")

		return nil, err
	}

	state := &walkState{
		walker:  w,
		listing: &Listing{Root: absRoot},
		ignore:  w.compileIgnore(absRoot),
		visited: make(map[string]bool),
	}

	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		realRoot = absRoot
	}

	err = state.walkDir(ctx, absRoot, realRoot)
	if err != nil {
		span.SetStatus(codes.Error, "walk aborted")

		return nil, err
	}

	span.SetAttributes(
		attribute.Int("walk.files", len(state.listing.Files)),
		attribute.Int("walk.skipped", len(state.listing.Skipped)),
	)

	return state.listing, nil
}

func resolveRoot(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", ErrEmptyRoot
	}

	absRoot, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return "", fmt.Errorf("stat root: %w", err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrRootNotDir, absRoot)
	}

	return absRoot, nil
}

func (w *Walker) compileIgnore(root string) *ignore.GitIgnore {
	lines := append(DefaultIgnores(), w.Ignore...)

	if w.UseGitignore {
		content, err := os.ReadFile(filepath.Join(root, GitignoreName))
		if err == nil {
			lines = append(lines, strings.Split(string(content), "\n")...)
		}
	}

	return ignore.CompileIgnoreLines(lines...)
}

type walkState struct {
	walker  *Walker
	listing *Listing
	ignore  *ignore.GitIgnore
	visited map[string]bool
}

func (s *walkState) skip(p string, err error) {
	s.listing.Skipped = append(s.listing.Skipped, Skip{Path: p, Err: err})
}

// walkDir lists dir. realDir is its symlink-free path, used to detect cycles.
func (s *walkState) walkDir(ctx context.Context, dir, realDir string) error {
	err := ctx.Err()
	if err != nil {
		return fmt.Errorf("walk %s: %w", dir, err)
	}

	if s.visited[realDir] {
		s.skip(dir, errSymlinkLoop)

		return nil
	}

	s.visited[realDir] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.skip(dir, err)

		return nil
	}

	for _, entry := range entries {
		entryPath := filepath.Join(dir, entry.Name())
		rel := s.listing.Rel(entryPath)

		isDir, target, ok := s.classify(entryPath, filepath.Join(realDir, entry.Name()), entry)
		if !ok {
			continue
		}

		if s.ignored(rel, isDir) {
			continue
		}

		if isDir {
			err = s.walkDir(ctx, entryPath, target)
			if err != nil {
				return err
			}

			continue
		}

		if s.included(rel) {
			s.addFile(entryPath)
		}
	}

	return nil
}

// classify resolves symlinks. It reports whether the entry is a directory,
// its real path when it is one, and false when the entry must be dropped.
func (s *walkState) classify(entryPath, realPath string, entry fs.DirEntry) (bool, string, bool) {
	if entry.Type()&fs.ModeSymlink == 0 {
		if entry.IsDir() {
			return true, realPath, true
		}

		return false, "", entry.Type().IsRegular()
	}

	info, err := os.Stat(entryPath)
	if err != nil {
		s.skip(entryPath, err)

		return false, "", false
	}

	if !s.walker.FollowSymlinks {
		return false, "", false
	}

	if !info.IsDir() {
		return false, "", info.Mode().IsRegular()
	}

	target, err := filepath.EvalSymlinks(entryPath)
	if err != nil {
		s.skip(entryPath, err)

		return false, "", false
	}

	return true, target, true
}

func (s *walkState) ignored(rel string, isDir bool) bool {
	candidate := rel
	if isDir {
		candidate += "/"
	}

	if s.ignore.MatchesPath(candidate) {
		return true
	}

	return s.walker.SkipVendor && enry.IsVendor(candidate)
}

func (s *walkState) included(rel string) bool {
	base := path.Base(rel)

	for _, pattern := range s.walker.Include {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}

		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}

	return false
}

func (s *walkState) addFile(p string) {
	if s.walker.MaxFileSize > 0 {
		info, err := os.Stat(p)
		if err != nil {
			s.skip(p, err)

			return
		}

		if info.Size() > s.walker.MaxFileSize {
			s.skip(p, fmt.Errorf("%w: %d > %d bytes", errFileTooBig, info.Size(), s.walker.MaxFileSize))

			return
		}
	}

	s.listing.Files = append(s.listing.Files, p)
}
