// Package scan walks a Terraform workspace or module tree and collects
// tags from every Terraform file it finds.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar"

	"github.com/sevigo/tftags/extract"
	"github.com/sevigo/tftags/schema"
)

// Scanner walks a directory tree, applies include/exclude globs, and
// extracts tags from matching files. Recorded file paths are relative
// to the scan root, so the tags file works when placed there.
type Scanner struct {
	root      string
	include   []string
	exclude   []string
	extractor *extract.Extractor
	logger    *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets a custom logger for the Scanner.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// WithPatterns sets the include and exclude globs, matched against
// slash-separated paths relative to the root. Empty include means
// every file the extractor can handle.
func WithPatterns(include, exclude []string) Option {
	return func(s *Scanner) {
		s.include = include
		s.exclude = exclude
	}
}

// New creates a scanner rooted at the given directory.
func New(root string, opts ...Option) *Scanner {
	s := &Scanner{
		root:   root,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.extractor = extract.New(s.logger)
	return s
}

// Scan walks the tree and returns the collected tags. Unreadable files
// and files with parse errors are logged and skipped rather than
// aborting the walk.
func (s *Scanner) Scan(ctx context.Context) ([]schema.Tag, error) {
	s.logger.Info("Scanning Terraform tree", "root", s.root)

	var tags []schema.Tag
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.logger.Warn("Skipping unreadable path", "path", path, "error", err)
			return nil
		}

		if d.IsDir() {
			if path != s.root && shouldSkipDir(d.Name()) {
				s.logger.Debug("Skipping excluded directory", "path", path)
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if !s.matches(rel) || !s.extractor.CanHandle(path) {
			return nil
		}

		fileTags := s.extractFile(path, rel)
		tags = append(tags, fileTags...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", s.root, err)
	}

	s.logger.Info("Scan completed", "root", s.root, "tags", len(tags))
	return tags, nil
}

// extractFile reads and parses a single file, returning its tags with
// the path rewritten relative to the scan root.
func (s *Scanner) extractFile(path, rel string) []schema.Tag {
	content, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("Cannot read file, skipping", "path", path, "error", err)
		return nil
	}

	tags, err := s.extractor.Extract(content, rel)
	if err != nil {
		s.logger.Warn("Cannot extract tags, skipping", "path", path, "error", err)
		return nil
	}
	return tags
}

// matches applies the include then exclude globs to a relative path.
func (s *Scanner) matches(rel string) bool {
	if len(s.include) > 0 && !s.matchAny(s.include, rel) {
		return false
	}
	return !s.matchAny(s.exclude, rel)
}

func (s *Scanner) matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, rel)
		if err != nil {
			s.logger.Warn("Ignoring malformed glob pattern", "pattern", pattern, "error", err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// shouldSkipDir filters directories that never hold indexable
// Terraform source: VCS metadata, the provider cache terraform init
// creates, and common dependency or build output directories.
func shouldSkipDir(name string) bool {
	skip := []string{
		".git", ".svn", ".hg",
		".terraform",
		"vendor", "node_modules",
		"build", "dist", "target",
		".vscode", ".idea",
	}
	return slices.Contains(skip, name)
}
