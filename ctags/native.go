package ctags

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sevigo/tftags/extract"
)

// Native indexes files with the built-in HCL extractor instead of an
// external binary. It is the fallback when no usable ctags is found,
// and can be selected explicitly.
type Native struct {
	extractor *extract.Extractor
	logger    *slog.Logger
}

// NewNative creates a built-in indexer.
func NewNative(logger *slog.Logger) *Native {
	if logger == nil {
		logger = slog.Default()
	}
	return &Native{
		extractor: extract.New(logger),
		logger:    logger,
	}
}

// Index parses sourcePath and writes its tags to tagsPath. Recorded
// file paths use the bare file name, matching the exec runner.
func (n *Native) Index(ctx context.Context, sourcePath, tagsPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	content, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", sourcePath, err)
	}

	tags, err := n.extractor.Extract(content, filepath.Base(sourcePath))
	if err != nil {
		return err
	}

	n.logger.Debug("Indexed file with built-in extractor",
		"source", sourcePath, "tags", tagsPath, "count", len(tags))
	return WriteFile(tagsPath, tags)
}
