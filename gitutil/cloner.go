// Package gitutil shallow-clones remote repositories so their
// Terraform sources can be scanned without a permanent checkout.
package gitutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"
)

// CloneTemp checks out repoURL into a temporary directory with a
// depth-1 clone. The returned cleanup removes the checkout and must be
// called once scanning is done.
func CloneTemp(ctx context.Context, logger *slog.Logger, repoURL string) (string, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir, err := os.MkdirTemp("", "tftags-scan-*")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp directory: %w", err)
	}

	cleanup := func() {
		logger.Debug("Removing temporary checkout", "path", dir)
		_ = os.RemoveAll(dir)
	}

	logger.Info("Cloning repository", "url", repoURL, "path", dir)
	_, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:   repoURL,
		Depth: 1,
	})
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("cloning %s: %w", repoURL, err)
	}

	return dir, cleanup, nil
}
