package ctags

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner indexes files by invoking an external universal-ctags binary.
type Runner struct {
	command string
	logger  *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets a custom logger for the Runner.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner for the given ctags command. An empty
// command defaults to "ctags".
func NewRunner(command string, opts ...RunnerOption) *Runner {
	if command == "" {
		command = "ctags"
	}
	r := &Runner{
		command: command,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Available reports whether the configured binary can be executed.
// It runs "<command> --version" rather than a bare PATH lookup so a
// present-but-broken binary is also detected.
func (r *Runner) Available(ctx context.Context) bool {
	out, err := exec.CommandContext(ctx, r.command, "--version").Output()
	if err != nil {
		r.logger.Debug("ctags binary not usable", "command", r.command, "error", err)
		return false
	}
	r.logger.Debug("ctags binary available",
		"command", r.command,
		"version", firstLine(string(out)))
	return true
}

// Index runs ctags over sourcePath and writes the tags file to
// tagsPath. The command runs in the source file's directory and is
// passed the bare file name, so recorded paths stay relative.
func (r *Runner) Index(ctx context.Context, sourcePath, tagsPath string) error {
	// The tags path must stay valid after the chdir into the source
	// directory.
	absTags, err := filepath.Abs(tagsPath)
	if err != nil {
		return fmt.Errorf("resolving tags path %s: %w", tagsPath, err)
	}

	cmd := exec.CommandContext(ctx, r.command, "-f", absTags, filepath.Base(sourcePath))
	cmd.Dir = filepath.Dir(sourcePath)

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("running %s on %s: %w: %s",
			r.command, sourcePath, err, strings.TrimSpace(string(out)))
	}

	r.logger.Debug("Indexed file with ctags", "source", sourcePath, "tags", tagsPath)
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
