// Package terraform drives the terraform CLI for the pipeline: it
// locates (or installs) a binary, runs init, and extracts the provider
// schema document.
package terraform

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	install "github.com/hashicorp/hc-install"
	installfs "github.com/hashicorp/hc-install/fs"
	"github.com/hashicorp/hc-install/product"
	"github.com/hashicorp/hc-install/releases"
	"github.com/hashicorp/hc-install/src"
	"github.com/hashicorp/terraform-exec/tfexec"
	tfjson "github.com/hashicorp/terraform-json"
)

// Runner executes terraform in a fixed working directory.
type Runner struct {
	workingDir string
	command    string
	logger     *slog.Logger

	tf *tfexec.Terraform
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets a custom logger for the Runner.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithCommand overrides the terraform binary. "opentofu" or an
// absolute path both work; the default is "terraform".
func WithCommand(command string) RunnerOption {
	return func(r *Runner) {
		if command != "" {
			r.command = command
		}
	}
}

// NewRunner creates a runner for the given working directory. The
// binary is resolved lazily on first use.
func NewRunner(workingDir string, opts ...RunnerOption) *Runner {
	r := &Runner{
		workingDir: workingDir,
		command:    "terraform",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Init runs "terraform init" in the working directory, downloading the
// providers declared in its configuration.
func (r *Runner) Init(ctx context.Context) error {
	tf, err := r.ensure(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("Running terraform init", "dir", r.workingDir)
	if err := tf.Init(ctx, tfexec.Upgrade(false)); err != nil {
		return fmt.Errorf("terraform init in %s: %w", r.workingDir, err)
	}
	return nil
}

// ProvidersSchema runs "terraform providers schema -json" and returns
// the parsed document.
func (r *Runner) ProvidersSchema(ctx context.Context) (*tfjson.ProviderSchemas, error) {
	tf, err := r.ensure(ctx)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Extracting provider schemas", "dir", r.workingDir)
	schemas, err := tf.ProvidersSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading provider schemas in %s: %w", r.workingDir, err)
	}
	return schemas, nil
}

// ensure resolves the binary and builds the tfexec handle once.
func (r *Runner) ensure(ctx context.Context) (*tfexec.Terraform, error) {
	if r.tf != nil {
		return r.tf, nil
	}

	execPath, err := r.resolveBinary(ctx)
	if err != nil {
		return nil, err
	}

	tf, err := tfexec.NewTerraform(r.workingDir, execPath)
	if err != nil {
		return nil, fmt.Errorf("initializing terraform executor: %w", err)
	}

	r.tf = tf
	return tf, nil
}

// resolveBinary finds the configured command on PATH. When the default
// "terraform" command is missing entirely, a release build is
// installed under the working directory instead of failing; custom
// commands such as "opentofu" must already be installed.
func (r *Runner) resolveBinary(ctx context.Context) (string, error) {
	if filepath.IsAbs(r.command) {
		return r.command, nil
	}

	if path, err := exec.LookPath(r.command); err == nil {
		r.logger.Debug("Found terraform binary on PATH", "path", path)
		return path, nil
	}

	if r.command != "terraform" {
		return "", fmt.Errorf("command %q not found on PATH", r.command)
	}

	installDir := filepath.Join(r.workingDir, ".tftags-bin")
	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return "", fmt.Errorf("creating install directory %s: %w", installDir, err)
	}
	r.logger.Info("No terraform on PATH, installing a release build", "dir", installDir)

	installer := install.NewInstaller()
	execPath, err := installer.Ensure(ctx, []src.Source{
		&installfs.AnyVersion{Product: &product.Terraform},
		&releases.LatestVersion{
			Product:    product.Terraform,
			InstallDir: installDir,
		},
	})
	if err != nil {
		return "", fmt.Errorf("installing terraform: %w", err)
	}

	r.logger.Info("Installed terraform", "path", execPath)
	return execPath, nil
}
