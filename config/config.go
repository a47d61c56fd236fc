// Package config loads the tftags configuration file and provides the
// defaults used when no file is present.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// ScanConfig holds the glob patterns applied while walking a workspace.
type ScanConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// Config is the full tftags configuration. Every field can be
// overridden on the command line.
type Config struct {
	// WorkingDir is where terraform runs and intermediate files live.
	WorkingDir string `yaml:"working_dir"`

	// TerraformCommand names the terraform binary. "opentofu" works as
	// well; an absolute path skips the PATH lookup.
	TerraformCommand string `yaml:"terraform_command"`

	// CtagsCommand names the universal-ctags binary.
	CtagsCommand string `yaml:"ctags_command"`

	// OutputDir receives the generated tags files. Empty means the
	// working directory.
	OutputDir string `yaml:"output_dir"`

	// Providers maps local provider names to registry source addresses,
	// e.g. "aws" -> "hashicorp/aws".
	Providers map[string]string `yaml:"providers"`

	Scan ScanConfig `yaml:"scan"`
}

// Default returns the built-in configuration: a tmp working directory
// and the stock provider set.
func Default() *Config {
	return &Config{
		WorkingDir:       filepath.Join(os.TempDir(), "tftags"),
		TerraformCommand: "terraform",
		CtagsCommand:     "ctags",
		Providers: map[string]string{
			"aws":              "hashicorp/aws",
			"azurerm":          "hashicorp/azurerm",
			"dns":              "hashicorp/dns",
			"helm":             "hashicorp/helm",
			"google":           "hashicorp/google",
			"kubectl":          "gavinbunney/kubectl",
			"kubernetes":       "hashicorp/kubernetes",
			"opentelekomcloud": "opentelekomcloud/opentelekomcloud",
			"proxmox":          "bpg/proxmox",
		},
		Scan: ScanConfig{
			Include: []string{"**/*.tf", "**/*.tfvars"},
		},
	}
}

// DefaultPath returns the standard config file location,
// ~/.config/tftags/config.yaml.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "tftags", "config.yaml"), nil
}

// Load reads the configuration from path. An empty path means the
// default location; a missing file at the default location falls back
// to Default(), while an explicitly named file must exist. Unknown
// keys are rejected.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expanding config path %q: %w", path, err)
	}

	raw, err := os.ReadFile(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config %q: %w", expanded, err)
	}

	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", expanded, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document into a Config. Fields the document
// does not mention keep their defaults; a providers block replaces the
// default provider set rather than merging with it.
func Parse(raw []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, nil
	}

	var file Config
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, err
	}

	if file.WorkingDir != "" {
		cfg.WorkingDir = file.WorkingDir
	}
	if file.TerraformCommand != "" {
		cfg.TerraformCommand = file.TerraformCommand
	}
	if file.CtagsCommand != "" {
		cfg.CtagsCommand = file.CtagsCommand
	}
	if file.OutputDir != "" {
		cfg.OutputDir = file.OutputDir
	}
	if file.Providers != nil {
		cfg.Providers = file.Providers
	}
	if file.Scan.Include != nil {
		cfg.Scan.Include = file.Scan.Include
	}
	if file.Scan.Exclude != nil {
		cfg.Scan.Exclude = file.Scan.Exclude
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolvedOutputDir returns the directory tags files are written to.
func (c *Config) ResolvedOutputDir() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return c.WorkingDir
}

// Validate reports configuration states the pipeline cannot work with.
func (c *Config) Validate() error {
	if c.WorkingDir == "" {
		return errors.New("working_dir must not be empty")
	}
	if c.TerraformCommand == "" {
		return errors.New("terraform_command must not be empty")
	}
	if len(c.Providers) == 0 {
		return errors.New("at least one provider must be configured")
	}
	for name, source := range c.Providers {
		if source == "" {
			return fmt.Errorf("provider %q has an empty source address", name)
		}
	}
	return nil
}

func (c *Config) expandPaths() error {
	for _, field := range []*string{&c.WorkingDir, &c.OutputDir} {
		if *field == "" {
			continue
		}
		expanded, err := homedir.Expand(*field)
		if err != nil {
			return fmt.Errorf("expanding path %q: %w", *field, err)
		}
		*field = expanded
	}
	return nil
}
