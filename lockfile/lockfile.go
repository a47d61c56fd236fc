// Package lockfile reads the provider selections recorded by
// "terraform init" in .terraform.lock.hcl.
package lockfile

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-version"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// FileName is the dependency lock file terraform maintains in a
// working directory.
const FileName = ".terraform.lock.hcl"

// ErrNotFound is returned by Load when the working directory has no
// lock file, which happens when terraform init has not run yet.
var ErrNotFound = errors.New("dependency lock file not found")

// ProviderLock is one provider entry from the lock file.
type ProviderLock struct {
	// Source is the full source address, e.g.
	// "registry.terraform.io/hashicorp/aws".
	Source string

	// VersionString is the raw version attribute from the lock file.
	VersionString string

	// Version is the parsed form, nil when the attribute was missing
	// or not a valid version.
	Version *version.Version

	// Constraints is the recorded constraint expression, if any.
	Constraints string
}

// Load reads and parses the lock file in dir.
func Load(dir string) (map[string]ProviderLock, error) {
	path := filepath.Join(dir, FileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w in %s", ErrNotFound, dir)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(raw, path)
}

// Parse decodes lock file content. Provider blocks with unparseable
// version attributes are kept with a nil Version rather than dropped,
// so callers can still report the provider as present.
func Parse(src []byte, filename string) (map[string]ProviderLock, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", filename, diags)
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("lock file %s has an unexpected body type", filename)
	}

	locks := make(map[string]ProviderLock)
	for _, block := range body.Blocks {
		if block.Type != "provider" || len(block.Labels) != 1 {
			continue
		}

		lock := ProviderLock{Source: block.Labels[0]}
		if raw := stringAttribute(block.Body, "version"); raw != "" {
			lock.VersionString = raw
			if v, err := version.NewVersion(raw); err == nil {
				lock.Version = v
			} else {
				slog.Warn("Ignoring malformed version in lock file",
					"provider", lock.Source, "version", raw, "error", err)
			}
		}
		lock.Constraints = stringAttribute(block.Body, "constraints")

		locks[lock.Source] = lock
	}

	return locks, nil
}

// stringAttribute evaluates a literal string attribute, returning ""
// when the attribute is absent or not a constant string.
func stringAttribute(body *hclsyntax.Body, name string) string {
	attr, ok := body.Attributes[name]
	if !ok {
		return ""
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() || val.IsNull() || val.Type() != cty.String {
		return ""
	}
	return val.AsString()
}
