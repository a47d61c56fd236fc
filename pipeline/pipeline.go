// Package pipeline sequences the provider tag generation run: render
// the provider manifest, let terraform fetch the providers and dump
// their schemas, read the lock file for versions, and index a
// synthetic config per provider into a tags file.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	tfjson "github.com/hashicorp/terraform-json"

	"github.com/sevigo/tftags/config"
	"github.com/sevigo/tftags/lockfile"
	"github.com/sevigo/tftags/schema"
	"github.com/sevigo/tftags/stubgen"
)

const (
	// ManifestFileName is the configuration terraform init consumes.
	ManifestFileName = "main.tf"

	// SchemasFileName is where the raw schema document is persisted.
	SchemasFileName = "providers_schemas.json"

	// stubFileName is the synthetic config indexed for each provider.
	// It is rewritten per provider and removed afterwards.
	stubFileName = "provider_stub.tf"
)

// SchemaSource fetches provider schema documents for a working
// directory. *terraform.Runner is the production implementation.
type SchemaSource interface {
	Init(ctx context.Context) error
	ProvidersSchema(ctx context.Context) (*tfjson.ProviderSchemas, error)
}

// Generator runs the provider tag generation pipeline.
type Generator struct {
	cfg       *config.Config
	source    SchemaSource
	indexer   schema.Indexer
	logger    *slog.Logger
	keepStubs bool
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithLogger sets a custom logger for the Generator.
func WithLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithKeepStubs leaves the synthetic per-provider configs in the
// working directory instead of removing them after indexing.
func WithKeepStubs(keep bool) GeneratorOption {
	return func(g *Generator) {
		g.keepStubs = keep
	}
}

// NewGenerator wires a pipeline run from its parts.
func NewGenerator(cfg *config.Config, source SchemaSource, indexer schema.Indexer, opts ...GeneratorOption) *Generator {
	g := &Generator{
		cfg:     cfg,
		source:  source,
		indexer: indexer,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run executes the pipeline and returns the paths of the tags files it
// wrote, one per provider found in the schema document.
func (g *Generator) Run(ctx context.Context) ([]string, error) {
	runID := uuid.NewString()
	logger := g.logger.With("run_id", runID)

	if err := g.cfg.Validate(); err != nil {
		return nil, err
	}

	workDir := g.cfg.WorkingDir
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating working directory %s: %w", workDir, err)
	}
	outDir := g.cfg.ResolvedOutputDir()
	if outDir != workDir {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory %s: %w", outDir, err)
		}
	}

	manifest := stubgen.RenderRequiredProviders(g.cfg.Providers)
	manifestPath := filepath.Join(workDir, ManifestFileName)
	if err := os.WriteFile(manifestPath, manifest, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", manifestPath, err)
	}
	logger.Info("Wrote provider manifest", "path", manifestPath, "providers", len(g.cfg.Providers))

	if err := g.source.Init(ctx); err != nil {
		return nil, err
	}

	schemas, err := g.source.ProvidersSchema(ctx)
	if err != nil {
		return nil, err
	}
	if err := g.persistSchemas(schemas); err != nil {
		return nil, err
	}

	versions := g.lockedVersions(logger)

	indexes := buildIndexes(schemas, versions)
	if len(indexes) == 0 {
		logger.Warn("Schema document contains no providers, nothing to do")
		return nil, nil
	}

	written := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		path, err := g.indexProvider(ctx, logger, idx)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	logger.Info("Generation completed", "tags_files", len(written))
	return written, nil
}

// indexProvider writes the synthetic config for one provider and runs
// the indexer over it.
func (g *Generator) indexProvider(ctx context.Context, logger *slog.Logger, idx schema.ProviderIndex) (string, error) {
	stub := stubgen.RenderProviderStub(idx.Resources, idx.DataSources)
	stubPath := filepath.Join(g.cfg.WorkingDir, stubFileName)
	if err := os.WriteFile(stubPath, stub, 0o644); err != nil {
		return "", fmt.Errorf("writing stub config for %s: %w", idx.Source, err)
	}
	if !g.keepStubs {
		defer os.Remove(stubPath)
	}

	outPath := filepath.Join(g.cfg.ResolvedOutputDir(), idx.TagsFileName())
	if err := g.indexer.Index(ctx, stubPath, outPath); err != nil {
		return "", fmt.Errorf("indexing %s: %w", idx.Source, err)
	}

	logger.Info("Generated tags file",
		"provider", idx.Source,
		"version", idx.Version,
		"resources", len(idx.Resources),
		"data_sources", len(idx.DataSources),
		"path", outPath)
	return outPath, nil
}

// persistSchemas stores the schema document next to the other
// intermediate files, mirroring what "terraform providers schema
// -json" would have printed.
func (g *Generator) persistSchemas(schemas *tfjson.ProviderSchemas) error {
	raw, err := json.MarshalIndent(schemas, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding schema document: %w", err)
	}

	path := filepath.Join(g.cfg.WorkingDir, SchemasFileName)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// lockedVersions reads provider versions from the lock file. A missing
// lock file is not fatal: affected providers are tagged as "unknown".
func (g *Generator) lockedVersions(logger *slog.Logger) map[string]string {
	locks, err := lockfile.Load(g.cfg.WorkingDir)
	if err != nil {
		if errors.Is(err, lockfile.ErrNotFound) {
			logger.Warn("No dependency lock file, versions will be unknown")
		} else {
			logger.Warn("Cannot read dependency lock file", "error", err)
		}
		return nil
	}

	versions := make(map[string]string, len(locks))
	for source, lock := range locks {
		versions[source] = lock.VersionString
	}
	return versions
}

// buildIndexes converts the schema document into per-provider
// summaries, sorted by source address for stable output.
func buildIndexes(schemas *tfjson.ProviderSchemas, versions map[string]string) []schema.ProviderIndex {
	if schemas == nil {
		return nil
	}

	indexes := make([]schema.ProviderIndex, 0, len(schemas.Schemas))
	for source, providerSchema := range schemas.Schemas {
		idx := schema.ProviderIndex{
			Source:  source,
			Version: versions[source],
		}
		if providerSchema != nil {
			idx.Resources = sortedKeys(providerSchema.ResourceSchemas)
			idx.DataSources = sortedKeys(providerSchema.DataSourceSchemas)
		}
		indexes = append(indexes, idx)
	}

	sort.Slice(indexes, func(i, j int) bool {
		return indexes[i].Source < indexes[j].Source
	})
	return indexes
}

func sortedKeys(m map[string]*tfjson.Schema) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
