package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tfjson "github.com/hashicorp/terraform-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/tftags/config"
	"github.com/sevigo/tftags/ctags"
	"github.com/sevigo/tftags/lockfile"
	"github.com/sevigo/tftags/pipeline"
)

// fakeSource stands in for the terraform runner. Init drops a lock
// file into the working directory the way terraform init would.
type fakeSource struct {
	workDir  string
	lockFile string
	schemas  *tfjson.ProviderSchemas

	initErr   error
	schemaErr error

	initCalls int
}

func (f *fakeSource) Init(ctx context.Context) error {
	f.initCalls++
	if f.initErr != nil {
		return f.initErr
	}
	if f.lockFile != "" {
		path := filepath.Join(f.workDir, lockfile.FileName)
		if err := os.WriteFile(path, []byte(f.lockFile), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeSource) ProvidersSchema(ctx context.Context) (*tfjson.ProviderSchemas, error) {
	if f.schemaErr != nil {
		return nil, f.schemaErr
	}
	return f.schemas, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.WorkingDir = t.TempDir()
	cfg.Providers = map[string]string{
		"aws": "hashicorp/aws",
		"dns": "hashicorp/dns",
	}
	return cfg
}

func testSchemas() *tfjson.ProviderSchemas {
	return &tfjson.ProviderSchemas{
		FormatVersion: "1.0",
		Schemas: map[string]*tfjson.ProviderSchema{
			"registry.terraform.io/hashicorp/aws": {
				ResourceSchemas: map[string]*tfjson.Schema{
					"aws_instance": {},
					"aws_vpc":      {},
				},
				DataSourceSchemas: map[string]*tfjson.Schema{
					"aws_ami": {},
				},
			},
			"registry.terraform.io/hashicorp/dns": {
				ResourceSchemas: map[string]*tfjson.Schema{
					"dns_a_record_set": {},
				},
			},
		},
	}
}

const testLockFile = `
provider "registry.terraform.io/hashicorp/aws" {
  version = "5.31.0"
}
`

func TestGenerator_Run(t *testing.T) {
	cfg := testConfig(t)
	source := &fakeSource{
		workDir:  cfg.WorkingDir,
		lockFile: testLockFile,
		schemas:  testSchemas(),
	}

	generator := pipeline.NewGenerator(cfg, source, ctags.NewNative(nil))
	written, err := generator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, source.initCalls)

	// One tags file per provider, sorted by source address; the aws
	// version comes from the lock file, dns has no lock entry.
	require.Len(t, written, 2)
	assert.Equal(t, "hashicorp_aws-5.31.0.hcl.tags", filepath.Base(written[0]))
	assert.Equal(t, "hashicorp_dns-unknown.hcl.tags", filepath.Base(written[1]))

	// The provider manifest declares both providers.
	manifest, err := os.ReadFile(filepath.Join(cfg.WorkingDir, pipeline.ManifestFileName))
	require.NoError(t, err)
	assert.Contains(t, string(manifest), "required_providers")
	assert.Contains(t, string(manifest), `"hashicorp/aws"`)
	assert.Contains(t, string(manifest), `"hashicorp/dns"`)

	// The raw schema document is persisted alongside.
	schemaDoc, err := os.ReadFile(filepath.Join(cfg.WorkingDir, pipeline.SchemasFileName))
	require.NoError(t, err)
	assert.Contains(t, string(schemaDoc), "aws_instance")

	// Tags files hold the resource and data source types.
	awsTags, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Contains(t, string(awsTags), "aws_instance")
	assert.Contains(t, string(awsTags), "aws_vpc")
	assert.Contains(t, string(awsTags), "aws_ami")
	assert.NotContains(t, string(awsTags), "dns_a_record_set")

	// Synthetic configs are removed after indexing.
	entries, err := os.ReadDir(cfg.WorkingDir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotEqual(t, "provider_stub.tf", entry.Name())
	}
}

func TestGenerator_Run_KeepStubs(t *testing.T) {
	cfg := testConfig(t)
	source := &fakeSource{workDir: cfg.WorkingDir, schemas: testSchemas()}

	generator := pipeline.NewGenerator(cfg, source, ctags.NewNative(nil),
		pipeline.WithKeepStubs(true))
	_, err := generator.Run(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(cfg.WorkingDir, "provider_stub.tf"))
	assert.NoError(t, err)
}

func TestGenerator_Run_SeparateOutputDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")

	source := &fakeSource{workDir: cfg.WorkingDir, schemas: testSchemas()}
	generator := pipeline.NewGenerator(cfg, source, ctags.NewNative(nil))

	written, err := generator.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, written, 2)

	for _, path := range written {
		assert.True(t, strings.HasPrefix(path, cfg.OutputDir))
		_, err := os.Stat(path)
		assert.NoError(t, err)
	}
}

func TestGenerator_Run_EmptySchemas(t *testing.T) {
	cfg := testConfig(t)
	source := &fakeSource{
		workDir: cfg.WorkingDir,
		schemas: &tfjson.ProviderSchemas{FormatVersion: "1.0"},
	}

	generator := pipeline.NewGenerator(cfg, source, ctags.NewNative(nil))
	written, err := generator.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, written)
}

func TestGenerator_Run_NoLockFile(t *testing.T) {
	cfg := testConfig(t)
	source := &fakeSource{workDir: cfg.WorkingDir, schemas: testSchemas()}

	generator := pipeline.NewGenerator(cfg, source, ctags.NewNative(nil))
	written, err := generator.Run(context.Background())
	require.NoError(t, err)

	for _, path := range written {
		assert.Contains(t, filepath.Base(path), "-unknown.hcl.tags")
	}
}

func TestGenerator_Run_InitFailure(t *testing.T) {
	cfg := testConfig(t)
	wantErr := errors.New("init blew up")
	source := &fakeSource{workDir: cfg.WorkingDir, initErr: wantErr}

	generator := pipeline.NewGenerator(cfg, source, ctags.NewNative(nil))
	_, err := generator.Run(context.Background())
	assert.ErrorIs(t, err, wantErr)
}

func TestGenerator_Run_SchemaFailure(t *testing.T) {
	cfg := testConfig(t)
	wantErr := errors.New("schema dump failed")
	source := &fakeSource{workDir: cfg.WorkingDir, schemaErr: wantErr}

	generator := pipeline.NewGenerator(cfg, source, ctags.NewNative(nil))
	_, err := generator.Run(context.Background())
	assert.ErrorIs(t, err, wantErr)
}

func TestGenerator_Run_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Providers = nil

	source := &fakeSource{workDir: cfg.WorkingDir, schemas: testSchemas()}
	generator := pipeline.NewGenerator(cfg, source, ctags.NewNative(nil))

	_, err := generator.Run(context.Background())
	assert.Error(t, err)
	assert.Zero(t, source.initCalls)
}
