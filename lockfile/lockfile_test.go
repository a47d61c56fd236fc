package lockfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/tftags/lockfile"
)

const sampleLockFile = `
# This file is maintained automatically by "terraform init".
# Manual edits may be lost in future updates.

provider "registry.terraform.io/hashicorp/aws" {
  version     = "5.31.0"
  constraints = "~> 5.0"
  hashes = [
    "h1:WLfbGt4mN9SY0qHUXbydrlBoMUcMHfeDrdEMadzIvHY=",
    "zh:0cdb9c2083bf0902442384f7309d791086cf7d8aa02b2e8fa7f9cc8b29d449dd",
  ]
}

provider "registry.terraform.io/hashicorp/dns" {
  version = "3.4.1"
  hashes = [
    "h1:posQRcYHKgK91fy9wDGeDS9SFkQVjyGvXmF18A3GsqM=",
  ]
}

provider "registry.terraform.io/bpg/proxmox" {
  constraints = ">= 0.40.0"
}
`

func TestParse(t *testing.T) {
	locks, err := lockfile.Parse([]byte(sampleLockFile), lockfile.FileName)
	require.NoError(t, err)
	require.Len(t, locks, 3)

	aws := locks["registry.terraform.io/hashicorp/aws"]
	assert.Equal(t, "5.31.0", aws.VersionString)
	require.NotNil(t, aws.Version)
	assert.Equal(t, "5.31.0", aws.Version.String())
	assert.Equal(t, "~> 5.0", aws.Constraints)

	dns := locks["registry.terraform.io/hashicorp/dns"]
	assert.Equal(t, "3.4.1", dns.VersionString)
	assert.Empty(t, dns.Constraints)

	// A provider block without a version attribute stays listed.
	proxmox := locks["registry.terraform.io/bpg/proxmox"]
	assert.Empty(t, proxmox.VersionString)
	assert.Nil(t, proxmox.Version)
	assert.Equal(t, ">= 0.40.0", proxmox.Constraints)
}

func TestParse_MalformedVersionKept(t *testing.T) {
	src := `
provider "registry.terraform.io/hashicorp/helm" {
  version = "not-a-version"
}
`
	locks, err := lockfile.Parse([]byte(src), lockfile.FileName)
	require.NoError(t, err)

	helm := locks["registry.terraform.io/hashicorp/helm"]
	assert.Equal(t, "not-a-version", helm.VersionString)
	assert.Nil(t, helm.Version)
}

func TestParse_IgnoresForeignBlocks(t *testing.T) {
	src := `
provider "registry.terraform.io/hashicorp/aws" {
  version = "5.0.0"
}

something_else "label" {
  version = "9.9.9"
}
`
	locks, err := lockfile.Parse([]byte(src), lockfile.FileName)
	require.NoError(t, err)
	assert.Len(t, locks, 1)
}

func TestParse_InvalidHCL(t *testing.T) {
	_, err := lockfile.Parse([]byte(`provider "x" {`), lockfile.FileName)
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, lockfile.FileName)
	require.NoError(t, os.WriteFile(path, []byte(sampleLockFile), 0o644))

	locks, err := lockfile.Load(dir)
	require.NoError(t, err)
	assert.Len(t, locks, 3)
}

func TestLoad_Missing(t *testing.T) {
	_, err := lockfile.Load(t.TempDir())
	assert.ErrorIs(t, err, lockfile.ErrNotFound)
}
