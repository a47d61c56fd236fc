// Package schema defines the shared types used across the tag generation
// pipeline: tag records, provider schema summaries, and the interfaces
// implemented by the exec-based and built-in indexers.
package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Kind is the one-letter ctags kind assigned to a Terraform symbol.
// The letters follow the universal-ctags Terraform parser so that tags
// files produced by the built-in writer and by an external ctags binary
// look the same to editors.
type Kind string

const (
	KindResource   Kind = "r"
	KindDataSource Kind = "d"
	KindVariable   Kind = "v"
	KindOutput     Kind = "o"
	KindModule     Kind = "m"
	KindProvider   Kind = "p"
	KindLocal      Kind = "l"
)

// Tag is a single entry in a generated tags file.
type Tag struct {
	// Name is the symbol the editor searches for.
	Name string

	// File is the path recorded in the tags file, usually relative to
	// the directory the tags file lives in.
	File string

	// Pattern is the ex-command address used to locate the symbol,
	// e.g. /^resource "aws_instance" "web" {$/.
	Pattern string

	Kind Kind

	// Line is the 1-based line of the definition. Zero means unknown.
	Line int

	// Fields holds optional extension fields (type, provider, version).
	Fields map[string]string
}

// Indexer turns a Terraform source file into a tags file. It is
// implemented by the external ctags runner and by the built-in writer.
type Indexer interface {
	Index(ctx context.Context, sourcePath, tagsPath string) error
}

// ProviderIndex summarizes one provider schema: its source address, the
// version selected in the dependency lock file, and the names of its
// resource and data source types.
type ProviderIndex struct {
	Source      string
	Version     string
	Resources   []string
	DataSources []string
}

// Slug returns the provider source address in the form used for tags
// file names: the registry.terraform.io/ prefix is dropped and the
// remaining path separators become underscores, so
// "registry.terraform.io/hashicorp/aws" yields "hashicorp_aws".
func (p ProviderIndex) Slug() string {
	name := strings.TrimPrefix(p.Source, "registry.terraform.io/")
	return strings.ReplaceAll(name, "/", "_")
}

// TagsFileName returns the output file name for this provider,
// e.g. "hashicorp_aws-5.31.0.hcl.tags". An empty version is recorded
// as "unknown".
func (p ProviderIndex) TagsFileName() string {
	version := p.Version
	if version == "" {
		version = "unknown"
	}
	return fmt.Sprintf("%s-%s.hcl.tags", p.Slug(), version)
}

func (p ProviderIndex) String() string {
	return fmt.Sprintf("%s (%d resources, %d data sources)",
		p.Source, len(p.Resources), len(p.DataSources))
}

// SortTags orders tags bytewise by name, then by file, matching the
// "sorted" convention declared in the tags file header.
func SortTags(tags []Tag) {
	sort.Slice(tags, func(i, j int) bool {
		if tags[i].Name != tags[j].Name {
			return tags[i].Name < tags[j].Name
		}
		return tags[i].File < tags[j].File
	})
}
