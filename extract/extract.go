// Package extract parses Terraform source with hclsyntax and turns the
// addressable top-level blocks into tag records.
package extract

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/sevigo/tftags/schema"
)

// blockKinds maps Terraform block types to their ctags kind letter.
// Block types outside this map (terraform, moved, import, ...) carry no
// addressable symbol and produce no tag.
var blockKinds = map[string]schema.Kind{
	"resource": schema.KindResource,
	"data":     schema.KindDataSource,
	"variable": schema.KindVariable,
	"output":   schema.KindOutput,
	"module":   schema.KindModule,
	"provider": schema.KindProvider,
}

// Extractor extracts tags from Terraform and HCL files.
type Extractor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extensions lists the file extensions the extractor understands.
func (e *Extractor) Extensions() []string {
	return []string{".tf", ".tfvars", ".hcl"}
}

// CanHandle reports whether path looks like a Terraform or HCL file.
func (e *Extractor) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(e.Extensions(), ext)
}

// Extract parses content and returns one tag per addressable symbol.
// Files with parse errors still yield tags for the blocks that could
// be parsed; only content with no recoverable structure is an error.
func (e *Extractor) Extract(content []byte, path string) ([]schema.Tag, error) {
	if len(strings.TrimSpace(string(content))) == 0 {
		return nil, nil
	}

	file, diags := hclsyntax.ParseConfig(content, path, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		e.logger.Warn("Parse errors in Terraform file", "path", path, "errors", diags.Error())
		if file == nil {
			return nil, fmt.Errorf("parsing %s: %w", path, diags)
		}
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("file %s has an unexpected body type", path)
	}

	lines := strings.Split(string(content), "\n")

	var tags []schema.Tag
	for _, block := range body.Blocks {
		tags = append(tags, e.blockTags(block, path, lines)...)
	}

	e.logger.Debug("Extracted tags", "path", path, "count", len(tags))
	return tags, nil
}

// blockTags produces the tags for one top-level block. Most blocks
// yield a single tag; locals blocks yield one per local value.
func (e *Extractor) blockTags(block *hclsyntax.Block, path string, lines []string) []schema.Tag {
	if block.Type == "locals" {
		return e.localTags(block, path, lines)
	}

	kind, ok := blockKinds[block.Type]
	if !ok {
		return nil
	}

	name := tagName(block)
	if name == "" {
		e.logger.Debug("Skipping unlabeled block", "path", path, "block_type", block.Type)
		return nil
	}

	line := block.Range().Start.Line
	tag := schema.Tag{
		Name:    name,
		File:    path,
		Pattern: searchPattern(lines, line),
		Kind:    kind,
		Line:    line,
	}

	if (block.Type == "resource" || block.Type == "data") && len(block.Labels) >= 2 {
		// The first label is the type, which is what completion wants
		// even when the tag carries the instance name.
		tag.Fields = map[string]string{"type": block.Labels[0]}
	}

	return []schema.Tag{tag}
}

// localTags emits one tag per value defined in a locals block.
func (e *Extractor) localTags(block *hclsyntax.Block, path string, lines []string) []schema.Tag {
	tags := make([]schema.Tag, 0, len(block.Body.Attributes))
	for name, attr := range block.Body.Attributes {
		line := attr.Range().Start.Line
		tags = append(tags, schema.Tag{
			Name:    name,
			File:    path,
			Pattern: searchPattern(lines, line),
			Kind:    schema.KindLocal,
			Line:    line,
		})
	}
	return tags
}

// tagName selects the label recorded as the tag name. Resource and
// data blocks are tagged by their second label; the synthetic provider
// stubs carry the type name in both labels, so their tags come out as
// the type either way.
func tagName(block *hclsyntax.Block) string {
	switch block.Type {
	case "resource", "data":
		if len(block.Labels) >= 2 {
			return block.Labels[1]
		}
		if len(block.Labels) == 1 {
			return block.Labels[0]
		}
	default:
		if len(block.Labels) >= 1 {
			return block.Labels[0]
		}
	}
	return ""
}

// searchPattern builds the ex-command address for a definition line,
// e.g. /^resource "aws_instance" "web" {$/.
func searchPattern(lines []string, line int) string {
	if line < 1 || line > len(lines) {
		return ""
	}
	text := lines[line-1]
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, `/`, `\/`)
	return "/^" + text + "$/"
}
