// Package stubgen renders the Terraform configurations the pipeline
// feeds to terraform and to the indexer: the required_providers block
// used for "terraform init", and the synthetic per-provider configs
// holding one empty block per resource and data source type.
package stubgen

import (
	"sort"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// RenderRequiredProviders produces a main.tf declaring every configured
// provider, e.g.
//
//	terraform {
//	  required_providers {
//	    aws = {
//	      source = "hashicorp/aws"
//	    }
//	  }
//	}
//
// Providers maps local names to registry source addresses. Entries are
// emitted in name order so the output is stable across runs.
func RenderRequiredProviders(providers map[string]string) []byte {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)

	file := hclwrite.NewEmptyFile()
	required := file.Body().
		AppendNewBlock("terraform", nil).Body().
		AppendNewBlock("required_providers", nil).Body()

	for _, name := range names {
		required.SetAttributeValue(name, cty.ObjectVal(map[string]cty.Value{
			"source": cty.StringVal(providers[name]),
		}))
	}

	return file.Bytes()
}

// RenderProviderStub produces the synthetic config that gets indexed
// for one provider: an empty resource block per resource type and an
// empty data block per data source type. Both labels carry the type
// name, so the tag recorded for each block is the type itself.
func RenderProviderStub(resources, dataSources []string) []byte {
	file := hclwrite.NewEmptyFile()
	body := file.Body()

	for _, name := range sorted(resources) {
		body.AppendNewBlock("resource", []string{name, name})
	}
	for _, name := range sorted(dataSources) {
		body.AppendNewBlock("data", []string{name, name})
	}

	return file.Bytes()
}

func sorted(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	return out
}
