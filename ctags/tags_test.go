package ctags_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/tftags/ctags"
	"github.com/sevigo/tftags/schema"
)

func writeAndRead(t *testing.T, tags []schema.Tag) []string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tags")
	require.NoError(t, ctags.WriteFile(path, tags))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
}

func TestWriteFile_HeaderAndFormat(t *testing.T) {
	lines := writeAndRead(t, []schema.Tag{
		{
			Name:    "aws_instance",
			File:    "provider_stub.tf",
			Pattern: `/^resource "aws_instance" "aws_instance" {$/`,
			Kind:    schema.KindResource,
			Line:    1,
			Fields:  map[string]string{"type": "aws_instance"},
		},
	})

	require.GreaterOrEqual(t, len(lines), 5)
	assert.True(t, strings.HasPrefix(lines[0], "!_TAG_FILE_FORMAT\t2"))
	assert.True(t, strings.HasPrefix(lines[1], "!_TAG_FILE_SORTED\t1"))
	assert.True(t, strings.HasPrefix(lines[2], "!_TAG_PROGRAM_NAME\ttftags"))

	record := lines[len(lines)-1]
	assert.Equal(t,
		"aws_instance\tprovider_stub.tf\t/^resource \"aws_instance\" \"aws_instance\" {$/;\"\tr\tline:1\ttype:aws_instance",
		record)
}

func TestWriteFile_SortsRecords(t *testing.T) {
	lines := writeAndRead(t, []schema.Tag{
		{Name: "zeta", File: "a.tf", Pattern: "/^z$/", Kind: schema.KindVariable},
		{Name: "alpha", File: "a.tf", Pattern: "/^a$/", Kind: schema.KindVariable},
		{Name: "mid", File: "a.tf", Pattern: "/^m$/", Kind: schema.KindVariable},
	})

	var names []string
	for _, line := range lines {
		if strings.HasPrefix(line, "!_TAG_") {
			continue
		}
		names = append(names, strings.SplitN(line, "\t", 2)[0])
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestWriteFile_LineNumberFallback(t *testing.T) {
	lines := writeAndRead(t, []schema.Tag{
		{Name: "web", File: "main.tf", Kind: schema.KindResource, Line: 12},
	})

	record := lines[len(lines)-1]
	// Without a pattern the line number serves as the address.
	assert.Equal(t, "web\tmain.tf\t12;\"\tr\tline:12", record)
}

func TestWriteFile_EmptyTagSet(t *testing.T) {
	lines := writeAndRead(t, nil)
	// Header only.
	assert.Len(t, lines, 4)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "!_TAG_"))
	}
}
