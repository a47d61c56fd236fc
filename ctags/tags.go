// Package ctags produces tags files, either by shelling out to a
// universal-ctags binary or with the built-in writer, which emits the
// same extended tags format.
package ctags

import (
	"bufio"
	"fmt"
	"os"
	"sort"

	"github.com/sevigo/tftags/schema"
)

// Header pseudo-tags written at the top of every generated tags file.
// Editors use !_TAG_FILE_SORTED to pick a lookup strategy.
var headerLines = []string{
	"!_TAG_FILE_FORMAT\t2\t/extended format; --format=1 will not append ;\" to lines/",
	"!_TAG_FILE_SORTED\t1\t/0=unsorted, 1=sorted, 2=foldcase/",
	"!_TAG_PROGRAM_NAME\ttftags\t//",
	"!_TAG_PROGRAM_URL\thttps://github.com/sevigo/tftags\t//",
}

// WriteFile writes tags to path in the ctags extended format. Records
// are sorted bytewise by name as declared in the header.
func WriteFile(path string, tags []schema.Tag) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating tags file %s: %w", path, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	for _, line := range headerLines {
		fmt.Fprintln(w, line)
	}

	sorted := make([]schema.Tag, len(tags))
	copy(sorted, tags)
	schema.SortTags(sorted)

	for _, tag := range sorted {
		fmt.Fprintln(w, formatTag(tag))
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing tags file %s: %w", path, err)
	}
	return out.Close()
}

// formatTag renders one record:
//
//	name<TAB>file<TAB>pattern;"<TAB>kind<TAB>line:N<TAB>field:value...
func formatTag(tag schema.Tag) string {
	address := tag.Pattern
	if address == "" {
		address = fmt.Sprintf("%d", tag.Line)
	}

	line := fmt.Sprintf("%s\t%s\t%s;\"\t%s", tag.Name, tag.File, address, tag.Kind)
	if tag.Line > 0 {
		line += fmt.Sprintf("\tline:%d", tag.Line)
	}

	fields := make([]string, 0, len(tag.Fields))
	for name := range tag.Fields {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	for _, name := range fields {
		line += fmt.Sprintf("\t%s:%s", name, tag.Fields[name])
	}

	return line
}
