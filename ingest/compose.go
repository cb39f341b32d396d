package ingest

import (
	"strings"

	"github.com/storyowl/storyowl/core"
)

// ComposeText flattens an item into the single text that gets embedded.
// Title, authors, and description carry the semantic weight; tags and kind
// are appended as labeled fields so related items cluster.
func ComposeText(item *core.Item) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(item.Title))
	b.WriteString(".")
	if len(item.Authors) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(item.Authors, ", "))
		b.WriteString(".")
	}
	if desc := strings.TrimSpace(item.Description); desc != "" {
		b.WriteString(" ")
		b.WriteString(desc)
		if !strings.HasSuffix(desc, ".") {
			b.WriteString(".")
		}
	}
	if len(item.Tags) > 0 {
		b.WriteString(" tags: ")
		b.WriteString(strings.Join(item.Tags, ", "))
		b.WriteString(".")
	}
	if kind := item.Kind.String(); kind != "" {
		b.WriteString(" type: ")
		b.WriteString(kind)
		b.WriteString(".")
	}
	return b.String()
}
