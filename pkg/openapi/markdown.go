package openapi

import (
	"fmt"
	"strings"
)

// Markdown renders the document grouped by tag. An operation with several
// tags appears under each of them.
func (d *Document) Markdown() string {
	var b strings.Builder

	title := d.Title
	if title == "" {
		title = "API"
	}
	fmt.Fprintf(&b, "# %s", title)
	if d.APIVersion != "" {
		fmt.Fprintf(&b, " (%s)", d.APIVersion)
	}
	b.WriteString("\n\n")

	if len(d.Operations) == 0 {
		b.WriteString("_No operations._\n")
		return b.String()
	}

	for _, tag := range d.Tags() {
		fmt.Fprintf(&b, "## %s\n\n", tag)
		for _, op := range d.Operations {
			if !op.HasTag(tag) {
				continue
			}
			writeOperation(&b, op)
		}
	}

	return b.String()
}

func writeOperation(b *strings.Builder, op Operation) {
	fmt.Fprintf(b, "### `%s %s`", op.Method, op.Path)
	if op.Deprecated {
		b.WriteString(" ~~deprecated~~")
	}
	b.WriteString("\n\n")

	if op.Summary != "" {
		fmt.Fprintf(b, "%s\n\n", op.Summary)
	}
	if op.Description != "" && op.Description != op.Summary {
		fmt.Fprintf(b, "%s\n\n", strings.TrimSpace(op.Description))
	}

	if len(op.Parameters) > 0 {
		b.WriteString("| parameter | in | required | description |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for _, p := range op.Parameters {
			required := "no"
			if p.Required {
				required = "yes"
			}
			fmt.Fprintf(b, "| `%s` | %s | %s | %s |\n", p.Name, p.In, required, escapeCell(p.Description))
		}
		b.WriteString("\n")
	}

	if op.HasBody {
		b.WriteString("Request body required.\n\n")
	}
}

// HasTag reports whether op is listed under tag. Untagged operations belong
// to "default".
func (op Operation) HasTag(tag string) bool {
	for _, t := range tagsOf(op) {
		if t == tag {
			return true
		}
	}
	return false
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
