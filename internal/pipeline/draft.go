package pipeline

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
)

// HTML renders the draft's markdown body.
func (d Draft) HTML() (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(d.Markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SplitTitle extracts a title from a markdown draft whose first line is an
// H1, returning the title and the remaining body. Used when the generator
// returns a bare document.
func SplitTitle(md string) (title, body string) {
	md = strings.TrimLeft(md, "\n \t")
	lines := strings.SplitN(md, "\n", 2)
	first := strings.TrimSpace(lines[0])
	if strings.HasPrefix(first, "# ") {
		title = strings.TrimSpace(strings.TrimPrefix(first, "# "))
		if len(lines) == 2 {
			body = strings.TrimLeft(lines[1], "\n")
		}
		return title, body
	}
	return "", md
}
