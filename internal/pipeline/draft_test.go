package pipeline

import (
	"strings"
	"testing"
)

func TestSplitTitle(t *testing.T) {
	cases := []struct {
		name      string
		in        string
		wantTitle string
		wantBody  string
	}{
		{"h1 first line", "# My Post\n\nbody text", "My Post", "body text"},
		{"leading blank lines", "\n\n# Padded\nbody", "Padded", "body"},
		{"no h1", "just a paragraph", "", "just a paragraph"},
		{"h2 is not a title", "## Section\nbody", "", "## Section\nbody"},
		{"title only", "# Lonely", "Lonely", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			title, body := SplitTitle(tc.in)
			if title != tc.wantTitle {
				t.Fatalf("title = %q, want %q", title, tc.wantTitle)
			}
			if body != tc.wantBody {
				t.Fatalf("body = %q, want %q", body, tc.wantBody)
			}
		})
	}
}

func TestDraftHTML(t *testing.T) {
	d := Draft{Markdown: "# Title\n\nSome **bold** text."}
	html, err := d.HTML()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "<h1>Title</h1>") {
		t.Fatalf("missing heading: %q", html)
	}
	if !strings.Contains(html, "<strong>bold</strong>") {
		t.Fatalf("missing emphasis: %q", html)
	}
}
