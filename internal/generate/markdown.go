package generate

import (
	"regexp"
	"strings"
)

var (
	imageRe   = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)[^)]*\)`)
	nonSlugRe = regexp.MustCompile(`[^a-z0-9가-힣]+`)
)

// imageRefs collects the image URLs referenced by a markdown body.
func imageRefs(md string) []string {
	matches := imageRe.FindAllStringSubmatch(md, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	seen := map[string]bool{}
	for _, m := range matches {
		if url := m[1]; url != "" && !seen[url] {
			seen[url] = true
			out = append(out, url)
		}
	}
	return out
}

// Slugify shortens a title into a filesystem-friendly slug.
func Slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = nonSlugRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if r := []rune(s); len(r) > 60 {
		s = strings.Trim(string(r[:60]), "-")
	}
	if s == "" {
		s = "post"
	}
	return s
}
