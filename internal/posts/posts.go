// Package posts implements blog post storage for the development backend.
package posts

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// PerPage is the page size of list endpoints.
const PerPage = 10

// Filter narrows a post listing. Page is 1-based; zero means the first page.
type Filter struct {
	Status string
	Search string
	Page   int
}

// Slugify lowercases title, strips accents and joins words with hyphens.
func Slugify(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, title)
	if err != nil {
		s = title
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
