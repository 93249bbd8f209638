// Package sanitize cleans user-supplied text before it is stored or placed
// into a model prompt.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", "\"",
	"&#39;", "'",
)

// StripHTML removes HTML tags, decodes the common entities and strips again
// so encoded tags do not survive.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = entityReplacer.Replace(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Message prepares a chat message: HTML and control characters are removed,
// runs of spaces collapse, line breaks are kept, and the result is cut to
// maxRunes when positive.
func Message(s string, maxRunes int) string {
	s = StripHTML(s)

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case r == '\r':
			continue
		case r == '\n':
			b.WriteRune(r)
			space = false
		case unicode.IsSpace(r):
			if !space {
				b.WriteRune(' ')
				space = true
			}
		case unicode.IsControl(r), r == unicode.ReplacementChar:
			continue
		default:
			b.WriteRune(r)
			space = false
		}
	}

	out := strings.TrimSpace(b.String())
	if maxRunes > 0 {
		if runes := []rune(out); len(runes) > maxRunes {
			out = strings.TrimSpace(string(runes[:maxRunes]))
		}
	}
	return out
}
