package shared

import (
	"strings"
	"unicode"
)

// Slugify derives the URL slug for a file name.
//
// The name is lowercased, its final extension is dropped, anything other than ASCII letters, digits, underscores,
// whitespace and hyphens is removed, whitespace runs become a single hyphen and hyphen runs collapse to one.
// Leading and trailing hyphens are kept.
func Slugify(name string) string {
	s := strings.ToLower(name)
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[:i]
	}

	var b strings.Builder
	b.Grow(len(s))

	var prevHyphen bool
	for _, r := range s {
		switch {
		case unicode.IsSpace(r), r == '-':
			if !prevHyphen {
				b.WriteRune('-')
			}
			prevHyphen = true
		case isSlugRune(r):
			b.WriteRune(r)
			prevHyphen = false
		}
	}
	return b.String()
}

func isSlugRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}
