package corpus

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Filter cleans raw message content before it is queued.
type Filter struct {
	// MinWords drops lines with fewer words. Zero or one keeps every non-blank line.
	MinWords int
}

// Apply normalizes content to NFC, strips control and format characters, trims every
// line, drops blank lines and lines shorter than MinWords, and reports whether
// anything survived.
func (f Filter) Apply(content string) (string, bool) {
	if strings.TrimSpace(content) == "" {
		return "", false
	}
	clean := newCleaner()
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		cleaned, _, err := transform.String(clean, line)
		if err != nil {
			continue
		}
		line = strings.TrimSpace(cleaned)
		if line == "" {
			continue
		}
		if f.MinWords > 1 && len(strings.Fields(line)) < f.MinWords {
			continue
		}
		kept = append(kept, line)
	}
	if len(kept) == 0 {
		return "", false
	}
	return strings.Join(kept, "\n"), true
}

// newCleaner builds a fresh chain per call; transformers carry state.
func newCleaner() transform.Transformer {
	return transform.Chain(
		runes.Map(func(r rune) rune {
			if r == '\t' {
				return ' '
			}
			return r
		}),
		runes.Remove(runes.Predicate(func(r rune) bool {
			return unicode.In(r, unicode.Cc, unicode.Cf)
		})),
		norm.NFC,
	)
}
