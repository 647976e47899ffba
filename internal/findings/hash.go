package findings

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "in": {}, "on": {}, "to": {},
	"for": {}, "is": {}, "are": {}, "via": {}, "with": {}, "and": {}, "or": {},
}

// StemTitle lowercases the title, splits it on non-alphanumeric runs, drops
// stopwords and trailing plural 's', and joins the sorted remaining tokens.
// Titles differing only in casing, punctuation or pluralization stem equal.
func StemTitle(title string) string {
	tokens := TitleTokens(title)
	return strings.Join(tokens, " ")
}

// TitleTokens returns the sorted, deduplicated stemmed tokens of a title.
func TitleTokens(title string) []string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})

	seen := make(map[string]struct{}, len(fields))
	var tokens []string
	for _, f := range fields {
		if _, skip := stopwords[f]; skip {
			continue
		}
		if len(f) > 3 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			f = f[:len(f)-1]
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	sort.Strings(tokens)
	return tokens
}

// ContentHash computes the stable dedup key of a finding over its category,
// normalized code span and stemmed title.
func ContentHash(category Category, span CodeSpan, title string) string {
	span = span.Normalize()
	payload := fmt.Sprintf("%s|%s|%d-%d|%s", category, span.FilePath, span.StartLine, span.EndLine, StemTitle(title))
	sum := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("%x", sum[:])
}
