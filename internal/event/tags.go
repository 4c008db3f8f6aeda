package event

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeTag lowercases and trims a single tag.
func NormalizeTag(tag string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(tag))
}

// NormalizeTags lowercases every tag, drops blanks and keeps the first
// occurrence of each value. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		n := NormalizeTag(t)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
