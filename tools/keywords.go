package tools

import "strings"

const maxKeywords = 5

// keywords lower-cases text, splits on whitespace and keeps distinct words
// longer than minLen that are not stop words, in first-seen order, at most 5.
func keywords(text string, minLen int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if len([]rune(w)) <= minLen {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}
