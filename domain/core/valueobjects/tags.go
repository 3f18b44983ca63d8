package valueobjects

import "strings"

// NormalizeTags trims, drops empties and de-duplicates while keeping the
// first-seen order. Tags are a set; order is only kept for stable output.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// SplitTagQuery parses a comma separated tag filter.
func SplitTagQuery(q string) []string {
	return NormalizeTags(strings.Split(q, ","))
}

// SplitKeywords parses a whitespace separated keyword query.
func SplitKeywords(q string) []string {
	return NormalizeTags(strings.Fields(q))
}
