package prompt

import "strings"

// Filter returns the prompts whose title or description contains query,
// case-insensitively. The query is trimmed first; an empty query returns the
// whole collection in its original order.
func Filter(prompts []Prompt, query string) []Prompt {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Clone(prompts)
	}

	out := make([]Prompt, 0, len(prompts))
	for _, p := range prompts {
		if strings.Contains(strings.ToLower(p.Title), q) ||
			strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	return out
}
