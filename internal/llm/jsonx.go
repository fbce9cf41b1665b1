package llm

import (
	"strings"
	"unicode/utf8"
)

// Truncate caps s at max bytes without splitting a multi-byte rune. Prompt
// text is frequently non-ASCII (Urdu reports), so a plain byte slice could
// produce invalid UTF-8.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// ExtractJSON pulls the JSON object out of a completion that may wrap it in
// markdown code fences or surrounding prose. Models frequently answer with
// ```json blocks even when told not to.
func ExtractJSON(content string) string {
	s := strings.TrimSpace(content)

	if start := strings.Index(s, "```"); start != -1 {
		rest := s[start+3:]
		if strings.HasPrefix(rest, "json") {
			rest = rest[len("json"):]
		}
		if end := strings.Index(rest, "```"); end != -1 {
			rest = rest[:end]
		}
		s = strings.TrimSpace(rest)
	}

	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first == -1 || last < first {
		return s
	}
	return s[first : last+1]
}
