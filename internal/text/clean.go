// Package text prepares raw per-language text for synthesis: cleaning,
// language-specific punctuation fixes, and bounded-length chunking.
package text

import (
	"regexp"
	"strings"
)

// rewriteRule is one regex rewrite applied during language cleaning.
type rewriteRule struct {
	pattern *regexp.Regexp
	replace string
}

// languageRules maps a language code to its punctuation-tightening
// rules. New languages are added here without touching the chunker.
var languageRules = map[string][]rewriteRule{
	"fr": {
		// No space before tall punctuation, guillemets hug their text.
		{regexp.MustCompile(`\s+([?!:;])`), "$1"},
		{regexp.MustCompile(`«\s*`), "«"},
		{regexp.MustCompile(`\s*»`), "»"},
	},
	"es": {
		// Inverted marks lead the word directly.
		{regexp.MustCompile(`\s+([?!])`), "$1"},
		{regexp.MustCompile(`([¡¿])\s+`), "$1"},
	},
}

var (
	horizontalSpace = regexp.MustCompile(`[ \t\r\f]+`)
	anySpace        = regexp.MustCompile(`\s+`)
)

// Clean normalizes whitespace and applies language-specific punctuation
// rules. Newlines are preserved so paragraph boundaries survive for the
// chunker; runs of horizontal whitespace collapse to a single space.
func Clean(raw, language string) string {
	s := horizontalSpace.ReplaceAllString(raw, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = strings.TrimSpace(s)

	for _, rule := range languageRules[language] {
		s = rule.pattern.ReplaceAllString(s, rule.replace)
	}
	return s
}

// Collapse reduces all whitespace runs to single spaces and trims. Used
// by tests and report summaries to compare text modulo separators.
func Collapse(s string) string {
	return strings.TrimSpace(anySpace.ReplaceAllString(s, " "))
}
