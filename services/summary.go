package services

import (
	"regexp"
	"strings"
)

const (
	summaryMaxRunes = 200
	ellipsis        = "..."
)

// Rules run in order; code spans go first so markers inside them are dropped with the code.
var summaryRules = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile("(?s)```.*?```"), ""},
	{regexp.MustCompile("`[^`\n]+`"), ""},
	{regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`), ""},
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`), "$1"},
	{regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+`), ""},
	{regexp.MustCompile(`\*\*|__`), ""},
	{regexp.MustCompile(`~~`), ""},
	{regexp.MustCompile(`[*_]`), ""},
	{regexp.MustCompile(`[\r\n]+`), " "},
}

// GenerateSummary derives a plain-text summary from Markdown content.
// The result never exceeds 200 runes; a truncated result ends with "...".
func GenerateSummary(content string) string {
	text := content
	for _, r := range summaryRules {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if len(runes) <= summaryMaxRunes {
		return text
	}
	return string(runes[:summaryMaxRunes-len(ellipsis)]) + ellipsis
}
