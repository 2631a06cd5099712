package utils

import "github.com/microcosm-cc/bluemonday"

var ugcPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	// keep fenced code language hints for client-side highlighting
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre")
	return p
}()

// SanitizeHTML strips script, event handlers and unsafe URLs from rendered HTML.
func SanitizeHTML(input string) string {
	return ugcPolicy.Sanitize(input)
}
