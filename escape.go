package texttemplate

import (
	"net/url"
	"strings"
	"text/template"
)

// HTMLEscapeString returns s with the characters significant in HTML
// replaced by entities.
func HTMLEscapeString(s string) string {
	return template.HTMLEscapeString(s)
}

// JSEscapeString returns s escaped for use inside a JavaScript string
// literal.
func JSEscapeString(s string) string {
	return template.JSEscapeString(s)
}

// URLQueryEscaper returns s percent-encoded for use in a URL query. Spaces
// become %20.
func URLQueryEscaper(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
