// Package encoding provides shared text escaping utilities for the
// XML-to-CSV pipeline.
package encoding

import "strings"

// EscapeXMLText re-escapes the basic XML entities in text content.
// The parser decodes entities on the way in; values are re-escaped on the
// way out so control characters round-trip instead of leaking raw markup
// into CSV cells.
func EscapeXMLText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// EscapeCSV makes one value safe for a separated line. The value is wrapped
// in double quotes when it contains the separator, a line break or an
// embedded quote; embedded quotes are doubled only when wrapping.
func EscapeCSV(s, separator string) string {
	needsQuoting := strings.Contains(s, separator) ||
		strings.ContainsAny(s, "\r\n\"")
	if !needsQuoting {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// CleanValue trims surrounding whitespace and re-escapes XML entities,
// preparing raw character data for cell placement.
func CleanValue(s string) string {
	return EscapeXMLText(strings.TrimSpace(s))
}
