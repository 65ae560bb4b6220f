// Package sanitize is the single gate through which externally supplied
// strings become node attributes or rendered HTML. Every attribute parser
// in the schema routes through these functions.
package sanitize

import (
	"net/url"
	"regexp"
	"strings"
)

// DefaultBase resolves relative image URLs when no base is configured.
const DefaultBase = "https://localhost/"

var imageProtocols = map[string]bool{
	"http":  true,
	"https": true,
}

var linkProtocols = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
	"tel":    true,
}

var (
	anchorIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	protocolPattern = regexp.MustCompile(`(?i)^([a-z][a-z0-9+\-.]*):`)
)

// escaper covers the five characters that matter inside attribute values
// and text content.
var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// ValidateImageSrc accepts only URLs that resolve to http or https. Relative
// URLs are resolved against base (DefaultBase when base is empty) before the
// protocol check, so schemes cannot hide behind relative syntax. Anything
// else, including unparsable input, yields "".
func ValidateImageSrc(raw, base string) string {
	if raw == "" {
		return ""
	}
	if base == "" {
		base = DefaultBase
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	u, err := b.Parse(raw)
	if err != nil {
		return ""
	}
	if !imageProtocols[strings.ToLower(u.Scheme)] {
		return ""
	}
	return raw
}

// SanitizeAltText entity-escapes text so it is safe inside an attribute
// value. Empty input yields "".
func SanitizeAltText(raw string) string {
	if raw == "" {
		return ""
	}
	return escaper.Replace(raw)
}

// EscapeText entity-escapes text for embedding in HTML content.
func EscapeText(raw string) string {
	return escaper.Replace(raw)
}

// ValidateTocHref accepts only internal anchors: "#" followed by an
// identifier of [A-Za-z0-9-]. Bare "#", external links, and anything with
// other characters yield "".
func ValidateTocHref(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "#") {
		return ""
	}
	id := raw[1:]
	if !anchorIDPattern.MatchString(id) {
		return ""
	}
	return raw
}

// IsValidProtocol reports whether a link URL carries an allowed protocol.
// Internal anchors are always valid; a string with no protocol is not.
func IsValidProtocol(u string) bool {
	if u == "" || strings.HasPrefix(u, "#") {
		return true
	}
	m := protocolPattern.FindStringSubmatch(u)
	if m == nil {
		return false
	}
	return linkProtocols[strings.ToLower(m[1])]
}

// IsValidURL reports whether a URL is safe to insert as a link href.
// Anchors need at least one character after the "#"; http(s) URLs must
// parse as absolute URLs.
func IsValidURL(u string) bool {
	if u == "" {
		return false
	}
	if !IsValidProtocol(u) {
		return false
	}
	if strings.HasPrefix(u, "#") {
		return len(u) > 1
	}
	if strings.HasPrefix(u, "http") {
		parsed, err := url.Parse(u)
		if err != nil || parsed.Host == "" {
			return false
		}
	}
	return true
}

// Protocol extracts the protocol from a URL for error messages. Anchors
// have none.
func Protocol(u string) string {
	if strings.HasPrefix(u, "#") {
		return ""
	}
	m := protocolPattern.FindStringSubmatch(u)
	if m == nil {
		return ""
	}
	return m[1]
}
