package sanitize

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// policy allows exactly the markup surface the node registry knows how to
// parse. Everything else is stripped before the document parser ever sees it.
var policy = buildPolicy()

func buildPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li",
		"blockquote", "pre", "code", "hr", "br",
		"strong", "b", "em", "i", "s", "del",
		"figure", "figcaption", "img",
		"nav", "div", "span", "a",
		"table", "thead", "tbody", "tr", "th", "td",
	)

	p.AllowAttrs("id").Matching(regexp.MustCompile(`^[A-Za-z0-9-]*$`)).
		OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^[A-Za-z0-9 _-]*$`)).Globally()
	p.AllowAttrs("src", "alt").OnElements("img")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("data-toc-link").Matching(regexp.MustCompile(`^[A-Za-z0-9-]*$`)).
		OnElements("a")
	p.AllowAttrs("data-level").Matching(regexp.MustCompile(`^[0-3]$`)).
		OnElements("li", "nav")
	// Legacy TOC markup carries its nesting level as a padding-left
	// declaration; nothing else styled survives the gate.
	p.AllowAttrs("style").Matching(regexp.MustCompile(`^padding-left:\s*[0-9.]+(?:px|em|rem)?;?\s*$`)).
		OnElements("li")
	p.AllowAttrs("colspan", "rowspan").Matching(regexp.MustCompile(`^[0-9]+$`)).
		OnElements("th", "td")

	p.AllowURLSchemes("http", "https", "mailto", "tel")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)

	return p
}

// CleanDocument strips any markup outside the registry's surface from
// untrusted persisted HTML. The per-attribute validators still run during
// parsing; this is the outer gate, not the only one.
func CleanDocument(html string) string {
	return policy.Sanitize(html)
}
