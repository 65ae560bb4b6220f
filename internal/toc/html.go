package toc

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/blockdoc/blockdoc/internal/doc"
	"github.com/blockdoc/blockdoc/internal/sanitize"
	"github.com/blockdoc/blockdoc/internal/schema"
)

var headingTags = map[string]int{
	"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
}

// ProcessHTML assigns heading ids in a persisted HTML string and returns
// the rewritten markup along with the derived TOC entries. The id
// algorithm is the one CollectHeadings runs on a live tree, so both paths
// emit identical anchors for the same content.
func ProcessHTML(raw string) (string, []doc.TocItem, error) {
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", nil, fmt.Errorf("toc: parse html: %w", err)
	}
	body := findBody(root)
	if body == nil {
		return raw, nil, nil
	}

	var headings []Heading
	used := make(map[string]bool)
	walkElements(body, func(n *html.Node) {
		level, ok := headingTags[n.Data]
		if !ok {
			return
		}
		existing := schema.ElementAttr(n, "id")
		base := existing
		if base == "" {
			base = Slugify(schema.ElementText(n))
		}
		id := assignID(base, used)
		setAttr(n, "id", id)
		headings = append(headings, Heading{
			Level:   level,
			Text:    schema.ElementText(n),
			ID:      id,
			Changed: id != existing,
		})
	})

	var sb strings.Builder
	for child := body.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&sb, child); err != nil {
			return "", nil, fmt.Errorf("toc: render html: %w", err)
		}
	}
	return sb.String(), Items(headings), nil
}

// RenderBlock produces the persisted markup of a standalone TOC block for
// the given items. It mirrors the registry's tableOfContents renderer so
// server-produced TOC markup round-trips through the parse boundary.
func RenderBlock(items []doc.TocItem) string {
	var sb strings.Builder
	sb.WriteString(`<nav class="toc-block"><p><strong>Table of Contents</strong></p><ul>`)
	for _, it := range items {
		if sanitize.ValidateTocHref("#"+it.ID) == "" {
			continue
		}
		fmt.Fprintf(&sb, `<li data-level="%d"><a href="#%s" data-toc-link="%s">%s</a></li>`,
			clampLevel(it.Level), it.ID, it.ID, it.Text)
	}
	sb.WriteString(`</ul></nav>`)
	return sb.String()
}

func clampLevel(l int) int {
	if l < 0 {
		return 0
	}
	if l > 3 {
		return 3
	}
	return l
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findBody(child); found != nil {
			return found
		}
	}
	return nil
}

// walkElements visits every element under root in document order.
func walkElements(root *html.Node, visit func(*html.Node)) {
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode {
			visit(child)
		}
		walkElements(child, visit)
	}
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
