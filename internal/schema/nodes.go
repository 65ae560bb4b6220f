package schema

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/blockdoc/blockdoc/internal/doc"
	"github.com/blockdoc/blockdoc/internal/sanitize"
)

var headingIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// builtinNodes is the full node-type table. Order matters for parse-rule
// resolution: earlier specs win when rules overlap.
func builtinNodes(r *Registry) []*Spec {
	return []*Spec{
		{
			Name:    "doc",
			Content: "block+",
		},
		{
			Name:       "paragraph",
			Group:      "block",
			Content:    "inline*",
			Selectable: true,
			ParseRules: []ParseRule{{Tag: "p"}},
			Render: func(n *doc.Node) *Elem {
				return &Elem{Tag: "p", Children: []any{Slot{}}}
			},
		},
		headingSpec(),
		{
			Name:  doc.TextType,
			Group: "inline",
		},
		{
			Name:       "hardBreak",
			Group:      "inline",
			ParseRules: []ParseRule{{Tag: "br"}},
			Render: func(n *doc.Node) *Elem {
				return &Elem{Tag: "br"}
			},
		},
		figureSpec(r),
		{
			Name:    "figcaption",
			Group:   "block",
			Content: "inline*",
			ParseRules: []ParseRule{
				{Tag: "figcaption"},
			},
			Render: func(n *doc.Node) *Elem {
				return &Elem{
					Tag:      "figcaption",
					Attrs:    [][2]string{{"class", "figure-caption"}},
					Children: []any{Slot{}},
				}
			},
		},
		tocSpec(),
		{
			Name:       "bulletList",
			Group:      "block",
			Content:    "listItem+",
			Selectable: true,
			ParseRules: []ParseRule{{Tag: "ul"}},
			Render: func(n *doc.Node) *Elem {
				return &Elem{Tag: "ul", Children: []any{Slot{}}}
			},
		},
		{
			Name:       "orderedList",
			Group:      "block",
			Content:    "listItem+",
			Selectable: true,
			ParseRules: []ParseRule{{Tag: "ol"}},
			Render: func(n *doc.Node) *Elem {
				return &Elem{Tag: "ol", Children: []any{Slot{}}}
			},
		},
		{
			Name:       "listItem",
			Content:    "block+",
			ParseRules: []ParseRule{{Tag: "li"}},
			Render: func(n *doc.Node) *Elem {
				return &Elem{Tag: "li", Children: []any{Slot{}}}
			},
		},
		{
			Name:       "blockquote",
			Group:      "block",
			Content:    "block+",
			Selectable: true,
			ParseRules: []ParseRule{{Tag: "blockquote"}},
			Render: func(n *doc.Node) *Elem {
				return &Elem{Tag: "blockquote", Children: []any{Slot{}}}
			},
		},
		{
			Name:       "codeBlock",
			Group:      "block",
			Content:    "text*",
			Selectable: true,
			Isolating:  true,
			ParseRules: []ParseRule{{Tag: "pre", ContentElement: "code"}},
			Render: func(n *doc.Node) *Elem {
				return &Elem{Tag: "pre", Children: []any{
					&Elem{Tag: "code", Children: []any{Slot{}}},
				}}
			},
		},
		{
			Name:       "horizontalRule",
			Group:      "block",
			Selectable: true,
			Draggable:  true,
			ParseRules: []ParseRule{{Tag: "hr"}},
			Render: func(n *doc.Node) *Elem {
				return &Elem{Tag: "hr"}
			},
		},
		{
			Name:       "table",
			Group:      "block",
			Content:    "tableRow+",
			Isolating:  true,
			Selectable: true,
			ParseRules: []ParseRule{{Tag: "table"}},
			Render: func(n *doc.Node) *Elem {
				return &Elem{Tag: "table", Children: []any{
					&Elem{Tag: "tbody", Children: []any{Slot{}}},
				}}
			},
		},
		{
			Name:       "tableRow",
			Content:    "(tableHeader|tableCell)+",
			ParseRules: []ParseRule{{Tag: "tr"}},
			Render: func(n *doc.Node) *Elem {
				return &Elem{Tag: "tr", Children: []any{Slot{}}}
			},
		},
		{
			Name:       "tableHeader",
			Content:    "block+",
			ParseRules: []ParseRule{{Tag: "th"}},
			Render: func(n *doc.Node) *Elem {
				return &Elem{Tag: "th", Children: []any{Slot{}}}
			},
		},
		{
			Name:       "tableCell",
			Content:    "block+",
			ParseRules: []ParseRule{{Tag: "td"}},
			Render: func(n *doc.Node) *Elem {
				return &Elem{Tag: "td", Children: []any{Slot{}}}
			},
		},
	}
}

func headingSpec() *Spec {
	return &Spec{
		Name:       "heading",
		Group:      "block",
		Content:    "inline*",
		Selectable: true,
		Attrs: map[string]*AttrSpec{
			"level": {
				Default: 1,
				Parse: func(el *html.Node) any {
					if len(el.Data) == 2 && el.Data[0] == 'h' {
						return clampLevel(int(el.Data[1] - '0'))
					}
					return 1
				},
				Coerce: coerceLevel,
			},
			"id": {
				Default: "",
				Parse: func(el *html.Node) any {
					return coerceHeadingID(ElementAttr(el, "id"))
				},
				Coerce: coerceHeadingID,
			},
		},
		ParseRules: []ParseRule{
			{Tag: "h1"}, {Tag: "h2"}, {Tag: "h3"},
			{Tag: "h4"}, {Tag: "h5"}, {Tag: "h6"},
		},
		Render: func(n *doc.Node) *Elem {
			e := &Elem{
				Tag:      "h" + strconv.Itoa(clampLevel(n.IntAttr("level"))),
				Children: []any{Slot{}},
			}
			if id := n.StringAttr("id"); id != "" {
				e.Attrs = append(e.Attrs, [2]string{"id", id})
			}
			return e
		},
	}
}

func coerceLevel(v any) any {
	l, _ := v.(int)
	return clampLevel(l)
}

func clampLevel(l int) int {
	if l < 1 {
		return 1
	}
	if l > 6 {
		return 6
	}
	return l
}

func coerceHeadingID(v any) any {
	id, _ := v.(string)
	if id == "" || !headingIDPattern.MatchString(id) {
		return ""
	}
	return id
}

func figureSpec(r *Registry) *Spec {
	return &Spec{
		Name:      "figure",
		Group:     "block",
		Content:   "figcaption",
		Draggable: true,
		Isolating: true,
		Attrs: map[string]*AttrSpec{
			"src": {
				Default: "",
				Parse: func(el *html.Node) any {
					img := FindChild(el, "img")
					if img == nil {
						return ""
					}
					return sanitize.ValidateImageSrc(ElementAttr(img, "src"), r.BaseURL)
				},
				Coerce: func(v any) any {
					s, _ := v.(string)
					return sanitize.ValidateImageSrc(s, r.BaseURL)
				},
			},
			"alt": {
				Default: "",
				Parse: func(el *html.Node) any {
					img := FindChild(el, "img")
					if img == nil {
						return ""
					}
					return sanitize.SanitizeAltText(ElementAttr(img, "alt"))
				},
				Coerce: func(v any) any {
					s, _ := v.(string)
					return sanitize.SanitizeAltText(s)
				},
			},
		},
		ParseRules: []ParseRule{{Tag: "figure"}},
		Render: func(n *doc.Node) *Elem {
			e := &Elem{
				Tag:   "figure",
				Attrs: [][2]string{{"class", "image-figure"}},
			}
			// A src that failed validation renders no img tag at all;
			// the caption slot stays.
			if src := n.StringAttr("src"); src != "" {
				img := &Elem{
					Tag: "img",
					Attrs: [][2]string{
						{"src", src},
						{"alt", n.StringAttr("alt")},
						{"class", "figure-image"},
					},
				}
				e.Children = append(e.Children, img)
			}
			e.Children = append(e.Children, Slot{})
			return e
		},
	}
}

func tocSpec() *Spec {
	return &Spec{
		Name:      "tableOfContents",
		Group:     "block",
		Atom:      true,
		Draggable: true,
		Attrs: map[string]*AttrSpec{
			"items": {
				Default: []doc.TocItem(nil),
				Parse:   parseTocItems,
				Coerce:  coerceTocItems,
			},
		},
		ParseRules: []ParseRule{
			{Tag: "nav", Class: "toc-block"},
			{Tag: "div", Class: "toc-block"},
		},
		Render: renderToc,
	}
}

// parseTocItems walks the list items of persisted TOC markup. Only entries
// whose link passes the internal-anchor check are kept; text is escaped on
// the way in. Level is read from the structural data-level attribute, with
// a fallback to the legacy padding-left styling older content carries.
func parseTocItems(el *html.Node) any {
	var items []doc.TocItem
	EachElement(el, "li", func(li *html.Node) {
		link := FindChild(li, "a")
		if link == nil {
			return
		}
		href := sanitize.ValidateTocHref(ElementAttr(link, "href"))
		if href == "" {
			return
		}
		items = append(items, doc.TocItem{
			Level: tocItemLevel(li),
			Text:  sanitize.EscapeText(ElementText(link)),
			ID:    strings.TrimPrefix(href, "#"),
		})
	})
	return items
}

func tocItemLevel(li *html.Node) int {
	if v := ElementAttr(li, "data-level"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l >= 0 && l <= 3 {
			return l
		}
	}
	padding := ElementAttr(li, "style")
	switch {
	case strings.Contains(padding, "3.75"):
		return 3
	case strings.Contains(padding, "2.5"):
		return 2
	case strings.Contains(padding, "1.25"):
		return 1
	}
	return 0
}

func coerceTocItems(v any) any {
	in, _ := v.([]doc.TocItem)
	var out []doc.TocItem
	for _, it := range in {
		if sanitize.ValidateTocHref("#"+it.ID) == "" {
			continue
		}
		if it.Level < 0 {
			it.Level = 0
		}
		if it.Level > 3 {
			it.Level = 3
		}
		out = append(out, it)
	}
	return out
}

func renderToc(n *doc.Node) *Elem {
	items, _ := n.Attr("items").([]doc.TocItem)
	list := &Elem{Tag: "ul"}
	for _, it := range items {
		list.Children = append(list.Children, &Elem{
			Tag:   "li",
			Attrs: [][2]string{{"data-level", strconv.Itoa(it.Level)}},
			Children: []any{&Elem{
				Tag: "a",
				Attrs: [][2]string{
					{"href", "#" + it.ID},
					{"data-toc-link", it.ID},
				},
				// Item text is stored escaped.
				Children: []any{Raw(it.Text)},
			}},
		})
	}
	return &Elem{
		Tag:   "nav",
		Attrs: [][2]string{{"class", "toc-block"}},
		Children: []any{
			&Elem{Tag: "p", Children: []any{
				&Elem{Tag: "strong", Children: []any{"Table of Contents"}},
			}},
			list,
		},
	}
}
