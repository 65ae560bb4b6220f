package schema

import (
	"strings"

	"golang.org/x/net/html"
)

// ElementAttr returns the value of an attribute on an element, or "".
func ElementAttr(el *html.Node, name string) string {
	for _, a := range el.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// HasClass reports whether an element's class list contains name.
func HasClass(el *html.Node, name string) bool {
	for _, c := range strings.Fields(ElementAttr(el, "class")) {
		if c == name {
			return true
		}
	}
	return false
}

// FindChild returns the first descendant element with the given tag.
func FindChild(el *html.Node, tag string) *html.Node {
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := FindChild(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// ElementText concatenates the text content of an element's subtree.
func ElementText(el *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(el)
	return b.String()
}

// EachElement visits every descendant element with the given tag.
func EachElement(el *html.Node, tag string, visit func(*html.Node)) {
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			visit(c)
		}
		EachElement(c, tag, visit)
	}
}
