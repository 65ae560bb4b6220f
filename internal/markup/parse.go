// Package markup converts between the persisted HTML representation and
// the document tree. Parsing routes every attribute through the registry's
// parse rules (and therefore through the sanitizer); rendering emits the
// canonical form those rules know how to read back.
package markup

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/blockdoc/blockdoc/internal/doc"
	"github.com/blockdoc/blockdoc/internal/sanitize"
	"github.com/blockdoc/blockdoc/internal/schema"
)

// transparentTags are containers the parser looks through without
// producing a node.
var transparentTags = map[string]bool{
	"div": true, "span": true, "thead": true, "tbody": true,
	"section": true, "article": true, "nav": true, "body": true,
	"html": true, "head": true,
}

// Parser builds document trees from untrusted HTML.
type Parser struct {
	reg *schema.Registry
}

// NewParser creates a parser over a registry.
func NewParser(reg *schema.Registry) *Parser {
	return &Parser{reg: reg}
}

// ParseDocument parses persisted HTML into a document. The input passes
// through the sanitization policy first; markup the registry cannot
// represent is dropped. An input with no usable content yields a document
// holding a single empty paragraph.
func (p *Parser) ParseDocument(raw string) (*doc.Document, error) {
	clean := sanitize.CleanDocument(raw)
	root, err := html.Parse(strings.NewReader(clean))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	body := findBody(root)
	if body == nil {
		body = root
	}
	blocks := p.parseBlocks(body)
	if len(blocks) == 0 {
		para, _ := p.reg.NewNode("paragraph", nil)
		blocks = []*doc.Node{para}
	}
	docNode, err := p.reg.NewNode("doc", nil, blocks...)
	if err != nil {
		return nil, err
	}
	return doc.New(docNode), nil
}

// parseBlocks collects block nodes from an element's children, looking
// through transparent containers.
func (p *Parser) parseBlocks(el *html.Node) []*doc.Node {
	var out []*doc.Node
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, p.parseBlockNode(c)...)
	}
	return out
}

func (p *Parser) parseBlockNode(n *html.Node) []*doc.Node {
	if n.Type == html.TextNode {
		// Stray text at block level becomes a paragraph.
		if strings.TrimSpace(n.Data) == "" {
			return nil
		}
		para, _ := p.reg.NewNode("paragraph", nil, p.reg.Text(n.Data))
		return []*doc.Node{para}
	}
	if n.Type != html.ElementNode {
		return nil
	}

	spec := p.matchRule(n)
	if spec == nil {
		if transparentTags[n.Data] {
			return p.parseBlocks(n)
		}
		// Unknown element: drop it and its subtree. The sanitizer has
		// already removed anything dangerous; what remains is markup the
		// registry has no node for.
		return nil
	}
	node := p.buildNode(spec, n)
	if node == nil {
		return nil
	}
	return []*doc.Node{node}
}

// matchRule finds the spec whose parse rule matches an element, honoring
// class requirements. Class-qualified rules win over bare tag rules.
func (p *Parser) matchRule(el *html.Node) *schema.Spec {
	var tagOnly *schema.Spec
	for _, name := range p.reg.Names() {
		spec := p.reg.Node(name)
		for _, rule := range spec.ParseRules {
			if rule.Tag != el.Data {
				continue
			}
			if rule.Class != "" {
				if schema.HasClass(el, rule.Class) {
					return spec
				}
				continue
			}
			if tagOnly == nil {
				tagOnly = spec
			}
		}
	}
	return tagOnly
}

func (p *Parser) buildNode(spec *schema.Spec, el *html.Node) *doc.Node {
	attrs := make(map[string]any)
	for name, as := range spec.Attrs {
		if as.Parse != nil {
			attrs[name] = as.Parse(el)
		}
	}

	var children []*doc.Node
	if !spec.Atom && spec.Content != "" {
		contentEl := el
		for _, rule := range spec.ParseRules {
			if rule.Tag == el.Data && rule.ContentElement != "" {
				if found := schema.FindChild(el, rule.ContentElement); found != nil {
					contentEl = found
				}
				break
			}
		}
		if inlineContent(spec) {
			children = trimInline(p.parseInline(contentEl, nil))
		} else {
			children = p.parseBlocks(contentEl)
		}
		children = p.repairChildren(spec, children)
		if children == nil && requiresContent(spec) {
			return nil
		}
	}

	// Attributes already went through the parse rules; bypass Coerce by
	// attaching the parsed values directly.
	node, err := p.reg.NewNode(spec.Name, nil, children...)
	if err != nil {
		return nil
	}
	for k, v := range attrs {
		node.Attrs[k] = v
	}
	return node
}

func inlineContent(spec *schema.Spec) bool {
	return spec.InlineContent()
}

func requiresContent(spec *schema.Spec) bool {
	return strings.HasSuffix(spec.Content, "+") || spec.Content == "figcaption"
}

// repairChildren massages parsed children toward the spec's content model:
// inline runs get wrapped into paragraphs where blocks are required, and a
// figure without a caption gains an empty one.
func (p *Parser) repairChildren(spec *schema.Spec, children []*doc.Node) []*doc.Node {
	if spec.Name == "figure" {
		var caption *doc.Node
		for _, c := range children {
			if c.Type == "figcaption" {
				caption = c
				break
			}
		}
		if caption == nil {
			caption, _ = p.reg.NewNode("figcaption", nil)
		}
		return []*doc.Node{caption}
	}
	if inlineContent(spec) {
		return children
	}

	var out []*doc.Node
	var run []*doc.Node
	flush := func() {
		if len(run) == 0 {
			return
		}
		para, _ := p.reg.NewNode("paragraph", nil, run...)
		out = append(out, para)
		run = nil
	}
	for _, c := range children {
		if c.Inline {
			run = append(run, c)
			continue
		}
		flush()
		out = append(out, c)
	}
	flush()
	return out
}

// parseInline collects inline nodes, accumulating marks through mark tags.
// A link whose href fails validation keeps its text and loses the mark.
func (p *Parser) parseInline(el *html.Node, marks []doc.Mark) []*doc.Node {
	var out []*doc.Node
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if c.Data != "" {
				out = append(out, p.reg.Text(c.Data, cloneMarks(marks)...))
			}
		case html.ElementNode:
			switch {
			case c.Data == "br":
				hb, _ := p.reg.NewNode("hardBreak", nil)
				hb.Marks = cloneMarks(marks)
				out = append(out, hb)
			case p.reg.MarkForTag(c.Data) != nil:
				mark := p.reg.MarkForTag(c.Data)
				next := marks
				if mark.Name == "link" {
					href := schema.ElementAttr(c, "href")
					if sanitize.IsValidURL(href) {
						next = append(cloneMarks(marks), doc.Mark{
							Type:  "link",
							Attrs: map[string]string{"href": href},
						})
					}
				} else {
					next = append(cloneMarks(marks), doc.Mark{Type: mark.Name})
				}
				out = append(out, p.parseInline(c, next)...)
			case c.Data == "img":
				// Bare inline images are not representable; images live
				// in figure blocks.
			default:
				out = append(out, p.parseInline(c, marks)...)
			}
		}
	}
	return out
}

func cloneMarks(marks []doc.Mark) []doc.Mark {
	if len(marks) == 0 {
		return nil
	}
	out := make([]doc.Mark, len(marks))
	copy(out, marks)
	return out
}

// trimInline drops whitespace-only text nodes at the edges of a textblock.
func trimInline(nodes []*doc.Node) []*doc.Node {
	start := 0
	end := len(nodes)
	for start < end && isBlankText(nodes[start]) {
		start++
	}
	for end > start && isBlankText(nodes[end-1]) {
		end--
	}
	return nodes[start:end]
}

func isBlankText(n *doc.Node) bool {
	return n.IsText() && strings.TrimSpace(n.Text) == ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
