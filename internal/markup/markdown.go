package markup

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/blockdoc/blockdoc/internal/doc"
	"github.com/blockdoc/blockdoc/internal/sanitize"
)

// ParseMarkdown builds a document from markdown source using goldmark.
// Images become figure blocks with the image title as caption text; links
// with disallowed protocols keep their text and lose the link. Raw HTML
// embedded in the markdown is dropped.
func (p *Parser) ParseMarkdown(src []byte) (*doc.Document, error) {
	md := goldmark.New()
	reader := text.NewReader(src)
	root := md.Parser().Parse(reader)

	blocks := p.mdBlocks(root, src)
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

func (p *Parser) mdBlocks(parent ast.Node, src []byte) []*doc.Node {
	var out []*doc.Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		out = append(out, p.mdBlock(n, src)...)
	}
	return out
}

func (p *Parser) mdBlock(n ast.Node, src []byte) []*doc.Node {
	switch node := n.(type) {
	case *ast.Heading:
		inline, figures := p.mdInlines(node, src, nil)
		h, _ := p.reg.NewNode("heading", map[string]any{"level": node.Level}, inline...)
		return append([]*doc.Node{h}, figures...)

	case *ast.Paragraph, *ast.TextBlock:
		inline, figures := p.mdInlines(n, src, nil)
		if len(inline) == 0 {
			return figures
		}
		para, _ := p.reg.NewNode("paragraph", nil, inline...)
		return append([]*doc.Node{para}, figures...)

	case *ast.Blockquote:
		children := p.mdBlocks(node, src)
		if len(children) == 0 {
			return nil
		}
		bq, _ := p.reg.NewNode("blockquote", nil, children...)
		return []*doc.Node{bq}

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		var b strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			b.Write(line.Value(src))
		}
		code := strings.TrimSuffix(b.String(), "\n")
		var content []*doc.Node
		if code != "" {
			content = append(content, p.reg.Text(code))
		}
		cb, _ := p.reg.NewNode("codeBlock", nil, content...)
		return []*doc.Node{cb}

	case *ast.List:
		typ := "bulletList"
		if node.IsOrdered() {
			typ = "orderedList"
		}
		var items []*doc.Node
		for li := node.FirstChild(); li != nil; li = li.NextSibling() {
			children := p.mdBlocks(li, src)
			if len(children) == 0 {
				continue
			}
			item, _ := p.reg.NewNode("listItem", nil, children...)
			items = append(items, item)
		}
		if len(items) == 0 {
			return nil
		}
		list, _ := p.reg.NewNode(typ, nil, items...)
		return []*doc.Node{list}

	case *ast.ThematicBreak:
		hr, _ := p.reg.NewNode("horizontalRule", nil)
		return []*doc.Node{hr}

	case *ast.HTMLBlock:
		// Raw HTML is never trusted from markdown input.
		return nil

	default:
		return nil
	}
}

// mdInlines converts an inline container's children. Images cannot sit
// inside a textblock, so they are returned separately as figure blocks the
// caller appends after the enclosing block.
func (p *Parser) mdInlines(parent ast.Node, src []byte, marks []doc.Mark) ([]*doc.Node, []*doc.Node) {
	var inline []*doc.Node
	var figures []*doc.Node
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Text:
			t := string(node.Value(src))
			if t != "" {
				inline = append(inline, p.reg.Text(t, cloneMarks(marks)...))
			}
			if node.HardLineBreak() {
				hb, _ := p.reg.NewNode("hardBreak", nil)
				inline = append(inline, hb)
			} else if node.SoftLineBreak() {
				inline = append(inline, p.reg.Text(" ", cloneMarks(marks)...))
			}

		case *ast.Emphasis:
			markType := "italic"
			if node.Level >= 2 {
				markType = "bold"
			}
			next := append(cloneMarks(marks), doc.Mark{Type: markType})
			in, figs := p.mdInlines(node, src, next)
			inline = append(inline, in...)
			figures = append(figures, figs...)

		case *ast.CodeSpan:
			next := append(cloneMarks(marks), doc.Mark{Type: "code"})
			t := string(node.Text(src))
			if t != "" {
				inline = append(inline, p.reg.Text(t, next...))
			}

		case *ast.Link:
			href := string(node.Destination)
			next := marks
			if sanitize.IsValidURL(href) {
				next = append(cloneMarks(marks), doc.Mark{
					Type:  "link",
					Attrs: map[string]string{"href": href},
				})
			}
			in, figs := p.mdInlines(node, src, next)
			inline = append(inline, in...)
			figures = append(figures, figs...)

		case *ast.AutoLink:
			href := string(node.URL(src))
			t := string(node.Label(src))
			if sanitize.IsValidURL(href) {
				inline = append(inline, p.reg.Text(t, doc.Mark{
					Type:  "link",
					Attrs: map[string]string{"href": href},
				}))
			} else {
				inline = append(inline, p.reg.Text(t))
			}

		case *ast.Image:
			if fig := p.mdFigure(node, src); fig != nil {
				figures = append(figures, fig)
			}

		case *ast.RawHTML:
			// Dropped for the same reason as HTMLBlock.

		default:
			in, figs := p.mdInlines(n, src, marks)
			inline = append(inline, in...)
			figures = append(figures, figs...)
		}
	}
	return inline, figures
}

func (p *Parser) mdFigure(img *ast.Image, src []byte) *doc.Node {
	alt := string(img.Text(src))
	var captionContent []*doc.Node
	if title := string(img.Title); title != "" {
		captionContent = append(captionContent, p.reg.Text(title))
	}
	caption, _ := p.reg.NewNode("figcaption", nil, captionContent...)
	fig, err := p.reg.NewNode("figure", map[string]any{
		"src": string(img.Destination),
		"alt": alt,
	}, caption)
	if err != nil {
		return nil
	}
	if fig.StringAttr("src") == "" {
		// The destination failed protocol validation; no figure.
		return nil
	}
	return fig
}
