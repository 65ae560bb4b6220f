package markup

import (
	"strings"

	"github.com/blockdoc/blockdoc/internal/doc"
	"github.com/blockdoc/blockdoc/internal/sanitize"
	"github.com/blockdoc/blockdoc/internal/schema"
)

// voidTags render without a closing tag.
var voidTags = map[string]bool{
	"img": true, "br": true, "hr": true,
}

// attrEscaper keeps attribute values inside their quotes. Ampersands stay
// untouched: attribute values arrive pre-escaped from the sanitizer (alt
// text, TOC entries) or protocol-validated (URLs), and re-escaping them
// would make parse(render(tree)) drift one entity level per pass.
var attrEscaper = strings.NewReplacer(
	`"`, "&quot;",
	"<", "&lt;",
	">", "&gt;",
)

// Renderer serializes a document tree to its canonical HTML form.
type Renderer struct {
	reg *schema.Registry
}

// NewRenderer creates a renderer over a registry.
func NewRenderer(reg *schema.Registry) *Renderer {
	return &Renderer{reg: reg}
}

// RenderDocument serializes the whole document.
func (r *Renderer) RenderDocument(d *doc.Document) string {
	var b strings.Builder
	r.renderNodes(&b, d.Root.Children)
	return b.String()
}

func (r *Renderer) renderNodes(b *strings.Builder, nodes []*doc.Node) {
	i := 0
	for i < len(nodes) {
		n := nodes[i]
		if n.IsText() || n.Type == "hardBreak" {
			// Consecutive inline nodes share mark nesting.
			i += r.renderInlineRun(b, nodes[i:])
			continue
		}
		r.renderNode(b, n)
		i++
	}
}

func (r *Renderer) renderNode(b *strings.Builder, n *doc.Node) {
	spec := r.reg.Node(n.Type)
	if spec == nil || spec.Render == nil {
		return
	}
	r.renderElem(b, spec.Render(n), n)
}

func (r *Renderer) renderElem(b *strings.Builder, e *schema.Elem, n *doc.Node) {
	b.WriteString("<")
	b.WriteString(e.Tag)
	for _, a := range e.Attrs {
		b.WriteString(" ")
		b.WriteString(a[0])
		b.WriteString(`="`)
		b.WriteString(attrEscaper.Replace(a[1]))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	if voidTags[e.Tag] {
		return
	}
	for _, child := range e.Children {
		switch c := child.(type) {
		case *schema.Elem:
			r.renderElem(b, c, n)
		case string:
			b.WriteString(sanitize.EscapeText(c))
		case schema.Raw:
			b.WriteString(string(c))
		case schema.Slot:
			r.renderNodes(b, n.Children)
		}
	}
	b.WriteString("</")
	b.WriteString(e.Tag)
	b.WriteString(">")
}

// renderInlineRun writes a maximal run of inline nodes, opening and
// closing mark tags at the boundaries where mark sets change. Returns the
// number of nodes consumed.
func (r *Renderer) renderInlineRun(b *strings.Builder, nodes []*doc.Node) int {
	var open []doc.Mark
	count := 0
	for _, n := range nodes {
		if !n.IsText() && n.Type != "hardBreak" {
			break
		}
		// Close marks that no longer apply, keeping the common prefix.
		keep := 0
		for keep < len(open) && keep < len(n.Marks) && markEq(open[keep], n.Marks[keep]) {
			keep++
		}
		for i := len(open) - 1; i >= keep; i-- {
			r.closeMark(b, open[i])
		}
		open = open[:keep]
		for _, m := range n.Marks[keep:] {
			r.openMark(b, m)
			open = append(open, m)
		}

		if n.IsText() {
			b.WriteString(sanitize.EscapeText(n.Text))
		} else {
			b.WriteString("<br>")
		}
		count++
	}
	for i := len(open) - 1; i >= 0; i-- {
		r.closeMark(b, open[i])
	}
	return count
}

func markEq(a, b doc.Mark) bool {
	if a.Type != b.Type || len(a.Attrs) != len(b.Attrs) {
		return false
	}
	for k, v := range a.Attrs {
		if b.Attrs[k] != v {
			return false
		}
	}
	return true
}

func (r *Renderer) openMark(b *strings.Builder, m doc.Mark) {
	spec := r.reg.Mark(m.Type)
	if spec == nil {
		return
	}
	b.WriteString("<")
	b.WriteString(spec.Tag)
	if m.Type == "link" {
		b.WriteString(` href="`)
		b.WriteString(attrEscaper.Replace(m.Attrs["href"]))
		b.WriteString(`"`)
	}
	b.WriteString(">")
}

func (r *Renderer) closeMark(b *strings.Builder, m doc.Mark) {
	spec := r.reg.Mark(m.Type)
	if spec == nil {
		return
	}
	b.WriteString("</")
	b.WriteString(spec.Tag)
	b.WriteString(">")
}
