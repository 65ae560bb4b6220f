// Package schema defines the node-type registry: the static description of
// every block and inline type the editor understands, including content
// models, attribute parse/render rules, and the mapping to and from the
// persisted HTML representation. The registry is built once at startup;
// nothing dispatches on type names outside it.
package schema

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/blockdoc/blockdoc/internal/doc"
)

// AttrSpec describes a single node attribute. Parse maps a matched source
// element to a validated value (rejected input degrades to the default,
// never errors). Coerce validates a programmatic value at mutation time.
// Render yields the HTML attributes the value contributes, if any.
type AttrSpec struct {
	Default any
	Parse   func(el *html.Node) any
	Coerce  func(v any) any
	Render  func(v any) [][2]string
}

// ParseRule maps a source HTML structure to a node type on import.
type ParseRule struct {
	Tag   string
	Class string // required class, empty for any
	// ContentElement names a descendant tag whose children become the
	// node's content instead of the matched element's own children.
	ContentElement string
}

// Raw is pre-escaped text a render emits verbatim.
type Raw string

// Slot marks where a node's rendered children are inserted.
type Slot struct{}

// Elem is one element of a render tree. Children may contain *Elem,
// string (escaped by the renderer), Raw, or Slot.
type Elem struct {
	Tag      string
	Attrs    [][2]string
	Children []any
}

// Spec is the static definition of a node type.
type Spec struct {
	Name       string
	Group      string // "block" or "inline"
	Content    string // content-model expression, "" for none
	Draggable  bool
	Selectable bool
	Atom       bool
	Isolating  bool
	Attrs      map[string]*AttrSpec
	ParseRules []ParseRule
	Render     func(n *doc.Node) *Elem

	content contentExpr
}

// MarkSpec is the static definition of an inline mark.
type MarkSpec struct {
	Name      string
	Tag       string   // canonical render tag
	ParseTags []string // source tags mapping to this mark
}

// Registry resolves node and mark types by name.
type Registry struct {
	specs map[string]*Spec
	order []string
	marks map[string]*MarkSpec
	// BaseURL anchors relative image URLs during src validation.
	BaseURL string
}

// New builds a registry with every built-in node and mark type.
func New(baseURL string) *Registry {
	r := &Registry{
		specs:   make(map[string]*Spec),
		marks:   make(map[string]*MarkSpec),
		BaseURL: baseURL,
	}
	for _, s := range builtinNodes(r) {
		s.content = parseContentExpr(s.Content)
		r.specs[s.Name] = s
		r.order = append(r.order, s.Name)
	}
	for _, m := range builtinMarks() {
		r.marks[m.Name] = m
	}
	return r
}

// Node returns the spec for a node type name, or nil.
func (r *Registry) Node(name string) *Spec { return r.specs[name] }

// Mark returns the spec for a mark type name, or nil.
func (r *Registry) Mark(name string) *MarkSpec { return r.marks[name] }

// Names lists node type names in declaration order.
func (r *Registry) Names() []string { return r.order }

// NewNode builds a node of the given type. Attributes run through each
// AttrSpec's Coerce rule; unknown attributes are dropped; missing ones take
// their defaults. Children are attached as given and validated separately.
func (r *Registry) NewNode(typ string, attrs map[string]any, children ...*doc.Node) (*doc.Node, error) {
	spec := r.specs[typ]
	if spec == nil {
		return nil, fmt.Errorf("schema: unknown node type %q", typ)
	}
	n := &doc.Node{
		Type:     typ,
		Children: children,
		Leaf:     spec.leaf(),
		Inline:   spec.Group == "inline",
	}
	if len(spec.Attrs) > 0 {
		n.Attrs = make(map[string]any, len(spec.Attrs))
		for name, as := range spec.Attrs {
			v, ok := attrs[name]
			if !ok {
				n.Attrs[name] = as.Default
				continue
			}
			if as.Coerce != nil {
				v = as.Coerce(v)
			}
			n.Attrs[name] = v
		}
	}
	return n, nil
}

// Text builds a text node.
func (r *Registry) Text(s string, marks ...doc.Mark) *doc.Node {
	return &doc.Node{Type: doc.TextType, Text: s, Marks: marks, Inline: true}
}

// InlineContent reports whether the node holds a flat inline run rather
// than child blocks.
func (s *Spec) InlineContent() bool {
	return s.Content == "inline*" || s.Content == "text*"
}

// leaf reports whether nodes of this spec occupy a single position token.
func (s *Spec) leaf() bool {
	return s.Content == "" && s.Name != doc.TextType
}

// CoerceAttrs validates a programmatic attribute map against the spec,
// applying defaults and sanitization. Used at mutation time so no attribute
// bypasses the parse-time rules.
func (s *Spec) CoerceAttrs(attrs map[string]any) map[string]any {
	if len(s.Attrs) == 0 {
		return nil
	}
	out := make(map[string]any, len(s.Attrs))
	for name, as := range s.Attrs {
		v, ok := attrs[name]
		if !ok {
			out[name] = as.Default
			continue
		}
		if as.Coerce != nil {
			v = as.Coerce(v)
		}
		out[name] = v
	}
	return out
}

// contentExpr is the parsed form of a content-model expression. The
// grammar is small: "", "name", "name*", "name+", or "(a|b)+".
type contentExpr struct {
	terms []string
	min   int  // minimum child count
	many  bool // more than min allowed
}

func parseContentExpr(src string) contentExpr {
	src = strings.TrimSpace(src)
	if src == "" {
		return contentExpr{}
	}
	e := contentExpr{min: 1}
	switch {
	case strings.HasSuffix(src, "*"):
		e.min = 0
		e.many = true
		src = strings.TrimSuffix(src, "*")
	case strings.HasSuffix(src, "+"):
		e.many = true
		src = strings.TrimSuffix(src, "+")
	}
	src = strings.TrimPrefix(src, "(")
	src = strings.TrimSuffix(src, ")")
	e.terms = strings.Split(src, "|")
	return e
}

// matches reports whether a child node satisfies one of the expression's
// terms, by group or by type name.
func (e contentExpr) matches(r *Registry, child *doc.Node) bool {
	spec := r.specs[child.Type]
	for _, t := range e.terms {
		if child.Type == t {
			return true
		}
		if spec != nil && spec.Group == t {
			return true
		}
		if child.IsText() && t == "inline" {
			return true
		}
	}
	return false
}

// ValidChildren reports whether children satisfy the spec's content model.
func (r *Registry) ValidChildren(spec *Spec, children []*doc.Node) error {
	e := spec.content
	if len(e.terms) == 0 {
		if len(children) != 0 {
			return fmt.Errorf("schema: %s accepts no content, got %d children", spec.Name, len(children))
		}
		return nil
	}
	if len(children) < e.min {
		return fmt.Errorf("schema: %s requires at least %d children, got %d", spec.Name, e.min, len(children))
	}
	if !e.many && len(children) > e.min {
		return fmt.Errorf("schema: %s accepts exactly %d children, got %d", spec.Name, e.min, len(children))
	}
	for i, c := range children {
		if !e.matches(r, c) {
			return fmt.Errorf("schema: %s does not accept child %d of type %s", spec.Name, i, c.Type)
		}
	}
	return nil
}

// ValidateDocument checks every node of the tree against its content
// model. The transaction engine runs this before committing.
func (r *Registry) ValidateDocument(d *doc.Document) error {
	return r.validateNode(d.Root)
}

func (r *Registry) validateNode(n *doc.Node) error {
	if n.IsText() {
		return nil
	}
	spec := r.specs[n.Type]
	if spec == nil {
		return fmt.Errorf("schema: unknown node type %q in document", n.Type)
	}
	if err := r.ValidChildren(spec, n.Children); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := r.validateNode(c); err != nil {
			return err
		}
	}
	return nil
}
