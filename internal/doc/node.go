// Package doc implements the document tree and its integer position
// addressing. Each element node contributes an open and a close boundary
// token to the address space, leaf nodes contribute a single token, and
// text nodes contribute one token per rune.
package doc

import (
	"reflect"
	"strings"
	"unicode/utf8"
)

// TextType is the type tag of text nodes.
const TextType = "text"

// Mark is inline formatting attached to a text node (link, bold, ...).
type Mark struct {
	Type  string
	Attrs map[string]string
}

// TocItem is one entry of a table-of-contents block. Level is normalized
// against the shallowest heading present (0-3), Text is HTML-escaped, and
// ID is a unique slug.
type TocItem struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

// Node is a typed element of the document tree. Leaf and Inline are
// structural facts supplied by the registry when the node is built; the
// tree itself stays schema-agnostic.
type Node struct {
	Type     string
	Attrs    map[string]any
	Text     string // text nodes only
	Marks    []Mark // text nodes only
	Children []*Node
	Leaf     bool // occupies a single position token (hr, toc, br)
	Inline   bool
}

// IsText reports whether the node is a text node.
func (n *Node) IsText() bool { return n.Type == TextType }

// NodeSize is the number of position tokens the node occupies, including
// its own boundaries.
func (n *Node) NodeSize() int {
	if n.IsText() {
		return utf8.RuneCountInString(n.Text)
	}
	if n.Leaf {
		return 1
	}
	return 2 + n.ContentSize()
}

// ContentSize is the number of position tokens between the node's open and
// close boundaries.
func (n *Node) ContentSize() int {
	size := 0
	for _, c := range n.Children {
		size += c.NodeSize()
	}
	return size
}

// ChildCount returns the number of direct children.
func (n *Node) ChildCount() int { return len(n.Children) }

// Child returns the child at index, or nil when out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// TextContent concatenates the text of all descendant text nodes.
func (n *Node) TextContent() string {
	if n.IsText() {
		return n.Text
	}
	var b strings.Builder
	for _, c := range n.Children {
		b.WriteString(c.TextContent())
	}
	return b.String()
}

// Attr returns the attribute value for name, or nil.
func (n *Node) Attr(name string) any {
	if n.Attrs == nil {
		return nil
	}
	return n.Attrs[name]
}

// StringAttr returns the attribute as a string, or "" when absent or of a
// different type.
func (n *Node) StringAttr(name string) string {
	s, _ := n.Attr(name).(string)
	return s
}

// IntAttr returns the attribute as an int, or 0.
func (n *Node) IntAttr(name string) int {
	i, _ := n.Attr(name).(int)
	return i
}

// Clone deep-copies the node.
func (n *Node) Clone() *Node {
	c := n.CloneShallow()
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// CloneShallow copies the node without its children.
func (n *Node) CloneShallow() *Node {
	c := &Node{
		Type:   n.Type,
		Text:   n.Text,
		Leaf:   n.Leaf,
		Inline: n.Inline,
	}
	if n.Attrs != nil {
		c.Attrs = make(map[string]any, len(n.Attrs))
		for k, v := range n.Attrs {
			c.Attrs[k] = v
		}
	}
	if n.Marks != nil {
		c.Marks = make([]Mark, len(n.Marks))
		copy(c.Marks, n.Marks)
	}
	return c
}

// Eq reports structural equality: same type, attributes, text, marks and
// children.
func (n *Node) Eq(other *Node) bool {
	if n == other {
		return true
	}
	if n == nil || other == nil {
		return false
	}
	if n.Type != other.Type || n.Text != other.Text {
		return false
	}
	if !reflect.DeepEqual(normalizeAttrs(n.Attrs), normalizeAttrs(other.Attrs)) {
		return false
	}
	if !marksEq(n.Marks, other.Marks) {
		return false
	}
	if len(n.Children) != len(other.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Eq(other.Children[i]) {
			return false
		}
	}
	return true
}

func normalizeAttrs(attrs map[string]any) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

func marksEq(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type || !reflect.DeepEqual(a[i].Attrs, b[i].Attrs) {
			return false
		}
	}
	return true
}

// HasMark reports whether a text node carries a mark of the given type.
func (n *Node) HasMark(markType string) bool {
	for _, m := range n.Marks {
		if m.Type == markType {
			return true
		}
	}
	return false
}

// MarkAttr returns an attribute of the first mark of the given type.
func (n *Node) MarkAttr(markType, attr string) string {
	for _, m := range n.Marks {
		if m.Type == markType {
			return m.Attrs[attr]
		}
	}
	return ""
}

// Cut returns a deep copy of n's content between the content-local
// offsets from and to, slicing through text and partially covered
// element children.
func (n *Node) Cut(from, to int) []*Node {
	return cutContent(n.Children, from, to)
}

// cutContent slices children between content offsets from and to,
// descending into partially covered element children and slicing text
// nodes by rune. Offsets are relative to the parent's content.
func cutContent(children []*Node, from, to int) []*Node {
	var out []*Node
	cur := 0
	for _, c := range children {
		size := c.NodeSize()
		end := cur + size
		if end <= from || cur >= to {
			cur = end
			continue
		}
		switch {
		case c.IsText():
			runes := []rune(c.Text)
			s := max(from-cur, 0)
			e := min(to-cur, size)
			if s < e {
				nc := c.CloneShallow()
				nc.Text = string(runes[s:e])
				out = append(out, nc)
			}
		case cur >= from && end <= to:
			out = append(out, c.Clone())
		default:
			// Partially covered element: keep it, slice its content.
			s := max(from-cur-1, 0)
			e := min(to-cur-1, c.ContentSize())
			nc := c.CloneShallow()
			nc.Children = cutContent(c.Children, s, e)
			out = append(out, nc)
		}
		cur = end
	}
	return out
}

// joinText merges adjacent text siblings that carry identical marks so a
// replace never leaves the tree with split text runs.
func joinText(children []*Node) []*Node {
	if len(children) < 2 {
		return children
	}
	out := children[:0:0]
	for _, c := range children {
		if len(out) > 0 {
			last := out[len(out)-1]
			if last.IsText() && c.IsText() && marksEq(last.Marks, c.Marks) {
				merged := last.CloneShallow()
				merged.Text = last.Text + c.Text
				out[len(out)-1] = merged
				continue
			}
		}
		out = append(out, c)
	}
	return out
}
