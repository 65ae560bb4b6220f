package doc

import "fmt"

// Document owns the root node. Positions address the flattened token
// stream of the root's content: 0 is before the first block, Size() after
// the last.
type Document struct {
	Root *Node
}

// New creates a document around a root node.
func New(root *Node) *Document {
	return &Document{Root: root}
}

// Size is the number of addressable positions in the document.
func (d *Document) Size() int { return d.Root.ContentSize() }

// Clone deep-copies the document.
func (d *Document) Clone() *Document { return &Document{Root: d.Root.Clone()} }

// Eq reports structural document equality.
func (d *Document) Eq(other *Document) bool { return d.Root.Eq(other.Root) }

// ResolvedPos describes where a position sits in the tree: the chain of
// ancestor nodes, the child index entered at each depth, and the offset
// within the innermost parent's content.
type ResolvedPos struct {
	Pos int
	// ParentOffset is the offset of Pos within Parent()'s content,
	// counting runes through any text node it points into.
	ParentOffset int

	nodes   []*Node // nodes[0] is the root
	indexes []int   // child index entered (or boundary index) per depth
	edges   []int   // edges[d]: absolute position before the child entered at nodes[d]
}

// Resolve maps a position to its place in the tree. Passing a position
// outside [0, Size()] is a caller bug and panics; positions must only come
// from the document itself.
func (d *Document) Resolve(pos int) *ResolvedPos {
	if pos < 0 || pos > d.Size() {
		panic(fmt.Sprintf("doc: position %d outside document of size %d", pos, d.Size()))
	}
	r := &ResolvedPos{Pos: pos}
	node := d.Root
	start := 0
	parentOffset := pos
	for {
		index, offset := findIndex(node.Children, parentOffset)
		rem := parentOffset - offset
		r.nodes = append(r.nodes, node)
		r.indexes = append(r.indexes, index)
		r.edges = append(r.edges, start+offset)
		if rem == 0 {
			break
		}
		child := node.Children[index]
		if child.IsText() || child.Leaf {
			break
		}
		node = child
		parentOffset = rem - 1
		start += offset + 1
	}
	r.ParentOffset = parentOffset
	return r
}

// findIndex locates the child a content offset falls into. When the offset
// sits exactly on a boundary between children it returns the index after
// the preceding child with offset equal to pos.
func findIndex(children []*Node, pos int) (index, offset int) {
	if pos == 0 {
		return 0, 0
	}
	cur := 0
	for i, c := range children {
		end := cur + c.NodeSize()
		if end >= pos {
			if end == pos {
				return i + 1, end
			}
			return i, cur
		}
		cur = end
	}
	return len(children), cur
}

// Depth is the number of ancestors between the position and the root.
func (r *ResolvedPos) Depth() int { return len(r.nodes) - 1 }

// Node returns the ancestor at the given depth (0 is the root).
func (r *ResolvedPos) Node(depth int) *Node { return r.nodes[depth] }

// Parent is the innermost node the position points into.
func (r *ResolvedPos) Parent() *Node { return r.nodes[len(r.nodes)-1] }

// Index is the child index the position enters (or sits before) at depth.
func (r *ResolvedPos) Index(depth int) int { return r.indexes[depth] }

// Start is the position where the content of the node at depth begins.
func (r *ResolvedPos) Start(depth int) int {
	if depth == 0 {
		return 0
	}
	return r.edges[depth-1] + 1
}

// End is the position where the content of the node at depth ends.
func (r *ResolvedPos) End(depth int) int {
	return r.Start(depth) + r.Node(depth).ContentSize()
}

// Before is the position immediately before the node at depth. The root
// has no before position.
func (r *ResolvedPos) Before(depth int) int {
	if depth == 0 {
		panic("doc: no position before the root")
	}
	return r.edges[depth-1]
}

// After is the position immediately after the node at depth.
func (r *ResolvedPos) After(depth int) int {
	return r.Before(depth) + r.Node(depth).NodeSize()
}

// NodeAfter returns the node starting directly at the position, or nil
// when the position is inside a text node or at the end of its parent.
func (r *ResolvedPos) NodeAfter() *Node {
	parent := r.Parent()
	index := r.indexes[len(r.indexes)-1]
	// Inside a text node or a leaf.
	if index < parent.ChildCount() {
		cur := 0
		for i := 0; i < index; i++ {
			cur += parent.Children[i].NodeSize()
		}
		if cur == r.ParentOffset {
			return parent.Children[index]
		}
	}
	return nil
}

// NodeAt returns the node whose open boundary sits exactly at pos, or nil.
func (d *Document) NodeAt(pos int) *Node {
	return d.Resolve(pos).NodeAfter()
}

// Descendants visits every descendant node in document pre-order along
// with the position before it. Returning false from the visitor stops the
// whole traversal; it never descends into text or leaf nodes.
func (d *Document) Descendants(visit func(n *Node, pos int) bool) {
	descend(d.Root, 0, visit)
}

func descend(parent *Node, contentStart int, visit func(n *Node, pos int) bool) bool {
	pos := contentStart
	for _, c := range parent.Children {
		if !visit(c, pos) {
			return false
		}
		if !c.IsText() && !c.Leaf {
			if !descend(c, pos+1, visit) {
				return false
			}
		}
		pos += c.NodeSize()
	}
	return true
}

// ReplaceRange replaces the tokens between from and to with the given
// content, splicing at the deepest ancestor shared by both boundaries.
// Boundary children that are only partially covered are trimmed in place
// rather than merged. The tree is mutated; callers needing atomicity work
// on a clone (the transaction engine does).
func (d *Document) ReplaceRange(from, to int, content []*Node) error {
	if from > to {
		return fmt.Errorf("doc: inverted range [%d, %d]", from, to)
	}
	rf := d.Resolve(from)
	rt := d.Resolve(to)

	depth := 0
	for depth < rf.Depth() && depth < rt.Depth() && rf.Node(depth+1) == rt.Node(depth+1) {
		depth++
	}
	anc := rf.Node(depth)
	ancStart := rf.Start(depth)

	relFrom := from - ancStart
	relTo := to - ancStart
	head := cutContent(anc.Children, 0, relFrom)
	tail := cutContent(anc.Children, relTo, anc.ContentSize())

	merged := make([]*Node, 0, len(head)+len(content)+len(tail))
	merged = append(merged, head...)
	merged = append(merged, content...)
	merged = append(merged, tail...)
	anc.Children = joinText(merged)
	return nil
}

// InsertAt inserts content at a single position.
func (d *Document) InsertAt(pos int, content []*Node) error {
	return d.ReplaceRange(pos, pos, content)
}

// TextBetween returns the text content between two positions.
func (d *Document) TextBetween(from, to int) string {
	tmp := &Node{Type: d.Root.Type, Children: cutContent(d.Root.Children, from, to)}
	return tmp.TextContent()
}
