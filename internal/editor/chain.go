package editor

import (
	"fmt"

	"github.com/blockdoc/blockdoc/internal/doc"
	"github.com/blockdoc/blockdoc/internal/txn"
)

// NodeSpec is a declarative description of content handed to chain
// commands. It is resolved against the registry when the step is queued, so
// an unknown type or a failed attribute coercion poisons the chain rather
// than producing a half-built node.
type NodeSpec struct {
	Type    string
	Attrs   map[string]any
	Text    string
	Marks   []doc.Mark
	Content []NodeSpec
}

func (e *Editor) buildNode(spec NodeSpec) (*doc.Node, error) {
	if spec.Type == doc.TextType || (spec.Type == "" && spec.Text != "") {
		n := e.reg.Text(spec.Text)
		n.Marks = spec.Marks
		return n, nil
	}
	children := make([]*doc.Node, 0, len(spec.Content))
	for _, cs := range spec.Content {
		child, err := e.buildNode(cs)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return e.reg.NewNode(spec.Type, spec.Attrs, children...)
}

// Chain accumulates editing steps against a working copy of the document
// and applies them atomically on Run. A chain that is never run has no
// effect. Positions given to later steps refer to the working document as
// left by earlier steps.
type Chain struct {
	ed *Editor
	tx *txn.Transaction

	sel     Selection
	selSet  bool
	selStep int

	focus bool
	err   error
}

// Chain starts a new command chain.
func (e *Editor) Chain() *Chain {
	return &Chain{ed: e, tx: txn.New(e.reg, e.document), sel: e.sel}
}

func (c *Chain) fail(err error) *Chain {
	if c.err == nil {
		c.err = err
	}
	return c
}

// Doc exposes the chain's working document to command helpers.
func (c *Chain) Doc() *doc.Document { return c.tx.Doc() }

// Err returns the first error queued on the chain, if any.
func (c *Chain) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.tx.Err()
}

// Focus marks the editor focused once the chain runs.
func (c *Chain) Focus() *Chain {
	c.focus = true
	return c
}

// InsertContentAt inserts content at a position in the working document.
func (c *Chain) InsertContentAt(pos int, specs ...NodeSpec) *Chain {
	if c.Err() != nil {
		return c
	}
	nodes := make([]*doc.Node, 0, len(specs))
	for _, s := range specs {
		n, err := c.ed.buildNode(s)
		if err != nil {
			return c.fail(fmt.Errorf("insert content: %w", err))
		}
		nodes = append(nodes, n)
	}
	c.tx.Insert(pos, nodes...)
	return c
}

// InsertTextAt inserts plain text at a position.
func (c *Chain) InsertTextAt(pos int, text string) *Chain {
	if c.Err() != nil || text == "" {
		return c
	}
	c.tx.Insert(pos, c.ed.reg.Text(text))
	return c
}

// InsertNodesAt inserts pre-built nodes at a position. Command helpers use
// it when they already hold cloned subtrees.
func (c *Chain) InsertNodesAt(pos int, nodes ...*doc.Node) *Chain {
	if c.Err() != nil {
		return c
	}
	c.tx.Insert(pos, nodes...)
	return c
}

// ReplaceRange replaces [from, to) with nodes.
func (c *Chain) ReplaceRange(from, to int, nodes ...*doc.Node) *Chain {
	if c.Err() != nil {
		return c
	}
	c.tx.Replace(from, to, nodes...)
	return c
}

// DeleteRange removes [from, to).
func (c *Chain) DeleteRange(from, to int) *Chain {
	if c.Err() != nil {
		return c
	}
	c.tx.Delete(from, to)
	return c
}

// SetTextSelection places the caret at pos in the working document's
// coordinates. Later steps in the same chain shift it along with the
// content around it.
func (c *Chain) SetTextSelection(pos int) *Chain {
	c.sel = Selection{From: pos, To: pos}
	c.selSet = true
	c.selStep = c.tx.StepCount()
	return c
}

// SetSelectionRange selects [from, to) in working coordinates.
func (c *Chain) SetSelectionRange(from, to int) *Chain {
	c.sel = Selection{From: from, To: to}
	c.selSet = true
	c.selStep = c.tx.StepCount()
	return c
}

// SetNodeAttributes merges attrs into the node that starts at pos.
func (c *Chain) SetNodeAttributes(pos int, attrs map[string]any) *Chain {
	if c.Err() != nil {
		return c
	}
	c.tx.SetAttrs(pos, attrs)
	return c
}

// Run commits the chain. On success the editor's document and selection are
// updated and listeners fire; on failure nothing changes.
func (c *Chain) Run() error {
	if err := c.Err(); err != nil {
		return err
	}
	committed, err := c.tx.Commit()
	if err != nil {
		return err
	}
	mapping := c.tx.Mapping()

	sel := c.sel
	if c.selSet {
		// Mapped only through steps queued after the selection was set.
		sel = mapSelection(sel, mapping[c.selStep:])
	} else {
		sel = mapSelection(sel, mapping)
	}
	sel.From = clamp(sel.From, 0, committed.Size())
	sel.To = clamp(sel.To, sel.From, committed.Size())

	c.ed.document = committed
	c.ed.sel = sel
	if c.focus {
		c.ed.focused = true
	}
	c.ed.notify(Change{Mapping: mapping, Doc: committed})
	return nil
}

func mapSelection(sel Selection, m txn.Mapping) Selection {
	if sel.Empty() {
		// A caret rides along after content inserted at its position.
		p := m.Map(sel.From, 1)
		return Selection{From: p, To: p}
	}
	return Selection{From: m.Map(sel.From, -1), To: m.Map(sel.To, 1)}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
