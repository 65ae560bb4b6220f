package editor

import (
	"errors"
	"fmt"

	"github.com/blockdoc/blockdoc/internal/doc"
	"github.com/blockdoc/blockdoc/internal/sanitize"
)

// ErrSelectionSpansBlocks is returned by mark commands when the selection
// crosses a textblock boundary.
var ErrSelectionSpansBlocks = errors.New("editor: selection spans multiple blocks")

// markRange describes the inline range a mark command operates on, in
// block-content coordinates.
type markRange struct {
	r       *doc.ResolvedPos
	depth   int
	relFrom int
	relTo   int
}

func (c *Chain) markRangeAt() (markRange, error) {
	d := c.Doc()
	from := clamp(c.sel.From, 0, d.Size())
	to := clamp(c.sel.To, from, d.Size())
	r1, depth, ok := textblockAt(c.ed.reg, d, from)
	if !ok {
		return markRange{}, errors.New("editor: no text block at selection")
	}
	if to > r1.End(depth) {
		return markRange{}, ErrSelectionSpansBlocks
	}
	start := r1.Start(depth)
	return markRange{r: r1, depth: depth, relFrom: from - start, relTo: to - start}, nil
}

// rangeHasMark reports whether every text node in the inline slice carries
// the mark.
func rangeHasMark(content []*doc.Node, name string) bool {
	found := false
	for _, n := range content {
		if !n.IsText() {
			continue
		}
		if !n.HasMark(name) {
			return false
		}
		found = true
	}
	return found
}

func withMark(content []*doc.Node, m doc.Mark) []*doc.Node {
	out := make([]*doc.Node, 0, len(content))
	for _, n := range content {
		nc := n.Clone()
		if nc.IsText() && !nc.HasMark(m.Type) {
			nc.Marks = append(nc.Marks, m)
		}
		out = append(out, nc)
	}
	return out
}

func withoutMark(content []*doc.Node, name string) []*doc.Node {
	out := make([]*doc.Node, 0, len(content))
	for _, n := range content {
		nc := n.Clone()
		if nc.IsText() {
			marks := nc.Marks[:0:0]
			for _, m := range nc.Marks {
				if m.Type != name {
					marks = append(marks, m)
				}
			}
			nc.Marks = marks
		}
		out = append(out, nc)
	}
	return out
}

// applyMark rewrites the selected inline slice through transform and
// replaces it in place.
func (c *Chain) applyMark(transform func([]*doc.Node) []*doc.Node) *Chain {
	if c.Err() != nil {
		return c
	}
	mr, err := c.markRangeAt()
	if err != nil {
		return c.fail(err)
	}
	if mr.relFrom == mr.relTo {
		return c
	}
	block := mr.r.Node(mr.depth)
	slice := transform(block.Cut(mr.relFrom, mr.relTo))
	start := mr.r.Start(mr.depth)
	return c.ReplaceRange(start+mr.relFrom, start+mr.relTo, slice...)
}

func (c *Chain) toggleMark(name string) *Chain {
	if c.Err() != nil {
		return c
	}
	mr, err := c.markRangeAt()
	if err != nil {
		return c.fail(err)
	}
	if mr.relFrom == mr.relTo {
		return c
	}
	block := mr.r.Node(mr.depth)
	slice := block.Cut(mr.relFrom, mr.relTo)
	if rangeHasMark(slice, name) {
		return c.applyMark(func(content []*doc.Node) []*doc.Node {
			return withoutMark(content, name)
		})
	}
	return c.applyMark(func(content []*doc.Node) []*doc.Node {
		return withMark(content, doc.Mark{Type: name})
	})
}

// ToggleBold toggles the bold mark on the selection.
func (c *Chain) ToggleBold() *Chain { return c.toggleMark("bold") }

// ToggleItalic toggles the italic mark on the selection.
func (c *Chain) ToggleItalic() *Chain { return c.toggleMark("italic") }

// ToggleStrike toggles the strikethrough mark on the selection.
func (c *Chain) ToggleStrike() *Chain { return c.toggleMark("strike") }

// ToggleCode toggles the inline code mark on the selection.
func (c *Chain) ToggleCode() *Chain { return c.toggleMark("code") }

// SetLink applies a link mark with the given href to the selection. The
// href must use an allowed protocol or be an in-page anchor.
func (c *Chain) SetLink(href string) *Chain {
	if c.Err() != nil {
		return c
	}
	if !sanitize.IsValidURL(href) {
		return c.fail(fmt.Errorf("editor: link %q uses an unsupported protocol", href))
	}
	return c.applyMark(func(content []*doc.Node) []*doc.Node {
		stripped := withoutMark(content, "link")
		return withMark(stripped, doc.Mark{Type: "link", Attrs: map[string]string{"href": href}})
	})
}

// UnsetLink removes the link mark from the selection. A caret inside a
// link removes the whole contiguous linked run.
func (c *Chain) UnsetLink() *Chain {
	if c.Err() != nil {
		return c
	}
	if c.sel.Empty() {
		c.expandToLinkRun()
	}
	return c.applyMark(func(content []*doc.Node) []*doc.Node {
		return withoutMark(content, "link")
	})
}

// expandToLinkRun grows an empty selection to cover the contiguous run of
// text nodes sharing the link mark under the caret.
func (c *Chain) expandToLinkRun() {
	mr, err := c.markRangeAt()
	if err != nil {
		return
	}
	block := mr.r.Node(mr.depth)
	cur := 0
	for _, child := range block.Children {
		size := child.NodeSize()
		if mr.relFrom >= cur && mr.relFrom <= cur+size && child.IsText() && child.HasMark("link") {
			href := child.MarkAttr("link", "href")
			from, to := cur, cur+size
			// Extend over neighbors with the same target.
			i := 0
			scan := 0
			for ; i < len(block.Children); i++ {
				n := block.Children[i]
				ns := n.NodeSize()
				linked := n.IsText() && n.HasMark("link") && n.MarkAttr("link", "href") == href
				if linked && scan+ns >= from && scan <= to {
					if scan < from {
						from = scan
					}
					if scan+ns > to {
						to = scan + ns
					}
				}
				scan += ns
			}
			start := mr.r.Start(mr.depth)
			c.sel = Selection{From: start + from, To: start + to}
			c.selSet = true
			c.selStep = c.tx.StepCount()
			return
		}
		cur += size
	}
}
