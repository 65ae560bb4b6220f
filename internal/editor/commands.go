package editor

import (
	"errors"
	"fmt"

	"github.com/blockdoc/blockdoc/internal/doc"
	"github.com/blockdoc/blockdoc/internal/schema"
)

// textblockAt locates the innermost textblock around pos. ok is false when
// pos sits between blocks with no textblock ancestor.
func textblockAt(reg *schema.Registry, d *doc.Document, pos int) (*doc.ResolvedPos, int, bool) {
	r := d.Resolve(pos)
	for depth := r.Depth(); depth >= 1; depth-- {
		if spec := reg.Node(r.Node(depth).Type); spec != nil && spec.InlineContent() {
			return r, depth, true
		}
	}
	return r, 0, false
}

func (c *Chain) selPos() int {
	return clamp(c.sel.From, 0, c.Doc().Size())
}

func (c *Chain) selTextblock() (*doc.ResolvedPos, int, bool) {
	return textblockAt(c.ed.reg, c.Doc(), c.selPos())
}

// setBlockType converts the textblock around the selection to typ, keeping
// its inline content.
func (c *Chain) setBlockType(typ string, attrs map[string]any) *Chain {
	if c.Err() != nil {
		return c
	}
	r, depth, ok := c.selTextblock()
	if !ok {
		return c.fail(errors.New("editor: no text block at selection"))
	}
	block := r.Node(depth)
	if block.Type == typ {
		if len(attrs) == 0 {
			return c
		}
		return c.SetNodeAttributes(r.Before(depth), attrs)
	}
	children := blockContentFor(c.ed.reg, typ, block)
	n, err := c.ed.reg.NewNode(typ, attrs, children...)
	if err != nil {
		return c.fail(fmt.Errorf("set block type: %w", err))
	}
	return c.ReplaceRange(r.Before(depth), r.After(depth), n)
}

// blockContentFor adapts a textblock's inline content to the target type's
// content model. Code blocks only hold unmarked text; converting out of
// one the text nodes carry no marks already.
func blockContentFor(reg *schema.Registry, typ string, block *doc.Node) []*doc.Node {
	spec := reg.Node(typ)
	if spec == nil || !spec.InlineContent() {
		return nil
	}
	if spec.Content == "text*" {
		text := block.TextContent()
		if text == "" {
			return nil
		}
		return []*doc.Node{reg.Text(text)}
	}
	out := make([]*doc.Node, 0, len(block.Children))
	for _, child := range block.Children {
		if child.IsText() || child.Inline {
			out = append(out, child.Clone())
		}
	}
	return out
}

// SetParagraph turns the current textblock into a paragraph.
func (c *Chain) SetParagraph() *Chain { return c.setBlockType("paragraph", nil) }

// SetHeading turns the current textblock into a heading of the given level.
func (c *Chain) SetHeading(level int) *Chain {
	return c.setBlockType("heading", map[string]any{"level": level})
}

// ToggleHeading toggles between a heading of the given level and a
// paragraph.
func (c *Chain) ToggleHeading(level int) *Chain {
	if c.Err() != nil {
		return c
	}
	r, depth, ok := c.selTextblock()
	if ok {
		block := r.Node(depth)
		if block.Type == "heading" && block.IntAttr("level") == level {
			return c.SetParagraph()
		}
	}
	return c.SetHeading(level)
}

// ToggleCodeBlock toggles between a code block and a paragraph.
func (c *Chain) ToggleCodeBlock() *Chain {
	if c.Err() != nil {
		return c
	}
	r, depth, ok := c.selTextblock()
	if ok && r.Node(depth).Type == "codeBlock" {
		return c.SetParagraph()
	}
	return c.setBlockType("codeBlock", nil)
}

// ToggleBulletList wraps the current block in a bullet list, converts an
// enclosing ordered list, or unwraps an enclosing bullet list.
func (c *Chain) ToggleBulletList() *Chain { return c.toggleList("bulletList") }

// ToggleOrderedList is the ordered-list counterpart of ToggleBulletList.
func (c *Chain) ToggleOrderedList() *Chain { return c.toggleList("orderedList") }

func (c *Chain) toggleList(listType string) *Chain {
	if c.Err() != nil {
		return c
	}
	d := c.Doc()
	r := d.Resolve(c.selPos())
	for depth := r.Depth(); depth >= 1; depth-- {
		node := r.Node(depth)
		if node.Type != "bulletList" && node.Type != "orderedList" {
			continue
		}
		if node.Type == listType {
			// Unwrap: the items' blocks replace the list.
			var blocks []*doc.Node
			for _, item := range node.Children {
				for _, b := range item.Children {
					blocks = append(blocks, b.Clone())
				}
			}
			return c.ReplaceRange(r.Before(depth), r.After(depth), blocks...)
		}
		items := make([]*doc.Node, 0, len(node.Children))
		for _, item := range node.Children {
			items = append(items, item.Clone())
		}
		swapped, err := c.ed.reg.NewNode(listType, nil, items...)
		if err != nil {
			return c.fail(err)
		}
		return c.ReplaceRange(r.Before(depth), r.After(depth), swapped)
	}
	if r.Depth() == 0 {
		return c.fail(errors.New("editor: no block at selection"))
	}
	item, err := c.ed.reg.NewNode("listItem", nil, r.Node(1).Clone())
	if err != nil {
		return c.fail(err)
	}
	list, err := c.ed.reg.NewNode(listType, nil, item)
	if err != nil {
		return c.fail(err)
	}
	return c.ReplaceRange(r.Before(1), r.After(1), list)
}

// ToggleBlockquote wraps the current top-level block in a blockquote, or
// unwraps an enclosing one.
func (c *Chain) ToggleBlockquote() *Chain {
	if c.Err() != nil {
		return c
	}
	d := c.Doc()
	r := d.Resolve(c.selPos())
	for depth := r.Depth(); depth >= 1; depth-- {
		node := r.Node(depth)
		if node.Type != "blockquote" {
			continue
		}
		blocks := make([]*doc.Node, 0, len(node.Children))
		for _, b := range node.Children {
			blocks = append(blocks, b.Clone())
		}
		return c.ReplaceRange(r.Before(depth), r.After(depth), blocks...)
	}
	if r.Depth() == 0 {
		return c.fail(errors.New("editor: no block at selection"))
	}
	quote, err := c.ed.reg.NewNode("blockquote", nil, r.Node(1).Clone())
	if err != nil {
		return c.fail(err)
	}
	return c.ReplaceRange(r.Before(1), r.After(1), quote)
}

// insertBlock places block nodes at the top level near the selection. An
// empty paragraph under the caret is replaced instead of kept, which is
// what slash commands rely on after the query text is deleted.
func (c *Chain) insertBlock(nodes ...*doc.Node) *Chain {
	if c.Err() != nil {
		return c
	}
	d := c.Doc()
	r := d.Resolve(c.selPos())
	if r.Depth() == 0 {
		return c.InsertNodesAt(r.Pos, nodes...)
	}
	top := r.Node(1)
	if top.Type == "paragraph" && top.ContentSize() == 0 {
		return c.ReplaceRange(r.Before(1), r.After(1), nodes...)
	}
	return c.InsertNodesAt(r.After(1), nodes...)
}

// InsertBlocks places pre-built block nodes near the selection with the
// same empty-paragraph replacement policy as the other block commands.
func (c *Chain) InsertBlocks(nodes ...*doc.Node) *Chain {
	return c.insertBlock(nodes...)
}

// InsertHorizontalRule inserts a divider after the current block.
func (c *Chain) InsertHorizontalRule() *Chain {
	if c.Err() != nil {
		return c
	}
	hr, err := c.ed.reg.NewNode("horizontalRule", nil)
	if err != nil {
		return c.fail(err)
	}
	return c.insertBlock(hr)
}

// InsertTable inserts a table with the given dimensions. When headerRow is
// set the first row uses header cells.
func (c *Chain) InsertTable(rows, cols int, headerRow bool) *Chain {
	if c.Err() != nil {
		return c
	}
	if rows < 1 || cols < 1 {
		return c.fail(fmt.Errorf("editor: invalid table size %dx%d", rows, cols))
	}
	reg := c.ed.reg
	cell := func(typ string) (*doc.Node, error) {
		para, err := reg.NewNode("paragraph", nil)
		if err != nil {
			return nil, err
		}
		return reg.NewNode(typ, nil, para)
	}
	trs := make([]*doc.Node, 0, rows)
	for ri := 0; ri < rows; ri++ {
		typ := "tableCell"
		if headerRow && ri == 0 {
			typ = "tableHeader"
		}
		cells := make([]*doc.Node, 0, cols)
		for ci := 0; ci < cols; ci++ {
			n, err := cell(typ)
			if err != nil {
				return c.fail(err)
			}
			cells = append(cells, n)
		}
		row, err := reg.NewNode("tableRow", nil, cells...)
		if err != nil {
			return c.fail(err)
		}
		trs = append(trs, row)
	}
	table, err := reg.NewNode("table", nil, trs...)
	if err != nil {
		return c.fail(err)
	}
	return c.insertBlock(table)
}

// InsertFigure inserts an image figure with an empty caption. The src goes
// through the registry's attribute coercion, so an unsafe URL yields a
// figure without an image element rather than a tainted one.
func (c *Chain) InsertFigure(src, alt string) *Chain {
	if c.Err() != nil {
		return c
	}
	reg := c.ed.reg
	caption, err := reg.NewNode("figcaption", nil)
	if err != nil {
		return c.fail(err)
	}
	fig, err := reg.NewNode("figure", map[string]any{"src": src, "alt": alt}, caption)
	if err != nil {
		return c.fail(err)
	}
	return c.insertBlock(fig)
}
