package toc

import (
	"fmt"
	"strings"

	"github.com/blockdoc/blockdoc/internal/doc"
	"github.com/blockdoc/blockdoc/internal/editor"
)

// PlaceholderText is inserted instead of a TOC block when the document has
// no headings.
const PlaceholderText = "Add headings to build a table of contents."

// InsertBlock materializes a table-of-contents block near the selection.
// Finalized ids are written back onto the heading nodes in the same
// transaction that inserts the block, in reverse document order, so
// anchors and entries can never disagree. An existing TOC block is
// refreshed in place instead of duplicated.
func InsertBlock(ed *editor.Editor) error {
	headings := CollectHeadings(ed.Doc())

	ch := ed.Chain().Focus()
	if len(headings) == 0 {
		return ch.InsertBlocks(placeholder(ed)).Run()
	}

	for i := len(headings) - 1; i >= 0; i-- {
		h := headings[i]
		if h.Changed {
			ch.SetNodeAttributes(h.Pos, map[string]any{"id": h.ID})
		}
	}

	items := Items(headings)
	if pos, ok := existingBlock(ed.Doc()); ok {
		return ch.SetNodeAttributes(pos, map[string]any{"items": items}).Run()
	}
	block, err := ed.Registry().NewNode("tableOfContents", map[string]any{"items": items})
	if err != nil {
		return fmt.Errorf("toc: build block: %w", err)
	}
	return ch.InsertBlocks(block).Run()
}

func placeholder(ed *editor.Editor) *doc.Node {
	para, _ := ed.Registry().NewNode("paragraph", nil, ed.Registry().Text(PlaceholderText))
	return para
}

func existingBlock(d *doc.Document) (int, bool) {
	found := -1
	d.Descendants(func(n *doc.Node, pos int) bool {
		if n.Type == "tableOfContents" {
			found = pos
			return false
		}
		return true
	})
	return found, found >= 0
}

// Scroller scrolls a container to a vertical offset.
type Scroller interface {
	ScrollTo(top float64, smooth bool)
}

// scrollTopOffset keeps the target heading clear of any UI pinned to the
// top of the container.
const scrollTopOffset = 80.0

// Navigator intercepts clicks on in-document anchor links. Container is
// the nearest scrollable editor surface; Window is the fallback used when
// no editor context exists.
type Navigator struct {
	Editor    *editor.Editor
	Layout    editor.Layout
	Container Scroller
	Window    Scroller
}

// Click handles a click on href. It returns true when the click was
// consumed: the caret moves just inside the matching heading and the
// scroll surface brings it into view.
func (nav *Navigator) Click(href string) bool {
	if !strings.HasPrefix(href, "#") || len(href) < 2 {
		return false
	}
	id := strings.TrimPrefix(href, "#")

	if nav.Editor == nil {
		return nav.scrollFallback()
	}
	pos, ok := findHeading(nav.Editor.Doc(), id)
	if !ok {
		return false
	}
	if err := nav.Editor.Chain().Focus().SetTextSelection(pos + 1).Run(); err != nil {
		return false
	}
	if nav.Layout != nil && nav.Container != nil {
		if p, ok := nav.Layout.CoordsAtPos(pos + 1); ok {
			nav.Container.ScrollTo(p.Top-scrollTopOffset, true)
			return true
		}
	}
	return nav.scrollFallback()
}

func (nav *Navigator) scrollFallback() bool {
	if nav.Window == nil {
		return false
	}
	nav.Window.ScrollTo(0, true)
	return true
}

func findHeading(d *doc.Document, id string) (int, bool) {
	found := -1
	d.Descendants(func(n *doc.Node, pos int) bool {
		if n.Type == "heading" && n.StringAttr("id") == id {
			found = pos
			return false
		}
		return true
	})
	return found, found >= 0
}
