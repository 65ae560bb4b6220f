// Package editor ties the document, registry and transaction engine into
// the editing surface: a chainable command API, keyboard handling, and the
// slash-command palette. All document mutation funnels through Chain.Run;
// nothing else touches the tree.
package editor

import (
	"fmt"

	"github.com/blockdoc/blockdoc/internal/doc"
	"github.com/blockdoc/blockdoc/internal/markup"
	"github.com/blockdoc/blockdoc/internal/schema"
	"github.com/blockdoc/blockdoc/internal/txn"
)

// Point is a screen coordinate.
type Point struct {
	Top  float64
	Left float64
}

// Layout maps document positions to screen coordinates and back. The host
// rendering surface provides it; a nil layout disables coordinate-derived
// features (menu anchoring, toolbars) without affecting editing.
type Layout interface {
	// CoordsAtPos returns the top-left corner of the caret rectangle at a
	// position.
	CoordsAtPos(pos int) (Point, bool)
	// PosAtCoords resolves the document position under a screen point.
	PosAtCoords(p Point) (int, bool)
	// EditorRect returns the bounding box of the editing surface.
	EditorRect() (top, left, width, height float64)
}

// Selection is a text selection between two positions. From == To is a
// caret.
type Selection struct {
	From int
	To   int
}

// Empty reports whether the selection is a caret.
func (s Selection) Empty() bool { return s.From == s.To }

// Change describes a committed transaction to listeners. Features holding
// positions remap them through Mapping.
type Change struct {
	Mapping txn.Mapping
	Doc     *doc.Document
}

// Editor owns a document and its transient editing state.
type Editor struct {
	reg      *schema.Registry
	parser   *markup.Parser
	renderer *markup.Renderer
	layout   Layout

	document *doc.Document
	sel      Selection
	focused  bool

	// slash is the palette's typed side-state. It is not part of the
	// document; serialization never sees it.
	slash SlashMenu

	commands  []SlashCommand
	listeners []func(Change)
}

// New creates an editor with an empty document (one empty paragraph).
func New(reg *schema.Registry) *Editor {
	para, _ := reg.NewNode("paragraph", nil)
	root, _ := reg.NewNode("doc", nil, para)
	return newEditor(reg, doc.New(root))
}

// NewFromHTML creates an editor from persisted HTML.
func NewFromHTML(reg *schema.Registry, html string) (*Editor, error) {
	d, err := markup.NewParser(reg).ParseDocument(html)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return newEditor(reg, d), nil
}

func newEditor(reg *schema.Registry, d *doc.Document) *Editor {
	return &Editor{
		reg:      reg,
		parser:   markup.NewParser(reg),
		renderer: markup.NewRenderer(reg),
		document: d,
		// The caret starts inside the first block.
		sel:      Selection{From: 1, To: 1},
		commands: DefaultCommands(),
	}
}

// SetLayout attaches the host layout surface.
func (e *Editor) SetLayout(l Layout) { e.layout = l }

// Registry returns the node-type registry the editor was built with.
func (e *Editor) Registry() *schema.Registry { return e.reg }

// Doc returns the current document. Callers must treat it as read-only;
// mutation goes through Chain.
func (e *Editor) Doc() *doc.Document { return e.document }

// Selection returns the current selection.
func (e *Editor) Selection() Selection { return e.sel }

// Focused reports whether the editor has focus.
func (e *Editor) Focused() bool { return e.focused }

// HTML serializes the document to its persisted HTML form.
func (e *Editor) HTML() string { return e.renderer.RenderDocument(e.document) }

// SetContentHTML replaces the document from persisted HTML, resetting the
// selection.
func (e *Editor) SetContentHTML(html string) error {
	d, err := e.parser.ParseDocument(html)
	if err != nil {
		return err
	}
	e.document = d
	e.sel = Selection{From: 1, To: 1}
	e.notify(Change{Doc: d})
	return nil
}

// SetContentMarkdown replaces the document from markdown source.
func (e *Editor) SetContentMarkdown(src []byte) error {
	d, err := e.parser.ParseMarkdown(src)
	if err != nil {
		return err
	}
	e.document = d
	e.sel = Selection{From: 1, To: 1}
	e.notify(Change{Doc: d})
	return nil
}

// OnChange registers a listener called after every committed transaction.
func (e *Editor) OnChange(fn func(Change)) {
	e.listeners = append(e.listeners, fn)
}

func (e *Editor) notify(ch Change) {
	for _, fn := range e.listeners {
		fn(ch)
	}
}

// clampPos confines a position to the document's address space.
func (e *Editor) clampPos(pos int) int {
	if pos < 0 {
		return 0
	}
	if size := e.document.Size(); pos > size {
		return size
	}
	return pos
}

// SlashState returns a copy of the palette state for the UI layer.
func (e *Editor) SlashState() SlashMenu { return e.slash }

// Commands returns the palette's command list in declaration order.
func (e *Editor) Commands() []SlashCommand { return e.commands }

// textBefore returns the runes of the current textblock before the caret.
// Non-text inline leaves (hard breaks) appear as a newline so they count
// one token and break any text run.
func (e *Editor) textBefore() []rune {
	r := e.document.Resolve(e.sel.From)
	var out []rune
	cur := 0
	for _, child := range r.Parent().Children {
		if cur >= r.ParentOffset {
			break
		}
		if child.IsText() {
			runes := []rune(child.Text)
			take := r.ParentOffset - cur
			if take > len(runes) {
				take = len(runes)
			}
			out = append(out, runes[:take]...)
		} else {
			out = append(out, '\n')
		}
		cur += child.NodeSize()
	}
	return out
}
