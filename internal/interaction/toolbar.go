package interaction

import (
	"github.com/blockdoc/blockdoc/internal/editor"
)

// Toolbar placement offsets relative to the selection rectangle.
const (
	toolbarRaise     = 45.0
	toolbarHalfWidth = 100.0
)

// ToolbarState describes the floating toolbars for one render pass. Table
// is set when the selection sits inside a table, which swaps in the table
// controls.
type ToolbarState struct {
	Visible bool
	Top     float64
	Left    float64
	Table   bool
}

// Toolbars positions the floating format toolbar above the midpoint of a
// non-empty text selection. Updates are frame-throttled like the block
// handle.
type Toolbars struct {
	ed     *editor.Editor
	layout editor.Layout

	state   ToolbarState
	updates *throttle[struct{}]
	stopped bool
}

func NewToolbars(ed *editor.Editor, layout editor.Layout, frames Frame) *Toolbars {
	t := &Toolbars{ed: ed, layout: layout}
	t.updates = newThrottle(frames, func(struct{}) { t.recompute() })
	return t
}

// State returns the last computed toolbar state.
func (t *Toolbars) State() ToolbarState { return t.state }

// SelectionChanged schedules a reposition on the next frame.
func (t *Toolbars) SelectionChanged() {
	if t.stopped {
		return
	}
	t.updates.trigger(struct{}{})
}

func (t *Toolbars) recompute() {
	if t.stopped {
		return
	}
	sel := t.ed.Selection()
	if sel.Empty() || !t.ed.Focused() {
		t.state = ToolbarState{}
		return
	}
	start, okA := t.layout.CoordsAtPos(sel.From)
	end, okB := t.layout.CoordsAtPos(sel.To)
	if !okA || !okB {
		t.state = ToolbarState{}
		return
	}
	top := start.Top
	if end.Top < top {
		top = end.Top
	}
	t.state = ToolbarState{
		Visible: true,
		Top:     top - toolbarRaise,
		Left:    (start.Left+end.Left)/2 - toolbarHalfWidth,
		Table:   t.selectionInTable(sel),
	}
}

func (t *Toolbars) selectionInTable(sel editor.Selection) bool {
	d := t.ed.Doc()
	pos := sel.From
	if pos > d.Size() {
		return false
	}
	r := d.Resolve(pos)
	for depth := r.Depth(); depth >= 1; depth-- {
		if r.Node(depth).Type == "table" {
			return true
		}
	}
	return false
}

// Stop cancels pending frame work. Idempotent.
func (t *Toolbars) Stop() {
	if t.stopped {
		return
	}
	t.stopped = true
	t.updates.stop()
	t.state = ToolbarState{}
}
