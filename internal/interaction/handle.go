package interaction

import (
	"fmt"
	"sync"
	"time"

	"github.com/blockdoc/blockdoc/internal/editor"
)

// gutterWidth is the strip left of the content where the handle lives.
// Pointer positions inside it resolve to no document position, but the
// handle must survive the trip across it.
const gutterWidth = 56.0

// hideGraceDelay keeps the handle alive briefly after the pointer leaves
// the editor, so a click already heading for the handle is not lost.
const hideGraceDelay = 150 * time.Millisecond

// HandleState is the block handle's render state.
type HandleState struct {
	Visible  bool
	BlockPos int
	Top      float64
}

// BlockHandle tracks which top-level block the pointer hovers and exposes
// the block operations the handle menu offers. Position recomputation is
// throttled to one pass per frame.
type BlockHandle struct {
	ed     *editor.Editor
	layout editor.Layout

	mu        sync.Mutex
	state     HandleState
	moves     *throttle[editor.Point]
	hideTimer *time.Timer
	stopped   bool
}

// NewBlockHandle wires a handle controller to an editor. It registers a
// change listener so the tracked block position survives edits elsewhere
// in the document.
func NewBlockHandle(ed *editor.Editor, layout editor.Layout, frames Frame) *BlockHandle {
	h := &BlockHandle{ed: ed, layout: layout}
	h.moves = newThrottle(frames, h.recompute)
	ed.OnChange(func(ch editor.Change) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.state.Visible {
			h.state.BlockPos = ch.Mapping.Map(h.state.BlockPos, -1)
		}
	})
	return h
}

// State returns the current handle state.
func (h *BlockHandle) State() HandleState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// PointerMove feeds a pointer position. The actual recompute runs on the
// next frame.
func (h *BlockHandle) PointerMove(p editor.Point) {
	h.mu.Lock()
	h.cancelHideLocked()
	stopped := h.stopped
	h.mu.Unlock()
	if stopped {
		return
	}
	h.moves.trigger(p)
}

func (h *BlockHandle) recompute(p editor.Point) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	pos, ok := h.layout.PosAtCoords(p)
	if !ok {
		_, left, _, _ := h.layout.EditorRect()
		if p.Left >= left && p.Left < left+gutterWidth {
			// Crossing the gutter toward the handle keeps it up.
			return
		}
		h.state = HandleState{}
		return
	}
	blockPos := topBlockPos(h.ed, pos)
	top := 0.0
	if c, ok := h.layout.CoordsAtPos(blockPos + 1); ok {
		top = c.Top
	}
	h.state = HandleState{Visible: true, BlockPos: blockPos, Top: top}
}

// topBlockPos returns the position before the top-level block containing
// pos.
func topBlockPos(ed *editor.Editor, pos int) int {
	d := ed.Doc()
	if pos < 0 {
		return 0
	}
	if pos > d.Size() {
		pos = d.Size()
	}
	r := d.Resolve(pos)
	if r.Depth() == 0 {
		return pos
	}
	return r.Before(1)
}

// PointerLeave hides the handle after the grace delay.
func (h *BlockHandle) PointerLeave() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped || h.hideTimer != nil {
		return
	}
	h.hideTimer = time.AfterFunc(hideGraceDelay, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.hideTimer = nil
		h.state = HandleState{}
	})
}

func (h *BlockHandle) cancelHideLocked() {
	if h.hideTimer != nil {
		h.hideTimer.Stop()
		h.hideTimer = nil
	}
}

// Stop tears the controller down. Pending frames and timers are cancelled;
// calling Stop again is a no-op.
func (h *BlockHandle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return
	}
	h.stopped = true
	h.cancelHideLocked()
	h.moves.stop()
	h.state = HandleState{}
}

// currentBlock resolves the hovered block's boundaries.
func (h *BlockHandle) currentBlock() (from, to int, err error) {
	h.mu.Lock()
	st := h.state
	h.mu.Unlock()
	if !st.Visible {
		return 0, 0, fmt.Errorf("interaction: no block under handle")
	}
	d := h.ed.Doc()
	node := d.NodeAt(st.BlockPos)
	if node == nil {
		return 0, 0, fmt.Errorf("interaction: stale block position %d", st.BlockPos)
	}
	return st.BlockPos, st.BlockPos + node.NodeSize(), nil
}

// DeleteBlock removes the hovered block.
func (h *BlockHandle) DeleteBlock() error {
	from, to, err := h.currentBlock()
	if err != nil {
		return err
	}
	return h.ed.Chain().Focus().DeleteRange(from, to).Run()
}

// DuplicateBlock inserts a copy of the hovered block right after it.
func (h *BlockHandle) DuplicateBlock() error {
	from, to, err := h.currentBlock()
	if err != nil {
		return err
	}
	clone := h.ed.Doc().NodeAt(from).Clone()
	return h.ed.Chain().Focus().InsertNodesAt(to, clone).Run()
}

// InsertBlockBelow adds an empty paragraph after the hovered block and
// moves the caret into it.
func (h *BlockHandle) InsertBlockBelow() error {
	_, to, err := h.currentBlock()
	if err != nil {
		return err
	}
	return h.ed.Chain().
		Focus().
		InsertContentAt(to, editor.NodeSpec{Type: "paragraph"}).
		SetTextSelection(to + 1).
		Run()
}

// TurnInto converts the hovered block to another type via the matching
// editor command.
func (h *BlockHandle) TurnInto(typ string, level int) error {
	from, _, err := h.currentBlock()
	if err != nil {
		return err
	}
	ch := h.ed.Chain().Focus().SetTextSelection(from + 1)
	switch typ {
	case "paragraph":
		ch.SetParagraph()
	case "heading":
		ch.SetHeading(level)
	case "bulletList":
		ch.ToggleBulletList()
	case "orderedList":
		ch.ToggleOrderedList()
	case "blockquote":
		ch.ToggleBlockquote()
	case "codeBlock":
		ch.ToggleCodeBlock()
	default:
		return fmt.Errorf("interaction: cannot turn block into %q", typ)
	}
	return ch.Run()
}
