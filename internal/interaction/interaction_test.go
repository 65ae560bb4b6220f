package interaction

import (
	"testing"
	"time"

	"github.com/blockdoc/blockdoc/internal/editor"
	"github.com/blockdoc/blockdoc/internal/sanitize"
	"github.com/blockdoc/blockdoc/internal/schema"
)

// gridLayout maps position n to Top = n*10 and back, with the content
// starting 56px from the left edge.
type gridLayout struct {
	ed *editor.Editor
}

func (g gridLayout) CoordsAtPos(pos int) (editor.Point, bool) {
	return editor.Point{Top: float64(pos) * 10, Left: gutterWidth}, true
}

func (g gridLayout) PosAtCoords(p editor.Point) (int, bool) {
	if p.Left < gutterWidth {
		return 0, false
	}
	pos := int(p.Top / 10)
	if pos < 0 || pos > g.ed.Doc().Size() {
		return 0, false
	}
	return pos, true
}

func (g gridLayout) EditorRect() (float64, float64, float64, float64) {
	return 0, 0, 800, 600
}

func loadEditor(t *testing.T, html string) *editor.Editor {
	t.Helper()
	ed, err := editor.NewFromHTML(schema.New(sanitize.DefaultBase), html)
	if err != nil {
		t.Fatalf("NewFromHTML: %v", err)
	}
	return ed
}

func newHandle(t *testing.T, html string) (*editor.Editor, *BlockHandle) {
	t.Helper()
	ed := loadEditor(t, html)
	h := NewBlockHandle(ed, gridLayout{ed: ed}, &SyncFrames{})
	t.Cleanup(h.Stop)
	return ed, h
}

func TestHandleTracksHoveredBlock(t *testing.T) {
	_, h := newHandle(t, "<p>ab</p><p>cd</p>")
	h.PointerMove(editor.Point{Top: 50, Left: 100}) // position 5, second block
	st := h.State()
	if !st.Visible {
		t.Fatal("handle not visible over a block")
	}
	if st.BlockPos != 4 {
		t.Errorf("block pos = %d, want 4", st.BlockPos)
	}
}

func TestHandleKeptInGutter(t *testing.T) {
	_, h := newHandle(t, "<p>ab</p>")
	h.PointerMove(editor.Point{Top: 10, Left: 100})
	if !h.State().Visible {
		t.Fatal("setup: handle not shown")
	}
	// No position resolves in the gutter, but the handle must survive the
	// pointer travelling toward it.
	h.PointerMove(editor.Point{Top: 10, Left: 20})
	if !h.State().Visible {
		t.Error("handle hidden while crossing the gutter")
	}
	// Outside both content and gutter it hides.
	h.PointerMove(editor.Point{Top: -500, Left: 100})
	if h.State().Visible {
		t.Error("handle still visible with no position under pointer")
	}
}

func TestHandleGraceDelayOnLeave(t *testing.T) {
	_, h := newHandle(t, "<p>ab</p>")
	h.PointerMove(editor.Point{Top: 10, Left: 100})
	h.PointerLeave()
	if !h.State().Visible {
		t.Fatal("handle hidden immediately on leave")
	}
	// Re-entering cancels the pending hide.
	h.PointerMove(editor.Point{Top: 10, Left: 100})
	time.Sleep(hideGraceDelay + 50*time.Millisecond)
	if !h.State().Visible {
		t.Error("cancelled hide still fired")
	}

	h.PointerLeave()
	time.Sleep(hideGraceDelay + 50*time.Millisecond)
	if h.State().Visible {
		t.Error("handle not hidden after grace delay")
	}
}

func TestHandlePositionRemappedAcrossEdits(t *testing.T) {
	ed, h := newHandle(t, "<p>ab</p><p>cd</p>")
	h.PointerMove(editor.Point{Top: 50, Left: 100})
	if h.State().BlockPos != 4 {
		t.Fatalf("setup: block pos = %d", h.State().BlockPos)
	}
	// An insertion before the tracked block shifts it.
	if err := ed.Chain().InsertTextAt(1, "xx").Run(); err != nil {
		t.Fatal(err)
	}
	if got := h.State().BlockPos; got != 6 {
		t.Errorf("block pos after edit = %d, want 6", got)
	}
}

func TestHandleDeleteAndDuplicate(t *testing.T) {
	ed, h := newHandle(t, "<p>ab</p><p>cd</p>")
	h.PointerMove(editor.Point{Top: 0, Left: 100})
	if err := h.DuplicateBlock(); err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if got := ed.HTML(); got != "<p>ab</p><p>ab</p><p>cd</p>" {
		t.Fatalf("HTML after duplicate = %q", got)
	}
	if err := h.DeleteBlock(); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := ed.HTML(); got != "<p>ab</p><p>cd</p>" {
		t.Fatalf("HTML after delete = %q", got)
	}
}

func TestHandleTurnInto(t *testing.T) {
	ed, h := newHandle(t, "<p>title</p>")
	h.PointerMove(editor.Point{Top: 0, Left: 100})
	if err := h.TurnInto("heading", 2); err != nil {
		t.Fatalf("turn into: %v", err)
	}
	if got := ed.HTML(); got != "<h2>title</h2>" {
		t.Fatalf("HTML = %q", got)
	}
	if err := h.TurnInto("marquee", 0); err == nil {
		t.Error("unknown target type accepted")
	}
}

func TestHandleStopIdempotent(t *testing.T) {
	_, h := newHandle(t, "<p>ab</p>")
	h.PointerMove(editor.Point{Top: 10, Left: 100})
	h.PointerLeave()
	h.Stop()
	h.Stop()
	if h.State().Visible {
		t.Error("state not cleared on stop")
	}
	h.PointerMove(editor.Point{Top: 10, Left: 100})
	if h.State().Visible {
		t.Error("stopped controller came back to life")
	}
}

func TestThrottleOneRunPerFrame(t *testing.T) {
	frames := &manualFrames{}
	runs := 0
	var last int
	th := newThrottle(frames, func(v int) { runs++; last = v })
	th.trigger(1)
	th.trigger(2)
	th.trigger(3)
	frames.fire()
	if runs != 1 {
		t.Fatalf("ran %d times for one frame, want 1", runs)
	}
	if last != 3 {
		t.Errorf("ran with payload %d, want latest 3", last)
	}
}

// manualFrames fires queued callbacks only when told to.
type manualFrames struct {
	queue []func()
	next  int
}

func (m *manualFrames) Request(fn func()) int {
	m.queue = append(m.queue, fn)
	m.next++
	return m.next
}

func (m *manualFrames) Cancel(int) {}

func (m *manualFrames) fire() {
	q := m.queue
	m.queue = nil
	for _, fn := range q {
		fn()
	}
}

func TestToolbarAppearsOverSelection(t *testing.T) {
	ed := loadEditor(t, "<p>hello</p>")
	tb := NewToolbars(ed, gridLayout{ed: ed}, &SyncFrames{})
	t.Cleanup(tb.Stop)

	// Empty selection: nothing shown.
	tb.SelectionChanged()
	if tb.State().Visible {
		t.Fatal("toolbar visible with caret selection")
	}

	if err := ed.Chain().Focus().SetSelectionRange(1, 6).Run(); err != nil {
		t.Fatal(err)
	}
	tb.SelectionChanged()
	st := tb.State()
	if !st.Visible {
		t.Fatal("toolbar hidden over selection")
	}
	if st.Top != 1*10-toolbarRaise {
		t.Errorf("top = %v", st.Top)
	}
	if st.Table {
		t.Error("table controls shown outside a table")
	}
}

func TestToolbarTableMode(t *testing.T) {
	ed := loadEditor(t, "<table><tbody><tr><td><p>x</p></td></tr></tbody></table>")
	tb := NewToolbars(ed, gridLayout{ed: ed}, &SyncFrames{})
	t.Cleanup(tb.Stop)

	// Select the cell text: table(1 row(1 cell(1 p(+text)))) puts the text
	// at position 4.
	if err := ed.Chain().Focus().SetSelectionRange(4, 5).Run(); err != nil {
		t.Fatal(err)
	}
	tb.SelectionChanged()
	st := tb.State()
	if !st.Visible || !st.Table {
		t.Fatalf("state = %+v, want visible table toolbar", st)
	}
}
