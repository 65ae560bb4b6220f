// Package interaction translates pointer and selection activity into the
// transient UI around the document: the block drag handle in the left
// gutter, the floating format toolbar, and the contextual table toolbar.
// Controllers here never touch the tree directly; every mutation goes
// through the editor's command chain.
package interaction

// Frame schedules work for the host's next paint. Request returns a handle
// Cancel accepts; a cancelled or fired handle is inert.
type Frame interface {
	Request(fn func()) int
	Cancel(id int)
}

// SyncFrames runs scheduled work immediately. It stands in for a real
// frame clock in tests and in headless hosts.
type SyncFrames struct {
	next int
}

func (s *SyncFrames) Request(fn func()) int {
	s.next++
	fn()
	return s.next
}

func (s *SyncFrames) Cancel(int) {}

// throttle coalesces high-frequency triggers to one callback per frame.
// The latest payload wins.
type throttle[T any] struct {
	frames  Frame
	run     func(T)
	pending bool
	id      int
	payload T
}

func newThrottle[T any](frames Frame, run func(T)) *throttle[T] {
	return &throttle[T]{frames: frames, run: run}
}

func (t *throttle[T]) trigger(v T) {
	t.payload = v
	if t.pending {
		return
	}
	t.pending = true
	t.id = t.frames.Request(func() {
		t.pending = false
		t.run(t.payload)
	})
}

// stop cancels any in-flight frame request. Safe to call repeatedly.
func (t *throttle[T]) stop() {
	if t.pending {
		t.frames.Cancel(t.id)
		t.pending = false
	}
}
