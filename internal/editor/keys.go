package editor

import (
	"unicode"

	"github.com/blockdoc/blockdoc/internal/doc"
)

// Key names for non-printing keys.
const (
	KeyEnter     = "Enter"
	KeyBackspace = "Backspace"
	KeyEscape    = "Escape"
	KeyArrowUp   = "ArrowUp"
	KeyArrowDown = "ArrowDown"
)

// Key is one keyboard event. Printable input carries Rune with an empty
// Name.
type Key struct {
	Name string
	Rune rune
}

// Char builds a printable key event.
func Char(r rune) Key { return Key{Rune: r} }

// HandleKey routes a key event through the slash palette and the editing
// rules. It returns true when the event resulted in a state or document
// change.
func (e *Editor) HandleKey(k Key) bool {
	if e.slash.Show {
		if e.handleSlashKey(k) {
			return true
		}
	}
	switch k.Name {
	case KeyEnter:
		return e.handleEnter()
	case KeyBackspace:
		return e.backspace()
	case KeyEscape:
		e.focused = false
		return true
	case "":
		if k.Rune != 0 {
			return e.handleRune(k.Rune)
		}
	}
	return false
}

// handleSlashKey is the palette's keyboard surface. Navigation and
// execution consume the event; typed characters fall through so the editor
// inserts them, then the query tracks the inserted text.
func (e *Editor) handleSlashKey(k Key) bool {
	switch k.Name {
	case KeyArrowDown:
		if n := len(e.FilteredCommands()); n > 0 && e.slash.SelectedIndex < n-1 {
			e.slash.SelectedIndex++
		}
		return true
	case KeyArrowUp:
		if e.slash.SelectedIndex > 0 {
			e.slash.SelectedIndex--
		}
		return true
	case KeyEnter:
		_ = e.executeSlashCommand()
		return true
	case KeyEscape:
		e.closeSlashMenu()
		return true
	case KeyBackspace:
		handled := e.backspace()
		if _, _, ok := e.slashRange(); !ok {
			// The trigger "/" itself was removed.
			e.closeSlashMenu()
		} else if n := len(e.slash.Query); n > 0 {
			runes := []rune(e.slash.Query)
			e.slash.Query = string(runes[:len(runes)-1])
			e.slash.SelectedIndex = 0
		}
		return handled
	case "":
		if k.Rune != 0 && unicode.IsPrint(k.Rune) {
			if e.insertText(string(k.Rune)) == nil {
				e.slash.Query += string(k.Rune)
				e.slash.SelectedIndex = 0
			}
			return true
		}
	}
	return false
}

func (e *Editor) handleRune(r rune) bool {
	if !unicode.IsPrint(r) {
		return false
	}
	if r == '/' && !e.slash.Show {
		// The keystroke is not consumed: the "/" lands in the document
		// and the palette opens alongside it.
		trigger := e.slashTriggers()
		if e.insertText("/") != nil {
			return false
		}
		if trigger {
			e.openSlashMenu()
		}
		return true
	}
	return e.insertText(string(r)) == nil
}

func (e *Editor) insertText(s string) error {
	ch := e.Chain().Focus()
	if !e.sel.Empty() {
		ch.DeleteRange(e.sel.From, e.sel.To).SetTextSelection(e.sel.From)
	}
	return ch.InsertTextAt(e.sel.From, s).Run()
}

func (e *Editor) backspace() bool {
	if !e.sel.Empty() {
		return e.Chain().DeleteRange(e.sel.From, e.sel.To).SetTextSelection(e.sel.From).Run() == nil
	}
	r := e.document.Resolve(e.sel.From)
	if r.ParentOffset == 0 {
		return false
	}
	return e.Chain().DeleteRange(e.sel.From-1, e.sel.From).Run() == nil
}

// handleEnter splits the current textblock, except inside a figure caption
// where a newline is never allowed: there it moves on to a fresh paragraph
// after the figure.
func (e *Editor) handleEnter() bool {
	d := e.document
	pos := clamp(e.sel.From, 0, d.Size())
	r, depth, ok := textblockAt(e.reg, d, pos)
	if !ok {
		return false
	}
	if r.Node(depth).Type == "figcaption" && depth >= 1 {
		return e.exitFigure(r, depth) == nil
	}
	return e.splitBlock(r, depth) == nil
}

// exitFigure inserts an empty paragraph after the figure enclosing the
// caption and moves the caret into it.
func (e *Editor) exitFigure(r *doc.ResolvedPos, depth int) error {
	after := r.After(depth - 1)
	return e.Chain().
		Focus().
		InsertContentAt(after, NodeSpec{Type: "paragraph"}).
		SetTextSelection(after + 1).
		Run()
}

// splitBlock breaks the textblock at the caret into two blocks of the same
// type. A selection is deleted first.
func (e *Editor) splitBlock(r *doc.ResolvedPos, depth int) error {
	from := r.Pos
	to := clamp(e.sel.To, from, e.document.Size())
	if to > r.End(depth) {
		to = r.End(depth)
	}
	block := r.Node(depth)
	start := r.Start(depth)
	before := block.Cut(0, from-start)
	after := block.Cut(to-start, block.ContentSize())

	reg := e.reg
	first, err := reg.NewNode(block.Type, block.Attrs, before...)
	if err != nil {
		return err
	}
	// The trailing half of a heading continues as a paragraph.
	tailType := block.Type
	if tailType == "heading" {
		tailType = "paragraph"
	}
	second, err := reg.NewNode(tailType, nil, after...)
	if err != nil {
		return err
	}
	blockFrom := r.Before(depth)
	return e.Chain().
		Focus().
		ReplaceRange(blockFrom, r.After(depth), first, second).
		SetTextSelection(blockFrom + first.NodeSize() + 1).
		Run()
}
