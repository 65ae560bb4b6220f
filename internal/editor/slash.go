package editor

import (
	"strings"
)

// SlashMenu is the palette's state. It lives beside the document, never in
// it, so serialization and undo are unaffected by menu churn.
type SlashMenu struct {
	Show          bool
	Position      Point
	Query         string
	SelectedIndex int
}

// SlashCommand is one palette entry. Apply receives a chain already
// holding the deletion of the "/query" trigger text and queues the
// command's own steps on it.
type SlashCommand struct {
	Title       string
	Description string
	Icon        string
	Apply       func(c *Chain) *Chain
}

// DefaultCommands returns the built-in palette in display order.
func DefaultCommands() []SlashCommand {
	return []SlashCommand{
		{
			Title:       "Text",
			Description: "Plain paragraph text",
			Icon:        "¶",
			Apply:       func(c *Chain) *Chain { return c.SetParagraph() },
		},
		{
			Title:       "Heading 1",
			Description: "Large section heading",
			Icon:        "H1",
			Apply:       func(c *Chain) *Chain { return c.SetHeading(1) },
		},
		{
			Title:       "Heading 2",
			Description: "Medium section heading",
			Icon:        "H2",
			Apply:       func(c *Chain) *Chain { return c.SetHeading(2) },
		},
		{
			Title:       "Heading 3",
			Description: "Small section heading",
			Icon:        "H3",
			Apply:       func(c *Chain) *Chain { return c.SetHeading(3) },
		},
		{
			Title:       "Bullet List",
			Description: "Unordered list with bullets",
			Icon:        "•",
			Apply:       func(c *Chain) *Chain { return c.ToggleBulletList() },
		},
		{
			Title:       "Numbered List",
			Description: "Ordered list with numbers",
			Icon:        "1.",
			Apply:       func(c *Chain) *Chain { return c.ToggleOrderedList() },
		},
		{
			Title:       "Quote",
			Description: "Block quotation",
			Icon:        "❝",
			Apply:       func(c *Chain) *Chain { return c.ToggleBlockquote() },
		},
		{
			Title:       "Code Block",
			Description: "Preformatted code with monospace font",
			Icon:        "{}",
			Apply:       func(c *Chain) *Chain { return c.ToggleCodeBlock() },
		},
		{
			Title:       "Divider",
			Description: "Horizontal rule separator",
			Icon:        "―",
			Apply:       func(c *Chain) *Chain { return c.InsertHorizontalRule() },
		},
		{
			Title:       "Table",
			Description: "Add a simple table",
			Icon:        "⊞",
			Apply:       func(c *Chain) *Chain { return c.InsertTable(3, 3, true) },
		},
	}
}

// FilterCommands returns the commands whose title or description contains
// the query, case-insensitively, preserving declaration order. An empty
// query matches everything.
func FilterCommands(commands []SlashCommand, query string) []SlashCommand {
	if query == "" {
		return commands
	}
	q := strings.ToLower(query)
	var out []SlashCommand
	for _, cmd := range commands {
		if strings.Contains(strings.ToLower(cmd.Title), q) ||
			strings.Contains(strings.ToLower(cmd.Description), q) {
			out = append(out, cmd)
		}
	}
	return out
}

// FilteredCommands applies the current query to the editor's palette.
func (e *Editor) FilteredCommands() []SlashCommand {
	return FilterCommands(e.commands, e.slash.Query)
}

// slashTriggers reports whether a "/" typed at the caret opens the menu:
// only at the start of a textblock or right after whitespace.
func (e *Editor) slashTriggers() bool {
	before := e.textBefore()
	if len(before) == 0 {
		return true
	}
	last := before[len(before)-1]
	return last == ' ' || last == '\t' || last == '\n' || last == ' '
}

func (e *Editor) openSlashMenu() {
	pos := Point{}
	if e.layout != nil {
		if p, ok := e.layout.CoordsAtPos(e.sel.From); ok {
			pos = p
		}
	}
	e.slash = SlashMenu{Show: true, Position: pos}
}

func (e *Editor) closeSlashMenu() {
	e.slash = SlashMenu{}
}

// slashRange returns the document range covering the trigger "/" and the
// query text before the caret, or ok=false when the trigger is gone.
func (e *Editor) slashRange() (from, to int, ok bool) {
	before := e.textBefore()
	idx := -1
	for i := len(before) - 1; i >= 0; i-- {
		if before[i] == '/' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, 0, false
	}
	to = e.sel.From
	from = to - (len(before) - idx)
	return from, to, true
}

// executeSlashCommand runs the highlighted command: one transaction deletes
// the trigger text and applies the command, then the menu closes. With no
// matching commands Enter does nothing and the menu stays open.
func (e *Editor) executeSlashCommand() error {
	filtered := e.FilteredCommands()
	if len(filtered) == 0 {
		return nil
	}
	idx := e.slash.SelectedIndex
	if idx >= len(filtered) {
		idx = len(filtered) - 1
	}
	cmd := filtered[idx]

	ch := e.Chain().Focus()
	if from, to, ok := e.slashRange(); ok {
		ch.DeleteRange(from, to).SetTextSelection(from)
	}
	err := cmd.Apply(ch).Run()
	e.closeSlashMenu()
	return err
}
