// Package toc derives stable heading anchors and table-of-contents data.
// The same slug algorithm runs against a live document tree and against
// persisted HTML, and must produce identical ids in both paths so anchors
// generated client-side and server-side agree.
package toc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/blockdoc/blockdoc/internal/doc"
	"github.com/blockdoc/blockdoc/internal/sanitize"
)

var (
	tagPattern      = regexp.MustCompile(`<[^>]*>`)
	entityPattern   = regexp.MustCompile(`&#?[A-Za-z0-9]+;`)
	disallowedRunes = regexp.MustCompile(`[^a-z0-9\s-]`)
	spaceRuns       = regexp.MustCompile(`\s+`)
	hyphenRuns      = regexp.MustCompile(`-+`)
)

// Slugify turns heading text into a URL-safe anchor: tags and entities are
// stripped outright, the rest is lowercased, reduced to [a-z0-9-], and
// hyphen-collapsed. An all-stripped input yields ""; the fallback to
// "heading" belongs to the id-assignment path, not here. The function is
// idempotent.
func Slugify(text string) string {
	s := tagPattern.ReplaceAllString(text, "")
	s = entityPattern.ReplaceAllString(s, "")
	s = strings.ToLower(s)
	s = disallowedRunes.ReplaceAllString(s, "")
	s = spaceRuns.ReplaceAllString(strings.TrimSpace(s), "-")
	s = hyphenRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// assignID reserves a unique id derived from base in used, probing -1, -2,
// ... for the first free suffix. An empty base falls back to "heading".
func assignID(base string, used map[string]bool) string {
	if base == "" {
		base = "heading"
	}
	id := base
	for n := 1; used[id]; n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	used[id] = true
	return id
}

// Heading is one heading occurrence in document order. Pos is the position
// before the heading node; ID is the finalized unique id, which may differ
// from the id currently stored on the node.
type Heading struct {
	Pos   int
	Level int
	Text  string
	ID    string
	// Changed reports whether ID differs from the node's stored id.
	Changed bool
}

// CollectHeadings walks the document and finalizes a unique id for every
// heading: existing ids are kept when free, missing ones are slugified
// from the text, and collisions take the first free -N suffix in document
// order.
func CollectHeadings(d *doc.Document) []Heading {
	var out []Heading
	used := make(map[string]bool)
	d.Descendants(func(n *doc.Node, pos int) bool {
		if n.Type != "heading" {
			return true
		}
		existing := n.StringAttr("id")
		base := existing
		if base == "" {
			base = Slugify(n.TextContent())
		}
		id := assignID(base, used)
		out = append(out, Heading{
			Pos:     pos,
			Level:   n.IntAttr("level"),
			Text:    n.TextContent(),
			ID:      id,
			Changed: id != existing,
		})
		return true
	})
	return out
}

// Items converts finalized headings into TOC entries: levels are
// normalized so the shallowest heading is 0, capped at 3, and text is
// escaped for storage.
func Items(headings []Heading) []doc.TocItem {
	if len(headings) == 0 {
		return nil
	}
	minLevel := headings[0].Level
	for _, h := range headings[1:] {
		if h.Level < minLevel {
			minLevel = h.Level
		}
	}
	items := make([]doc.TocItem, 0, len(headings))
	for _, h := range headings {
		level := h.Level - minLevel
		if level > 3 {
			level = 3
		}
		items = append(items, doc.TocItem{
			Level: level,
			Text:  sanitize.EscapeText(h.Text),
			ID:    h.ID,
		})
	}
	return items
}

// Derive computes the TOC entries for a live document without mutating it.
func Derive(d *doc.Document) []doc.TocItem {
	return Items(CollectHeadings(d))
}
