package txn

import (
	"strings"
	"testing"

	"github.com/blockdoc/blockdoc/internal/doc"
	"github.com/blockdoc/blockdoc/internal/schema"
)

func buildDoc(t *testing.T, reg *schema.Registry, blocks ...*doc.Node) *doc.Document {
	t.Helper()
	root, err := reg.NewNode("doc", nil, blocks...)
	if err != nil {
		t.Fatalf("build doc: %v", err)
	}
	return doc.New(root)
}

func paragraph(t *testing.T, reg *schema.Registry, text string) *doc.Node {
	t.Helper()
	var children []*doc.Node
	if text != "" {
		children = append(children, reg.Text(text))
	}
	p, err := reg.NewNode("paragraph", nil, children...)
	if err != nil {
		t.Fatalf("build paragraph: %v", err)
	}
	return p
}

func TestCommitReplacesRange(t *testing.T) {
	reg := schema.New("")
	d := buildDoc(t, reg, paragraph(t, reg, "/head"))

	out, err := New(reg, d).Delete(1, 5).Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got := out.Root.TextContent(); got != "d" {
		t.Errorf("text after delete = %q, want %q", got, "d")
	}
	// Original untouched.
	if got := d.Root.TextContent(); got != "/head" {
		t.Errorf("original mutated to %q", got)
	}
}

func TestUncommittedTransactionHasNoEffect(t *testing.T) {
	reg := schema.New("")
	d := buildDoc(t, reg, paragraph(t, reg, "abc"))

	tx := New(reg, d)
	tx.Delete(1, 4)
	// No Commit.
	if got := d.Root.TextContent(); got != "abc" {
		t.Errorf("document changed without commit: %q", got)
	}
}

func TestContentModelViolationRejectsWholeTransaction(t *testing.T) {
	reg := schema.New("")
	d := buildDoc(t, reg, paragraph(t, reg, "ab"))

	// A figure node directly containing a paragraph violates its content
	// model (figure accepts exactly one figcaption).
	bad, err := reg.NewNode("figure", nil, paragraph(t, reg, "nope"))
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	_, err = New(reg, d).Insert(4, bad).Commit()
	if err == nil {
		t.Fatal("expected content-model rejection")
	}
	if !strings.Contains(err.Error(), "figure") {
		t.Errorf("error %q does not name the violating node", err)
	}
	if got := d.Root.TextContent(); got != "ab" {
		t.Errorf("rejected transaction mutated document: %q", got)
	}
}

func TestFailingStepPoisonsTransaction(t *testing.T) {
	reg := schema.New("")
	d := buildDoc(t, reg, paragraph(t, reg, "ab"))

	tx := New(reg, d).Delete(100, 200).Insert(0, paragraph(t, reg, "x"))
	if tx.Err() == nil {
		t.Fatal("expected step error")
	}
	if tx.StepCount() != 0 {
		t.Errorf("steps applied after failure: %d", tx.StepCount())
	}
	if _, err := tx.Commit(); err == nil {
		t.Error("poisoned transaction committed")
	}
}

func TestMappingAcrossInsert(t *testing.T) {
	reg := schema.New("")
	d := buildDoc(t, reg, paragraph(t, reg, "ab"), paragraph(t, reg, "cd"))

	tx := New(reg, d).Insert(4, paragraph(t, reg, "xy"))
	if tx.Err() != nil {
		t.Fatalf("insert: %v", tx.Err())
	}
	// Positions before the insert stay put; after it shift by the inserted size (4).
	if got := tx.Mapping().Map(2, 1); got != 2 {
		t.Errorf("Map(2) = %d, want 2", got)
	}
	if got := tx.Mapping().Map(5, 1); got != 9 {
		t.Errorf("Map(5) = %d, want 9", got)
	}
}

func TestMappingInsideDeletedRangeCollapses(t *testing.T) {
	m := Mapping{{From: 2, OldSize: 5, NewSize: 0}}
	if got := m.Map(4, -1); got != 2 {
		t.Errorf("Map(4, -1) = %d, want 2", got)
	}
	if got := m.Map(4, 1); got != 2 {
		t.Errorf("Map(4, 1) = %d, want 2", got)
	}
	if got := m.Map(9, 1); got != 4 {
		t.Errorf("Map(9, 1) = %d, want 4", got)
	}
}

func TestSetAttrsCoercesValues(t *testing.T) {
	reg := schema.New("")
	h, err := reg.NewNode("heading", map[string]any{"level": 2}, reg.Text("Title"))
	if err != nil {
		t.Fatalf("NewNode: %v", err)
	}
	d := buildDoc(t, reg, h)

	out, err := New(reg, d).
		SetAttrs(0, map[string]any{"id": "ok-id", "level": 99}).
		Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	got := out.Root.Child(0)
	if got.StringAttr("id") != "ok-id" {
		t.Errorf("id = %q, want %q", got.StringAttr("id"), "ok-id")
	}
	if got.IntAttr("level") != 6 {
		t.Errorf("level = %d, want clamped 6", got.IntAttr("level"))
	}

	// A hostile id is rejected to the safe default, not stored.
	out2, err := New(reg, out).
		SetAttrs(0, map[string]any{"id": `x" onmouseover="alert(1)`}).
		Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if id := out2.Root.Child(0).StringAttr("id"); id != "" {
		t.Errorf("hostile id stored as %q, want empty", id)
	}
}

func TestSetAttrsDoesNotShiftPositions(t *testing.T) {
	reg := schema.New("")
	h, _ := reg.NewNode("heading", nil, reg.Text("One"))
	d := buildDoc(t, reg, h, paragraph(t, reg, "ab"))

	tx := New(reg, d).SetAttrs(0, map[string]any{"id": "one"})
	if got := tx.Mapping().Map(7, 1); got != 7 {
		t.Errorf("Map(7) = %d, want unchanged 7", got)
	}
}
