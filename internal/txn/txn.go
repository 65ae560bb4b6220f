// Package txn applies position-addressed edits to a document as atomic
// transactions. Steps are applied eagerly to a private clone of the
// document; nothing is observable outside the transaction until Commit
// validates the result against the schema and hands the new tree back.
// A transaction that is never committed has no effect.
package txn

import (
	"fmt"

	"github.com/blockdoc/blockdoc/internal/doc"
	"github.com/blockdoc/blockdoc/internal/schema"
)

// StepMap describes how one step moved positions: the tokens in
// [From, From+OldSize) were replaced by NewSize tokens.
type StepMap struct {
	From    int
	OldSize int
	NewSize int
}

// Map transforms a position through the step. Positions inside the
// replaced range collapse to its start (assoc < 0) or end (assoc >= 0).
func (m StepMap) Map(pos, assoc int) int {
	if pos < m.From {
		return pos
	}
	if pos >= m.From+m.OldSize {
		return pos + m.NewSize - m.OldSize
	}
	if assoc < 0 {
		return m.From
	}
	return m.From + m.NewSize
}

// Mapping is the composition of the step maps of a transaction, in order.
type Mapping []StepMap

// Map transforms a position captured before the transaction into the
// coordinate space after it.
func (mp Mapping) Map(pos, assoc int) int {
	for _, m := range mp {
		pos = m.Map(pos, assoc)
	}
	return pos
}

// Step is a single structural edit.
type Step interface {
	Apply(reg *schema.Registry, d *doc.Document) (StepMap, error)
}

// ReplaceStep replaces a token range with new content. A zero-length range
// is an insertion; empty content is a deletion.
type ReplaceStep struct {
	From    int
	To      int
	Content []*doc.Node
}

func (s ReplaceStep) Apply(reg *schema.Registry, d *doc.Document) (StepMap, error) {
	if s.From < 0 || s.To > d.Size() || s.From > s.To {
		return StepMap{}, fmt.Errorf("txn: replace range [%d, %d] outside document of size %d", s.From, s.To, d.Size())
	}
	size := 0
	for _, n := range s.Content {
		size += n.NodeSize()
	}
	if err := d.ReplaceRange(s.From, s.To, s.Content); err != nil {
		return StepMap{}, err
	}
	return StepMap{From: s.From, OldSize: s.To - s.From, NewSize: size}, nil
}

// SetAttrsStep replaces the attributes of the node starting at Pos. Values
// run through the node type's coercion rules, so a mutation cannot smuggle
// in an attribute the parse boundary would have rejected. Attributes never
// shift positions.
type SetAttrsStep struct {
	Pos   int
	Attrs map[string]any
}

func (s SetAttrsStep) Apply(reg *schema.Registry, d *doc.Document) (StepMap, error) {
	if s.Pos < 0 || s.Pos > d.Size() {
		return StepMap{}, fmt.Errorf("txn: attrs position %d outside document of size %d", s.Pos, d.Size())
	}
	n := d.NodeAt(s.Pos)
	if n == nil {
		return StepMap{}, fmt.Errorf("txn: no node starts at position %d", s.Pos)
	}
	spec := reg.Node(n.Type)
	if spec == nil {
		return StepMap{}, fmt.Errorf("txn: node type %q not in registry", n.Type)
	}
	merged := make(map[string]any, len(n.Attrs)+len(s.Attrs))
	for k, v := range n.Attrs {
		merged[k] = v
	}
	for k, v := range s.Attrs {
		merged[k] = v
	}
	n.Attrs = spec.CoerceAttrs(merged)
	return StepMap{}, nil
}

// Transaction accumulates steps against a working copy of a document.
type Transaction struct {
	reg     *schema.Registry
	working *doc.Document
	steps   []Step
	mapping Mapping
	err     error
}

// New starts a transaction over a snapshot of the given document. The
// original is never touched.
func New(reg *schema.Registry, base *doc.Document) *Transaction {
	return &Transaction{reg: reg, working: base.Clone()}
}

// Step applies a step to the working copy. Positions are interpreted
// against the working state, i.e. after all previously added steps. The
// first failing step poisons the transaction; later steps are ignored.
func (t *Transaction) Step(s Step) *Transaction {
	if t.err != nil {
		return t
	}
	m, err := s.Apply(t.reg, t.working)
	if err != nil {
		t.err = err
		return t
	}
	t.steps = append(t.steps, s)
	t.mapping = append(t.mapping, m)
	return t
}

// Replace is shorthand for a ReplaceStep.
func (t *Transaction) Replace(from, to int, content ...*doc.Node) *Transaction {
	return t.Step(ReplaceStep{From: from, To: to, Content: content})
}

// Insert is shorthand for a zero-width ReplaceStep.
func (t *Transaction) Insert(pos int, content ...*doc.Node) *Transaction {
	return t.Step(ReplaceStep{From: pos, To: pos, Content: content})
}

// Delete is shorthand for a content-less ReplaceStep.
func (t *Transaction) Delete(from, to int) *Transaction {
	return t.Step(ReplaceStep{From: from, To: to})
}

// SetAttrs is shorthand for a SetAttrsStep.
func (t *Transaction) SetAttrs(pos int, attrs map[string]any) *Transaction {
	return t.Step(SetAttrsStep{Pos: pos, Attrs: attrs})
}

// Doc exposes the working state, for steps that need to inspect the
// document mid-transaction.
func (t *Transaction) Doc() *doc.Document { return t.working }

// Mapping returns the accumulated position mapping.
func (t *Transaction) Mapping() Mapping { return t.mapping }

// StepCount returns the number of successfully applied steps.
func (t *Transaction) StepCount() int { return len(t.steps) }

// Err returns the first step failure, if any.
func (t *Transaction) Err() error { return t.err }

// Commit validates the working document against every touched node's
// content model and returns it. On any error the caller's document is
// unchanged; there is no partial application.
func (t *Transaction) Commit() (*doc.Document, error) {
	if t.err != nil {
		return nil, fmt.Errorf("txn: rejected: %w", t.err)
	}
	if err := t.reg.ValidateDocument(t.working); err != nil {
		return nil, fmt.Errorf("txn: rejected: %w", err)
	}
	return t.working, nil
}
