// Package save tracks a document's persistence state: a dirty flag, an
// explicit save trigger, and an autosave timer. A save in flight always
// suppresses a second trigger for the same document until it resolves.
package save

import (
	"context"
	"sync"
	"time"
)

// Status is the save lifecycle state surfaced to the UI.
type Status int

const (
	Idle Status = iota
	Saving
	Saved
	Failed
)

// DefaultAutosaveInterval matches the product's periodic save cadence.
const DefaultAutosaveInterval = 30 * time.Second

// SaveFunc persists serialized content. It is the external collaborator;
// the manager never interprets the payload.
type SaveFunc func(ctx context.Context, content string) error

// Manager owns the save state machine for one document.
type Manager struct {
	content  func() string
	onSave   SaveFunc
	interval time.Duration

	mu          sync.Mutex
	status      Status
	dirty       bool
	saving      bool
	stopped     bool
	lastSavedAt time.Time
	done        chan struct{}
}

// New builds a manager. content supplies the serialized document at save
// time; interval <= 0 takes the default.
func New(content func() string, onSave SaveFunc, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	return &Manager{
		content:  content,
		onSave:   onSave,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// MarkDirty records that the document changed since the last save.
func (m *Manager) MarkDirty() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty = true
}

// Dirty reports whether unsaved changes exist.
func (m *Manager) Dirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty
}

// Status returns the current lifecycle state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// LastSavedAt returns when the last successful save completed, or the
// zero time when nothing has been saved yet.
func (m *Manager) LastSavedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSavedAt
}

// StatusText is the user-facing label for the current state.
func (m *Manager) StatusText() string {
	switch m.Status() {
	case Saving:
		return "Saving..."
	case Saved:
		return "Saved"
	case Failed:
		return "Save failed"
	default:
		return ""
	}
}

// TriggerSave runs one save cycle. A trigger while a save is in flight is
// ignored; the in-flight save's outcome stands for both. The dirty flag
// clears when the save starts, so an edit made during the save marks the
// document dirty again.
func (m *Manager) TriggerSave(ctx context.Context) error {
	m.mu.Lock()
	if m.saving || m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.saving = true
	m.status = Saving
	m.dirty = false
	m.mu.Unlock()

	err := m.onSave(ctx, m.content())

	m.mu.Lock()
	m.saving = false
	if err != nil {
		m.status = Failed
		m.dirty = true
	} else {
		m.status = Saved
		m.lastSavedAt = time.Now()
	}
	m.mu.Unlock()
	return err
}

// StartAutosave runs the periodic save loop until Stop or ctx
// cancellation. The timer only fires a save when the document is dirty
// and no save is in flight.
func (m *Manager) StartAutosave(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.mu.Lock()
				fire := m.dirty && !m.saving && !m.stopped
				m.mu.Unlock()
				if fire {
					_ = m.TriggerSave(ctx)
				}
			case <-m.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop tears the manager down. Further triggers and timer fires are
// no-ops; calling Stop again is safe.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.stopped = true
	close(m.done)
}
