// Package history implements the bounded, linear undo/redo timeline of snapshots.
package history

import "github.com/aretw0/dotmap/pkg/domain"

// DefaultLimit is the number of snapshots kept when no limit is configured.
const DefaultLimit = 50

// Manager owns an ordered, bounded sequence of snapshots and a cursor into it.
// The snapshot under the cursor is the visible state.
//
// Entries live in a ring buffer so evicting the oldest one is O(1).
// Snapshots are copied on the way in and on the way out.
// Manager is not safe for concurrent use.
type Manager struct {
	buf    []domain.Snapshot
	start  int // ring index of the oldest entry
	length int
	cursor int // logical index, 0 <= cursor < length
}

// New returns a manager whose only entry is initial. A limit below 1 selects DefaultLimit.
func New(initial domain.Snapshot, limit int) *Manager {
	if limit < 1 {
		limit = DefaultLimit
	}
	m := &Manager{buf: make([]domain.Snapshot, limit)}
	m.Reset(initial)
	return m
}

func (m *Manager) slot(i int) int {
	return (m.start + i) % len(m.buf)
}

// Commit makes s the new current snapshot. Entries after the cursor are
// discarded first. When the timeline is full the oldest entry is evicted and
// Commit returns true; the cursor still lands on s.
func (m *Manager) Commit(s domain.Snapshot) (evicted bool) {
	for i := m.cursor + 1; i < m.length; i++ {
		m.buf[m.slot(i)] = domain.Snapshot{}
	}
	m.length = m.cursor + 1

	if m.length == len(m.buf) {
		m.buf[m.start] = domain.Snapshot{}
		m.start = m.slot(1)
		m.length--
		evicted = true
	}

	m.buf[m.slot(m.length)] = s.Clone()
	m.length++
	m.cursor = m.length - 1
	return evicted
}

// Undo steps the cursor back. It reports false, and does nothing, at the oldest entry.
func (m *Manager) Undo() bool {
	if !m.CanUndo() {
		return false
	}
	m.cursor--
	return true
}

// Redo steps the cursor forward. It reports false, and does nothing, at the newest entry.
func (m *Manager) Redo() bool {
	if !m.CanRedo() {
		return false
	}
	m.cursor++
	return true
}

// Current returns a copy of the snapshot under the cursor.
func (m *Manager) Current() domain.Snapshot {
	return m.buf[m.slot(m.cursor)].Clone()
}

// At returns a copy of the entry at logical index i (0 is the oldest kept entry).
func (m *Manager) At(i int) (domain.Snapshot, bool) {
	if i < 0 || i >= m.length {
		return domain.Snapshot{}, false
	}
	return m.buf[m.slot(i)].Clone(), true
}

// CanUndo reports whether an older entry exists.
func (m *Manager) CanUndo() bool {
	return m.cursor > 0
}

// CanRedo reports whether a newer entry exists.
func (m *Manager) CanRedo() bool {
	return m.cursor < m.length-1
}

// Len returns the number of kept entries.
func (m *Manager) Len() int {
	return m.length
}

// Cursor returns the logical index of the current entry.
func (m *Manager) Cursor() int {
	return m.cursor
}

// Limit returns the maximum number of kept entries.
func (m *Manager) Limit() int {
	return len(m.buf)
}

// Reset discards the whole timeline and starts a new one holding only s.
func (m *Manager) Reset(s domain.Snapshot) {
	clear(m.buf)
	m.start = 0
	m.buf[0] = s.Clone()
	m.length = 1
	m.cursor = 0
}
