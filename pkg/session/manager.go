package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/dotmap"
	"github.com/aretw0/dotmap/internal/logging"
	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/aretw0/dotmap/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed session lock may be held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// live is an editor kept in memory between requests, together with the
// UpdatedAt of the stored session it was built from.
type live struct {
	editor  *dotmap.Editor
	version time.Time
}

// View is what adapters render for a session after every operation.
type View struct {
	ID            string          `json:"id"`
	Mode          domain.Mode     `json:"mode"`
	Snapshot      domain.Snapshot `json:"snapshot"`
	Gesture       domain.Gesture  `json:"gesture"`
	Stats         domain.Stats    `json:"stats"`
	CanUndo       bool            `json:"can_undo"`
	CanRedo       bool            `json:"can_redo"`
	HistoryLength int             `json:"history_length"`
	HistoryCursor int             `json:"history_cursor"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Change is reported to observers after an operation modified a session.
type Change struct {
	SessionID  string
	Before     domain.Snapshot
	BeforeMode domain.Mode
	View       *View
}

// Manager orchestrates session access, ensuring safe concurrent operations.
//
// Each session is served by one in-memory Editor, so undo history survives
// across requests. The stored record stays authoritative: when it was written
// by someone else (another replica) the editor is rebuilt from it and starts
// a fresh history.
type Manager struct {
	store ports.SessionStore

	mu      sync.Mutex            // Guards locks and editors
	locks   map[string]*lockEntry // Per-session mutexes, reference counted
	editors map[string]*live

	locker     ports.DistributedLocker // Optional distributed locker
	lockTTL    time.Duration
	editorOpts []dotmap.Option
	observers  []func(context.Context, Change) // Guarded by mu
	logger     *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithEditorOptions sets the options every session editor is built with.
func WithEditorOptions(opts ...dotmap.Option) Option {
	return func(m *Manager) {
		m.editorOpts = append(m.editorOpts, opts...)
	}
}

// WithObserver registers a callback run, under the session lock, after each
// operation that changed a session.
func WithObserver(fn func(context.Context, Change)) Option {
	return func(m *Manager) {
		m.observers = append(m.observers, fn)
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		editors: make(map[string]*live),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

func (m *Manager) cached(sessionID string) (*live, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.editors[sessionID]
	return l, ok
}

func (m *Manager) remember(sessionID string, l *live) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l == nil {
		delete(m.editors, sessionID)
		return
	}
	m.editors[sessionID] = l
}

// hydrate builds an editor from a stored session.
func (m *Manager) hydrate(stored *domain.Session) (*live, error) {
	opts := append([]dotmap.Option{}, m.editorOpts...)
	opts = append(opts, dotmap.WithMode(stored.Mode))
	ed := dotmap.New(opts...)
	if err := ed.Restore(stored.Snapshot); err != nil {
		return nil, fmt.Errorf("stored session %s is corrupt: %w", stored.ID, err)
	}
	return &live{editor: ed, version: stored.UpdatedAt}, nil
}

// editor returns the live editor for a session, rebuilding it if the stored
// record moved on. Must be called under the session lock.
func (m *Manager) editor(ctx context.Context, sessionID string) (*live, error) {
	stored, err := m.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			m.remember(sessionID, nil)
		}
		return nil, err
	}

	if l, ok := m.cached(sessionID); ok && l.version.Equal(stored.UpdatedAt) {
		return l, nil
	}

	l, err := m.hydrate(stored)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("session hydrated", "session_id", sessionID, "dots", len(stored.Snapshot.Dots))
	m.remember(sessionID, l)
	return l, nil
}

// Start creates an empty session, or returns the existing one.
func (m *Manager) Start(ctx context.Context, sessionID string) (*View, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	var view *View
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		l, err := m.editor(ctx, sessionID)
		if err == nil {
			view = newView(sessionID, l)
			return nil
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check session existence: %w", err)
		}

		ed := dotmap.New(m.editorOpts...)
		record := ed.Session(sessionID)
		if err := m.store.Save(ctx, record); err != nil {
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		l = &live{editor: ed, version: record.UpdatedAt}
		m.remember(sessionID, l)
		view = newView(sessionID, l)
		return nil
	})
	return view, err
}

// Load returns the current view of a session.
func (m *Manager) Load(ctx context.Context, sessionID string) (*View, error) {
	var view *View
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		l, err := m.editor(ctx, sessionID)
		if err != nil {
			return err
		}
		view = newView(sessionID, l)
		return nil
	})
	return view, err
}

// Do runs fn against the session editor and persists the result when the
// mode or the visible snapshot changed.
func (m *Manager) Do(ctx context.Context, sessionID string, fn func(*dotmap.Editor) error) (*View, error) {
	var view *View
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		l, err := m.editor(ctx, sessionID)
		if err != nil {
			return err
		}

		before := l.editor.Session(sessionID)
		if err := fn(l.editor); err != nil {
			return err
		}
		after := l.editor.Session(sessionID)

		if before.Mode != after.Mode || !before.Snapshot.Equal(after.Snapshot) {
			if err := m.store.Save(ctx, after); err != nil {
				// The stored record no longer matches memory; rebuild next time.
				m.remember(sessionID, nil)
				return fmt.Errorf("failed to save session: %w", err)
			}
			l.version = after.UpdatedAt
			view = newView(sessionID, l)
			m.notify(ctx, Change{SessionID: sessionID, Before: before.Snapshot, BeforeMode: before.Mode, View: view})
			return nil
		}

		view = newView(sessionID, l)
		return nil
	})
	return view, err
}

// Observe registers an observer after construction, for adapters built on
// top of an existing Manager.
func (m *Manager) Observe(fn func(context.Context, Change)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

func (m *Manager) notify(ctx context.Context, c Change) {
	m.mu.Lock()
	observers := append([]func(context.Context, Change){}, m.observers...)
	m.mu.Unlock()
	for _, fn := range observers {
		fn(ctx, c)
	}
}

// Delete removes the session from the store and from memory.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.remember(sessionID, nil)
		return m.store.Delete(ctx, sessionID)
	})
}

// Forget drops the in-memory editor of a session; the stored record stays.
func (m *Manager) Forget(sessionID string) {
	m.remember(sessionID, nil)
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Active returns the number of sessions with an editor in memory.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.editors)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

func newView(id string, l *live) *View {
	ed := l.editor
	snap := ed.CurrentSnapshot()
	return &View{
		ID:            id,
		Mode:          ed.Mode(),
		Snapshot:      snap,
		Gesture:       ed.ActiveGesture(),
		Stats:         snap.Stats(),
		CanUndo:       ed.CanUndo(),
		CanRedo:       ed.CanRedo(),
		HistoryLength: ed.HistoryLen(),
		HistoryCursor: ed.HistoryCursor(),
		UpdatedAt:     l.version,
	}
}
