package dotmap

import (
	"log/slog"
	"time"

	"github.com/aretw0/dotmap/internal/logging"
	"github.com/aretw0/dotmap/internal/runtime"
	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/aretw0/dotmap/pkg/geometry"
	"github.com/aretw0/dotmap/pkg/history"
	"github.com/aretw0/dotmap/pkg/ports"
)

// Editor is the high-level entry point of the library. It binds the
// interaction state machine to the undo history and exposes the operations a
// presentation layer calls.
//
// An Editor is not safe for concurrent use; serialize calls per editor.
type Editor struct {
	runtime     *runtime.Engine
	history     *history.Manager
	interaction domain.Interaction

	historyLimit    int
	hitRadius       float64
	ids             ports.IDGenerator
	hooks           domain.LifecycleHooks
	logger          *slog.Logger
	checkInvariants bool
	now             func() time.Time
}

var _ ports.Editor = (*Editor)(nil)

// Option defines a functional option for configuring the Editor.
type Option func(*Editor)

// WithLogger sets a custom structured logger for the editor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Editor) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithHistoryLimit bounds the undo timeline (default 50 entries).
func WithHistoryLimit(n int) Option {
	return func(e *Editor) {
		e.historyLimit = n
	}
}

// WithHitRadius sets the pointer tolerance around dot centers (default 10).
func WithHitRadius(r float64) Option {
	return func(e *Editor) {
		e.hitRadius = r
	}
}

// WithIDGenerator sets the source of dot and connection ids (default ULID).
func WithIDGenerator(gen ports.IDGenerator) Option {
	return func(e *Editor) {
		e.ids = gen
	}
}

// WithMode sets the initial mode (default place).
func WithMode(mode domain.Mode) Option {
	return func(e *Editor) {
		if mode.Valid() {
			e.interaction.Mode = mode
		}
	}
}

// WithInvariantChecks validates every committed snapshot and panics on a
// violation. Meant for tests and debugging.
func WithInvariantChecks(enabled bool) Option {
	return func(e *Editor) {
		e.checkInvariants = enabled
	}
}

// New initializes an editor holding an empty canvas in place mode.
func New(opts ...Option) *Editor {
	e := &Editor{
		interaction:  domain.NewInteraction(domain.ModePlace),
		historyLimit: history.DefaultLimit,
		hitRadius:    geometry.DefaultHitRadius,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}

	engineOpts := []runtime.EngineOption{
		runtime.WithHitRadius(e.hitRadius),
		runtime.WithLogger(e.logger),
	}
	if e.ids != nil {
		engineOpts = append(engineOpts, runtime.WithIDGenerator(e.ids))
	}
	e.runtime = runtime.NewEngine(engineOpts...)
	e.history = history.New(domain.EmptySnapshot(), e.historyLimit)
	return e
}

// apply stores the next interaction and commits the snapshot, if any.
func (e *Editor) apply(t runtime.Transition) bool {
	prev := e.interaction.Mode
	e.interaction = t.Next
	if prev != t.Next.Mode {
		e.logger.Debug("mode changed", "from", prev, "to", t.Next.Mode)
		if e.hooks.OnModeChange != nil {
			e.hooks.OnModeChange(&domain.ModeEvent{
				EventBase: e.event(domain.EventModeChange),
				From:      prev,
				To:        t.Next.Mode,
			})
		}
	}

	if t.Commit == nil {
		if t.Action != domain.ActionNone {
			e.logger.Debug("gesture updated", "action", t.Action)
		}
		return false
	}

	if e.checkInvariants {
		if err := t.Commit.Validate(); err != nil {
			panic(err)
		}
	}

	evicted := e.history.Commit(*t.Commit)
	e.logger.Debug("snapshot committed",
		"action", t.Action,
		"cursor", e.history.Cursor(),
		"length", e.history.Len(),
		"dots", len(t.Commit.Dots),
		"connections", len(t.Commit.Connections),
	)

	if evicted {
		e.logger.Debug("oldest snapshot evicted", "limit", e.history.Limit())
		e.emit(e.hooks.OnEvict, domain.EventEvict, t.Action, *t.Commit)
	}
	e.emit(e.hooks.OnCommit, domain.EventCommit, t.Action, *t.Commit)
	return true
}

func (e *Editor) event(typ domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: e.now(), Type: typ}
}

func (e *Editor) emit(hook func(*domain.HistoryEvent), typ domain.EventType, action domain.Action, snap domain.Snapshot) {
	if hook == nil {
		return
	}
	hook(&domain.HistoryEvent{
		EventBase: e.event(typ),
		Action:    action,
		Cursor:    e.history.Cursor(),
		Length:    e.history.Len(),
		Stats:     snap.Stats(),
	})
}

// current returns the visible snapshot handed to the runtime.
func (e *Editor) current() domain.Snapshot {
	return e.history.Current()
}

// SetMode switches the interaction mode. Any gesture is dropped and the
// selection is cleared. Reports whether a snapshot was committed.
func (e *Editor) SetMode(mode domain.Mode) bool {
	return e.apply(e.runtime.SetMode(e.interaction, e.current(), mode))
}

// Click handles a click at canvas coordinates (x, y).
func (e *Editor) Click(x, y float64) bool {
	return e.apply(e.runtime.Click(e.interaction, e.current(), geometry.Pt(x, y)))
}

// PointerDown begins a direction drag in adjust mode when (x, y) is over a dot.
func (e *Editor) PointerDown(x, y float64) bool {
	return e.apply(e.runtime.PointerDown(e.interaction, e.current(), geometry.Pt(x, y)))
}

// PointerMove rotates the dragged dot towards (x, y), committing each step.
func (e *Editor) PointerMove(x, y float64) bool {
	return e.apply(e.runtime.PointerMove(e.interaction, e.current(), geometry.Pt(x, y)))
}

// PointerUp ends a drag.
func (e *Editor) PointerUp() bool {
	return e.apply(e.runtime.PointerUp(e.interaction, e.current()))
}

// PointerLeave cancels a drag when the pointer exits the canvas.
func (e *Editor) PointerLeave() bool {
	return e.apply(e.runtime.PointerLeave(e.interaction, e.current()))
}

// Select selects only the given dot.
func (e *Editor) Select(dotID string) bool {
	return e.apply(e.runtime.Select(e.interaction, e.current(), dotID))
}

// SetDirection sets a dot heading; the value wraps modulo 360.
func (e *Editor) SetDirection(dotID string, degrees int) bool {
	return e.apply(e.runtime.SetDirection(e.interaction, e.current(), dotID, degrees))
}

// DeleteSelected removes the selected dot and every connection touching it.
func (e *Editor) DeleteSelected() bool {
	return e.apply(e.runtime.DeleteSelected(e.interaction, e.current()))
}

// ClearAll empties the canvas.
func (e *Editor) ClearAll() bool {
	return e.apply(e.runtime.ClearAll(e.interaction, e.current()))
}

// SetDotLabel sets the label of a dot. An empty label clears it.
func (e *Editor) SetDotLabel(dotID, label string) bool {
	return e.apply(e.runtime.EditDot(e.interaction, e.current(), dotID, runtime.DotEdit{Label: &label}))
}

// SetDotColor sets the color of a dot. An empty color clears it.
func (e *Editor) SetDotColor(dotID, color string) bool {
	return e.apply(e.runtime.EditDot(e.interaction, e.current(), dotID, runtime.DotEdit{Color: &color}))
}

// EditDot changes the label and the color of a dot in one commit. Nil fields
// are left alone; an empty string clears the field.
func (e *Editor) EditDot(dotID string, label, color *string) bool {
	return e.apply(e.runtime.EditDot(e.interaction, e.current(), dotID, runtime.DotEdit{Label: label, Color: color}))
}

// SetConnectionStyle sets the stroke style, color and label of a connection.
// Unknown style names are ignored.
func (e *Editor) SetConnectionStyle(connID, style, color, label string) bool {
	s, err := domain.ParseConnectionStyle(style)
	if err != nil {
		e.logger.Debug("ignoring connection style", "error", err)
		return false
	}
	return e.apply(e.runtime.EditConnection(e.interaction, e.current(), connID, runtime.ConnectionEdit{
		Style: &s,
		Color: &color,
		Label: &label,
	}))
}

// Undo moves back one snapshot. The mode and gesture are left as they are.
func (e *Editor) Undo() bool {
	if !e.history.Undo() {
		return false
	}
	e.logger.Debug("undo", "cursor", e.history.Cursor(), "length", e.history.Len())
	e.emit(e.hooks.OnUndo, domain.EventUndo, domain.ActionUndo, e.history.Current())
	return true
}

// Redo moves forward one snapshot.
func (e *Editor) Redo() bool {
	if !e.history.Redo() {
		return false
	}
	e.logger.Debug("redo", "cursor", e.history.Cursor(), "length", e.history.Len())
	e.emit(e.hooks.OnRedo, domain.EventRedo, domain.ActionRedo, e.history.Current())
	return true
}

// Restore replaces the whole editor state with snap: the history restarts
// with snap as its only entry and the gesture is dropped. The snapshot is
// validated first; on error the editor is left untouched.
func (e *Editor) Restore(snap domain.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	e.history.Reset(snap)
	e.interaction = e.interaction.Idle()
	e.logger.Debug("snapshot restored", "dots", len(snap.Dots), "connections", len(snap.Connections))
	return nil
}

// Mode returns the active interaction mode.
func (e *Editor) Mode() domain.Mode {
	return e.interaction.Mode
}

// CurrentSnapshot returns a copy of the visible snapshot.
func (e *Editor) CurrentSnapshot() domain.Snapshot {
	return e.history.Current()
}

// SelectedDot returns the selected dot, if any.
func (e *Editor) SelectedDot() (domain.Dot, bool) {
	return e.current().Selected()
}

// ActiveGesture returns the in-progress gesture, for visual feedback only.
func (e *Editor) ActiveGesture() domain.Gesture {
	g := e.interaction.Gesture
	if g.Drag != nil {
		d := *g.Drag
		g.Drag = &d
	}
	return g
}

// Interaction returns the mode and gesture together.
func (e *Editor) Interaction() domain.Interaction {
	return domain.Interaction{Mode: e.interaction.Mode, Gesture: e.ActiveGesture()}
}

// CanUndo reports whether Undo would change the visible snapshot.
func (e *Editor) CanUndo() bool {
	return e.history.CanUndo()
}

// CanRedo reports whether Redo would change the visible snapshot.
func (e *Editor) CanRedo() bool {
	return e.history.CanRedo()
}

// HistoryLen returns the number of snapshots kept in the timeline.
func (e *Editor) HistoryLen() int {
	return e.history.Len()
}

// HistoryCursor returns the index of the visible snapshot in the timeline.
func (e *Editor) HistoryCursor() int {
	return e.history.Cursor()
}

// HitRadius returns the pointer tolerance in use.
func (e *Editor) HitRadius() float64 {
	return e.runtime.HitRadius()
}

// Session builds the persistable record of the editor.
func (e *Editor) Session(id string) *domain.Session {
	return &domain.Session{
		ID:        id,
		Mode:      e.interaction.Mode,
		Snapshot:  e.history.Current(),
		UpdatedAt: e.now().UTC(),
	}
}
