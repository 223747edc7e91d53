package runtime

import (
	"log/slog"

	"github.com/aretw0/dotmap/internal/logging"
	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/aretw0/dotmap/pkg/geometry"
	"github.com/aretw0/dotmap/pkg/idgen"
	"github.com/aretw0/dotmap/pkg/ports"
)

// Prefixes applied to minted ids.
const (
	DotIDPrefix        = "dot-"
	ConnectionIDPrefix = "conn-"
)

// Transition is the outcome of feeding one event to the engine.
type Transition struct {
	// Next is the interaction to keep for the following event.
	Next domain.Interaction

	// Commit is the snapshot to append to history, or nil when the event
	// does not change the visible state.
	Commit *domain.Snapshot

	// Action names what happened, for logs and metrics.
	Action domain.Action
}

// Committed reports whether the transition carries a snapshot.
func (t Transition) Committed() bool {
	return t.Commit != nil
}

// Engine is the interaction state machine. It holds configuration only:
// every handler receives the current interaction and snapshot and returns a
// Transition, so the same Engine may serve many editors.
type Engine struct {
	ids       ports.IDGenerator
	hitRadius float64
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithIDGenerator sets the source of dot and connection ids.
func WithIDGenerator(gen ports.IDGenerator) EngineOption {
	return func(e *Engine) {
		if gen != nil {
			e.ids = gen
		}
	}
}

// WithHitRadius sets the pointer tolerance around dot centers.
func WithHitRadius(r float64) EngineOption {
	return func(e *Engine) {
		if r >= 0 {
			e.hitRadius = r
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine with a ULID generator and the default hit radius.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		ids:       idgen.NewULID(),
		hitRadius: geometry.DefaultHitRadius,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HitRadius returns the configured pointer tolerance.
func (e *Engine) HitRadius() float64 {
	return e.hitRadius
}

// HitTest returns the dot under p, first in list order.
func (e *Engine) HitTest(snap domain.Snapshot, p geometry.Point) (domain.Dot, bool) {
	return snap.HitTest(p, e.hitRadius)
}

func stay(in domain.Interaction) Transition {
	return Transition{Next: in}
}

func commit(next domain.Interaction, snap domain.Snapshot, action domain.Action) Transition {
	return Transition{Next: next, Commit: &snap, Action: action}
}

// SetMode switches the mode and drops any gesture. A selection, if present,
// is cleared with a commit; otherwise history is left alone.
// An unknown mode is ignored.
func (e *Engine) SetMode(in domain.Interaction, snap domain.Snapshot, mode domain.Mode) Transition {
	if !mode.Valid() {
		e.logger.Debug("ignoring unknown mode", "mode", mode)
		return stay(in)
	}

	next := domain.NewInteraction(mode)
	if !snap.HasSelection() {
		return stay(next)
	}
	return commit(next, snap.Deselected(), domain.ActionDeselect)
}
