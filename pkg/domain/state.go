package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/dotmap/pkg/geometry"
)

// Mode selects how pointer input is interpreted.
type Mode string

const (
	ModePlace   Mode = "place"   // Clicks on empty canvas create dots
	ModeConnect Mode = "connect" // Clicks on two dots link them
	ModeAdjust  Mode = "adjust"  // Clicks select, drags rotate
)

// Modes lists every mode in toolbar order.
var Modes = []Mode{ModePlace, ModeConnect, ModeAdjust}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModePlace, ModeConnect, ModeAdjust:
		return true
	}
	return false
}

func (m Mode) String() string {
	return string(m)
}

// ParseMode converts a name into a Mode, ignoring case and surrounding spaces.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

// Drag describes an in-progress direction drag.
type Drag struct {
	DotID string `json:"dot_id"`

	// Origin is the dot center captured when the drag began.
	Origin geometry.Point `json:"origin"`
}

// Gesture holds the in-progress, multi-event interaction.
type Gesture struct {
	// ConnectionStart is the anchor dot of a connection being built, or empty.
	ConnectionStart string `json:"connection_start,omitempty"`

	// Drag is non-nil while a direction drag is active.
	Drag *Drag `json:"drag,omitempty"`
}

// IsIdle reports whether no gesture is in progress.
func (g Gesture) IsIdle() bool {
	return g.ConnectionStart == "" && g.Drag == nil
}

// Interaction is the ephemeral editor state passed into and returned from
// every transition. It never enters history.
type Interaction struct {
	Mode    Mode    `json:"mode"`
	Gesture Gesture `json:"gesture"`
}

// NewInteraction returns an idle interaction in the given mode.
func NewInteraction(mode Mode) Interaction {
	return Interaction{Mode: mode}
}

// Idle returns a copy of the interaction with the gesture cleared.
func (in Interaction) Idle() Interaction {
	return Interaction{Mode: in.Mode}
}

// Session is the persisted form of an editor. Only the current snapshot is
// kept; a restored session starts a fresh history timeline.
type Session struct {
	ID        string    `json:"id"`
	Mode      Mode      `json:"mode"`
	Snapshot  Snapshot  `json:"snapshot"`
	UpdatedAt time.Time `json:"updated_at"`

	// Sealed carries the encrypted session when an encrypting store wrapped
	// it. The snapshot of a sealed record is empty.
	Sealed string `json:"sealed,omitempty"`
}

// NewSession returns an empty session in place mode.
func NewSession(id string) *Session {
	return &Session{
		ID:       id,
		Mode:     ModePlace,
		Snapshot: EmptySnapshot(),
	}
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Snapshot = s.Snapshot.Clone()
	return &out
}
