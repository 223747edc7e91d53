package domain

import (
	"errors"
	"fmt"
	"slices"

	"github.com/aretw0/dotmap/pkg/geometry"
)

// Snapshot is the complete entity state at one point in time.
//
// Snapshots are values: every method that changes something returns a new
// Snapshot whose slices do not alias the receiver's.
type Snapshot struct {
	Dots        []Dot        `json:"dots"`
	Connections []Connection `json:"connections"`
}

// EmptySnapshot returns a snapshot with no dots and no connections.
func EmptySnapshot() Snapshot {
	return Snapshot{Dots: []Dot{}, Connections: []Connection{}}
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Dots:        make([]Dot, len(s.Dots)),
		Connections: make([]Connection, len(s.Connections)),
	}
	copy(out.Dots, s.Dots)
	copy(out.Connections, s.Connections)
	return out
}

// Equal reports whether both snapshots hold the same dots and connections in the same order.
func (s Snapshot) Equal(o Snapshot) bool {
	return slices.Equal(s.Dots, o.Dots) && slices.Equal(s.Connections, o.Connections)
}

// IsEmpty reports whether the snapshot holds nothing.
func (s Snapshot) IsEmpty() bool {
	return len(s.Dots) == 0 && len(s.Connections) == 0
}

// Dot looks a dot up by id.
func (s Snapshot) Dot(id string) (Dot, bool) {
	i := s.dotIndex(id)
	if i < 0 {
		return Dot{}, false
	}
	return s.Dots[i], true
}

func (s Snapshot) dotIndex(id string) int {
	return slices.IndexFunc(s.Dots, func(d Dot) bool { return d.ID == id })
}

// Connection looks a connection up by id.
func (s Snapshot) Connection(id string) (Connection, bool) {
	i := slices.IndexFunc(s.Connections, func(c Connection) bool { return c.ID == id })
	if i < 0 {
		return Connection{}, false
	}
	return s.Connections[i], true
}

// Selected returns the selected dot, if any.
func (s Snapshot) Selected() (Dot, bool) {
	for _, d := range s.Dots {
		if d.Selected {
			return d, true
		}
	}
	return Dot{}, false
}

// HasSelection reports whether any dot is selected.
func (s Snapshot) HasSelection() bool {
	_, ok := s.Selected()
	return ok
}

// HitTest returns the first dot, in list order, whose center lies within radius of p.
func (s Snapshot) HitTest(p geometry.Point, radius float64) (Dot, bool) {
	for _, d := range s.Dots {
		if geometry.Hits(p, d.Position(), radius) {
			return d, true
		}
	}
	return Dot{}, false
}

// HasConnection reports whether a and b are already linked, in either order.
func (s Snapshot) HasConnection(a, b string) bool {
	return slices.ContainsFunc(s.Connections, func(c Connection) bool { return c.Joins(a, b) })
}

// ConnectionsOf returns the connections touching dotID.
func (s Snapshot) ConnectionsOf(dotID string) []Connection {
	var out []Connection
	for _, c := range s.Connections {
		if c.Touches(dotID) {
			out = append(out, c)
		}
	}
	return out
}

// Deselected returns a copy with every dot unselected.
func (s Snapshot) Deselected() Snapshot {
	out := s.Clone()
	for i := range out.Dots {
		out.Dots[i].Selected = false
	}
	return out
}

// SelectOnly returns a copy where only dotID is selected.
// If dotID is unknown every dot ends up unselected.
func (s Snapshot) SelectOnly(dotID string) Snapshot {
	out := s.Clone()
	for i := range out.Dots {
		out.Dots[i].Selected = out.Dots[i].ID == dotID
	}
	return out
}

// WithDot returns a copy with d appended.
func (s Snapshot) WithDot(d Dot) Snapshot {
	out := s.Clone()
	out.Dots = append(out.Dots, d)
	return out
}

// UpdateDot returns a copy with fn applied to the dot identified by id.
// The boolean is false, and the receiver is returned unchanged, when no such dot exists.
func (s Snapshot) UpdateDot(id string, fn func(*Dot)) (Snapshot, bool) {
	i := s.dotIndex(id)
	if i < 0 {
		return s, false
	}
	out := s.Clone()
	fn(&out.Dots[i])
	return out, true
}

// WithoutDot returns a copy without the dot and without every connection touching it.
func (s Snapshot) WithoutDot(id string) Snapshot {
	out := Snapshot{
		Dots:        make([]Dot, 0, len(s.Dots)),
		Connections: make([]Connection, 0, len(s.Connections)),
	}
	for _, d := range s.Dots {
		if d.ID != id {
			out.Dots = append(out.Dots, d)
		}
	}
	for _, c := range s.Connections {
		if !c.Touches(id) {
			out.Connections = append(out.Connections, c)
		}
	}
	return out
}

// WithConnection returns a copy with c appended. It does not check for duplicates.
func (s Snapshot) WithConnection(c Connection) Snapshot {
	out := s.Clone()
	out.Connections = append(out.Connections, c)
	return out
}

// UpdateConnection returns a copy with fn applied to the connection identified by id.
func (s Snapshot) UpdateConnection(id string, fn func(*Connection)) (Snapshot, bool) {
	i := slices.IndexFunc(s.Connections, func(c Connection) bool { return c.ID == id })
	if i < 0 {
		return s, false
	}
	out := s.Clone()
	fn(&out.Connections[i])
	return out, true
}

// Stats summarizes a snapshot.
type Stats struct {
	Dots        int `json:"dots"`
	Connections int `json:"connections"`
}

// Stats returns the entity counts.
func (s Snapshot) Stats() Stats {
	return Stats{Dots: len(s.Dots), Connections: len(s.Connections)}
}

// Validate checks the structural invariants and returns every violation joined
// into one error, or nil.
func (s Snapshot) Validate() error {
	var errs []error
	fail := func(rule, format string, args ...any) {
		errs = append(errs, &InvariantError{Rule: rule, Detail: fmt.Sprintf(format, args...)})
	}

	dots := make(map[string]struct{}, len(s.Dots))
	selected := 0
	for _, d := range s.Dots {
		if _, dup := dots[d.ID]; dup {
			fail(RuleUniqueID, "dot %q appears twice", d.ID)
		}
		dots[d.ID] = struct{}{}
		if d.Selected {
			selected++
		}
		if d.Direction < 0 || d.Direction >= geometry.FullTurn {
			fail(RuleDirectionRange, "dot %q has direction %d", d.ID, d.Direction)
		}
	}
	if selected > 1 {
		fail(RuleSingleSelection, "%d dots are selected", selected)
	}

	ids := make(map[string]struct{}, len(s.Connections))
	pairs := make(map[string]string, len(s.Connections))
	for _, c := range s.Connections {
		if _, dup := ids[c.ID]; dup {
			fail(RuleUniqueID, "connection %q appears twice", c.ID)
		}
		ids[c.ID] = struct{}{}

		if c.SourceID == c.TargetID {
			fail(RuleSelfConnection, "connection %q links %q to itself", c.ID, c.SourceID)
		}
		for _, end := range []string{c.SourceID, c.TargetID} {
			if _, ok := dots[end]; !ok {
				fail(RuleDanglingReference, "connection %q references missing dot %q", c.ID, end)
			}
		}
		if prev, dup := pairs[c.pairKey()]; dup {
			fail(RuleDuplicateConnection, "connections %q and %q link the same dots", prev, c.ID)
		} else {
			pairs[c.pairKey()] = c.ID
		}
	}

	return errors.Join(errs...)
}
