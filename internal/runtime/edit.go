package runtime

import (
	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/aretw0/dotmap/pkg/geometry"
)

// Select selects only dotID, in any mode. Unknown ids are ignored.
func (e *Engine) Select(in domain.Interaction, snap domain.Snapshot, dotID string) Transition {
	if _, ok := snap.Dot(dotID); !ok {
		return stay(in)
	}
	return commit(in, snap.SelectOnly(dotID), domain.ActionSelect)
}

// SetDirection sets the heading of dotID, wrapped into [0, 359].
// Unknown ids are ignored.
func (e *Engine) SetDirection(in domain.Interaction, snap domain.Snapshot, dotID string, degrees int) Transition {
	heading := geometry.WrapDegrees(degrees)
	out, ok := snap.UpdateDot(dotID, func(d *domain.Dot) { d.Direction = heading })
	if !ok {
		return stay(in)
	}
	return commit(in, out, domain.ActionSetDirection)
}

// DeleteSelected removes the selected dot together with its connections.
// Any gesture anchored on that dot is dropped.
func (e *Engine) DeleteSelected(in domain.Interaction, snap domain.Snapshot) Transition {
	sel, ok := snap.Selected()
	if !ok {
		return stay(in)
	}

	next := in
	if next.Gesture.ConnectionStart == sel.ID {
		next.Gesture.ConnectionStart = ""
	}
	if next.Gesture.Drag != nil && next.Gesture.Drag.DotID == sel.ID {
		next.Gesture.Drag = nil
	}

	e.logger.Debug("deleting dot", "dot_id", sel.ID, "connections", len(snap.ConnectionsOf(sel.ID)))
	return commit(next, snap.WithoutDot(sel.ID), domain.ActionDelete)
}

// ClearAll empties the canvas and drops the gesture. It always commits.
func (e *Engine) ClearAll(in domain.Interaction, snap domain.Snapshot) Transition {
	return commit(in.Idle(), domain.EmptySnapshot(), domain.ActionClear)
}

// DotEdit carries optional metadata changes for a dot. Nil fields are left alone.
type DotEdit struct {
	Label *string
	Color *string
}

// EditDot applies metadata changes to dotID. Unknown ids and empty edits are ignored.
func (e *Engine) EditDot(in domain.Interaction, snap domain.Snapshot, dotID string, edit DotEdit) Transition {
	if edit.Label == nil && edit.Color == nil {
		return stay(in)
	}
	out, ok := snap.UpdateDot(dotID, func(d *domain.Dot) {
		if edit.Label != nil {
			d.Label = *edit.Label
		}
		if edit.Color != nil {
			d.Color = *edit.Color
		}
	})
	if !ok {
		return stay(in)
	}
	return commit(in, out, domain.ActionEditDot)
}

// ConnectionEdit carries optional metadata changes for a connection. Nil fields are left alone.
type ConnectionEdit struct {
	Label *string
	Style *domain.ConnectionStyle
	Color *string
}

// EditConnection applies metadata changes to connID. Unknown ids and empty edits are ignored.
func (e *Engine) EditConnection(in domain.Interaction, snap domain.Snapshot, connID string, edit ConnectionEdit) Transition {
	if edit.Label == nil && edit.Style == nil && edit.Color == nil {
		return stay(in)
	}
	out, ok := snap.UpdateConnection(connID, func(c *domain.Connection) {
		if edit.Label != nil {
			c.Label = *edit.Label
		}
		if edit.Style != nil {
			c.Style = *edit.Style
		}
		if edit.Color != nil {
			c.Color = *edit.Color
		}
	})
	if !ok {
		return stay(in)
	}
	return commit(in, out, domain.ActionEditConnection)
}
