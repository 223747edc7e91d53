package runtime

import (
	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/aretw0/dotmap/pkg/geometry"
)

// Click interprets a click at p according to the active mode.
func (e *Engine) Click(in domain.Interaction, snap domain.Snapshot, p geometry.Point) Transition {
	hit, ok := e.HitTest(snap, p)

	switch in.Mode {
	case domain.ModePlace:
		if ok {
			// No stacking on top of an existing dot.
			return stay(in)
		}
		return e.placeDot(in, snap, p)
	case domain.ModeConnect:
		if !ok {
			return stay(in)
		}
		return e.connectTo(in, snap, hit)
	case domain.ModeAdjust:
		if !ok {
			return stay(in)
		}
		return commit(in, snap.SelectOnly(hit.ID), domain.ActionSelect)
	}
	return stay(in)
}

func (e *Engine) placeDot(in domain.Interaction, snap domain.Snapshot, p geometry.Point) Transition {
	dot := domain.Dot{
		ID:        DotIDPrefix + e.ids.NewID(),
		X:         p.X,
		Y:         p.Y,
		Direction: 0,
		Selected:  true,
	}
	e.logger.Debug("placing dot", "dot_id", dot.ID, "x", p.X, "y", p.Y)
	return commit(in, snap.Deselected().WithDot(dot), domain.ActionPlaceDot)
}

func (e *Engine) connectTo(in domain.Interaction, snap domain.Snapshot, target domain.Dot) Transition {
	start := in.Gesture.ConnectionStart
	if start != "" {
		if _, exists := snap.Dot(start); !exists {
			// The anchor vanished (undo, delete); treat this as a first click.
			e.logger.Debug("connection anchor no longer exists", "dot_id", start)
			start = ""
		}
	}

	if start == "" {
		next := in
		next.Gesture.ConnectionStart = target.ID
		return commit(next, snap.SelectOnly(target.ID), domain.ActionConnectStart)
	}

	if start == target.ID {
		// Self-connections are forbidden; keep the anchor armed.
		return stay(in)
	}

	next := in
	next.Gesture.ConnectionStart = ""

	if snap.HasConnection(start, target.ID) {
		e.logger.Debug("connection already exists", "source", start, "target", target.ID)
		return Transition{Next: next, Action: domain.ActionConnectCanceled}
	}

	conn := domain.Connection{
		ID:       ConnectionIDPrefix + e.ids.NewID(),
		SourceID: start,
		TargetID: target.ID,
		Style:    domain.StyleSolid,
	}
	return commit(next, snap.WithConnection(conn).Deselected(), domain.ActionConnect)
}

// PointerDown starts a direction drag when p is over a dot in adjust mode.
// It never commits.
func (e *Engine) PointerDown(in domain.Interaction, snap domain.Snapshot, p geometry.Point) Transition {
	if in.Mode != domain.ModeAdjust {
		return stay(in)
	}
	hit, ok := e.HitTest(snap, p)
	if !ok {
		return stay(in)
	}

	next := in
	next.Gesture.Drag = &domain.Drag{DotID: hit.ID, Origin: hit.Position()}
	return Transition{Next: next, Action: domain.ActionDragStart}
}

// PointerMove points the dragged dot at p and commits. Outside a drag it does nothing.
func (e *Engine) PointerMove(in domain.Interaction, snap domain.Snapshot, p geometry.Point) Transition {
	drag := in.Gesture.Drag
	if in.Mode != domain.ModeAdjust || drag == nil {
		return stay(in)
	}

	dot, ok := snap.Dot(drag.DotID)
	if !ok {
		next := in
		next.Gesture.Drag = nil
		return Transition{Next: next, Action: domain.ActionDragEnd}
	}

	heading := geometry.Heading(dot.Position(), p)
	out, _ := snap.UpdateDot(dot.ID, func(d *domain.Dot) { d.Direction = heading })
	return commit(in, out, domain.ActionRotate)
}

// PointerUp ends a drag without committing.
func (e *Engine) PointerUp(in domain.Interaction, snap domain.Snapshot) Transition {
	if in.Gesture.Drag == nil {
		return stay(in)
	}
	next := in
	next.Gesture.Drag = nil
	return Transition{Next: next, Action: domain.ActionDragEnd}
}

// PointerLeave cancels a drag when the pointer exits the canvas. It behaves like PointerUp.
func (e *Engine) PointerLeave(in domain.Interaction, snap domain.Snapshot) Transition {
	return e.PointerUp(in, snap)
}
