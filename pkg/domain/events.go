package domain

import "time"

// Action names the kind of edit that produced a commit.
type Action string

const (
	ActionNone            Action = ""
	ActionPlaceDot        Action = "place_dot"
	ActionSelect          Action = "select"
	ActionDeselect        Action = "deselect"
	ActionConnectStart    Action = "connect_start"
	ActionConnect         Action = "connect"
	ActionRotate          Action = "rotate"
	ActionSetDirection    Action = "set_direction"
	ActionDelete          Action = "delete"
	ActionClear           Action = "clear"
	ActionEditDot         Action = "edit_dot"
	ActionEditConnection  Action = "edit_connection"
	ActionUndo            Action = "undo"
	ActionRedo            Action = "redo"
	ActionRestore         Action = "restore"
	ActionDragStart       Action = "drag_start"
	ActionDragEnd         Action = "drag_end"
	ActionConnectCanceled Action = "connect_canceled"
)

// EventType defines the category of the event.
type EventType string

const (
	EventCommit     EventType = "commit"
	EventUndo       EventType = "undo"
	EventRedo       EventType = "redo"
	EventEvict      EventType = "evict"
	EventModeChange EventType = "mode_change"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// HistoryEvent reports a change of the visible snapshot.
type HistoryEvent struct {
	EventBase
	Action Action `json:"action,omitempty"`
	Cursor int    `json:"cursor"`
	Length int    `json:"length"`
	Stats  Stats  `json:"stats"`
}

// ModeEvent reports a mode switch.
type ModeEvent struct {
	EventBase
	From Mode `json:"from"`
	To   Mode `json:"to"`
}

// LifecycleHooks defines callbacks for editor observability.
// Every field is optional.
type LifecycleHooks struct {
	OnCommit     func(*HistoryEvent)
	OnUndo       func(*HistoryEvent)
	OnRedo       func(*HistoryEvent)
	OnEvict      func(*HistoryEvent)
	OnModeChange func(*ModeEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnCommit:     chain(h.OnCommit, other.OnCommit),
		OnUndo:       chain(h.OnUndo, other.OnUndo),
		OnRedo:       chain(h.OnRedo, other.OnRedo),
		OnEvict:      chain(h.OnEvict, other.OnEvict),
		OnModeChange: chain(h.OnModeChange, other.OnModeChange),
	}
}

func chain[E any](a, b func(E)) func(E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(e E) {
		a(e)
		b(e)
	}
}
