package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/aretw0/dotmap/pkg/session"
	"github.com/oapi-codegen/runtime"
)

// Watchable event aspects accepted by the events "watch" query parameter.
const (
	WatchDots        = "dots"
	WatchConnections = "connections"
	WatchMode        = "mode"
	WatchHistory     = "history"
)

// Event is one server-sent update of a session.
type Event struct {
	Diff          *domain.SnapshotDiff `json:"diff,omitempty"`
	Mode          domain.Mode          `json:"mode"`
	ModeChanged   bool                 `json:"mode_changed,omitempty"`
	CanUndo       bool                 `json:"can_undo"`
	CanRedo       bool                 `json:"can_redo"`
	HistoryLength int                  `json:"history_length"`
	HistoryCursor int                  `json:"history_cursor"`
}

// touches reports whether the event concerns any of the watched aspects.
// An empty watch list matches everything.
func (e Event) touches(watch []string) bool {
	if len(watch) == 0 {
		return true
	}
	for _, w := range watch {
		switch w {
		case WatchDots:
			if e.Diff != nil && (len(e.Diff.UpsertedDots) > 0 || len(e.Diff.RemovedDots) > 0 || len(e.Diff.Order) > 0) {
				return true
			}
		case WatchConnections:
			if e.Diff != nil && (len(e.Diff.UpsertedConnections) > 0 || len(e.Diff.RemovedConnections) > 0) {
				return true
			}
		case WatchMode:
			if e.ModeChanged {
				return true
			}
		case WatchHistory:
			return true
		}
	}
	return false
}

// StreamManager fans session events out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan Event]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel for a session. The returned func
// unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan Event, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Event, 16)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan Event]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[sessionID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, sessionID)
				}
			}
		})
	}
}

// Broadcast delivers an event to every subscriber of a session.
func (sm *StreamManager) Broadcast(sessionID string, e Event) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- e:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// Observe turns a session change into an Event. It is registered as a
// session.Manager observer.
func (sm *StreamManager) Observe(_ context.Context, c session.Change) {
	v := c.View
	sm.mu.RLock()
	_, watched := sm.subscribers[c.SessionID]
	sm.mu.RUnlock()
	if !watched {
		return
	}

	sm.Broadcast(c.SessionID, Event{
		Diff:          domain.Diff(c.SessionID, &c.Before, v.Snapshot),
		Mode:          v.Mode,
		ModeChanged:   c.BeforeMode != v.Mode,
		CanUndo:       v.CanUndo,
		CanRedo:       v.CanRedo,
		HistoryLength: v.HistoryLength,
		HistoryCursor: v.HistoryCursor,
	})
}

// SubscribeEvents handles GET /sessions/{id}/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.fail(w, r, fmt.Errorf("streaming not supported"))
		return
	}

	id, err := s.sessionID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var watch []string
	if err := runtime.BindQueryParameter("form", false, false, "watch", r.URL.Query(), &watch); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	for _, aspect := range watch {
		if !slices.Contains([]string{WatchDots, WatchConnections, WatchMode, WatchHistory}, aspect) {
			s.fail(w, r, fmt.Errorf("%w: unknown watch aspect %q", errBadRequest, aspect))
			return
		}
	}

	// Subscribe before loading so no change slips between the two.
	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	view, err := s.Sessions.Load(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// The first event carries the whole canvas.
	initial, _ := json.Marshal(Event{
		Diff:          domain.Diff(id, nil, view.Snapshot),
		Mode:          view.Mode,
		CanUndo:       view.CanUndo,
		CanRedo:       view.CanRedo,
		HistoryLength: view.HistoryLength,
		HistoryCursor: view.HistoryCursor,
	})
	fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", initial)
	flusher.Flush()

	s.logger.Debug("SSE: subscribed", "session_id", id, "watch", watch)
	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE: client disconnected", "session_id", id)
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if !e.touches(watch) {
				continue
			}
			data, err := json.Marshal(e)
			if err != nil {
				s.logger.Error("SSE: encode failed", "session_id", id, "err", err)
				continue
			}
			fmt.Fprintf(w, "event: update\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
