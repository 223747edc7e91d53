package http

import (
	"context"
	"testing"

	"github.com/aretw0/dotmap/internal/logging"
	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/aretw0/dotmap/pkg/session"
	"github.com/stretchr/testify/assert"
)

func TestStreamManager_Unsubscribe(t *testing.T) {
	sm := NewStreamManager(logging.NewNop())
	ch, cancel := sm.Subscribe("s")

	sm.Broadcast("s", Event{Mode: domain.ModePlace})
	assert.Equal(t, domain.ModePlace, (<-ch).Mode)

	cancel()
	cancel() // idempotent
	_, open := <-ch
	assert.False(t, open)
	assert.Empty(t, sm.subscribers)

	// Broadcasting to a session nobody watches is a no-op.
	sm.Broadcast("s", Event{})
}

func TestStreamManager_ObserveSkipsUnwatched(t *testing.T) {
	sm := NewStreamManager(nil)
	ch, cancel := sm.Subscribe("watched")
	defer cancel()

	view := &session.View{Mode: domain.ModeConnect}
	sm.Observe(context.Background(), session.Change{SessionID: "other", BeforeMode: domain.ModePlace, View: view})
	assert.Len(t, ch, 0)

	sm.Observe(context.Background(), session.Change{SessionID: "watched", BeforeMode: domain.ModePlace, View: view})
	e := <-ch
	assert.True(t, e.ModeChanged)
	assert.Nil(t, e.Diff, "nothing on the canvas changed")
}

func TestEvent_Touches(t *testing.T) {
	dots := Event{Diff: &domain.SnapshotDiff{RemovedDots: []string{"a"}}}
	mode := Event{ModeChanged: true, Diff: &domain.SnapshotDiff{}}

	tests := []struct {
		name  string
		event Event
		watch []string
		want  bool
	}{
		{"empty watch", mode, nil, true},
		{"dots on dots", dots, []string{WatchDots}, true},
		{"dots on connections", dots, []string{WatchConnections}, false},
		{"mode on mode", mode, []string{WatchMode}, true},
		{"mode on dots", mode, []string{WatchDots}, false},
		{"history sees all", mode, []string{WatchHistory}, true},
	}
	for _, tt := range tests {
		if got := tt.event.touches(tt.watch); got != tt.want {
			t.Errorf("%s: touches() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
