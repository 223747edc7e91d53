package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractSession(id string) *domain.Session {
	s := domain.NewSession(id)
	s.Mode = domain.ModeConnect
	s.Snapshot = domain.Snapshot{
		Dots: []domain.Dot{
			{ID: "a", X: 10.5, Y: 20, Direction: 90, Selected: true, Label: "Alpha"},
			{ID: "b", X: 200, Y: 40, Direction: 359, Color: "#ff0000"},
		},
		Connections: []domain.Connection{
			{ID: "ab", SourceID: "a", TargetID: "b", Style: domain.StyleDashed},
		},
	}
	s.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	return s
}

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		session := contractSession(sessionID)

		err := store.Save(ctx, session)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.ID)
		assert.Equal(t, domain.ModeConnect, loaded.Mode)
		assert.True(t, session.Snapshot.Equal(loaded.Snapshot), "snapshot should survive a round trip")
		assert.True(t, session.UpdatedAt.Equal(loaded.UpdatedAt))
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		session := contractSession(sessionID)
		session.Snapshot = session.Snapshot.WithoutDot("a")
		require.NoError(t, store.Save(ctx, session))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Len(t, loaded.Snapshot.Dots, 1)
		assert.Empty(t, loaded.Snapshot.Connections)
	})

	t.Run("Load Returns Copy", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, contractSession(sessionID)))

		first, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		first.Snapshot.Dots[0].Direction = 1

		second, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, 90, second.Snapshot.Dots[0].Direction)
	})

	t.Run("Sealed Survives", func(t *testing.T) {
		session := domain.NewSession(sessionID)
		session.Sealed = "b3BhcXVl"
		require.NoError(t, store.Save(ctx, session))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "b3BhcXVl", loaded.Sealed)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, domain.NewSession(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "deleting twice should not fail")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, domain.NewSession(id1)))
		require.NoError(t, store.Save(ctx, domain.NewSession(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
