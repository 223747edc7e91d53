package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/dotmap"
	"github.com/aretw0/dotmap/pkg/adapters/memory"
	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/aretw0/dotmap/pkg/idgen"
	"github.com/aretw0/dotmap/pkg/ports"
	"github.com/aretw0/dotmap/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
}

func (s *SlowStore) Save(ctx context.Context, sess *domain.Session) error {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Save(ctx, sess)
}

func (s *SlowStore) Load(ctx context.Context, id string) (*domain.Session, error) {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Load(ctx, id)
}

func newManager(store ports.SessionStore, opts ...session.Option) *session.Manager {
	base := []session.Option{
		session.WithEditorOptions(
			dotmap.WithIDGenerator(idgen.NewSequence("")),
			dotmap.WithInvariantChecks(true),
		),
	}
	return session.NewManager(store, append(base, opts...)...)
}

func TestManager_StartIsIdempotent(t *testing.T) {
	mgr := newManager(&SlowStore{memory.NewStore()})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			view, err := mgr.Start(ctx, "atomic-init")
			assert.NoError(t, err)
			assert.NotNil(t, view)
		}()
	}
	wg.Wait()

	ids, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"atomic-init"}, ids)
}

func TestManager_StartRejectsBadID(t *testing.T) {
	mgr := newManager(memory.NewStore())
	_, err := mgr.Start(context.Background(), "../etc")
	assert.ErrorIs(t, err, domain.ErrInvalidSessionID)
}

func TestManager_DoSerializesEdits(t *testing.T) {
	mgr := newManager(&SlowStore{memory.NewStore()})
	ctx := context.Background()
	_, err := mgr.Start(ctx, "race-test")
	require.NoError(t, err)

	var wg sync.WaitGroup
	const writers = 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := mgr.Do(ctx, "race-test", func(ed *dotmap.Editor) error {
				ed.Click(float64(i*50), 0)
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	view, err := mgr.Load(ctx, "race-test")
	require.NoError(t, err)
	assert.Equal(t, writers, view.Stats.Dots, "no edit may be lost")
	assert.Equal(t, writers+1, view.HistoryLength)
}

func TestManager_HistorySurvivesRequests(t *testing.T) {
	mgr := newManager(memory.NewStore())
	ctx := context.Background()
	_, err := mgr.Start(ctx, "s1")
	require.NoError(t, err)

	_, err = mgr.Do(ctx, "s1", func(ed *dotmap.Editor) error {
		ed.Click(10, 10)
		return nil
	})
	require.NoError(t, err)

	view, err := mgr.Do(ctx, "s1", func(ed *dotmap.Editor) error {
		ed.Undo()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, view.Stats.Dots)
	assert.True(t, view.CanRedo)

	stored, err := mgr.Store().Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, stored.Snapshot.Dots, "undo is written through")
}

func TestManager_RebuildsWhenStoreMovesOn(t *testing.T) {
	store := memory.NewStore()
	mgr := newManager(store)
	ctx := context.Background()
	_, err := mgr.Start(ctx, "shared")
	require.NoError(t, err)
	_, err = mgr.Do(ctx, "shared", func(ed *dotmap.Editor) error {
		ed.Click(10, 10)
		return nil
	})
	require.NoError(t, err)

	// Another replica writes a different snapshot.
	other := domain.NewSession("shared")
	other.Mode = domain.ModeAdjust
	other.Snapshot = domain.Snapshot{Dots: []domain.Dot{{ID: "x", X: 1, Y: 1}, {ID: "y", X: 90, Y: 90}}}
	other.UpdatedAt = time.Now().Add(time.Hour)
	require.NoError(t, store.Save(ctx, other))

	view, err := mgr.Load(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, domain.ModeAdjust, view.Mode)
	assert.Equal(t, 2, view.Stats.Dots)
	assert.False(t, view.CanUndo, "a rebuilt editor starts a fresh history")
}

func TestManager_DoWithoutChangeDoesNotSave(t *testing.T) {
	store := memory.NewStore()
	var changes int
	mgr := newManager(store, session.WithObserver(func(context.Context, session.Change) { changes++ }))
	ctx := context.Background()
	_, err := mgr.Start(ctx, "quiet")
	require.NoError(t, err)

	before, err := store.Load(ctx, "quiet")
	require.NoError(t, err)

	view, err := mgr.Do(ctx, "quiet", func(ed *dotmap.Editor) error {
		ed.DeleteSelected()
		return nil
	})
	require.NoError(t, err)
	assert.NotNil(t, view)
	assert.Equal(t, 0, changes)

	after, err := store.Load(ctx, "quiet")
	require.NoError(t, err)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
}

func TestManager_ObserverSeesBeforeAndAfter(t *testing.T) {
	var got []session.Change
	mgr := newManager(memory.NewStore(), session.WithObserver(func(_ context.Context, c session.Change) {
		got = append(got, c)
	}))
	ctx := context.Background()
	_, err := mgr.Start(ctx, "obs")
	require.NoError(t, err)

	_, err = mgr.Do(ctx, "obs", func(ed *dotmap.Editor) error {
		ed.Click(5, 5)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "obs", got[0].SessionID)
	assert.True(t, got[0].Before.IsEmpty())
	assert.Equal(t, 1, got[0].View.Stats.Dots)
}

func TestManager_DoPropagatesErrors(t *testing.T) {
	mgr := newManager(memory.NewStore())
	ctx := context.Background()

	_, err := mgr.Do(ctx, "missing", func(*dotmap.Editor) error { return nil })
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = mgr.Start(ctx, "s")
	require.NoError(t, err)
	boom := errors.New("boom")
	_, err = mgr.Do(ctx, "s", func(*dotmap.Editor) error { return boom })
	assert.ErrorIs(t, err, boom)
}

type recordingLocker struct {
	mu    sync.Mutex
	keys  []string
	ttl   time.Duration
	freed int
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	l.ttl = ttl
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.freed++
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &recordingLocker{}
	mgr := newManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(5*time.Second))
	ctx := context.Background()

	_, err := mgr.Start(ctx, "dist")
	require.NoError(t, err)
	_, err = mgr.Load(ctx, "dist")
	require.NoError(t, err)

	assert.Equal(t, []string{"dist", "dist"}, locker.keys)
	assert.Equal(t, 5*time.Second, locker.ttl)
	assert.Equal(t, 2, locker.freed)
}
