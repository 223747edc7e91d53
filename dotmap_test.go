package dotmap_test

import (
	"testing"

	"github.com/aretw0/dotmap"
	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/aretw0/dotmap/pkg/idgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEditor(opts ...dotmap.Option) *dotmap.Editor {
	base := []dotmap.Option{
		dotmap.WithIDGenerator(idgen.NewSequence("")),
		dotmap.WithInvariantChecks(true),
	}
	return dotmap.New(append(base, opts...)...)
}

func TestEditor_Defaults(t *testing.T) {
	ed := newEditor()

	assert.Equal(t, domain.ModePlace, ed.Mode())
	assert.True(t, ed.CurrentSnapshot().IsEmpty())
	assert.False(t, ed.CanUndo())
	assert.False(t, ed.CanRedo())
	assert.Equal(t, 1, ed.HistoryLen())
	assert.Equal(t, 10.0, ed.HitRadius())
	assert.True(t, ed.ActiveGesture().IsIdle())

	_, ok := ed.SelectedDot()
	assert.False(t, ok)
}

func TestEditor_PlaceAndConnectScenario(t *testing.T) {
	ed := newEditor()

	require.True(t, ed.Click(10, 10))
	require.True(t, ed.Click(100, 10))

	require.True(t, ed.SetMode(domain.ModeConnect), "mode change clears the selection")
	require.True(t, ed.Click(10, 10))
	require.True(t, ed.Click(100, 10))

	snap := ed.CurrentSnapshot()
	require.Len(t, snap.Connections, 1)
	assert.Equal(t, "dot-1", snap.Connections[0].SourceID)
	assert.Equal(t, "dot-2", snap.Connections[0].TargetID)

	// Repeating the same pair adds nothing.
	ed.Click(10, 10)
	ed.Click(100, 10)
	assert.Len(t, ed.CurrentSnapshot().Connections, 1)

	// Neither does the reverse pair.
	ed.Click(100, 10)
	ed.Click(10, 10)
	assert.Len(t, ed.CurrentSnapshot().Connections, 1)
}

func TestEditor_UndoRedoRoundTrip(t *testing.T) {
	ed := newEditor()
	ed.Click(10, 10)
	ed.Click(50, 50)

	before := ed.CurrentSnapshot()
	require.True(t, ed.Undo())
	assert.Len(t, ed.CurrentSnapshot().Dots, 1)
	require.True(t, ed.Redo())
	assert.True(t, before.Equal(ed.CurrentSnapshot()))
}

func TestEditor_CommitAfterUndoDropsRedo(t *testing.T) {
	ed := newEditor()
	ed.Click(10, 10)
	ed.Click(50, 50)
	ed.Undo()
	require.True(t, ed.CanRedo())

	ed.Click(200, 200)
	assert.False(t, ed.CanRedo())
	assert.False(t, ed.Redo())
	assert.Len(t, ed.CurrentSnapshot().Dots, 2)
}

func TestEditor_HistoryEviction(t *testing.T) {
	const limit = 5
	var evictions int
	ed := newEditor(
		dotmap.WithHistoryLimit(limit),
		dotmap.WithLifecycleHooks(domain.LifecycleHooks{
			OnEvict: func(*domain.HistoryEvent) { evictions++ },
		}),
	)

	for i := 0; i < 12; i++ {
		ed.Click(float64(i*30), 0)
		require.LessOrEqual(t, ed.HistoryLen(), limit)
		require.Equal(t, ed.HistoryLen()-1, ed.HistoryCursor())
	}
	assert.Equal(t, limit, ed.HistoryLen())
	assert.Equal(t, 12+1-limit, evictions)

	for ed.Undo() {
	}
	assert.Len(t, ed.CurrentSnapshot().Dots, 12-limit+1, "the oldest reachable state is what survived eviction")
}

func TestEditor_DirectionWrap(t *testing.T) {
	ed := newEditor()
	ed.Click(10, 10)
	dot, ok := ed.SelectedDot()
	require.True(t, ok)

	require.True(t, ed.SetDirection(dot.ID, -10))
	dot, _ = ed.SelectedDot()
	assert.Equal(t, 350, dot.Direction)

	ed.SetDirection(dot.ID, 360)
	dot, _ = ed.SelectedDot()
	assert.Equal(t, 0, dot.Direction)

	assert.False(t, ed.SetDirection("missing", 10))
}

func TestEditor_DragLeftYields180(t *testing.T) {
	ed := newEditor()
	ed.Click(100, 100)
	ed.SetMode(domain.ModeAdjust)

	assert.False(t, ed.PointerDown(100, 100), "pointer down does not commit")
	require.NotNil(t, ed.ActiveGesture().Drag)

	lenBefore := ed.HistoryLen()
	require.True(t, ed.PointerMove(40, 100))
	require.True(t, ed.PointerMove(30, 100))
	assert.Equal(t, lenBefore+2, ed.HistoryLen(), "each move commits")

	dot, ok := ed.CurrentSnapshot().Dot("dot-1")
	require.True(t, ok)
	assert.Equal(t, 180, dot.Direction)

	assert.False(t, ed.PointerUp())
	assert.Nil(t, ed.ActiveGesture().Drag)
	assert.False(t, ed.PointerMove(100, 200))
}

func TestEditor_PointerLeaveCancelsDrag(t *testing.T) {
	ed := newEditor(dotmap.WithMode(domain.ModeAdjust))
	ed.SetMode(domain.ModePlace)
	ed.Click(50, 50)
	ed.SetMode(domain.ModeAdjust)

	ed.PointerDown(50, 50)
	ed.PointerMove(50, 80)
	n := ed.HistoryLen()

	assert.False(t, ed.PointerLeave())
	assert.Equal(t, n, ed.HistoryLen(), "cancellation commits nothing")
	assert.False(t, ed.PointerMove(0, 0))
}

func TestEditor_DeleteSelected(t *testing.T) {
	ed := newEditor()
	ed.Click(10, 10)
	ed.Click(100, 10)
	ed.Click(100, 100)
	ed.SetMode(domain.ModeConnect)
	ed.Click(10, 10)
	ed.Click(100, 10)
	ed.Click(100, 10)
	ed.Click(100, 100)
	require.Len(t, ed.CurrentSnapshot().Connections, 2)

	ed.Select("dot-2")
	require.True(t, ed.DeleteSelected())

	snap := ed.CurrentSnapshot()
	assert.Len(t, snap.Dots, 2)
	assert.Empty(t, snap.Connections, "connections to the deleted dot cascade")
	assert.NoError(t, snap.Validate())
}

func TestEditor_DeleteSelectedNoop(t *testing.T) {
	ed := newEditor()
	ed.Click(10, 10)
	ed.Click(100, 10)
	ed.Click(200, 10)
	ed.SetMode(domain.ModeAdjust)

	n := ed.HistoryLen()
	before := ed.CurrentSnapshot()
	assert.False(t, ed.DeleteSelected())
	assert.Equal(t, n, ed.HistoryLen())
	assert.True(t, before.Equal(ed.CurrentSnapshot()))
}

func TestEditor_ClearAllIsUndoable(t *testing.T) {
	ed := newEditor()
	ed.Click(10, 10)
	ed.Click(100, 10)

	require.True(t, ed.ClearAll())
	assert.True(t, ed.CurrentSnapshot().IsEmpty())

	ed.Undo()
	assert.Len(t, ed.CurrentSnapshot().Dots, 2)
}

func TestEditor_ModeChangeWithoutSelection(t *testing.T) {
	ed := newEditor()
	n := ed.HistoryLen()

	assert.False(t, ed.SetMode(domain.ModeConnect))
	assert.Equal(t, n, ed.HistoryLen())
	assert.Equal(t, domain.ModeConnect, ed.Mode())
}

func TestEditor_Hooks(t *testing.T) {
	var commits, undos, redos []domain.Action
	var modes []domain.Mode

	ed := newEditor(dotmap.WithLifecycleHooks(domain.LifecycleHooks{
		OnCommit:     func(e *domain.HistoryEvent) { commits = append(commits, e.Action) },
		OnUndo:       func(e *domain.HistoryEvent) { undos = append(undos, e.Action) },
		OnRedo:       func(e *domain.HistoryEvent) { redos = append(redos, e.Action) },
		OnModeChange: func(e *domain.ModeEvent) { modes = append(modes, e.To) },
	}))

	ed.Click(1, 1)
	ed.SetMode(domain.ModeAdjust)
	ed.Undo()
	ed.Redo()

	assert.Equal(t, []domain.Action{domain.ActionPlaceDot, domain.ActionDeselect}, commits)
	assert.Equal(t, []domain.Action{domain.ActionUndo}, undos)
	assert.Equal(t, []domain.Action{domain.ActionRedo}, redos)
	assert.Equal(t, []domain.Mode{domain.ModeAdjust}, modes)
}

func TestEditor_Metadata(t *testing.T) {
	ed := newEditor()
	ed.Click(10, 10)
	ed.Click(100, 10)
	ed.SetMode(domain.ModeConnect)
	ed.Click(10, 10)
	ed.Click(100, 10)

	require.True(t, ed.SetDotLabel("dot-1", "Lighthouse"))
	require.True(t, ed.SetDotColor("dot-1", "#3366ff"))

	conn := ed.CurrentSnapshot().Connections[0]
	require.True(t, ed.SetConnectionStyle(conn.ID, "dashed", "#999999", "ferry"))
	assert.False(t, ed.SetConnectionStyle(conn.ID, "zigzag", "", ""))

	snap := ed.CurrentSnapshot()
	d, _ := snap.Dot("dot-1")
	assert.Equal(t, "Lighthouse", d.Label)
	assert.Equal(t, "#3366ff", d.Color)
	c, _ := snap.Connection(conn.ID)
	assert.Equal(t, domain.StyleDashed, c.Style)
	assert.Equal(t, "ferry", c.Label)
}

func TestEditor_EditDot(t *testing.T) {
	ed := newEditor()
	ed.Click(10, 10)
	length := ed.HistoryLen()

	label, color := "Lighthouse", "#3366ff"
	require.True(t, ed.EditDot("dot-1", &label, &color))
	assert.Equal(t, length+1, ed.HistoryLen(), "label and color land in one commit")

	d, _ := ed.CurrentSnapshot().Dot("dot-1")
	assert.Equal(t, "Lighthouse", d.Label)
	assert.Equal(t, "#3366ff", d.Color)

	require.True(t, ed.Undo())
	d, _ = ed.CurrentSnapshot().Dot("dot-1")
	assert.Empty(t, d.Label)
	assert.Empty(t, d.Color)

	assert.False(t, ed.EditDot("dot-1", nil, nil), "empty edit")
	assert.False(t, ed.EditDot("nope", &label, nil), "unknown dot")
}

func TestEditor_Restore(t *testing.T) {
	ed := newEditor()
	ed.Click(10, 10)
	ed.SetMode(domain.ModeConnect)
	ed.Click(10, 10)
	require.NotEmpty(t, ed.ActiveGesture().ConnectionStart)

	snap := domain.Snapshot{
		Dots: []domain.Dot{{ID: "x", X: 5, Y: 5}, {ID: "y", X: 60, Y: 5}},
	}
	require.NoError(t, ed.Restore(snap))
	assert.Equal(t, 1, ed.HistoryLen())
	assert.False(t, ed.CanUndo())
	assert.True(t, ed.ActiveGesture().IsIdle())
	assert.Equal(t, domain.ModeConnect, ed.Mode())
	assert.True(t, snap.Equal(ed.CurrentSnapshot()))

	bad := domain.Snapshot{
		Dots:        []domain.Dot{{ID: "x"}},
		Connections: []domain.Connection{{ID: "c", SourceID: "x", TargetID: "x"}},
	}
	assert.Error(t, ed.Restore(bad))
	assert.True(t, snap.Equal(ed.CurrentSnapshot()), "a rejected restore leaves the editor untouched")
}

func TestEditor_ConnectAnchorSurvivesUndoSafely(t *testing.T) {
	ed := newEditor()
	ed.Click(10, 10)
	ed.Click(100, 10)
	ed.SetMode(domain.ModeConnect)
	ed.Click(100, 10) // anchor on dot-2

	// Undo back to before dot-2 existed.
	for ed.CurrentSnapshot().Stats().Dots > 1 {
		require.True(t, ed.Undo())
	}
	assert.Equal(t, "dot-2", ed.ActiveGesture().ConnectionStart)

	// The stale anchor is replaced rather than producing a dangling connection.
	require.True(t, ed.Click(10, 10))
	assert.Equal(t, "dot-1", ed.ActiveGesture().ConnectionStart)
	assert.Empty(t, ed.CurrentSnapshot().Connections)
}

func TestEditor_SnapshotIsACopy(t *testing.T) {
	ed := newEditor()
	ed.Click(10, 10)

	snap := ed.CurrentSnapshot()
	snap.Dots[0].Direction = 77
	snap.Dots = append(snap.Dots, domain.Dot{ID: "rogue"})

	fresh := ed.CurrentSnapshot()
	assert.Len(t, fresh.Dots, 1)
	assert.Equal(t, 0, fresh.Dots[0].Direction)
}

func TestEditor_Session(t *testing.T) {
	ed := newEditor()
	ed.Click(10, 10)
	ed.SetMode(domain.ModeAdjust)

	s := ed.Session("abc")
	assert.Equal(t, "abc", s.ID)
	assert.Equal(t, domain.ModeAdjust, s.Mode)
	assert.Len(t, s.Snapshot.Dots, 1)
	assert.False(t, s.UpdatedAt.IsZero())
}
