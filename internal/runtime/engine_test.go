package runtime

import (
	"testing"

	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/aretw0/dotmap/pkg/geometry"
	"github.com/aretw0/dotmap/pkg/idgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return NewEngine(WithIDGenerator(idgen.NewSequence("")))
}

// apply feeds a transition back into the caller's state the way the editor does.
func apply(t *testing.T, in *domain.Interaction, snap *domain.Snapshot, tr Transition) {
	t.Helper()
	*in = tr.Next
	if tr.Commit != nil {
		require.NoError(t, tr.Commit.Validate())
		*snap = *tr.Commit
	}
}

func TestEngine_PlaceClick(t *testing.T) {
	e := newTestEngine()
	in := domain.NewInteraction(domain.ModePlace)
	snap := domain.EmptySnapshot()

	tr := e.Click(in, snap, geometry.Pt(10, 10))
	require.True(t, tr.Committed())
	assert.Equal(t, domain.ActionPlaceDot, tr.Action)
	apply(t, &in, &snap, tr)

	require.Len(t, snap.Dots, 1)
	d := snap.Dots[0]
	assert.Equal(t, "dot-1", d.ID)
	assert.Equal(t, 10.0, d.X)
	assert.Equal(t, 0, d.Direction)
	assert.True(t, d.Selected)

	apply(t, &in, &snap, e.Click(in, snap, geometry.Pt(100, 100)))
	require.Len(t, snap.Dots, 2)
	sel, ok := snap.Selected()
	require.True(t, ok)
	assert.Equal(t, "dot-2", sel.ID, "the newest dot becomes the selection")
	assert.False(t, snap.Dots[0].Selected)
}

func TestEngine_PlaceClickOnExistingDotIsNoop(t *testing.T) {
	e := newTestEngine()
	in := domain.NewInteraction(domain.ModePlace)
	snap := domain.EmptySnapshot()
	apply(t, &in, &snap, e.Click(in, snap, geometry.Pt(10, 10)))

	tr := e.Click(in, snap, geometry.Pt(15, 12))
	assert.False(t, tr.Committed())
	assert.Equal(t, in, tr.Next)
}

func TestEngine_AdjustClickSelects(t *testing.T) {
	e := newTestEngine()
	snap := domain.Snapshot{Dots: []domain.Dot{
		{ID: "a", X: 0, Y: 0, Selected: true},
		{ID: "b", X: 100, Y: 0},
	}}
	in := domain.NewInteraction(domain.ModeAdjust)

	tr := e.Click(in, snap, geometry.Pt(98, 3))
	require.True(t, tr.Committed())
	sel, ok := tr.Commit.Selected()
	require.True(t, ok)
	assert.Equal(t, "b", sel.ID)

	assert.False(t, e.Click(in, snap, geometry.Pt(50, 50)).Committed(), "click on empty canvas does nothing in adjust mode")
}

func TestEngine_SetMode(t *testing.T) {
	e := newTestEngine()
	selected := domain.Snapshot{Dots: []domain.Dot{{ID: "a", Selected: true}}}
	in := domain.Interaction{
		Mode:    domain.ModeConnect,
		Gesture: domain.Gesture{ConnectionStart: "a"},
	}

	tr := e.SetMode(in, selected, domain.ModeAdjust)
	require.True(t, tr.Committed())
	assert.False(t, tr.Commit.HasSelection())
	assert.Equal(t, domain.ModeAdjust, tr.Next.Mode)
	assert.True(t, tr.Next.Gesture.IsIdle())

	tr = e.SetMode(in, selected.Deselected(), domain.ModePlace)
	assert.False(t, tr.Committed(), "nothing selected means nothing to commit")
	assert.True(t, tr.Next.Gesture.IsIdle(), "gesture is reset unconditionally")

	tr = e.SetMode(in, selected, domain.Mode("draw"))
	assert.False(t, tr.Committed())
	assert.Equal(t, in, tr.Next)
}

func TestEngine_SetDirectionWraps(t *testing.T) {
	e := newTestEngine()
	snap := domain.Snapshot{Dots: []domain.Dot{{ID: "a"}}}
	in := domain.NewInteraction(domain.ModeAdjust)

	tests := []struct {
		in   int
		want int
	}{
		{360, 0},
		{-10, 350},
		{725, 5},
		{359, 359},
	}
	for _, tt := range tests {
		tr := e.SetDirection(in, snap, "a", tt.in)
		require.True(t, tr.Committed())
		d, _ := tr.Commit.Dot("a")
		assert.Equal(t, tt.want, d.Direction, "SetDirection(%d)", tt.in)
	}

	assert.False(t, e.SetDirection(in, snap, "missing", 10).Committed())
}

func TestEngine_DeleteSelectedCascades(t *testing.T) {
	e := newTestEngine()
	snap := domain.Snapshot{
		Dots: []domain.Dot{{ID: "a"}, {ID: "b", Selected: true}, {ID: "c"}},
		Connections: []domain.Connection{
			{ID: "ab", SourceID: "a", TargetID: "b"},
			{ID: "bc", SourceID: "b", TargetID: "c"},
			{ID: "ac", SourceID: "a", TargetID: "c"},
		},
	}
	in := domain.Interaction{
		Mode:    domain.ModeAdjust,
		Gesture: domain.Gesture{Drag: &domain.Drag{DotID: "b"}},
	}

	tr := e.DeleteSelected(in, snap)
	require.True(t, tr.Committed())
	require.NoError(t, tr.Commit.Validate())
	assert.Len(t, tr.Commit.Dots, 2)
	require.Len(t, tr.Commit.Connections, 1)
	assert.Equal(t, "ac", tr.Commit.Connections[0].ID)
	assert.Nil(t, tr.Next.Gesture.Drag, "drag on the deleted dot is dropped")
}

func TestEngine_DeleteSelectedWithoutSelectionIsNoop(t *testing.T) {
	e := newTestEngine()
	snap := domain.Snapshot{Dots: []domain.Dot{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	in := domain.NewInteraction(domain.ModePlace)

	tr := e.DeleteSelected(in, snap)
	assert.False(t, tr.Committed())
	assert.Equal(t, in, tr.Next)
}

func TestEngine_ClearAll(t *testing.T) {
	e := newTestEngine()
	in := domain.Interaction{Mode: domain.ModeConnect, Gesture: domain.Gesture{ConnectionStart: "a"}}

	tr := e.ClearAll(in, domain.Snapshot{Dots: []domain.Dot{{ID: "a"}}})
	require.True(t, tr.Committed())
	assert.True(t, tr.Commit.IsEmpty())
	assert.Equal(t, domain.ModeConnect, tr.Next.Mode)
	assert.True(t, tr.Next.Gesture.IsIdle())

	assert.True(t, e.ClearAll(in, domain.EmptySnapshot()).Committed(), "clear always commits")
}

func TestEngine_Select(t *testing.T) {
	e := newTestEngine()
	snap := domain.Snapshot{Dots: []domain.Dot{{ID: "a", Selected: true}, {ID: "b"}}}
	in := domain.NewInteraction(domain.ModePlace)

	tr := e.Select(in, snap, "b")
	require.True(t, tr.Committed())
	sel, _ := tr.Commit.Selected()
	assert.Equal(t, "b", sel.ID)

	assert.False(t, e.Select(in, snap, "nope").Committed())
}

func TestEngine_EditMetadata(t *testing.T) {
	e := newTestEngine()
	snap := domain.Snapshot{
		Dots:        []domain.Dot{{ID: "a"}, {ID: "b"}},
		Connections: []domain.Connection{{ID: "ab", SourceID: "a", TargetID: "b", Style: domain.StyleSolid}},
	}
	in := domain.NewInteraction(domain.ModePlace)

	label := "Harbor"
	tr := e.EditDot(in, snap, "a", DotEdit{Label: &label})
	require.True(t, tr.Committed())
	d, _ := tr.Commit.Dot("a")
	assert.Equal(t, "Harbor", d.Label)
	assert.Empty(t, d.Color)

	style := domain.StyleDotted
	tr = e.EditConnection(in, snap, "ab", ConnectionEdit{Style: &style})
	require.True(t, tr.Committed())
	c, _ := tr.Commit.Connection("ab")
	assert.Equal(t, domain.StyleDotted, c.Style)

	assert.False(t, e.EditDot(in, snap, "a", DotEdit{}).Committed())
	assert.False(t, e.EditConnection(in, snap, "zz", ConnectionEdit{Style: &style}).Committed())
}

func TestEngine_HitRadiusOption(t *testing.T) {
	e := NewEngine(WithHitRadius(2))
	snap := domain.Snapshot{Dots: []domain.Dot{{ID: "a"}}}

	_, ok := e.HitTest(snap, geometry.Pt(3, 0))
	assert.False(t, ok)
	_, ok = e.HitTest(snap, geometry.Pt(2, 0))
	assert.True(t, ok)
	assert.Equal(t, 2.0, e.HitRadius())
}
