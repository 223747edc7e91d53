package ports

import "github.com/aretw0/dotmap/pkg/domain"

// Editor is the surface a presentation layer drives. Mutating calls report
// whether they changed the visible snapshot.
type Editor interface {
	SetMode(mode domain.Mode) bool
	Click(x, y float64) bool
	PointerDown(x, y float64) bool
	PointerMove(x, y float64) bool
	PointerUp() bool
	PointerLeave() bool
	Select(dotID string) bool
	SetDirection(dotID string, degrees int) bool
	DeleteSelected() bool
	ClearAll() bool
	Undo() bool
	Redo() bool

	Mode() domain.Mode
	CurrentSnapshot() domain.Snapshot
	SelectedDot() (domain.Dot, bool)
	ActiveGesture() domain.Gesture
	CanUndo() bool
	CanRedo() bool
}
