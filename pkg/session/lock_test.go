package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/dotmap/pkg/adapters/memory"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 2000

	for i := 0; i < count; i++ {
		sid := fmt.Sprintf("session-%d", i)
		if _, err := mgr.Start(ctx, sid); err != nil {
			t.Fatalf("Start(%s) failed: %v", sid, err)
		}
		if err := mgr.Delete(ctx, sid); err != nil {
			t.Fatalf("Delete(%s) failed: %v", sid, err)
		}
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
	if editors := mgr.Active(); editors != 0 {
		t.Errorf("%d editors remaining in memory after Delete", editors)
	}
}
