package tests

import (
	"testing"

	"github.com/aretw0/dotmap/pkg/ports"
)

// IDGeneratorContractTest is a reusable test suite that verifies if a generator complies with ports.IDGenerator.
func IDGeneratorContractTest(t *testing.T, gen ports.IDGenerator, n int) {
	t.Helper()

	t.Run("NonEmpty", func(t *testing.T) {
		if id := gen.NewID(); id == "" {
			t.Fatal("generator returned an empty id")
		}
	})

	t.Run("Unique", func(t *testing.T) {
		seen := make(map[string]bool, n)
		for i := 0; i < n; i++ {
			id := gen.NewID()
			if seen[id] {
				t.Fatalf("duplicate id %q after %d draws", id, i)
			}
			seen[id] = true
		}
	})
}
