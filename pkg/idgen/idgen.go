// Package idgen provides the identifier generators used for dots, connections and sessions.
package idgen

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ULID mints lexicographically sortable identifiers. Ids drawn within the same
// millisecond stay strictly increasing. Safe for concurrent use.
type ULID struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewULID returns a ULID generator seeded from crypto/rand.
func NewULID() *ULID {
	return &ULID{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// NewID returns a new lowercase ULID.
func (g *ULID) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String())
}

// Sequence mints "<prefix><n>" with n counting from 1. It is deterministic,
// which makes it the generator of choice in tests and golden files.
type Sequence struct {
	prefix string
	n      atomic.Uint64
}

// NewSequence returns a sequence generator.
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

// NewID returns the next id in the sequence.
func (s *Sequence) NewID() string {
	return fmt.Sprintf("%s%d", s.prefix, s.n.Add(1))
}

// UUID mints random RFC 4122 version 4 identifiers. It is used for session ids
// handed out to network clients.
type UUID struct{}

// NewID returns a new random UUID.
func (UUID) NewID() string {
	return uuid.NewString()
}
