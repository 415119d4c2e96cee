package mutation

import (
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces mutation identifiers.
type IDGenerator interface {
	Generate() string
}

// RandomIDGenerator produces random (version 4) UUIDs read from crypto/rand.
//
// Thread-safety: stateless and safe for concurrent use.
type RandomIDGenerator struct{}

// Generate returns a new hyphenated UUIDv4.
// Panics if the system random source fails.
func (RandomIDGenerator) Generate() string {
	return uuid.New().String()
}

// FixedIDGenerator returns predetermined IDs in order, for tests.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator that hands out ids in sequence.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// Generate returns the next predetermined id.
// Panics once every id has been used; a test asked for more records than it set up.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedIDGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
