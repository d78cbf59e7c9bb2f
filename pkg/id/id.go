package id

import (
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator hands out ULID strings (time-sortable identifiers).
//
// Each engine owns its own Generator. The entropy source is a PRNG seeded
// from the caller, so two generators with the same seed fed the same
// timestamps produce the same IDs. That keeps backtest journals
// reproducible between runs.
type Generator struct {
	mu   sync.Mutex
	seed int64
	mono io.Reader
}

// NewGenerator returns a Generator whose entropy is derived from seed.
func NewGenerator(seed int64) *Generator {
	g := &Generator{seed: seed}
	g.Reseed()
	return g
}

// Reseed rewinds the entropy source to its initial state.
func (g *Generator) Reseed() {
	g.mu.Lock()
	defer g.mu.Unlock()

	// ulid.Monotonic keeps IDs generated within the same millisecond
	// lexicographically increasing.
	g.mono = ulid.Monotonic(rand.New(rand.NewSource(g.seed)), 0)
}

// New returns a ULID stamped with t. Times before the Unix epoch (including
// the zero time) are stamped as the epoch.
func (g *Generator) New(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if t.Before(time.Unix(0, 0)) {
		t = time.Unix(0, 0)
	}

	id, err := ulid.New(ulid.Timestamp(t.UTC()), g.mono)
	if err != nil {
		// Only possible if the monotonic entropy overflows within one millisecond.
		panic(err)
	}
	return id.String()
}
