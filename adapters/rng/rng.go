package rng

import (
	"context"
	"math/rand"
)

// Seeded implements ports.RNGPort with math/rand sources.
// The same seed always yields the same stream, regardless of name.
type Seeded struct{}

// New returns a seeded RNG adapter
func New() *Seeded {
	return &Seeded{}
}

// SeededStream creates a deterministic random number generator for a named operation
func (s *Seeded) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewSource(seed)), nil
}
