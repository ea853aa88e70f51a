package engine

import (
	"math/rand"
	"time"
)

// RandomSource yields uniform integers in [0, n). *rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}

// NewRandomSource returns a seeded source. A zero seed picks one from the clock.
func NewRandomSource(seed int64) (RandomSource, int64) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed)), seed
}

// ItemSpawner places consumables on uniformly random empty cells
type ItemSpawner struct {
	rng RandomSource
}

// NewItemSpawner creates a spawner drawing from rng
func NewItemSpawner(rng RandomSource) *ItemSpawner {
	return &ItemSpawner{rng: rng}
}

// Spawn sets a random empty cell to kind. When the grid has no empty cell it
// does nothing and reports false.
func (s *ItemSpawner) Spawn(grid *Grid, kind GridCell) (Position, bool) {
	empty := grid.EmptyPositions()
	if len(empty) == 0 {
		return Position{}, false
	}
	pos := empty[s.rng.Intn(len(empty))]
	grid.set(pos, kind)
	return pos, true
}
