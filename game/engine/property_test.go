package engine

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRandomPlayKeepsInvariants drives many games with random input and
// checks the board after every tick.
func TestRandomPlayKeepsInvariants(t *testing.T) {
	sizes := [][2]int{{1, 4}, {3, 4}, {5, 5}, {6, 9}, {12, 12}}
	input := rand.New(rand.NewSource(2024))

	for game := 0; game < 60; game++ {
		size := sizes[game%len(sizes)]
		e, err := New(size[0], size[1], WithSeed(int64(game+1)))
		require.NoError(t, err)
		requireInvariants(t, e)

		lastScore := 0
		for step := 0; step < 400 && !e.IsGameOver(); step++ {
			for i := input.Intn(4); i > 0; i-- {
				e.RequestDirection(Directions[input.Intn(len(Directions))])
			}
			lengthBefore := e.Len()
			outcome := e.Advance()

			requireInvariants(t, e)
			require.GreaterOrEqual(t, e.Score(), lastScore, "score must never decrease")

			switch outcome {
			case OutcomeMoved:
				require.Equal(t, lengthBefore, e.Len())
				require.Equal(t, lastScore, e.Score())
			case OutcomeFood:
				require.Equal(t, lengthBefore+1, e.Len())
				require.Equal(t, lastScore+FoodScore, e.Score())
			case OutcomeCoin:
				require.Equal(t, lengthBefore+1, e.Len())
				require.Equal(t, lastScore+CoinScore, e.Score())
			case OutcomeCollision:
				require.True(t, e.IsGameOver())
				require.Equal(t, lengthBefore, e.Len())
			default:
				t.Fatalf("unexpected outcome %q while running", outcome)
			}
			lastScore = e.Score()
		}

		if e.IsGameOver() {
			before := e.GetState()
			e.RequestDirection(Directions[input.Intn(len(Directions))])
			assert.Equal(t, OutcomeNoop, e.Advance())
			assert.Equal(t, before.Snake, e.Body())
			assert.Equal(t, before.Score, e.Score())
		}
	}
}

func TestHistoryTimestampsUseClock(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e, err := New(5, 8, WithRandSource(firstSource{}), WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	e.Advance()
	last := e.GetLastTick()
	require.NotNil(t, last)
	assert.Equal(t, fixed.Unix(), last.Timestamp)
	assert.Equal(t, 1, last.Tick)
	assert.Equal(t, Right, last.Direction)
	assert.Equal(t, Position{2, 3}, last.From)
	assert.Equal(t, Position{2, 4}, last.To)
	assert.Equal(t, OutcomeMoved, last.Outcome)
	assert.Equal(t, 3, last.Length)
}
