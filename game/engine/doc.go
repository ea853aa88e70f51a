// Package engine provides the core rules of the grid snake game.
//
// The engine package implements the game mechanics including:
//   - A fixed rows x cols grid of cells (empty, snake, food, coin)
//   - The snake body as a ring-buffer deque, head first
//   - A two-slot buffer of direction changes that rejects reversals
//   - Random placement of food and coins on empty cells
//   - The single-tick state machine (move, grow, collide)
//
// Core Types:
//
// SnakeEngine owns all mutable state and implements the Engine interface.
// GameState is a deep-copied snapshot used for rendering and persistence,
// while GameConfig defines board size, seed and messages loaded from JSON.
//
// Usage:
//
//	eng, err := engine.New(20, 20, engine.WithSeed(42))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	eng.RequestDirection(engine.Up)
//	outcome := eng.Advance()
//	state := eng.GetState()
//
// Timing:
//
// The engine never advances on its own. Callers decide when to call Advance
// and must serialise all calls to a single engine.
package engine
