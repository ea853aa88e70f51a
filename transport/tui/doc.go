// Package tui plays Grid Snake in the terminal with bubbletea.
//
// The model owns a local engine and ticks it every TickIntervalMS. Arrow keys
// or WASD queue turns, p pauses, r restarts and q quits.
//
//	cfg, _ := configs.LoadConfig("classic")
//	err := tui.Run(ctx, cfg)
package tui
