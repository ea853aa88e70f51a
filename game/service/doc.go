// Package service provides the business logic layer for the snake game server.
//
// The service package implements:
//   - Multi-session game management
//   - Configuration lookup by config ID
//   - Direction buffering and bulk tick execution
//   - Paginated tick history
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, persistence and lifecycle.
// ConfigManager manages game configuration loading and validation.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP, terminal)
// and the game engine. It serialises access to each engine, turns tick outcomes
// into GameEvents and persists the session after every mutation.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	configMgr := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr)
//
//	info, err := gameService.CreateSession(ctx, "small")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameService.ChangeDirection(ctx, info.ID, "up")
//	result, err := gameService.Advance(ctx, info.ID, 5)
//
// Advance executes at most engine.MaxBulkTicks ticks per call and stops early
// on a collision, reporting hit_wall or hit_self in StopReasonCode. Calls on a
// finished game execute nothing and report game_over.
package service
