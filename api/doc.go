// Package api provides the HTTP REST API for the snake game server.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"config_id": "small"})
//   - GET /api/sessions - List sessions (?sort=accessed|created|score&order=asc|desc&limit=N&config=ID)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session, stopping any autoplay
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current GameState (?format=text for an ASCII board)
//   - POST /api/sessions/{id}/direction - Buffer a turn ({"direction": "up"})
//   - POST /api/sessions/{id}/advance - Run ticks ({"ticks": 5}, at most engine.MaxBulkTicks)
//   - POST /api/sessions/{id}/step - Optional turn then one tick ({"direction": "left"})
//   - POST /api/sessions/{id}/reset - Start over, keeping cumulative history
//   - GET /api/sessions/{id}/history - Tick history (?page&limit&order&scope=all|current)
//
// Autoplay:
//   - POST /api/sessions/{id}/autoplay - Tick the session on a timer ({"interval_ms": 150})
//   - DELETE /api/sessions/{id}/autoplay - Stop the timer
//   - GET /api/sessions/{id}/autoplay - Whether the timer is running
//
// Configuration:
//   - GET /api/configs - List configurations
//   - POST /api/configs - Save a configuration
//   - GET /api/configs/{name} - Get a configuration
//
// Other:
//   - GET /ws?session={id} - WebSocket stream of state updates
//   - GET /healthz - Liveness probe
//
// Error Handling:
//
// Errors are returned as JSON. The status comes from the underlying error:
// unknown sessions and configs are 404, bad directions and invalid configs
// are 400, and starting autoplay twice is 409.
//
//	{
//	  "error": "session not found: session not found",
//	  "code": 404
//	}
//
// Usage:
//
//	srv := api.NewServer(gameService, hub,
//		api.WithRunner(runner.New(gameService, runner.WithPublisher(hub))),
//		api.WithLogger(logger))
//	http.ListenAndServe(":8080", srv)
package api
