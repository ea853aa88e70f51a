// Package mcp provides the Model Context Protocol interface for Grid Snake.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API, and the JSON answer is rendered as text an agent can read.
//
// MCP Tools:
//   - create_session, list_sessions, get_session: session management
//   - game_state: board, score and safe directions
//   - change_direction: buffer a turn
//   - advance: run up to engine.MaxBulkTicks ticks, stopping on collision
//   - step: optional turn plus one tick, with an intent note
//   - reset_game: start over
//   - tick_history: paginated history, all games or the current one
//   - list_configs: available boards
//   - game_instructions: full rules
//   - describe_cell: occupant of a row/col and whether the head can reach it
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: the Client is an http.Handler answering JSON-RPC posts
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080", version)
//	router.Handle("/mcp", client)
package mcp
