// Package websocket provides live game updates over WebSocket.
//
// The package uses a hub-and-spoke model where a central Hub owns all
// connections. Run is the only goroutine that touches the client registry;
// each connection has a read pump and a write pump of its own.
//
// Message Protocol:
//
// Outgoing messages are JSON objects:
//
//	{"session_id":"ab12","event":"state_update","game_state":{...}}
//	{"session_id":"ab12","event":"autoplay_tick","data":{...}}
//
// Several queued messages may share one frame, separated by newlines.
// Clients may send {"action":"direction","direction":"up"}; the hub decodes
// these and passes them to the InboundHandler given with WithInbound.
//
// Clients pick a session with a query parameter (the API uses ?session=). Updates reach
// only the clients of that session, and sessions nobody watches are skipped
// before anything is marshalled.
//
// Usage:
//
//	hub := websocket.NewHub(websocket.WithLogger(logger))
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Hub satisfies runner.Publisher, so autoplay ticks stream straight to the
// browser.
package websocket
