// Package runner drives game sessions on a fixed cadence.
//
// The engine has no clock of its own; a Runner supplies one. Each running
// session gets a goroutine that calls GameService.Advance once per interval
// and hands the result to a Publisher, normally the WebSocket hub. A loop
// ends when Stop is called, its context is cancelled or the game is over.
//
//	r := runner.New(gameService, runner.WithPublisher(hub))
//	r.Start(ctx, sessionID, 150*time.Millisecond)
//	defer r.StopAll()
package runner
