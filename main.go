// Command gridsnake runs the Grid Snake game server.
//
// Commands:
//  1. "serve" (default) – HTTP server exposing the REST API, WebSocket and an /mcp endpoint
//  2. "mcp" – MCP stdio server; spins up an internal HTTP API if none is reachable
//  3. "play" – play a local game in the terminal
//  4. "validate" – check every configuration in a directory
//  5. "export" – archive a persisted session's tick history as parquet
//
// Flags can also be set from the environment (PORT, HOST, CONFIG_DIR,
// SESSIONS_DIR, LOG_LEVEL, NGROK_*), and a .env file is loaded when present.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/gridsnake/api"
	"github.com/wricardo/gridsnake/game/archive"
	"github.com/wricardo/gridsnake/game/config"
	"github.com/wricardo/gridsnake/game/engine"
	"github.com/wricardo/gridsnake/game/runner"
	"github.com/wricardo/gridsnake/game/service"
	"github.com/wricardo/gridsnake/game/session"
	"github.com/wricardo/gridsnake/transport/mcp"
	"github.com/wricardo/gridsnake/transport/tui"
	"github.com/wricardo/gridsnake/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Grid Snake Server"
)

// appConfig holds the settings shared by every command
type appConfig struct {
	Host        string
	Port        int
	ConfigDir   string
	SessionsDir string
	SessionTTL  time.Duration
}

func (c appConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ngrokOptions struct {
	Enabled   bool
	AuthToken string
	Domain    string
}

// main loads .env, then hands off to the CLI
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "gridsnake",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "config-dir", Value: "configs", Usage: "Directory containing game configurations", Sources: cli.EnvVars("CONFIG_DIR")},
			&cli.StringFlag{Name: "sessions-dir", Value: "sessions", Usage: "Directory for persisted sessions", Sources: cli.EnvVars("SESSIONS_DIR")},
			&cli.DurationFlag{Name: "session-ttl", Value: 24 * time.Hour, Usage: "Drop sessions idle for longer than this"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging", Sources: cli.EnvVars("DEBUG")},
			&cli.StringFlag{Name: "log-level", Usage: "Log level (debug, info, warn, error)", Sources: cli.EnvVars("LOG_LEVEL")},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action: runServe,
			},
			{
				Name:  "mcp",
				Usage: "Run MCP stdio server, starting an internal HTTP API if needed",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", Usage: "External API to reuse when reachable"},
				},
				Action: runStdioMCP,
			},
			{
				Name:  "play",
				Usage: "Play in the terminal",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Config ID (default config when empty)"},
					&cli.IntFlag{Name: "seed", Usage: "Override the config seed (0 keeps it)"},
				},
				Action: runPlay,
			},
			{
				Name:      "validate",
				Usage:     "Validate every configuration in a directory",
				ArgsUsage: "[dir]",
				Action:    runValidate,
			},
			{
				Name:      "export",
				Usage:     "Write a persisted session's tick history to a parquet file",
				ArgsUsage: "<session-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "archive", Usage: "Output directory"},
				},
				Action: runExport,
			},
		},
	}
}

func configFrom(cmd *cli.Command) appConfig {
	return appConfig{
		Host:        cmd.String("host"),
		Port:        int(cmd.Int("port")),
		ConfigDir:   cmd.String("config-dir"),
		SessionsDir: cmd.String("sessions-dir"),
		SessionTTL:  cmd.Duration("session-ttl"),
	}
}

// newLogger builds a production logger, or a development one with debug on
func newLogger(level string, debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}

func loggerFrom(cmd *cli.Command) (*zap.Logger, error) {
	return newLogger(cmd.String("log-level"), cmd.Bool("debug"))
}

// services bundles what initializeServices wires together
type services struct {
	game        service.GameService
	sessions    *session.Manager
	persistence *session.FilePersistence
	configs     *config.Manager
}

// initializeServices wires session/config managers and the game service,
// restoring sessions persisted by a previous run.
func initializeServices(cfg appConfig, logger *zap.Logger) (*services, error) {
	// Create config manager first (needed for persistence)
	configManager, err := config.NewManager(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(cfg.SessionsDir, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence, session.WithLogger(logger))
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		logger.Warn("failed to load persisted sessions", zap.Error(err))
	}

	return &services{
		game:        service.NewGameService(sessionManager, configManager, service.WithLogger(logger)),
		sessions:    sessionManager,
		persistence: persistence,
		configs:     configManager,
	}, nil
}

// sessionCleanupRoutine periodically removes sessions that have not been
// accessed within ttl.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				logger.Info("cleaned up expired sessions", zap.Int("count", removed))
			}
		}
	}
}

// filesystemSyncRoutine periodically syncs in-memory sessions with filesystem state.
// It removes sessions from memory when their corresponding files are deleted.
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			syncWithFilesystem(manager, persistence, logger)
		}
	}
}

func syncWithFilesystem(manager *session.Manager, persistence session.SessionPersistence, logger *zap.Logger) int {
	pruned := 0
	for _, s := range manager.List() {
		if persistence.Exists(s.ID) {
			continue
		}
		// File deleted, remove from memory
		if err := manager.DeleteFromMemory(s.ID); err == nil {
			pruned++
			logger.Info("pruned session from memory (file deleted)", zap.String("session", s.ID))
		}
	}
	return pruned
}

// handleInbound applies a WebSocket client command and publishes the result
func handleInbound(ctx context.Context, svc service.GameService, pub runner.Publisher, logger *zap.Logger, sessionID string, msg websocket.Inbound) {
	var err error
	switch msg.Action {
	case "direction":
		var result *service.DirectionResult
		if result, err = svc.ChangeDirection(ctx, sessionID, msg.Direction); err == nil {
			pub.BroadcastToSession(sessionID, result.GameState)
		}
	case "step":
		var result *service.AdvanceResult
		if result, err = svc.Step(ctx, sessionID, msg.Direction); err == nil {
			pub.BroadcastToSession(sessionID, result.GameState)
		}
	case "reset":
		var state *engine.GameState
		if state, err = svc.Reset(ctx, sessionID); err == nil {
			pub.BroadcastToSession(sessionID, state)
			pub.BroadcastEvent(sessionID, service.EventReset, nil)
		}
	default:
		logger.Debug("ignoring unknown websocket action", zap.String("session", sessionID), zap.String("action", msg.Action))
		return
	}

	if err != nil {
		logger.Warn("websocket command failed",
			zap.String("session", sessionID), zap.String("action", msg.Action), zap.Error(err))
	}
}

// newHandler builds the full HTTP surface: REST API, WebSocket and /mcp.
// The returned runner must be stopped by the caller.
func newHandler(ctx context.Context, gameService service.GameService, baseURL string, logger *zap.Logger) (http.Handler, *runner.Runner) {
	var hub *websocket.Hub
	hub = websocket.NewHub(
		websocket.WithLogger(logger),
		websocket.WithInbound(func(sessionID string, msg websocket.Inbound) {
			handleInbound(ctx, gameService, hub, logger, sessionID, msg)
		}),
	)
	go hub.Run(ctx)

	autoplay := runner.New(gameService, runner.WithPublisher(hub), runner.WithLogger(logger))

	apiServer := api.NewServer(gameService, hub,
		api.WithRunner(autoplay),
		api.WithLogger(logger),
		api.WithBaseContext(ctx),
	)
	apiServer.Handle("/mcp", mcp.NewClient(baseURL, Version))

	return apiServer, autoplay
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	logger, err := loggerFrom(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg := configFrom(cmd)
	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version))

	svcs, err := initializeServices(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessionCleanupRoutine(ctx, svcs.sessions, cfg.SessionTTL, logger)
	go filesystemSyncRoutine(ctx, svcs.sessions, svcs.persistence, 5*time.Second, logger)

	ngrokOpts := ngrokOptions{
		Enabled:   cmd.Bool("ngrok"),
		AuthToken: cmd.String("ngrok-auth"),
		Domain:    cmd.String("ngrok-domain"),
	}

	err = runHTTPServer(ctx, svcs.game, cfg, ngrokOpts, logger)
	if saveErr := svcs.sessions.SaveAllSessions(); saveErr != nil {
		logger.Warn("failed to save sessions on shutdown", zap.Error(saveErr))
	}
	return err
}

// runHTTPServer serves until ctx ends. If ngrok is enabled it also
// provisions a public tunnel onto the same handler.
func runHTTPServer(ctx context.Context, gameService service.GameService, cfg appConfig, ngrokOpts ngrokOptions, logger *zap.Logger) error {
	addr := cfg.addr()
	handler, autoplay := newHandler(ctx, gameService, "http://"+addr, logger)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		logger.Info("HTTP server listening",
			zap.String("api", "http://"+addr+"/api"),
			zap.String("websocket", "ws://"+addr+"/ws?session=<session_id>"),
			zap.String("mcp", "http://"+addr+"/mcp"))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if ngrokOpts.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, handler, ngrokOpts, logger)
		}()
	}

	var err error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-serveErr:
	}

	autoplay.StopAll()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(shutdownErr))
	}

	wg.Wait()
	logger.Info("server stopped")
	return err
}

func runNgrokTunnel(ctx context.Context, handler http.Handler, opts ngrokOptions, logger *zap.Logger) {
	if opts.AuthToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	logger.Info("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if opts.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(opts.Domain))
		logger.Info("using custom ngrok domain", zap.String("domain", opts.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(opts.AuthToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	ngrokURL := tun.URL()
	logger.Info("🚀 ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("api", ngrokURL+"/api"),
		zap.String("mcp", ngrokURL+"/mcp"))

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// apiReachable reports whether an API server answers at baseURL
func apiReachable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// runStdioMCP runs an MCP stdio server. It reuses the external API when it
// answers; otherwise it starts an internal HTTP API on a random loopback port.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	logger, err := loggerFrom(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseURL := cmd.String("api-url")
	logger.Info("checking for external API server", zap.String("url", baseURL))

	if apiReachable(baseURL) {
		logger.Info("external API server found, using it for MCP", zap.String("url", baseURL))
	} else {
		logger.Info("no external API server found, starting internal HTTP server")

		svcs, err := initializeServices(configFrom(cmd), logger)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		handler, autoplay := newHandler(ctx, svcs.game, baseURL, logger)
		defer autoplay.StopAll()

		httpServer := &http.Server{Handler: handler}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", zap.Error(err))
			}
		}()
		defer httpServer.Close()

		logger.Info("internal HTTP server started", zap.String("url", baseURL))
	}

	mcpClient := mcp.NewClient(baseURL, Version)
	logger.Info("MCP stdio server ready", zap.String("api", baseURL))

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

func runPlay(ctx context.Context, cmd *cli.Command) error {
	configs, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return fmt.Errorf("failed to create config manager: %w", err)
	}

	gameConfig := configs.GetDefault()
	if name := cmd.String("config"); name != "" {
		if gameConfig, err = configs.LoadConfig(name); err != nil {
			return err
		}
	}

	// Copy so the cached config is not mutated
	cfg := *gameConfig
	if seed := int64(cmd.Int("seed")); seed != 0 {
		cfg.Seed = seed
	}

	return tui.Run(ctx, &cfg)
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		dir = cmd.String("config-dir")
	}

	results, err := config.ValidateDir(dir)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	invalid := 0
	for _, result := range results {
		status := "✅"
		if !result.Valid {
			status = "❌"
			invalid++
		}
		fmt.Fprintf(w, "%s %s\n", status, result.File)
		for _, line := range result.Errors {
			fmt.Fprintf(w, "   %s\n", line)
		}
	}
	fmt.Fprintf(w, "\n%d/%d configs valid\n", len(results)-invalid, len(results))

	if invalid > 0 {
		return fmt.Errorf("%d of %d configs invalid", invalid, len(results))
	}
	return nil
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.Args().First()
	if sessionID == "" {
		return errors.New("usage: gridsnake export <session-id>")
	}

	configs, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return fmt.Errorf("failed to create config manager: %w", err)
	}
	persistence, err := session.NewFilePersistence(cmd.String("sessions-dir"), configs)
	if err != nil {
		return fmt.Errorf("failed to create session persistence: %w", err)
	}

	data, err := persistence.ReadData(sessionID)
	if err != nil {
		return fmt.Errorf("session %s: %w", sessionID, err)
	}

	history := data.GameState.TickHistory
	path, err := archive.WriteSession(cmd.String("out"), data.ID, history)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "wrote %d ticks to %s\n", len(history), path)
	return nil
}
