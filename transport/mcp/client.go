package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/gridsnake/game/engine"
	"github.com/wricardo/gridsnake/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
	version    string
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string, version string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		version: version,
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Grid Snake",
		c.version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Grid Snake - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Steer the snake (@ head, o body) to eat food (*, +1) and coins ($, +2).
Each item eaten grows the snake by one. Hitting a wall or your own body ends the game.
The snake only moves when ticks are advanced.

AVAILABLE TOOLS:
- create_session / list_sessions / get_session: manage games
- game_state: board, score and the safe directions from the head
- change_direction: buffer a turn for the next tick (at most 2 pending)
- advance: run one or more ticks
- step: optional turn plus exactly one tick - requires intent explanation
- reset_game: start over
- tick_history: past ticks
- list_configs: available boards
- game_instructions: full rules
- describe_cell: what occupies a row/col

NOTE: The 'intent' parameter on step serves as rubber duck debugging - explain your reasoning!`),
	)

	// Register all tools
	c.registerTools()
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

var directionEnum = []string{"up", "down", "left", "right"}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the config to use, see list_configs (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, score and safe directions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "change_direction",
		Description: "Buffer a turn for upcoming ticks. Reversals, repeats and a third pending turn are dropped.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        directionEnum,
					"description": "Direction to turn",
				},
			},
			Required: []string{"session_id", "direction"},
		},
	}, c.handleChangeDirection)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "advance",
		Description: fmt.Sprintf("Advance the game by a number of ticks (1-%d). Stops early on collision.", engine.MaxBulkTicks),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"ticks": map[string]interface{}{
					"type":        "integer",
					"description": "Number of ticks to run (default 1)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleAdvance)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "step",
		Description: "Optionally turn, then advance exactly one tick",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        directionEnum,
					"description": "Direction to turn before the tick (optional)",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this step (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleStep)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the game to initial state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "tick_history",
		Description: "Get tick history for a session, most recent first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
				"scope": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"all", "current"},
					"description": "all ticks, or only those since the last reset",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleTickHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available game configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Describe what occupies a cell and whether the snake can enter it on the next tick",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionProperty(),
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row of the cell (0-based, top is 0)",
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"description": "Column of the cell (0-based, left is 0)",
				},
			},
			Required: []string{"session_id", "row", "col"},
		},
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeHTTP answers single JSON-RPC messages posted to /mcp
func (c *Client) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	response := c.mcpServer.HandleMessage(r.Context(), body)
	if response == nil {
		// Notifications have no reply
		w.WriteHeader(http.StatusAccepted)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
	}
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// arguments returns the call's arguments, empty when none were sent
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	configID, _ := args["config_id"].(string)

	body := map[string]string{}
	if configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n\n%s", session.ID, session.ConfigName, formatGameState(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		score, status := 0, "playing"
		if s.GameState != nil {
			score = s.GameState.Score
			if s.GameState.GameOver {
				status = "game over"
			}
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Score: %d, %s, Created: %s)\n",
			s.ID, s.ConfigName, score, status, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleChangeDirection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	direction, _ := args["direction"].(string)

	var result service.DirectionResult
	err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/direction"), map[string]string{"direction": direction}, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatDirectionResult(&result)), nil
}

func (c *Client) handleAdvance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	ticks, ok := intArg(args, "ticks")
	if !ok {
		ticks = 1
	}

	var result service.AdvanceResult
	err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/advance"), map[string]int{"ticks": ticks}, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatAdvanceResult(sessionID, &result)), nil
}

func (c *Client) handleStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	direction, _ := args["direction"].(string)
	intent, _ := args["intent"].(string)

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_ = intent

	var result service.AdvanceResult
	err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/step"), map[string]string{"direction": direction}, &result)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatAdvanceResult(sessionID, &result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}

	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleTickHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", fmt.Sprint(limit))
	}
	if scope, _ := args["scope"].(string); scope != "" {
		params.Set("scope", scope)
	}

	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (config_id: %s)\n  %s\n  Grid: %dx%d, Tick: %dms\n\n",
			config.Name, config.ConfigID, config.Description, config.Rows, config.Cols, config.TickIntervalMS)
	}

	return mcp.NewToolResultText(b.String()), nil
}

const instructions = `Grid Snake - Complete Instructions

GAME OBJECTIVE:
Grow the snake and score as many points as possible before crashing.

GAME MECHANICS:
• The board is a grid of rows x cols. Row 0 is the top, column 0 the left edge.
• The snake starts with 3 segments on the middle row, heading right.
• Nothing moves until a tick runs. Each tick moves the head one cell in the current direction.
• Food (*) gives +1, a coin ($) gives +2. Either one grows the snake by one segment and respawns elsewhere.
• Moving into a wall or into your own body ends the game.
• Moving into the cell the tail currently occupies is safe: the tail moves away on the same tick.
  (After eating, the tail stays put for that tick, but the cell it leaves is still free to enter.)

TURNING:
• change_direction buffers up to 2 turns; each tick consumes one.
• A turn is dropped if it repeats or reverses the last buffered heading, or if 2 are already pending.
  Example: heading right, "left" is dropped. Heading right, queue "up" then "left" to U-turn over two ticks.

GRID LEGEND:
• @ - snake head
• o - snake body
• * - food (+1)
• $ - coin (+2)
• . - empty
• # - outside the board (only in the local 3x3 view)

STRATEGY TIPS:
• Check "Safe directions" before each step; it lists moves that do not crash on the next tick.
• Use advance with many ticks only when the straight path ahead is clear.
• Keep an escape route: long snakes trap themselves in corners.
• Use step with an intent to think out loud one tick at a time.

SESSION MANAGEMENT:
• Each session has a unique 4-character ID and its own board.
• reset_game starts over on the same board; tick history keeps earlier games.`

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	row, okRow := intArg(args, "row")
	col, okCol := intArg(args, "col")
	if !okRow || !okCol {
		return mcp.NewToolResultError("row and col are required integers"), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(describeCell(&state, engine.Position{Row: row, Col: col})), nil
}

// describeCell explains a cell relative to the snake
func describeCell(state *engine.GameState, pos engine.Position) string {
	if pos.Row < 0 || pos.Row >= state.Rows || pos.Col < 0 || pos.Col >= state.Cols {
		return fmt.Sprintf("Cell %s is outside the board. Rows are 0-%d and columns 0-%d. Moving there ends the game.",
			pos, state.Rows-1, state.Cols-1)
	}

	cell := state.Grid[pos.Row][pos.Col]
	glyph := engine.CellGlyph(cell)
	var description string
	switch cell {
	case engine.Empty:
		description = "Empty cell"
	case engine.Food:
		description = fmt.Sprintf("Food: +%d point and one more segment", engine.FoodScore)
	case engine.Coin:
		description = fmt.Sprintf("Coin: +%d points and one more segment", engine.CoinScore)
	case engine.Snake:
		description = "Snake body - entering it ends the game"
	}

	head := state.Snake[0]
	tail := state.Snake[len(state.Snake)-1]
	switch pos {
	case head:
		glyph = engine.GlyphHead
		description = "Snake head (current position)"
	case tail:
		description = "Snake tail - it moves away on the next tick, so entering it is safe"
	}

	next := "not reachable on the next tick"
	for _, dir := range engine.Directions {
		if head.Translate(dir) != pos {
			continue
		}
		next = fmt.Sprintf("reachable by moving %s", dir)
		safe := false
		for _, s := range engine.SafeDirections(state) {
			if s == dir {
				safe = true
			}
		}
		if !safe {
			next += " (unsafe)"
		}
	}

	return fmt.Sprintf("Cell %s\n━━━━━━━━━━━━━━━━━━━━━━━━\nCharacter: %c\nType: %s\nDescription: %s\nNext tick: %s\n",
		pos, glyph, cell, description, next)
}

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\n\n%s",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil || len(state.Snake) == 0 {
		return "No game state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Head: %s | Heading: %s | Length: %d | Score: %d | Tick: %d\n",
		state.Snake[0], state.Direction, len(state.Snake), state.Score, state.Tick)
	if len(state.PendingDirections) > 0 {
		fmt.Fprintf(&b, "Pending turns: %s\n", joinDirections(state.PendingDirections))
	}
	if !state.GameOver {
		fmt.Fprintf(&b, "Safe directions: %s\n", joinDirections(engine.SafeDirections(state)))
	}
	b.WriteString("\n")

	for _, row := range engine.RenderRows(state) {
		b.WriteString(row)
		b.WriteString("\n")
	}

	if state.GameOver {
		b.WriteString("\n💀 GAME OVER")
	}
	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}

	return b.String()
}

func joinDirections(dirs []engine.Direction) string {
	if len(dirs) == 0 {
		return "none"
	}
	names := make([]string, len(dirs))
	for i, d := range dirs {
		names[i] = string(d)
	}
	return strings.Join(names, ",")
}

func formatDirectionResult(result *service.DirectionResult) string {
	status := "✓"
	if !result.Accepted {
		status = "✗"
	}
	return fmt.Sprintf("%s %s\nPending turns: %s\n",
		status, result.Message, joinDirections(result.PendingDirections))
}

func formatAdvanceResult(sessionID string, result *service.AdvanceResult) string {
	var b strings.Builder

	configName := ""
	if result.GameState != nil {
		configName = result.GameState.ConfigName
	}
	fmt.Fprintf(&b, "Session: %s • Config: %s\n", sessionID, configName)
	fmt.Fprintf(&b, "Executed %d/%d ticks", result.TicksExecuted, result.TicksRequested)
	if result.Truncated {
		fmt.Fprintf(&b, " (capped at %d)", result.Limit)
	}
	b.WriteString("\n")
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on tick %d: %s [%s]\n", result.StoppedOnTick, result.StoppedReason, result.StopReasonCode)
	}
	fmt.Fprintf(&b, "Head %s → %s • Length %d → %d • Score +%d\n",
		result.StartHead, result.EndHead, result.StartLength, result.EndLength, result.ScoreDelta)

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for _, s := range result.Steps {
			fmt.Fprintf(&b, "%d. %s %s→%s %s (score %d, length %d)\n",
				s.Idx, s.Dir, s.From, s.To, s.Outcome, s.Score, s.Length)
		}
	}

	var notable []service.GameEvent
	for _, ev := range result.Events {
		if ev.Type != service.EventTick {
			notable = append(notable, ev)
		}
	}
	if len(notable) > 0 {
		b.WriteString("\nEvents:\n")
		for _, ev := range notable {
			fmt.Fprintf(&b, "- %s: %s\n", ev.Type, ev.Message)
		}
	}

	if len(result.LocalView3x3) == 3 {
		b.WriteString("\nLocal 3x3:\n")
		b.WriteString(strings.Join(result.LocalView3x3, "\n"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tick History (Page %d/%d) • Total: %d\n\n",
		history.Page, history.TotalPages, history.TotalTicks)

	if len(history.Ticks) == 0 {
		b.WriteString("(no ticks)\n")
	}
	for _, tick := range history.Ticks {
		fmt.Fprintf(&b, "#%d %s %s→%s %s [score %d, length %d]\n",
			tick.Tick, tick.Direction, tick.From, tick.To, tick.Outcome, tick.Score, tick.Length)
	}
	if history.HasNext {
		fmt.Fprintf(&b, "\nMore: page %d\n", history.Page+1)
	}

	return b.String()
}
