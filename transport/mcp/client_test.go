package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/gridsnake/api"
	"github.com/wricardo/gridsnake/game/config"
	"github.com/wricardo/gridsnake/game/engine"
	"github.com/wricardo/gridsnake/game/service"
	"github.com/wricardo/gridsnake/game/session"
)

// newTestClient wires a client to a real API server on a 3x6 board
func newTestClient(t *testing.T) (*Client, service.GameService) {
	t.Helper()
	configs, err := config.NewManager(t.TempDir())
	require.NoError(t, err)

	tiny := engine.DefaultGameConfig()
	tiny.Name = "Tiny"
	tiny.Rows, tiny.Cols = 3, 6
	tiny.Seed = 4
	require.NoError(t, configs.SaveConfig("tiny", tiny))

	svc := service.NewGameService(session.NewManager(), configs)
	server := httptest.NewServer(api.NewServer(svc, nil))
	t.Cleanup(server.Close)

	return NewClient(server.URL+"/", "test"), svc
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (string, bool) {
	t.Helper()
	result, err := handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text, result.IsError
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/", "1.0.0")

	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.GetMCPServer())
}

func TestClient_apiCall(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	var health map[string]string
	require.NoError(t, client.apiCall(ctx, "GET", "/healthz", nil, &health))
	assert.Equal(t, "healthy", health["status"])

	err := client.apiCall(ctx, "GET", "/api/sessions/zzzz", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session not found")
}

func TestClient_apiCall_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test")
	err := client.apiCall(context.Background(), "GET", "/api", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error: 500")
}

func TestClient_apiCall_Unreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "test")
	assert.Error(t, client.apiCall(context.Background(), "GET", "/api", nil, nil))
}

func TestClient_GameFlow(t *testing.T) {
	client, svc := newTestClient(t)

	text, isErr := callTool(t, client.handleCreateSession, map[string]interface{}{"config_id": "tiny"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Config: tiny")
	assert.Contains(t, text, "Head: (1,3) | Heading: right | Length: 3")

	sessions, err := svc.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	id := sessions[0].ID

	text, _ = callTool(t, client.handleListSessions, nil)
	assert.Contains(t, text, "Active Sessions (1)")
	assert.Contains(t, text, id)

	text, isErr = callTool(t, client.handleGetSession, map[string]interface{}{"session_id": id})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Session: "+id)

	text, _ = callTool(t, client.handleGameState, map[string]interface{}{"session_id": id})
	assert.Contains(t, text, "Safe directions:")
	assert.Contains(t, text, "@")

	text, _ = callTool(t, client.handleChangeDirection, map[string]interface{}{"session_id": id, "direction": "left"})
	assert.Contains(t, text, "✗")
	assert.Contains(t, text, "cannot reverse")

	text, _ = callTool(t, client.handleAdvance, map[string]interface{}{"session_id": id, "ticks": float64(2)})
	assert.Contains(t, text, "Executed 2/2 ticks")
	assert.Contains(t, text, "Head (1,3) → (1,5)")

	text, _ = callTool(t, client.handleStep, map[string]interface{}{
		"session_id": id,
		"intent":     "keep going right into the wall",
	})
	assert.Contains(t, text, "hit_wall")
	assert.Contains(t, text, "GAME OVER")

	text, _ = callTool(t, client.handleTickHistory, map[string]interface{}{"session_id": id, "limit": float64(2)})
	assert.Contains(t, text, "Total: 3")
	assert.Contains(t, text, "More: page 2")

	text, _ = callTool(t, client.handleReset, map[string]interface{}{"session_id": id})
	assert.Contains(t, text, "Game reset successfully")
	assert.NotContains(t, text, "GAME OVER")

	text, _ = callTool(t, client.handleTickHistory, map[string]interface{}{"session_id": id, "scope": "current"})
	assert.Contains(t, text, "Total: 0")
	assert.Contains(t, text, "(no ticks)")
}

func TestClient_UnknownSession(t *testing.T) {
	client, _ := newTestClient(t)

	text, isErr := callTool(t, client.handleGameState, map[string]interface{}{"session_id": "zzzz"})
	assert.True(t, isErr)
	assert.Contains(t, text, "session not found")

	text, isErr = callTool(t, client.handleCreateSession, map[string]interface{}{"config_id": "missing"})
	assert.True(t, isErr)
	assert.Contains(t, text, "tiny")
}

func TestClient_ListConfigs(t *testing.T) {
	client, _ := newTestClient(t)

	text, isErr := callTool(t, client.handleListConfigs, nil)
	require.False(t, isErr, text)
	assert.Contains(t, text, "Tiny (config_id: tiny)")
	assert.Contains(t, text, "Grid: 3x6")
}

func TestClient_DescribeCell(t *testing.T) {
	client, svc := newTestClient(t)
	info, err := svc.CreateSession(context.Background(), "tiny")
	require.NoError(t, err)

	text, isErr := callTool(t, client.handleDescribeCell, map[string]interface{}{
		"session_id": info.ID, "row": float64(1), "col": float64(3),
	})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Snake head")

	text, isErr = callTool(t, client.handleDescribeCell, map[string]interface{}{"session_id": info.ID})
	assert.True(t, isErr)
	assert.Contains(t, text, "row and col")
}

func TestDescribeCell(t *testing.T) {
	grid := [][]engine.GridCell{
		{engine.Empty, engine.Food, engine.Empty, engine.Empty},
		{engine.Snake, engine.Snake, engine.Snake, engine.Coin},
		{engine.Empty, engine.Empty, engine.Empty, engine.Empty},
	}
	state := &engine.GameState{
		Rows:      3,
		Cols:      4,
		Grid:      grid,
		Direction: engine.Right,
		Snake:     []engine.Position{{Row: 1, Col: 2}, {Row: 1, Col: 1}, {Row: 1, Col: 0}},
	}

	tests := []struct {
		name string
		pos  engine.Position
		want []string
	}{
		{"head", engine.Position{Row: 1, Col: 2}, []string{"Character: @", "Snake head"}},
		{"tail", engine.Position{Row: 1, Col: 0}, []string{"Snake tail", "not reachable"}},
		{"body", engine.Position{Row: 1, Col: 1}, []string{"Character: o", "moving left (unsafe)"}},
		{"coin", engine.Position{Row: 1, Col: 3}, []string{"Character: $", "+2 points", "moving right"}},
		{"food", engine.Position{Row: 0, Col: 1}, []string{"Character: *", "+1 point"}},
		{"above head", engine.Position{Row: 0, Col: 2}, []string{"Empty cell", "moving up"}},
		{"outside", engine.Position{Row: -1, Col: 2}, []string{"outside the board", "columns 0-3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describeCell(state, tt.pos)
			for _, want := range tt.want {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestFormatGameState(t *testing.T) {
	assert.Equal(t, "No game state available", formatGameState(nil))

	state := &engine.GameState{
		Rows: 1,
		Cols: 4,
		Grid: [][]engine.GridCell{
			{engine.Snake, engine.Snake, engine.Empty, engine.Food},
		},
		Direction:         engine.Right,
		PendingDirections: []engine.Direction{engine.Up},
		Snake:             []engine.Position{{Row: 0, Col: 1}, {Row: 0, Col: 0}},
		Score:             4,
		Tick:              9,
		Message:           "Score: 4",
	}

	got := formatGameState(state)
	assert.Contains(t, got, "Head: (0,1) | Heading: right | Length: 2 | Score: 4 | Tick: 9")
	assert.Contains(t, got, "Pending turns: up")
	assert.Contains(t, got, "Safe directions: right")
	assert.Contains(t, got, "o@.*")
	assert.NotContains(t, got, "GAME OVER")

	state.GameOver = true
	got = formatGameState(state)
	assert.Contains(t, got, "💀 GAME OVER")
	assert.NotContains(t, got, "Safe directions")
}

func TestClient_handleGameInstructions(t *testing.T) {
	client := NewClient("http://localhost:8080", "test")

	text, isErr := callTool(t, client.handleGameInstructions, nil)
	assert.False(t, isErr)

	for _, section := range []string{
		"Grid Snake - Complete Instructions",
		"GAME OBJECTIVE:",
		"TURNING:",
		"GRID LEGEND:",
		"STRATEGY TIPS:",
		"SESSION MANAGEMENT:",
	} {
		assert.Contains(t, text, section)
	}
}

func TestClient_ServeHTTP(t *testing.T) {
	client := NewClient("http://localhost:8080", "test")

	req := httptest.NewRequest(http.MethodPost, "/mcp",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	rec := httptest.NewRecorder()
	client.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	for _, tool := range []string{"create_session", "change_direction", "advance", "step", "describe_cell"} {
		assert.Contains(t, rec.Body.String(), `"`+tool+`"`)
	}

	req = httptest.NewRequest(http.MethodPost, "/mcp",
		strings.NewReader(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"game_instructions","arguments":{}}}`))
	rec = httptest.NewRecorder()
	client.ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), "Grid Snake - Complete Instructions")

	rec = httptest.NewRecorder()
	client.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
