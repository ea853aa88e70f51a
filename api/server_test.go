package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/gridsnake/game/config"
	"github.com/wricardo/gridsnake/game/engine"
	"github.com/wricardo/gridsnake/game/runner"
	"github.com/wricardo/gridsnake/game/service"
	"github.com/wricardo/gridsnake/game/session"
	"github.com/wricardo/gridsnake/transport/websocket"
)

type testEnv struct {
	server  *Server
	service service.GameService
	hub     *websocket.Hub
	runner  *runner.Runner
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	configs, err := config.NewManager(t.TempDir())
	require.NoError(t, err)

	tiny := engine.DefaultGameConfig()
	tiny.Name = "Tiny"
	tiny.Rows, tiny.Cols = 3, 6
	tiny.Seed = 4
	tiny.TickIntervalMS = 25
	require.NoError(t, configs.SaveConfig("tiny", tiny))

	wide := engine.DefaultGameConfig()
	wide.Name = "Wide"
	wide.Rows, wide.Cols = 5, 60
	wide.Seed = 8
	require.NoError(t, configs.SaveConfig("wide", wide))

	svc := service.NewGameService(session.NewManager(), configs)

	ctx, cancel := context.WithCancel(context.Background())
	hub := websocket.NewHub()
	go hub.Run(ctx)
	r := runner.New(svc, runner.WithPublisher(hub))
	t.Cleanup(func() {
		r.StopAll()
		cancel()
	})

	return &testEnv{
		server:  NewServer(svc, hub, WithRunner(r), WithBaseContext(ctx)),
		service: svc,
		hub:     hub,
		runner:  r,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) createSession(t *testing.T, configID string) string {
	t.Helper()
	rec := e.do(t, "POST", "/api/sessions", map[string]string{"config_id": configID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[service.SessionInfo](t, rec).ID
}

func TestServer_CreateSession(t *testing.T) {
	env := setupServer(t)

	t.Run("named config", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/sessions", map[string]string{"config_id": "tiny"})
		require.Equal(t, http.StatusCreated, rec.Code)
		info := decode[service.SessionInfo](t, rec)
		assert.Len(t, info.ID, 4)
		assert.Equal(t, "tiny", info.ConfigName)
		assert.Equal(t, 6, info.GameState.Cols)
	})

	t.Run("deprecated config_name", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/sessions", map[string]string{"config_name": "wide"})
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "wide", decode[service.SessionInfo](t, rec).ConfigName)
	})

	t.Run("empty body uses default", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/sessions", nil)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("unknown config", func(t *testing.T) {
		rec := env.do(t, "POST", "/api/sessions", map[string]string{"config_id": "nope"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "tiny")
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/sessions", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_ListGetDeleteSession(t *testing.T) {
	env := setupServer(t)
	first := env.createSession(t, "tiny")
	env.createSession(t, "wide")
	env.createSession(t, "wide")

	rec := env.do(t, "GET", "/api/sessions?config=wide&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Count int `json:"count"`
		Total int `json:"total"`
	}](t, rec)
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, 2, list.Total)

	rec = env.do(t, "GET", "/api/sessions/"+strings.ToUpper(first), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first, decode[service.SessionInfo](t, rec).ID)

	rec = env.do(t, "DELETE", "/api/sessions/"+first, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/api/sessions/"+first, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, "DELETE", "/api/sessions/"+first, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_GameFlow(t *testing.T) {
	env := setupServer(t)
	id := env.createSession(t, "tiny")
	base := "/api/sessions/" + id

	rec := env.do(t, "POST", base+"/direction", map[string]string{"direction": "left"})
	require.Equal(t, http.StatusOK, rec.Code)
	dir := decode[service.DirectionResult](t, rec)
	assert.False(t, dir.Accepted)
	assert.Contains(t, dir.Message, "cannot reverse")

	rec = env.do(t, "POST", base+"/direction", map[string]string{"direction": "north"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "POST", base+"/step", map[string]string{"direction": "up"})
	require.Equal(t, http.StatusOK, rec.Code)
	step := decode[service.AdvanceResult](t, rec)
	assert.Equal(t, 1, step.TicksExecuted)
	assert.Equal(t, engine.Position{Row: 0, Col: 3}, step.EndHead)

	// Heading up from the top row hits the wall
	rec = env.do(t, "POST", base+"/advance", map[string]int{"ticks": 10})
	require.Equal(t, http.StatusOK, rec.Code)
	adv := decode[service.AdvanceResult](t, rec)
	assert.Equal(t, 1, adv.TicksExecuted)
	assert.Equal(t, service.StopHitWall, adv.StopReasonCode)
	assert.True(t, adv.GameOver)

	rec = env.do(t, "GET", base+"/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[engine.GameState](t, rec)
	assert.True(t, state.GameOver)
	assert.Equal(t, 2, state.Tick)

	rec = env.do(t, "GET", base+"/state?format=text", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "game_over=true")
	assert.Equal(t, 4, strings.Count(rec.Body.String(), "\n"))

	rec = env.do(t, "POST", base+"/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reset := decode[struct {
		State engine.GameState `json:"state"`
	}](t, rec)
	assert.False(t, reset.State.GameOver)

	rec = env.do(t, "GET", base+"/history?limit=1&order=asc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[service.HistoryResponse](t, rec)
	assert.Equal(t, 2, history.TotalTicks)
	require.Len(t, history.Ticks, 1)
	assert.Equal(t, engine.Up, history.Ticks[0].Direction)
	assert.True(t, history.HasNext)

	rec = env.do(t, "GET", base+"/history?scope=current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[service.HistoryResponse](t, rec).TotalTicks)
}

func TestServer_AdvanceDefaultsAndTruncation(t *testing.T) {
	env := setupServer(t)
	id := env.createSession(t, "wide")

	rec := env.do(t, "POST", "/api/sessions/"+id+"/advance", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[service.AdvanceResult](t, rec).TicksExecuted)

	rec = env.do(t, "POST", "/api/sessions/"+id+"/advance", map[string]int{"ticks": 5000})
	require.Equal(t, http.StatusOK, rec.Code)
	adv := decode[service.AdvanceResult](t, rec)
	assert.True(t, adv.Truncated)
	assert.Equal(t, engine.MaxBulkTicks, adv.Limit)
}

func TestServer_UnknownSession(t *testing.T) {
	env := setupServer(t)

	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/sessions/zzzz/state"},
		{"POST", "/api/sessions/zzzz/direction"},
		{"POST", "/api/sessions/zzzz/advance"},
		{"POST", "/api/sessions/zzzz/step"},
		{"POST", "/api/sessions/zzzz/reset"},
		{"GET", "/api/sessions/zzzz/history"},
		{"POST", "/api/sessions/zzzz/autoplay"},
	} {
		body := map[string]string{"direction": "up"}
		rec := env.do(t, tc.method, tc.path, body)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", tc.method, tc.path)
		assert.Contains(t, rec.Body.String(), `"error"`)
	}
}

func TestServer_Autoplay(t *testing.T) {
	env := setupServer(t)
	id := env.createSession(t, "tiny")
	base := "/api/sessions/" + id + "/autoplay"

	rec := env.do(t, "POST", base, map[string]int{"interval_ms": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "POST", base, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, float64(25), decode[map[string]interface{}](t, rec)["interval_ms"])

	rec = env.do(t, "POST", base, nil)
	if rec.Code != http.StatusConflict {
		// the tiny board may already have ended the run
		assert.Equal(t, http.StatusAccepted, rec.Code)
	}

	require.Eventually(t, func() bool { return !env.runner.Running(id) }, 2*time.Second, 10*time.Millisecond)

	rec = env.do(t, "GET", base, nil)
	assert.Equal(t, false, decode[map[string]interface{}](t, rec)["running"])

	rec = env.do(t, "DELETE", base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	state, err := env.service.GetGameState(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, state.GameOver)
}

func TestServer_AutoplayStopAndDelete(t *testing.T) {
	env := setupServer(t)
	id := env.createSession(t, "wide")
	base := "/api/sessions/" + id

	rec := env.do(t, "POST", base+"/autoplay", map[string]int{"interval_ms": 1000})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = env.do(t, "DELETE", base+"/autoplay", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, env.runner.Running(id))

	rec = env.do(t, "POST", base+"/autoplay", map[string]int{"interval_ms": 1000})
	require.Equal(t, http.StatusAccepted, rec.Code)
	// Session ids match case-insensitively, so the loop stops too
	rec = env.do(t, "DELETE", "/api/sessions/"+strings.ToUpper(id), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, env.runner.Running(id))
	assert.Empty(t, env.runner.Sessions())
}

func TestServer_AutoplayDisabled(t *testing.T) {
	env := setupServer(t)
	plain := NewServer(env.service, nil)
	id := env.createSession(t, "tiny")

	req := httptest.NewRequest("POST", "/api/sessions/"+id+"/autoplay", nil)
	rec := httptest.NewRecorder()
	plain.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	req = httptest.NewRequest("GET", "/ws?session="+id, nil)
	rec = httptest.NewRecorder()
	plain.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestServer_Configs(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, "GET", "/api/configs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	configs := decode[[]service.ConfigInfo](t, rec)
	var ids []string
	for _, c := range configs {
		ids = append(ids, c.ConfigID)
	}
	assert.Contains(t, ids, "tiny")
	assert.Contains(t, ids, "wide")

	rec = env.do(t, "GET", "/api/configs/tiny.json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Tiny", decode[engine.GameConfig](t, rec).Name)

	rec = env.do(t, "GET", "/api/configs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, "POST", "/api/configs", map[string]interface{}{
		"name":        "My Board",
		"description": "Created over HTTP",
		"rows":        7,
		"cols":        9,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "my_board", decode[map[string]interface{}](t, rec)["config_id"])

	id := env.createSession(t, "my_board")
	rec = env.do(t, "GET", "/api/sessions/"+id+"/state", nil)
	assert.Equal(t, 9, decode[engine.GameState](t, rec).Cols)

	rec = env.do(t, "POST", "/api/configs", map[string]interface{}{
		"name":        "Bad",
		"description": "too narrow",
		"rows":        5,
		"cols":        2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, "POST", "/api/configs", map[string]interface{}{"rows": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_HealthAndIndex(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, "GET", "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])

	rec = env.do(t, "GET", "/api", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/sessions/{id}/advance")
}

func TestServer_WebSocket(t *testing.T) {
	env := setupServer(t)
	id := env.createSession(t, "wide")

	ts := httptest.NewServer(env.server)
	defer ts.Close()
	wsBase := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	_, resp, err := gws.DefaultDialer.Dial(wsBase, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, resp, err = gws.DefaultDialer.Dial(wsBase+"?session=zzzz", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	conn, _, err := gws.DefaultDialer.Dial(wsBase+"?session="+id, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Initial frame
	msg := readWSMessage(t, conn)
	assert.Equal(t, websocket.EventStateUpdate, msg.Event)
	require.NotNil(t, msg.GameState)
	assert.Equal(t, 0, msg.GameState.Tick)

	rec := env.do(t, "POST", fmt.Sprintf("/api/sessions/%s/advance", id), map[string]int{"ticks": 2})
	require.Equal(t, http.StatusOK, rec.Code)

	msg = readWSMessage(t, conn)
	require.NotNil(t, msg.GameState)
	assert.Equal(t, 2, msg.GameState.Tick)
}

func readWSMessage(t *testing.T, conn *gws.Conn) websocket.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg websocket.Message
	require.NoError(t, json.Unmarshal(bytes.Split(data, []byte{'\n'})[0], &msg))
	return msg
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{session.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("session not found: %w", session.ErrSessionNotFound), http.StatusNotFound},
		{service.ErrConfigNotFound, http.StatusNotFound},
		{service.ErrInvalidDirection, http.StatusBadRequest},
		{service.ErrInvalidConfig, http.StatusBadRequest},
		{runner.ErrAlreadyRunning, http.StatusConflict},
		{runner.ErrNotRunning, http.StatusNotFound},
		{runner.ErrInvalidPeriod, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
