package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/gridsnake/game/config"
	"github.com/wricardo/gridsnake/game/engine"
	"github.com/wricardo/gridsnake/game/service"
	"github.com/wricardo/gridsnake/game/session"
)

type recordingPublisher struct {
	mu     sync.Mutex
	states []*engine.GameState
	events []string
	stops  []StopInfo
}

func (p *recordingPublisher) BroadcastToSession(sessionID string, state *engine.GameState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, state)
}

func (p *recordingPublisher) BroadcastEvent(sessionID string, event string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	if info, ok := data.(StopInfo); ok {
		p.stops = append(p.stops, info)
	}
}

func (p *recordingPublisher) snapshot() ([]*engine.GameState, []string, []StopInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*engine.GameState{}, p.states...), append([]string{}, p.events...), append([]StopInfo{}, p.stops...)
}

func setupRunner(t *testing.T, cols int) (*Runner, service.GameService, *recordingPublisher, string) {
	t.Helper()
	configs, err := config.NewManager(t.TempDir())
	require.NoError(t, err)

	cfg := engine.DefaultGameConfig()
	cfg.Name = "Runner"
	cfg.Rows, cfg.Cols = 3, cols
	cfg.Seed = 5
	require.NoError(t, configs.SaveConfig("runner", cfg))

	svc := service.NewGameService(session.NewManager(), configs)
	info, err := svc.CreateSession(context.Background(), "runner")
	require.NoError(t, err)

	pub := &recordingPublisher{}
	return New(svc, WithPublisher(pub)), svc, pub, info.ID
}

func TestRunner_StopsOnGameOver(t *testing.T) {
	r, svc, pub, id := setupRunner(t, 6)

	require.NoError(t, r.Start(context.Background(), id, MinInterval))
	assert.True(t, r.Running(id))

	// head starts in column 3 of 6: two moves, then the wall
	require.Eventually(t, func() bool { return !r.Running(id) }, 2*time.Second, 10*time.Millisecond)

	state, err := svc.GetGameState(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, state.GameOver)
	assert.Equal(t, 3, state.Tick)

	states, events, stops := pub.snapshot()
	assert.Len(t, states, 3)
	assert.Equal(t, EventAutoplayStopped, events[len(events)-1])
	require.Len(t, stops, 1)
	assert.Equal(t, service.StopGameOver, stops[0].Reason)
	assert.Equal(t, 3, stops[0].Ticks)
}

func TestRunner_Stop(t *testing.T) {
	r, svc, _, id := setupRunner(t, 100)

	require.NoError(t, r.Start(context.Background(), id, time.Hour))
	require.NoError(t, r.Stop(id))
	assert.False(t, r.Running(id))

	state, err := svc.GetGameState(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 0, state.Tick)

	assert.True(t, errors.Is(r.Stop(id), ErrNotRunning))
}

func TestRunner_StartErrors(t *testing.T) {
	r, _, _, id := setupRunner(t, 100)
	ctx := context.Background()

	assert.True(t, errors.Is(r.Start(ctx, id, time.Millisecond), ErrInvalidPeriod))
	assert.Error(t, r.Start(ctx, "zzzz", time.Second))

	require.NoError(t, r.Start(ctx, id, time.Hour))
	assert.True(t, errors.Is(r.Start(ctx, id, time.Hour), ErrAlreadyRunning))
	r.StopAll()
	assert.Empty(t, r.Sessions())
}

func TestRunner_ContextCancel(t *testing.T) {
	r, _, pub, id := setupRunner(t, 100)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, r.Start(ctx, id, time.Hour))
	assert.Equal(t, []string{id}, r.Sessions())

	cancel()
	require.Eventually(t, func() bool { return !r.Running(id) }, time.Second, 5*time.Millisecond)

	_, _, stops := pub.snapshot()
	require.Len(t, stops, 1)
	assert.Equal(t, "stopped", stops[0].Reason)
}

func TestRunner_RestartAfterGameOver(t *testing.T) {
	r, svc, _, id := setupRunner(t, 5)
	ctx := context.Background()

	require.NoError(t, r.Start(ctx, id, MinInterval))
	require.Eventually(t, func() bool { return !r.Running(id) }, 2*time.Second, 10*time.Millisecond)

	_, err := svc.Reset(ctx, id)
	require.NoError(t, err)
	require.NoError(t, r.Start(ctx, id, MinInterval))
	require.Eventually(t, func() bool { return !r.Running(id) }, 2*time.Second, 10*time.Millisecond)

	state, err := svc.GetGameState(ctx, id)
	require.NoError(t, err)
	assert.True(t, state.GameOver)
	assert.Equal(t, 4, state.TickHistoryCount)
}

func TestRunner_SessionIDCaseInsensitive(t *testing.T) {
	sessions := session.NewManager()
	cfg := engine.DefaultGameConfig()
	_, err := sessions.GetOrCreate("DA60", "classic", cfg)
	require.NoError(t, err)
	configs, err := config.NewManager(t.TempDir())
	require.NoError(t, err)
	svc := service.NewGameService(sessions, configs)
	r := New(svc)
	ctx := context.Background()

	require.NoError(t, r.Start(ctx, "DA60", time.Hour))
	assert.True(t, r.Running("da60"))
	assert.True(t, errors.Is(r.Start(ctx, "da60", time.Hour), ErrAlreadyRunning))
	assert.Len(t, r.Sessions(), 1)

	require.NoError(t, r.Stop("da60"))
	assert.False(t, r.Running("DA60"))

	state, err := svc.GetGameState(ctx, "da60")
	require.NoError(t, err)
	assert.Equal(t, 0, state.Tick)
}
