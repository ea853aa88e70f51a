package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/gridsnake/game/engine"
	"github.com/wricardo/gridsnake/game/service"
)

// Event names published alongside state updates
const (
	EventAutoplayTick    = "autoplay_tick"
	EventAutoplayStopped = "autoplay_stopped"
)

var (
	ErrAlreadyRunning = errors.New("autoplay already running")
	ErrNotRunning     = errors.New("autoplay not running")
	ErrInvalidPeriod  = errors.New("invalid tick interval")
)

// MinInterval is the fastest cadence a session can be driven at
const MinInterval = 20 * time.Millisecond

// Publisher receives every tick the runner applies
type Publisher interface {
	BroadcastToSession(sessionID string, state *engine.GameState)
	BroadcastEvent(sessionID string, event string, data interface{})
}

// Runner drives sessions at a fixed cadence through the game service
type Runner struct {
	service   service.GameService
	publisher Publisher
	logger    *zap.Logger

	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup
}

type job struct {
	cancel   context.CancelFunc
	done     chan struct{}
	interval time.Duration
}

// Option customises a Runner
type Option func(*Runner)

// WithPublisher sends each applied tick to p
func WithPublisher(p Publisher) Option {
	return func(r *Runner) {
		r.publisher = p
	}
}

// WithLogger sets the runner's logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a runner on top of svc
func New(svc service.GameService, opts ...Option) *Runner {
	r := &Runner{
		service: svc,
		logger:  zap.NewNop(),
		jobs:    make(map[string]*job),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StopInfo is published when a session stops being driven
type StopInfo struct {
	Reason string `json:"reason"`
	Ticks  int    `json:"ticks"`
}

// Start advances sessionID every interval until Stop is called, ctx ends or
// the game is over. The session must exist.
func (r *Runner) Start(ctx context.Context, sessionID string, interval time.Duration) error {
	if interval < MinInterval {
		return fmt.Errorf("%w: %s (minimum %s)", ErrInvalidPeriod, interval, MinInterval)
	}
	if _, err := r.service.GetGameState(ctx, sessionID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, running := r.jobs[jobKey(sessionID)]; running {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, sessionID)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	j := &job{cancel: cancel, done: make(chan struct{}), interval: interval}
	r.jobs[jobKey(sessionID)] = j

	r.wg.Add(1)
	go r.loop(jobCtx, sessionID, j)

	r.logger.Info("autoplay started", zap.String("session", sessionID), zap.Duration("interval", interval))
	return nil
}

func (r *Runner) loop(ctx context.Context, sessionID string, j *job) {
	defer r.wg.Done()
	defer close(j.done)
	defer r.remove(sessionID, j)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	ticks := 0
	reason := "stopped"
	for {
		select {
		case <-ctx.Done():
			r.finish(sessionID, reason, ticks)
			return
		case <-ticker.C:
		}

		result, err := r.service.Advance(ctx, sessionID, 1)
		if err != nil {
			r.logger.Warn("autoplay advance failed", zap.String("session", sessionID), zap.Error(err))
			r.finish(sessionID, "error", ticks)
			return
		}
		ticks += result.TicksExecuted

		if r.publisher != nil && result.TicksExecuted > 0 {
			r.publisher.BroadcastToSession(sessionID, result.GameState)
			r.publisher.BroadcastEvent(sessionID, EventAutoplayTick, result)
		}

		if result.GameOver {
			r.finish(sessionID, service.StopGameOver, ticks)
			return
		}
	}
}

func (r *Runner) finish(sessionID, reason string, ticks int) {
	r.logger.Info("autoplay stopped",
		zap.String("session", sessionID),
		zap.String("reason", reason),
		zap.Int("ticks", ticks))
	if r.publisher != nil {
		r.publisher.BroadcastEvent(sessionID, EventAutoplayStopped, StopInfo{Reason: reason, Ticks: ticks})
	}
}

// remove forgets j unless a newer job replaced it
func (r *Runner) remove(sessionID string, j *job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.jobs[jobKey(sessionID)] == j {
		delete(r.jobs, jobKey(sessionID))
	}
}

// Stop halts the session's loop and waits for it to exit
func (r *Runner) Stop(sessionID string) error {
	r.mu.Lock()
	j, ok := r.jobs[jobKey(sessionID)]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRunning, sessionID)
	}

	j.cancel()
	<-j.done
	return nil
}

// StopAll halts every loop and waits for them to exit
func (r *Runner) StopAll() {
	r.mu.Lock()
	for _, j := range r.jobs {
		j.cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// Running reports whether sessionID is being driven
func (r *Runner) Running(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jobs[jobKey(sessionID)]
	return ok
}

// jobKey folds case so one session never gets two loops
func jobKey(sessionID string) string {
	return strings.ToLower(sessionID)
}

// Sessions lists the sessions currently being driven
func (r *Runner) Sessions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.jobs))
	for id := range r.jobs {
		ids = append(ids, id)
	}
	return ids
}
