package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/gridsnake/game/engine"
)

// Default and maximum page sizes for tick history
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Option customises the game service
type Option func(*gameServiceImpl)

// WithLogger sets the logger used for persistence warnings
func WithLogger(logger *zap.Logger) Option {
	return func(s *gameServiceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	logger   *zap.Logger
	now      func() time.Time
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// getConfigID returns the config_id for a given display name, used for consistent API responses
func (s *gameServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.GameConfig
	var err error
	configID := strings.TrimSuffix(configName, ".json")
	if configID != "" {
		config, err = s.configs.LoadConfig(configID)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				// Provide helpful error message with available options
				availableConfigs, listErr := s.configs.ListConfigs()
				if listErr == nil && len(availableConfigs) > 0 {
					var configIDs []string
					for _, cfg := range availableConfigs {
						configIDs = append(configIDs, cfg.ConfigID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available configs: %v", ErrConfigNotFound, configName, configIDs)
				}
				return nil, fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = s.getConfigID(config.Name)
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", configID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("session created", zap.String("session", sess.ID), zap.String("config", configID))
	return s.sessionInfo(sess), nil
}

func (s *gameServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	configID := sess.ConfigID
	if configID == "" {
		configID = s.getConfigID(sess.Config.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     configID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetStateSummary(),
		GameConfig:     sess.Config,
	}
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	// Touching the access time is a write; readers of it hold at least RLock
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	s.logger.Info("session deleted", zap.String("session", sessionID))
	return nil
}

// ChangeDirection buffers a direction change for the next tick
func (s *gameServiceImpl) ChangeDirection(ctx context.Context, sessionID, direction string) (*DirectionResult, error) {
	dir, err := engine.ParseDirection(direction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDirection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	result := s.requestDirection(sess, dir)
	result.GameState = sess.Engine.GetStateSummary()

	s.persist(sessionID, "direction")
	return result, nil
}

// requestDirection forwards dir to the engine and describes what happened
func (s *gameServiceImpl) requestDirection(sess *Session, dir engine.Direction) *DirectionResult {
	accepted := sess.Engine.RequestDirection(dir)
	result := &DirectionResult{
		Accepted:          accepted,
		Direction:         dir,
		PendingDirections: sess.Engine.PendingDirections(),
	}

	if accepted {
		result.Message = fmt.Sprintf("Turn %s queued", dir)
		result.Events = append(result.Events, GameEvent{
			Type:      EventDirectionQueued,
			Message:   result.Message,
			Timestamp: s.now(),
			Position:  sess.Engine.Head(),
		})
		return result
	}

	result.Message = dropReason(sess.Engine, dir)
	result.Events = append(result.Events, GameEvent{
		Type:      EventDirectionDropped,
		Message:   result.Message,
		Timestamp: s.now(),
		Position:  sess.Engine.Head(),
	})
	return result
}

// dropReason explains why the engine ignored a direction request
func dropReason(eng *engine.SnakeEngine, dir engine.Direction) string {
	pending := eng.PendingDirections()
	last := eng.Direction()
	if len(pending) > 0 {
		last = pending[len(pending)-1]
	}
	switch {
	case len(pending) >= engine.DirectionQueueCapacity:
		return fmt.Sprintf("Turn %s ignored: %d turns already queued", dir, engine.DirectionQueueCapacity)
	case dir == last:
		return fmt.Sprintf("Turn %s ignored: already heading %s", dir, last)
	case dir == last.Opposite():
		return fmt.Sprintf("Turn %s ignored: cannot reverse from %s", dir, last)
	default:
		return fmt.Sprintf("Turn %s ignored", dir)
	}
}

// Advance runs up to ticks ticks on a session
func (s *gameServiceImpl) Advance(ctx context.Context, sessionID string, ticks int) (*AdvanceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	result := s.advance(ctx, sess, ticks)
	s.persist(sessionID, "advance")
	return result, nil
}

// Step buffers a direction change and then advances a single tick
func (s *gameServiceImpl) Step(ctx context.Context, sessionID, direction string) (*AdvanceResult, error) {
	var dir engine.Direction
	if strings.TrimSpace(direction) != "" {
		parsed, err := engine.ParseDirection(direction)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDirection, err)
		}
		dir = parsed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	var events []GameEvent
	if dir != "" && !sess.Engine.IsGameOver() {
		events = s.requestDirection(sess, dir).Events
	}

	result := s.advance(ctx, sess, 1)
	result.Events = append(events, result.Events...)

	s.persist(sessionID, "step")
	return result, nil
}

// advance executes ticks against the engine. Callers hold s.mu.
func (s *gameServiceImpl) advance(ctx context.Context, sess *Session, ticks int) *AdvanceResult {
	if ticks < 1 {
		ticks = 1
	}
	eng := sess.Engine
	startScore := eng.Score()

	result := &AdvanceResult{
		TicksRequested: ticks,
		Events:         make([]GameEvent, 0),
		Success:        true,
		StartHead:      eng.Head(),
		StartLength:    eng.Len(),
	}

	// Limit ticks to prevent abuse
	if ticks > engine.MaxBulkTicks {
		result.Truncated = true
		result.Limit = engine.MaxBulkTicks
		ticks = engine.MaxBulkTicks
	}

	for i := 0; i < ticks; i++ {
		if eng.IsGameOver() {
			result.Success = false
			result.StoppedReason = "game is over; reset to play again"
			result.StopReasonCode = StopGameOver
			result.StoppedOnTick = i + 1
			break
		}
		if ctx.Err() != nil {
			result.Success = false
			result.StoppedReason = ctx.Err().Error()
			result.StopReasonCode = StopCancelled
			result.StoppedOnTick = i + 1
			break
		}

		outcome := eng.Advance()
		result.TicksExecuted++

		last := eng.GetLastTick()
		result.Steps = append(result.Steps, StepInfo{
			Idx:     i + 1,
			Dir:     last.Direction,
			From:    last.From,
			To:      last.To,
			Outcome: outcome,
			Score:   last.Score,
			Length:  last.Length,
		})
		result.Events = append(result.Events, s.tickEvents(eng, last, outcome)...)

		if outcome == engine.OutcomeCollision {
			result.Success = false
			result.StoppedOnTick = i + 1
			result.StoppedReason = eng.Message()
			if eng.Cell(last.To) == engine.Outside {
				result.StopReasonCode = StopHitWall
			} else {
				result.StopReasonCode = StopHitSelf
			}
			break
		}
	}

	state := eng.GetStateSummary()
	result.GameState = state
	result.EndHead = eng.Head()
	result.EndLength = eng.Len()
	result.ScoreDelta = state.Score - startScore
	result.GameOver = state.GameOver
	result.Message = state.Message

	// Decision aids
	result.SafeDirections = engine.SafeDirections(state)
	result.LocalView3x3 = buildLocal3x3(state)
	return result
}

// tickEvents generates events from an applied tick
func (s *gameServiceImpl) tickEvents(eng *engine.SnakeEngine, tick *engine.TickHistoryEntry, outcome engine.TickOutcome) []GameEvent {
	now := s.now()
	events := []GameEvent{{
		Type:      EventTick,
		Message:   fmt.Sprintf("Tick %d: moved %s to %s", tick.Tick, tick.Direction, tick.To),
		Timestamp: now,
		Position:  tick.To,
	}}

	switch outcome {
	case engine.OutcomeFood:
		events = append(events, GameEvent{
			Type:      EventFood,
			Message:   fmt.Sprintf("Ate food at %s. Score: %d, length: %d", tick.To, tick.Score, tick.Length),
			Timestamp: now,
			Position:  tick.To,
		})
	case engine.OutcomeCoin:
		events = append(events, GameEvent{
			Type:      EventCoin,
			Message:   fmt.Sprintf("Collected coin at %s. Score: %d, length: %d", tick.To, tick.Score, tick.Length),
			Timestamp: now,
			Position:  tick.To,
		})
	case engine.OutcomeCollision:
		events[0].Message = fmt.Sprintf("Tick %d: collided moving %s into %s", tick.Tick, tick.Direction, tick.To)
		events = append(events, GameEvent{
			Type:      EventGameOver,
			Message:   eng.Message(),
			Timestamp: now,
			Position:  tick.To,
		})
	}
	return events
}

// Reset resets a game session to initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	sess.Engine.Reset()
	state := sess.Engine.GetStateSummary()

	s.persist(sessionID, EventReset)
	return state, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sess.Engine.GetStateSummary(), nil
}

// GetTickHistory returns paginated tick history
func (s *gameServiceImpl) GetTickHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	history := sess.Engine.GetTickHistory()
	if opts.Scope == "current" {
		history = sess.Engine.GetCurrentTicks()
	}
	return paginate(history, opts), nil
}

// paginate slices history according to opts, applying defaults
func paginate(history []engine.TickHistoryEntry, opts HistoryOptions) *HistoryResponse {
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultHistoryLimit
	}
	if opts.Limit > MaxHistoryLimit {
		opts.Limit = MaxHistoryLimit
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	ticks := []engine.TickHistoryEntry{}
	if start < total {
		if opts.Order == "desc" {
			// Most recent first
			for i := total - 1 - start; i >= total-end; i-- {
				ticks = append(ticks, history[i])
			}
		} else {
			ticks = append(ticks, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Ticks:       ticks,
		TotalTicks:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}

// ListConfigs returns available game configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific game configuration
func (s *gameServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.GameConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig saves a game configuration to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.GameConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// persist saves the session, logging instead of failing the call
func (s *gameServiceImpl) persist(sessionID, op string) {
	if err := s.sessions.Save(sessionID); err != nil {
		s.logger.Warn("failed to persist session",
			zap.String("session", sessionID),
			zap.String("op", op),
			zap.Error(err))
	}
}

// buildLocal3x3 renders the neighbourhood of the head, '#' beyond the walls
func buildLocal3x3(state *engine.GameState) []string {
	if state == nil || len(state.Snake) == 0 {
		return nil
	}
	head := state.Snake[0]
	lines := make([]string, 0, 3)
	for dr := -1; dr <= 1; dr++ {
		var row strings.Builder
		for dc := -1; dc <= 1; dc++ {
			r, c := head.Row+dr, head.Col+dc
			if dr == 0 && dc == 0 {
				row.WriteRune(engine.GlyphHead)
				continue
			}
			if r < 0 || r >= state.Rows || c < 0 || c >= state.Cols {
				row.WriteRune(engine.CellGlyph(engine.Outside))
				continue
			}
			row.WriteRune(engine.CellGlyph(state.Grid[r][c]))
		}
		lines = append(lines, row.String())
	}
	return lines
}
