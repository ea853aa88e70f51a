package service

import (
	"time"

	"github.com/wricardo/gridsnake/game/engine"
)

// Event types reported in results
const (
	EventDirectionQueued  = "direction_queued"
	EventDirectionDropped = "direction_dropped"
	EventTick             = "tick"
	EventFood             = "food"
	EventCoin             = "coin"
	EventGameOver         = "game_over"
	EventReset            = "reset"
)

// Stop reason codes for AdvanceResult
const (
	StopGameOver  = "game_over"
	StopHitWall   = "hit_wall"
	StopHitSelf   = "hit_self"
	StopCancelled = "cancelled"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	ConfigName     string             `json:"config_name"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	GameState      *engine.GameState  `json:"game_state"`
	GameConfig     *engine.GameConfig `json:"game_config"`
}

// DirectionResult reports whether a direction change was buffered
type DirectionResult struct {
	Accepted          bool               `json:"accepted"`
	Direction         engine.Direction   `json:"direction"`
	PendingDirections []engine.Direction `json:"pending_directions"`
	GameState         *engine.GameState  `json:"game_state"`
	Message           string             `json:"message"`
	Events            []GameEvent        `json:"events,omitempty"`
}

// AdvanceResult contains the result of one or more ticks
type AdvanceResult struct {
	// Summary
	TicksRequested int               `json:"ticks_requested"`
	TicksExecuted  int               `json:"ticks_executed"`
	Success        bool              `json:"success"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // game_over|hit_wall|hit_self
	StoppedOnTick  int               `json:"stopped_on_tick,omitempty"`  // 1-based index within this call
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`

	// Start/end snapshot
	StartHead   engine.Position `json:"start_head"`
	EndHead     engine.Position `json:"end_head"`
	StartLength int             `json:"start_length"`
	EndLength   int             `json:"end_length"`
	ScoreDelta  int             `json:"score_delta"`

	// Per-tick compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`

	// Final status aids
	GameOver       bool               `json:"game_over"`
	Message        string             `json:"message,omitempty"`
	SafeDirections []engine.Direction `json:"safe_directions,omitempty"`
	LocalView3x3   []string           `json:"local_view_3x3,omitempty"`
}

// StepInfo is a compact record for each tick executed in the call
type StepInfo struct {
	Idx     int                `json:"idx"`
	Dir     engine.Direction   `json:"dir"`
	From    engine.Position    `json:"from"`
	To      engine.Position    `json:"to"`
	Outcome engine.TickOutcome `json:"outcome"`
	Score   int                `json:"score"`
	Length  int                `json:"length"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Position  engine.Position `json:"position,omitempty"`
}

// HistoryOptions configures tick history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
	Scope string `json:"scope"` // "all" or "current" (since the last reset)
}

// HistoryResponse contains paginated tick history
type HistoryResponse struct {
	Ticks       []engine.TickHistoryEntry `json:"ticks"`
	TotalTicks  int                       `json:"total_ticks"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// ConfigInfo provides information about a game configuration
type ConfigInfo struct {
	Filename       string `json:"filename"`
	ConfigID       string `json:"config_id"` // The identifier to use for session creation
	Name           string `json:"name"`      // Display name
	Description    string `json:"description"`
	Rows           int    `json:"rows"`
	Cols           int    `json:"cols"`
	TickIntervalMS int    `json:"tick_interval_ms"`
}
