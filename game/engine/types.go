package engine

import (
	"fmt"
	"strings"
)

// GridCell represents the occupancy of a single grid cell
type GridCell string

const (
	Empty GridCell = "empty"
	Snake GridCell = "snake"
	Food  GridCell = "food"
	Coin  GridCell = "coin"

	// Outside is returned by boundary checks and never stored in the grid
	Outside GridCell = "outside"
)

// Direction is a compass heading for the snake
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

const (
	// Validation constants
	MinRows      = 1
	MinCols      = 4
	MaxGridSize  = 100
	MaxBulkTicks = 200

	// Initial snake placement
	InitialSnakeLength = 3

	FoodScore = 1
	CoinScore = 2

	DefaultTickIntervalMS = 150
)

// Directions lists every direction in a stable order
var Directions = []Direction{Up, Down, Left, Right}

// Opposite returns the reverse heading
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return d
}

// Valid reports whether d is one of the four compass directions
func (d Direction) Valid() bool {
	switch d {
	case Up, Down, Left, Right:
		return true
	}
	return false
}

// ParseDirection converts user input ("up", "Left", WASD keys) into a Direction
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "w":
		return Up, nil
	case "down", "s":
		return Down, nil
	case "left", "a":
		return Left, nil
	case "right", "d":
		return Right, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Position represents row,col coordinates on the grid
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Translate returns the neighbouring position one step towards d
func (p Position) Translate(d Direction) Position {
	switch d {
	case Up:
		return Position{Row: p.Row - 1, Col: p.Col}
	case Down:
		return Position{Row: p.Row + 1, Col: p.Col}
	case Left:
		return Position{Row: p.Row, Col: p.Col - 1}
	case Right:
		return Position{Row: p.Row, Col: p.Col + 1}
	}
	return p
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// TickOutcome describes what a single Advance did
type TickOutcome string

const (
	OutcomeMoved     TickOutcome = "moved"
	OutcomeFood      TickOutcome = "food"
	OutcomeCoin      TickOutcome = "coin"
	OutcomeCollision TickOutcome = "collision"

	// OutcomeNoop is returned when advancing a finished game
	OutcomeNoop TickOutcome = "noop"
)

// GameState is a serialisable snapshot of an engine
type GameState struct {
	Rows              int                `json:"rows"`
	Cols              int                `json:"cols"`
	Grid              [][]GridCell       `json:"grid"`
	Direction         Direction          `json:"direction"`
	PendingDirections []Direction        `json:"pending_directions"`
	Snake             []Position         `json:"snake"` // head first
	Score             int                `json:"score"`
	GameOver          bool               `json:"game_over"`
	Message           string             `json:"message"`
	ConfigName        string             `json:"config_name"`
	Seed              int64              `json:"seed"`
	Tick              int                `json:"tick"`
	TickHistory       []TickHistoryEntry `json:"tick_history,omitempty"`
	TickHistoryCount  int                `json:"tick_history_count"`

	// CurrentTicks mirrors TickHistory since the last reset
	CurrentTicks      []TickHistoryEntry `json:"current_ticks,omitempty"`
	CurrentTicksCount int                `json:"current_ticks_count"`
}

// TickHistoryEntry records a single applied tick
type TickHistoryEntry struct {
	Tick      int         `json:"tick"`
	Direction Direction   `json:"direction"`
	From      Position    `json:"from"`
	To        Position    `json:"to"`
	Outcome   TickOutcome `json:"outcome"`
	Score     int         `json:"score"`
	Length    int         `json:"length"`
	Timestamp int64       `json:"timestamp"`
}
