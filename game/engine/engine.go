package engine

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidDimensions = errors.New("invalid grid dimensions")
	ErrInvalidState      = errors.New("invalid game state")
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state
	GetState() *GameState
	GetStateSummary() *GameState
	SetState(state *GameState) error
	Reset() *GameState
	IsGameOver() bool
	Score() int

	// Simulation
	RequestDirection(dir Direction) bool
	Advance() TickOutcome

	// Board queries
	Rows() int
	Cols() int
	Cell(pos Position) GridCell
	Direction() Direction
	Head() Position
	Tail() Position
	Body() []Position
	PendingDirections() []Direction

	// History
	GetTickHistory() []TickHistoryEntry
	GetCurrentTicks() []TickHistoryEntry
	GetLastTick() *TickHistoryEntry
}

// Option customises a SnakeEngine at construction
type Option func(*SnakeEngine)

// WithRandSource injects the random source used for item placement
func WithRandSource(rng RandomSource) Option {
	return func(e *SnakeEngine) {
		e.rng = rng
	}
}

// WithSeed seeds the item placement source. Ignored when WithRandSource is also given.
func WithSeed(seed int64) Option {
	return func(e *SnakeEngine) {
		e.seed = seed
	}
}

// WithConfig attaches a configuration for messages and naming
func WithConfig(config *GameConfig) Option {
	return func(e *SnakeEngine) {
		e.config = config
	}
}

// WithClock overrides the clock used for history timestamps
func WithClock(now func() time.Time) Option {
	return func(e *SnakeEngine) {
		e.now = now
	}
}

// SnakeEngine owns the grid, the snake and the pending direction changes.
// It is not safe for concurrent use; callers serialise access.
type SnakeEngine struct {
	rows, cols int

	grid      *Grid
	body      *SnakeBody
	queue     DirectionQueue
	spawner   *ItemSpawner
	rng       RandomSource
	seed      int64
	direction Direction
	score     int
	gameOver  bool
	tick      int
	message   string

	config *GameConfig
	now    func() time.Time

	history      []TickHistoryEntry
	currentTicks []TickHistoryEntry
}

// New creates a running engine on a rows x cols grid
func New(rows, cols int, opts ...Option) (*SnakeEngine, error) {
	if rows < MinRows || cols < MinCols {
		return nil, fmt.Errorf("%w: %dx%d (need at least %dx%d)", ErrInvalidDimensions, rows, cols, MinRows, MinCols)
	}

	e := &SnakeEngine{
		rows:    rows,
		cols:    cols,
		now:     time.Now,
		history: []TickHistoryEntry{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.config == nil {
		e.config = DefaultGameConfig()
		e.config.Rows, e.config.Cols = rows, cols
	}
	if e.rng == nil {
		e.rng, e.seed = NewRandomSource(e.seed)
	}
	e.spawner = NewItemSpawner(e.rng)

	e.init()
	return e, nil
}

// NewEngine creates a new game engine with the provided configuration
func NewEngine(config *GameConfig, opts ...Option) (*SnakeEngine, error) {
	if err := ValidateGameConfig(config); err != nil {
		return nil, err
	}
	config.Normalize()

	opts = append([]Option{WithSeed(config.Seed), WithConfig(config)}, opts...)
	return New(config.Rows, config.Cols, opts...)
}

// NewEngineWithDefaults creates a new game engine with the default configuration
func NewEngineWithDefaults() *SnakeEngine {
	e, err := NewEngine(DefaultGameConfig())
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return e
}

// init lays out a fresh board: a three cell snake on the middle row heading
// right, then one food and one coin.
func (e *SnakeEngine) init() {
	e.grid = NewGrid(e.rows, e.cols)
	e.body = NewSnakeBody(e.rows * e.cols)
	e.queue.Clear()
	e.direction = Right
	e.score = 0
	e.gameOver = false
	e.tick = 0
	e.currentTicks = []TickHistoryEntry{}

	row := e.rows / 2
	for col := 1; col <= InitialSnakeLength; col++ {
		e.addHead(Position{Row: row, Col: col})
	}

	e.spawner.Spawn(e.grid, Food)
	e.spawner.Spawn(e.grid, Coin)

	e.message = e.config.Messages.Welcome
}

func (e *SnakeEngine) addHead(pos Position) {
	e.body.PushFront(pos)
	e.grid.set(pos, Snake)
}

func (e *SnakeEngine) removeTail() {
	tail := e.body.PopBack()
	e.grid.set(tail, Empty)
}

// RequestDirection buffers a direction change. Requests that would repeat or
// reverse the last buffered heading, or overflow the buffer, are dropped.
func (e *SnakeEngine) RequestDirection(dir Direction) bool {
	if !dir.Valid() {
		return false
	}
	return e.queue.Request(dir, e.direction)
}

// willHit classifies the cell the head is about to enter
func (e *SnakeEngine) willHit(candidate Position) GridCell {
	if e.grid.Outside(candidate) {
		return Outside
	}
	// The tail vacates this tick, so following it is legal.
	if candidate == e.body.Tail() {
		return Empty
	}
	return e.grid.At(candidate)
}

// Advance moves the simulation forward by one tick
func (e *SnakeEngine) Advance() TickOutcome {
	if e.gameOver {
		return OutcomeNoop
	}

	if dir, ok := e.queue.Pop(); ok {
		e.direction = dir
	}

	from := e.body.Head()
	candidate := from.Translate(e.direction)

	var outcome TickOutcome
	switch hit := e.willHit(candidate); hit {
	case Outside, Snake:
		e.gameOver = true
		outcome = OutcomeCollision
		if hit == Outside {
			e.message = e.config.Messages.HitWall
		} else {
			e.message = e.config.Messages.HitSelf
		}

	case Empty:
		e.removeTail()
		e.addHead(candidate)
		outcome = OutcomeMoved

	case Food:
		e.addHead(candidate)
		e.score += FoodScore
		e.spawner.Spawn(e.grid, Food)
		e.message = formatScore(e.config.Messages.Food, e.score)
		outcome = OutcomeFood

	case Coin:
		e.addHead(candidate)
		e.score += CoinScore
		e.spawner.Spawn(e.grid, Coin)
		e.message = formatScore(e.config.Messages.Coin, e.score)
		outcome = OutcomeCoin
	}

	e.tick++
	e.addTickToHistory(from, candidate, outcome)
	return outcome
}

// Reset rebuilds the initial layout, keeping cumulative history
func (e *SnakeEngine) Reset() *GameState {
	e.init()
	return e.GetState()
}

// GetState returns a deep-copied snapshot of the engine, tick history included
func (e *SnakeEngine) GetState() *GameState {
	state := e.GetStateSummary()
	state.TickHistory = e.GetTickHistory()
	state.CurrentTicks = e.GetCurrentTicks()
	return state
}

// GetStateSummary returns the snapshot without the tick history slices.
// Only their lengths are reported; GetTickHistory returns the entries.
func (e *SnakeEngine) GetStateSummary() *GameState {
	return &GameState{
		Rows:              e.rows,
		Cols:              e.cols,
		Grid:              e.grid.Snapshot(),
		Direction:         e.direction,
		PendingDirections: e.queue.Pending(),
		Snake:             e.body.Positions(),
		Score:             e.score,
		GameOver:          e.gameOver,
		Message:           e.message,
		ConfigName:        e.config.Name,
		Seed:              e.seed,
		Tick:              e.tick,
		TickHistoryCount:  len(e.history),
		CurrentTicksCount: len(e.currentTicks),
	}
}

// SetState restores a snapshot (used for persistence loading)
func (e *SnakeEngine) SetState(state *GameState) error {
	if err := validateState(state); err != nil {
		return err
	}

	e.rows, e.cols = state.Rows, state.Cols
	e.grid = NewGrid(state.Rows, state.Cols)
	for r, row := range state.Grid {
		for c, cell := range row {
			e.grid.set(Position{Row: r, Col: c}, cell)
		}
	}
	e.body = NewSnakeBody(state.Rows * state.Cols)
	for _, pos := range state.Snake {
		e.body.PushBack(pos)
	}
	e.queue.Clear()
	for _, dir := range state.PendingDirections {
		e.queue.Request(dir, state.Direction)
	}
	e.direction = state.Direction
	e.score = state.Score
	e.gameOver = state.GameOver
	e.message = state.Message
	e.tick = state.Tick
	e.history = append([]TickHistoryEntry{}, state.TickHistory...)
	e.currentTicks = append([]TickHistoryEntry{}, state.CurrentTicks...)

	// Continue a seeded game on a source derived from the seed and tick so
	// restored sessions stay reproducible.
	if state.Seed != 0 {
		e.seed = state.Seed
		e.rng, _ = NewRandomSource(state.Seed + int64(state.Tick))
		e.spawner = NewItemSpawner(e.rng)
	}
	return nil
}

// validateState checks that a snapshot upholds the body/grid correspondence
func validateState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("%w: state cannot be nil", ErrInvalidState)
	}
	if state.Rows < MinRows || state.Cols < MinCols {
		return fmt.Errorf("%w: %w: %dx%d", ErrInvalidState, ErrInvalidDimensions, state.Rows, state.Cols)
	}
	if len(state.Grid) != state.Rows {
		return fmt.Errorf("%w: grid has %d rows, want %d", ErrInvalidState, len(state.Grid), state.Rows)
	}
	items := make(map[GridCell]int, 2)
	for r, row := range state.Grid {
		if len(row) != state.Cols {
			return fmt.Errorf("%w: grid row %d has %d cols, want %d", ErrInvalidState, r, len(row), state.Cols)
		}
		for c, cell := range row {
			switch cell {
			case Empty, Snake:
			case Food, Coin:
				items[cell]++
				if items[cell] > 1 {
					return fmt.Errorf("%w: more than one %s cell", ErrInvalidState, cell)
				}
			default:
				return fmt.Errorf("%w: cell (%d,%d) holds %q", ErrInvalidState, r, c, cell)
			}
		}
	}
	if len(state.Snake) == 0 {
		return fmt.Errorf("%w: snake body is empty", ErrInvalidState)
	}
	seen := make(map[Position]bool, len(state.Snake))
	for _, pos := range state.Snake {
		if pos.Row < 0 || pos.Row >= state.Rows || pos.Col < 0 || pos.Col >= state.Cols {
			return fmt.Errorf("%w: snake segment %s is outside the grid", ErrInvalidState, pos)
		}
		if seen[pos] {
			return fmt.Errorf("%w: snake segment %s appears twice", ErrInvalidState, pos)
		}
		seen[pos] = true
		if state.Grid[pos.Row][pos.Col] != Snake {
			return fmt.Errorf("%w: snake segment %s not marked on grid", ErrInvalidState, pos)
		}
	}
	snakeCells := 0
	for _, row := range state.Grid {
		for _, cell := range row {
			if cell == Snake {
				snakeCells++
			}
		}
	}
	if snakeCells != len(state.Snake) {
		return fmt.Errorf("%w: grid has %d snake cells but body has %d segments", ErrInvalidState, snakeCells, len(state.Snake))
	}
	if !state.Direction.Valid() {
		return fmt.Errorf("%w: direction %q", ErrInvalidState, state.Direction)
	}
	if len(state.PendingDirections) > DirectionQueueCapacity {
		return fmt.Errorf("%w: %d pending directions", ErrInvalidState, len(state.PendingDirections))
	}
	// Replay the buffer so a restored queue obeys the same drop rules as live input
	var queue DirectionQueue
	for _, dir := range state.PendingDirections {
		if !dir.Valid() {
			return fmt.Errorf("%w: pending direction %q", ErrInvalidState, dir)
		}
		if !queue.Request(dir, state.Direction) {
			return fmt.Errorf("%w: pending direction %s repeats or reverses %s", ErrInvalidState, dir, queue.Last(state.Direction))
		}
	}
	if state.Score < 0 {
		return fmt.Errorf("%w: negative score %d", ErrInvalidState, state.Score)
	}
	return nil
}

// Rows returns the number of grid rows
func (e *SnakeEngine) Rows() int { return e.rows }

// Cols returns the number of grid columns
func (e *SnakeEngine) Cols() int { return e.cols }

// Cell returns the grid value at pos, or Outside beyond the bounds
func (e *SnakeEngine) Cell(pos Position) GridCell { return e.grid.At(pos) }

// Direction returns the heading applied on the last tick
func (e *SnakeEngine) Direction() Direction { return e.direction }

// Score returns the current score
func (e *SnakeEngine) Score() int { return e.score }

// IsGameOver returns whether the game is over
func (e *SnakeEngine) IsGameOver() bool { return e.gameOver }

// Head returns the head position
func (e *SnakeEngine) Head() Position { return e.body.Head() }

// Tail returns the tail position
func (e *SnakeEngine) Tail() Position { return e.body.Tail() }

// Body returns the snake segments head first
func (e *SnakeEngine) Body() []Position { return e.body.Positions() }

// Len returns the snake length
func (e *SnakeEngine) Len() int { return e.body.Len() }

// PendingDirections returns the buffered direction changes front first
func (e *SnakeEngine) PendingDirections() []Direction { return e.queue.Pending() }

// Tick returns the number of applied ticks since the last reset
func (e *SnakeEngine) Tick() int { return e.tick }

// Seed returns the seed of the item placement source, 0 if it was injected
func (e *SnakeEngine) Seed() int64 { return e.seed }

// Message returns the latest player-facing message
func (e *SnakeEngine) Message() string { return e.message }

// GetConfig returns the engine configuration
func (e *SnakeEngine) GetConfig() *GameConfig { return e.config }

func formatScore(format string, score int) string {
	if format == "" {
		return ""
	}
	return fmt.Sprintf(format, score)
}
