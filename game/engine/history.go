package engine

// addTickToHistory records an applied tick
func (e *SnakeEngine) addTickToHistory(from, to Position, outcome TickOutcome) {
	entry := TickHistoryEntry{
		Tick:      e.tick,
		Direction: e.direction,
		From:      from,
		To:        to,
		Outcome:   outcome,
		Score:     e.score,
		Length:    e.body.Len(),
		Timestamp: e.now().Unix(),
	}
	// Cumulative history survives resets; the current segment does not
	e.history = append(e.history, entry)
	e.currentTicks = append(e.currentTicks, entry)
}

// GetTickHistory returns a copy of the complete tick history
func (e *SnakeEngine) GetTickHistory() []TickHistoryEntry {
	return append([]TickHistoryEntry{}, e.history...)
}

// GetCurrentTicks returns a copy of the ticks applied since the last reset
func (e *SnakeEngine) GetCurrentTicks() []TickHistoryEntry {
	return append([]TickHistoryEntry{}, e.currentTicks...)
}

// GetLastTick returns a copy of the last applied tick, or nil if none
func (e *SnakeEngine) GetLastTick() *TickHistoryEntry {
	if len(e.history) == 0 {
		return nil
	}
	last := e.history[len(e.history)-1]
	return &last
}

// AdvanceN runs up to n ticks, stopping early when the game ends
func (e *SnakeEngine) AdvanceN(n int) []TickOutcome {
	outcomes := make([]TickOutcome, 0, n)
	for i := 0; i < n; i++ {
		if e.gameOver {
			break
		}
		outcomes = append(outcomes, e.Advance())
	}
	return outcomes
}
