package engine

import "strings"

// Glyphs used by RenderRows
const (
	GlyphEmpty = '.'
	GlyphBody  = 'o'
	GlyphHead  = '@'
	GlyphFood  = '*'
	GlyphCoin  = '$'
)

// CellGlyph maps a grid value to its single character representation
func CellGlyph(cell GridCell) rune {
	switch cell {
	case Snake:
		return GlyphBody
	case Food:
		return GlyphFood
	case Coin:
		return GlyphCoin
	case Outside:
		return '#'
	default:
		return GlyphEmpty
	}
}

// RenderRows draws the state as one string per grid row, head marked with '@'
func RenderRows(state *GameState) []string {
	if state == nil {
		return nil
	}
	var head *Position
	if len(state.Snake) > 0 {
		head = &state.Snake[0]
	}

	lines := make([]string, 0, len(state.Grid))
	for r, row := range state.Grid {
		var sb strings.Builder
		for c, cell := range row {
			if head != nil && head.Row == r && head.Col == c {
				sb.WriteRune(GlyphHead)
				continue
			}
			sb.WriteRune(CellGlyph(cell))
		}
		lines = append(lines, sb.String())
	}
	return lines
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dr := from.Row - to.Row
	if dr < 0 {
		dr = -dr
	}
	dc := from.Col - to.Col
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

// FindItem returns the position of the first cell holding kind
func FindItem(state *GameState, kind GridCell) (Position, bool) {
	for r, row := range state.Grid {
		for c, cell := range row {
			if cell == kind {
				return Position{Row: r, Col: c}, true
			}
		}
	}
	return Position{}, false
}

// CountCellType counts the cells of a specific type in the grid
func CountCellType(grid [][]GridCell, cellType GridCell) int {
	count := 0
	for _, row := range grid {
		for _, cell := range row {
			if cell == cellType {
				count++
			}
		}
	}
	return count
}

// SafeDirections returns the headings that would not end the game on the next
// tick, ignoring any buffered changes.
func SafeDirections(state *GameState) []Direction {
	if state == nil || len(state.Snake) == 0 || state.GameOver {
		return nil
	}
	head := state.Snake[0]
	tail := state.Snake[len(state.Snake)-1]

	var safe []Direction
	for _, dir := range Directions {
		if dir == state.Direction.Opposite() {
			continue
		}
		next := head.Translate(dir)
		if next.Row < 0 || next.Row >= state.Rows || next.Col < 0 || next.Col >= state.Cols {
			continue
		}
		if state.Grid[next.Row][next.Col] == Snake && next != tail {
			continue
		}
		safe = append(safe, dir)
	}
	return safe
}
