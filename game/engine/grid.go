package engine

// Grid is a fixed rows x cols board of cells. Dimensions never change after construction.
type Grid struct {
	rows  int
	cols  int
	cells [][]GridCell
}

// NewGrid creates a grid with every cell Empty
func NewGrid(rows, cols int) *Grid {
	cells := make([][]GridCell, rows)
	for r := range cells {
		cells[r] = make([]GridCell, cols)
		for c := range cells[r] {
			cells[r][c] = Empty
		}
	}
	return &Grid{rows: rows, cols: cols, cells: cells}
}

// Rows returns the number of rows
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns
func (g *Grid) Cols() int { return g.cols }

// Outside reports whether pos lies beyond the grid bounds
func (g *Grid) Outside(pos Position) bool {
	return pos.Row < 0 || pos.Row >= g.rows || pos.Col < 0 || pos.Col >= g.cols
}

// At returns the cell stored at pos, or Outside when pos is out of bounds
func (g *Grid) At(pos Position) GridCell {
	if g.Outside(pos) {
		return Outside
	}
	return g.cells[pos.Row][pos.Col]
}

// set stores cell at pos. Callers check bounds first.
func (g *Grid) set(pos Position, cell GridCell) {
	g.cells[pos.Row][pos.Col] = cell
}

// EmptyPositions returns every Empty cell in row-major order
func (g *Grid) EmptyPositions() []Position {
	var empty []Position
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			if g.cells[r][c] == Empty {
				empty = append(empty, Position{Row: r, Col: c})
			}
		}
	}
	return empty
}

// Count returns how many cells hold the given value
func (g *Grid) Count(cell GridCell) int {
	count := 0
	for _, row := range g.cells {
		for _, v := range row {
			if v == cell {
				count++
			}
		}
	}
	return count
}

// Find returns the positions holding the given value in row-major order
func (g *Grid) Find(cell GridCell) []Position {
	var found []Position
	for r, row := range g.cells {
		for c, v := range row {
			if v == cell {
				found = append(found, Position{Row: r, Col: c})
			}
		}
	}
	return found
}

// Snapshot returns a deep copy of the cells
func (g *Grid) Snapshot() [][]GridCell {
	out := make([][]GridCell, g.rows)
	for r := range g.cells {
		out[r] = make([]GridCell, g.cols)
		copy(out[r], g.cells[r])
	}
	return out
}
