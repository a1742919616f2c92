package generator

import (
	"polyomino-api/internal/core"
	"polyomino-api/internal/prng"
	"polyomino-api/internal/shapes"
	"polyomino-api/pkg/constants"
)

// shapeInstance is one shape selection: a shape id and the rotation index
// chosen for it at selection time. The rotation is not re-rolled during
// placement.
type shapeInstance struct {
	ShapeID  string
	Rotation int
}

func newEmptyGrid(rows, cols int) [][]core.CellState {
	grid := make([][]core.CellState, rows)
	for r := range grid {
		grid[r] = make([]core.CellState, cols)
	}
	return grid
}

// placeBlockers lays blockerBudget cells onto empty grid cells. Symmetrical
// mode picks in the upper-left quadrant and mirrors across all four
// quadrant reflections; a generous bound on attempts keeps a pathological
// budget from hanging the attempt instead of falling through to fallback.
func placeBlockers(grid [][]core.CellState, rows, cols, count int, strategy core.Strategy, source prng.Source) bool {
	if count == 0 {
		return true
	}

	placed := 0
	switch strategy {
	case core.Symmetrical:
		limit := rows * cols * constants.ChaoticAttemptMultiplier * 10
		for attempts := 0; placed < count && attempts < limit; attempts++ {
			r := source.NextIntBelow((rows + 1) / 2)
			c := source.NextIntBelow((cols + 1) / 2)
			placed += placeMirrored(grid, rows, cols, r, c, core.CellState{Kind: core.Blocked}, count-placed)
		}
	default:
		limit := count * constants.ChaoticAttemptMultiplier
		for attempts := 0; placed < count && attempts < limit; attempts++ {
			r := source.NextIntBelow(rows)
			c := source.NextIntBelow(cols)
			if grid[r][c].Kind == core.Empty {
				grid[r][c] = core.CellState{Kind: core.Blocked}
				placed++
			}
		}
	}
	return placed == count
}

// placeMirrored fills up to `remaining` empty cells among the (up to four)
// 180°-rotation mirror positions of (r,c), skipping non-empty cells and
// deduplicating positions that coincide under reflection.
func placeMirrored(grid [][]core.CellState, rows, cols, r, c int, state core.CellState, remaining int) int {
	candidates := []core.CellRef{
		{Row: r, Col: c},
		{Row: r, Col: cols - 1 - c},
		{Row: rows - 1 - r, Col: c},
		{Row: rows - 1 - r, Col: cols - 1 - c},
	}

	seen := make(map[core.CellRef]bool, 4)
	placed := 0
	for _, p := range candidates {
		if placed >= remaining {
			break
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		if grid[p.Row][p.Col].Kind == core.Empty {
			grid[p.Row][p.Col] = state
			placed++
		}
	}
	return placed
}

// placeLocks places each color's locks one at a time on random empty
// cells, in color order. Attempts are capped at 10x the lock count for
// both strategies; an uncapped loop could spin on a nearly-full grid and
// starve the rest of the generation deadline.
func placeLocks(grid [][]core.CellState, rows, cols int, colors []core.Color, budgets map[core.Color]int, source prng.Source) bool {
	for _, color := range colors {
		count := budgets[color]
		limit := count * constants.SymmetricalLockAttemptMultiplier
		placed := 0
		for attempts := 0; placed < count && attempts < limit; attempts++ {
			r := source.NextIntBelow(rows)
			c := source.NextIntBelow(cols)
			if grid[r][c].Kind == core.Empty {
				grid[r][c] = core.CellState{Kind: core.LockedFor, Color: color}
				placed++
			}
		}
		if placed < count {
			return false
		}
	}
	return true
}

// placeShapes positions every selected shape: for each color in input
// order, for each of its shape instances, enumerate every anchor whose
// absolute cells are all still Empty, pick one uniformly at random, and
// mark those cells FilledWith(color). Fails if any instance has no anchor.
func placeShapes(grid [][]core.CellState, colors []core.Color, shapeLists map[core.Color][]shapeInstance, lib *shapes.Library, source prng.Source) (map[core.Color][]core.Placement, bool) {
	rows, cols := len(grid), 0
	if rows > 0 {
		cols = len(grid[0])
	}

	placements := make(map[core.Color][]core.Placement, len(colors))
	for _, color := range colors {
		for _, inst := range shapeLists[color] {
			entry, ok := lib.Lookup(inst.ShapeID)
			if !ok || inst.Rotation >= len(entry.Rotations) {
				return nil, false
			}
			rot := entry.Rotations[inst.Rotation]

			anchors := validAnchors(grid, rows, cols, rot)
			if len(anchors) == 0 {
				return nil, false
			}
			anchor := prng.Pick(source, anchors)

			cells := make([]core.CellRef, len(rot.Cells))
			for i, rc := range rot.Cells {
				abs := core.CellRef{Row: anchor.Row + rc.Row, Col: anchor.Col + rc.Col}
				cells[i] = abs
				grid[abs.Row][abs.Col] = core.CellState{Kind: core.FilledWith, Color: color}
			}

			placements[color] = append(placements[color], core.Placement{
				ShapeID:  inst.ShapeID,
				Rotation: inst.Rotation,
				AnchorR:  anchor.Row,
				AnchorC:  anchor.Col,
				Cells:    cells,
			})
		}
	}
	return placements, true
}

func validAnchors(grid [][]core.CellState, rows, cols int, rot shapes.Rotation) []core.CellRef {
	var out []core.CellRef
	for r0 := 0; r0 <= rows-rot.Bounds.Height; r0++ {
		for c0 := 0; c0 <= cols-rot.Bounds.Width; c0++ {
			fits := true
			for _, rc := range rot.Cells {
				if grid[r0+rc.Row][c0+rc.Col].Kind != core.Empty {
					fits = false
					break
				}
			}
			if fits {
				out = append(out, core.CellRef{Row: r0, Col: c0})
			}
		}
	}
	return out
}

func emptyCells(grid [][]core.CellState, rows, cols int) []core.CellRef {
	var out []core.CellRef
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if grid[r][c].Kind == core.Empty {
				out = append(out, core.CellRef{Row: r, Col: c})
			}
		}
	}
	return out
}

// finalize derives the row/column requirements from the finished grid and
// assembles the Puzzle the Generator returns.
func finalize(grid [][]core.CellState, p plan, placements map[core.Color][]core.Placement) *core.Puzzle {
	return &core.Puzzle{
		Grid:         grid,
		Shapes:       placements,
		Blockers:     collectBlockers(grid, p.rows, p.cols),
		Locks:        collectLocks(grid, p.rows, p.cols, p.colors),
		Requirements: deriveRequirements(grid, p.rows, p.cols, p.colors),
		Solution:     collectSolution(grid, p.rows, p.cols, p.colors),
	}
}

func deriveRequirements(grid [][]core.CellState, rows, cols int, colors []core.Color) core.Requirements {
	reqs := core.Requirements{
		Rows: make([]map[core.Color]int, rows),
		Cols: make([]map[core.Color]int, cols),
	}
	for r := range reqs.Rows {
		reqs.Rows[r] = make(map[core.Color]int, len(colors))
		for _, color := range colors {
			reqs.Rows[r][color] = 0
		}
	}
	for c := range reqs.Cols {
		reqs.Cols[c] = make(map[core.Color]int, len(colors))
		for _, color := range colors {
			reqs.Cols[c][color] = 0
		}
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cell := grid[r][c]
			if cell.Kind == core.FilledWith || cell.Kind == core.LockedFor {
				reqs.Rows[r][cell.Color]++
				reqs.Cols[c][cell.Color]++
			}
		}
	}
	return reqs
}

func collectBlockers(grid [][]core.CellState, rows, cols int) []core.CellRef {
	var out []core.CellRef
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if grid[r][c].Kind == core.Blocked {
				out = append(out, core.CellRef{Row: r, Col: c})
			}
		}
	}
	return out
}

func collectLocks(grid [][]core.CellState, rows, cols int, colors []core.Color) map[core.Color][]core.CellRef {
	out := make(map[core.Color][]core.CellRef, len(colors))
	for _, color := range colors {
		out[color] = []core.CellRef{}
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cell := grid[r][c]
			if cell.Kind == core.LockedFor {
				out[cell.Color] = append(out[cell.Color], core.CellRef{Row: r, Col: c})
			}
		}
	}
	return out
}

func collectSolution(grid [][]core.CellState, rows, cols int, colors []core.Color) core.SolutionCells {
	out := make(core.SolutionCells, len(colors))
	for _, color := range colors {
		out[color] = []core.CellRef{}
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cell := grid[r][c]
			if cell.Kind == core.FilledWith {
				out[cell.Color] = append(out[cell.Color], core.CellRef{Row: r, Col: c})
			}
		}
	}
	return out
}
