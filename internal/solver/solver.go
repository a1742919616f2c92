package solver

import (
	"sort"

	"polyomino-api/internal/core"
	"polyomino-api/internal/gridmask"
	"polyomino-api/internal/shapes"
	"polyomino-api/pkg/constants"
)

// GridInput is the grid state a solve call searches over: dimensions plus
// the finalized cell states.
type GridInput struct {
	Rows  int
	Cols  int
	Cells [][]core.CellState
}

func (g GridInput) blockedMask() gridmask.Mask {
	m := gridmask.New(g.Rows * g.Cols)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if g.Cells[r][c].Kind == core.Blocked {
				m.Set(r*g.Cols + c)
			}
		}
	}
	return m
}

// allLocksMask marks every LockedFor cell regardless of color. A locked
// cell is pre-assigned to its color and off-limits to placements; the
// generator never lays a shape over a cell it has already locked, so the
// solver mirrors that by treating locks as unplaceable.
func (g GridInput) allLocksMask() gridmask.Mask {
	m := gridmask.New(g.Rows * g.Cols)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if g.Cells[r][c].Kind == core.LockedFor {
				m.Set(r*g.Cols + c)
			}
		}
	}
	return m
}

// forbiddenMask is the cell set no placement (of any color) may touch:
// blockers and every locked cell.
func (g GridInput) forbiddenMask() gridmask.Mask {
	m := g.blockedMask()
	m.MergeFrom(g.allLocksMask())
	return m
}

// lockAdjustment returns, per row and per column, the count of cells
// already LockedFor(color): the share of the declared requirement the
// placement search must not try to supply itself, since a lock's
// contribution to its color's row/column count is accounted for once,
// by the lock.
func (g GridInput) lockAdjustment(color core.Color) (rows []int, cols []int) {
	rows = make([]int, g.Rows)
	cols = make([]int, g.Cols)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			cell := g.Cells[r][c]
			if cell.Kind == core.LockedFor && cell.Color == color {
				rows[r]++
				cols[c]++
			}
		}
	}
	return rows, cols
}

// SolverSolution is one whole-puzzle solution: the placements and flattened
// cells recovered for every color.
type SolverSolution struct {
	Placements map[core.Color][]core.Placement
	Cells      map[core.Color][]core.CellRef
}

// Result is the tagged-result wrapper every solve entry point returns.
type Result struct {
	Success   bool
	Solutions []SolverSolution
	Kind      core.Kind
	Message   string
}

func failure(kind core.Kind, msg string) Result {
	return Result{Success: false, Kind: kind, Message: msg}
}

// emptySnapshot is the vacuous "no placements" solution a color with
// all-zero requirements contributes to the whole-puzzle composition.
func emptySnapshot(rows, cols int) snapshot {
	return snapshot{mask: gridmask.New(rows * cols)}
}

func requirementFor(reqs core.Requirements, color core.Color) requirement {
	rows := make([]int, len(reqs.Rows))
	for i, m := range reqs.Rows {
		rows[i] = m[color]
	}
	cols := make([]int, len(reqs.Cols))
	for i, m := range reqs.Cols {
		cols[i] = m[color]
	}
	return requirement{rows: rows, cols: cols}
}

// adjustedRequirementFor is requirementFor with each row/column reduced by
// the cells already LockedFor(color) in it — the portion of the declared
// requirement a placement search must supply itself (see GridInput.lockAdjustment).
func adjustedRequirementFor(reqs core.Requirements, grid GridInput, color core.Color) requirement {
	req := requirementFor(reqs, color)
	lockRows, lockCols := grid.lockAdjustment(color)
	for r := range req.rows {
		req.rows[r] -= lockRows[r]
	}
	for c := range req.cols {
		req.cols[c] -= lockCols[c]
	}
	return req
}

func requirementIsAllZero(req requirement) bool {
	for _, v := range req.rows {
		if v != 0 {
			return false
		}
	}
	for _, v := range req.cols {
		if v != 0 {
			return false
		}
	}
	return true
}

func allRequirementsZero(reqs core.Requirements, colors []core.Color) bool {
	for _, color := range colors {
		if !requirementIsAllZero(requirementFor(reqs, color)) {
			return false
		}
	}
	return true
}

// SolveCounts runs the free-count search: any number of shapes of each
// enabled type may be used. Colors are solved sequentially, then composed
// into whole-puzzle solutions capped at WholePuzzleCap.
func SolveCounts(lib *shapes.Library, grid GridInput, reqs core.Requirements, enabledShapes []string, colors []core.Color) Result {
	if allRequirementsZero(reqs, colors) {
		return failure(core.KindNoRequirements, "all requirements are zero")
	}

	forbidden := grid.forbiddenMask()
	perColor := make(map[core.Color][]snapshot, len(colors))

	for _, color := range colors {
		req := adjustedRequirementFor(reqs, grid, color)
		if requirementIsAllZero(req) {
			perColor[color] = []snapshot{emptySnapshot(grid.Rows, grid.Cols)}
			continue
		}

		cands := EnumeratePlacements(lib, enabledShapes, grid.Rows, grid.Cols, forbidden)
		if len(cands) == 0 {
			return failure(core.KindNoPlacement, "no pre-valid placements for any enabled shape")
		}

		snaps := freeCountSearch(cands, grid.Rows, grid.Cols, req, forbidden, constants.PerColorSolutionCap)
		if len(snaps) == 0 {
			return failure(core.KindNoSolution, "no per-color solution found for "+string(color))
		}
		perColor[color] = snaps
	}

	return composeWholePuzzle(colors, perColor)
}

// SolveExactCounts runs the exact-count search: the caller supplies, per
// color, a multiset of shape instances, and each instance may be used at
// most once.
func SolveExactCounts(lib *shapes.Library, grid GridInput, reqs core.Requirements, shapeCounts map[core.Color]map[string]int, colors []core.Color) Result {
	if allRequirementsZero(reqs, colors) {
		return failure(core.KindNoRequirements, "all requirements are zero")
	}

	forbidden := grid.forbiddenMask()
	perColor := make(map[core.Color][]snapshot, len(colors))

	for _, color := range colors {
		req := adjustedRequirementFor(reqs, grid, color)
		if requirementIsAllZero(req) {
			perColor[color] = []snapshot{emptySnapshot(grid.Rows, grid.Cols)}
			continue
		}

		instances := expandInstances(shapeCounts[color])
		if len(instances) == 0 {
			return failure(core.KindNoPlacement, "no shape instances supplied for "+string(color))
		}

		groups := make([][]Candidate, 0, len(instances))
		anyCandidates := false
		for _, shapeID := range instances {
			cands := EnumeratePlacements(lib, []string{shapeID}, grid.Rows, grid.Cols, forbidden)
			if len(cands) > 0 {
				anyCandidates = true
			}
			groups = append(groups, cands)
		}
		if !anyCandidates {
			return failure(core.KindNoPlacement, "no pre-valid placements for any supplied instance")
		}

		state := newSearchState(grid.Rows, grid.Cols, forbidden)
		var out []snapshot
		backtrackGroups(groups, 0, state, req, constants.PerColorSolutionCap, &out)
		if len(out) == 0 {
			return failure(core.KindNoSolution, "no per-color solution found for "+string(color))
		}
		perColor[color] = out
	}

	return composeWholePuzzle(colors, perColor)
}

// expandInstances flattens a shape-id -> count multiset into a fixed,
// deterministic instance list (ascending shape id, repeated count times),
// so identical-shape instances are tried in a stable order.
func expandInstances(counts map[string]int) []string {
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []string
	for _, id := range ids {
		for i := 0; i < counts[id]; i++ {
			out = append(out, id)
		}
	}
	return out
}

func freeCountSearch(cands []Candidate, rows, cols int, req requirement, forbidden gridmask.Mask, limit int) []snapshot {
	SortByMinCell(cands)
	groups := make([][]Candidate, len(cands))
	for i, c := range cands {
		groups[i] = []Candidate{c}
	}

	state := newSearchState(rows, cols, forbidden)
	var out []snapshot
	backtrackGroups(groups, 0, state, req, limit, &out)
	return out
}

// composeWholePuzzle crosses the per-color solution sets: the first
// color's solutions are enumerated, then each is paired with the next
// color's solutions whose cells do not overlap it, and so on, with the
// cross-product capped at WholePuzzleCap. Each color's solution set comes
// from one independent search (capped at PerColorSolutionCap) that does not
// exclude the earlier colors' cells; combinations outside those capped sets
// are not explored.
func composeWholePuzzle(colors []core.Color, perColor map[core.Color][]snapshot) Result {
	combos := [][]snapshot{{}}

	for _, color := range colors {
		var next [][]snapshot
		for _, combo := range combos {
			for _, snap := range perColor[color] {
				if overlapsAny(combo, snap) {
					continue
				}
				extended := make([]snapshot, len(combo)+1)
				copy(extended, combo)
				extended[len(combo)] = snap
				next = append(next, extended)
				if len(next) >= constants.WholePuzzleCap {
					break
				}
			}
			if len(next) >= constants.WholePuzzleCap {
				break
			}
		}
		combos = next
		if len(combos) == 0 {
			return failure(core.KindNoSolution, "no whole-puzzle composition across colors")
		}
	}

	solutions := make([]SolverSolution, 0, len(combos))
	for _, combo := range combos {
		sol := SolverSolution{
			Placements: make(map[core.Color][]core.Placement, len(colors)),
			Cells:      make(map[core.Color][]core.CellRef, len(colors)),
		}
		for i, color := range colors {
			sol.Placements[color] = combo[i].placements
			sol.Cells[color] = flattenCells(combo[i].placements)
		}
		solutions = append(solutions, sol)
	}

	return Result{Success: true, Solutions: solutions}
}

func overlapsAny(combo []snapshot, snap snapshot) bool {
	for _, c := range combo {
		if c.mask.Overlaps(snap.mask) {
			return true
		}
	}
	return false
}

func flattenCells(placements []core.Placement) []core.CellRef {
	var out []core.CellRef
	for _, p := range placements {
		out = append(out, p.Cells...)
	}
	return out
}
