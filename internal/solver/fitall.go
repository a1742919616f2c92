package solver

import (
	"polyomino-api/internal/core"
	"polyomino-api/internal/gridmask"
	"polyomino-api/internal/shapes"
)

// FitAllResult is the tagged result of FitAllPieces.
type FitAllResult struct {
	Success    bool
	Placements []core.Placement
	Kind       core.Kind
	Message    string
}

func fitAllFailure(kind core.Kind, msg string) FitAllResult {
	return FitAllResult{Success: false, Kind: kind, Message: msg}
}

// FitAllPieces finds placements that consume every instance of an exact
// shape multiset with no overlaps, on a grid with the given blocked cells.
// Row/column requirements play no part. Instances are tried in fixed list
// order; for each, every pre-valid placement of its shape id is tried. The
// search returns as soon as one full assignment is found.
func FitAllPieces(lib *shapes.Library, rows, cols int, blockedCells []core.CellRef, shapeCounts map[string]int) FitAllResult {
	instances := expandInstances(shapeCounts)
	if len(instances) == 0 {
		return fitAllFailure(core.KindInvalidConfig, "no shape instances supplied")
	}

	blocked := gridmask.New(rows * cols)
	for _, c := range blockedCells {
		blocked.Set(c.Row*cols + c.Col)
	}

	groups := make([][]Candidate, 0, len(instances))
	for _, shapeID := range instances {
		cands := EnumeratePlacements(lib, []string{shapeID}, rows, cols, blocked)
		if len(cands) == 0 {
			return fitAllFailure(core.KindNoPlacement, "no pre-valid placements for instance of "+shapeID)
		}
		groups = append(groups, cands)
	}

	state := newSearchState(rows, cols, blocked)
	var found []core.Placement

	var backtrack func(idx int) bool
	backtrack = func(idx int) bool {
		if idx == len(groups) {
			found = make([]core.Placement, len(state.stack))
			copy(found, state.stack)
			return true
		}
		for _, cand := range groups[idx] {
			if state.overlaps(cand) {
				continue
			}
			state.push(cand)
			if backtrack(idx + 1) {
				return true
			}
			state.pop(cand)
		}
		return false
	}

	if !backtrack(0) {
		return fitAllFailure(core.KindNoSolution, "no assignment consumes every instance without overlap")
	}

	return FitAllResult{Success: true, Placements: found}
}
