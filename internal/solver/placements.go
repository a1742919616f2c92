// Package solver implements the per-color backtracking search: it places
// non-overlapping polyomino placements for each color until the running
// row/column counts match the declared requirements exactly. Cell
// membership is tracked with gridmask bitsets rather than hash sets.
package solver

import (
	"sort"

	"polyomino-api/internal/core"
	"polyomino-api/internal/gridmask"
	"polyomino-api/internal/shapes"
)

// Candidate is a pre-valid placement plus its precomputed bitmask and
// row/column histograms, so pushing/popping during backtracking is three
// cheap updates rather than re-deriving cell membership each time.
type Candidate struct {
	Placement  core.Placement
	Mask       gridmask.Mask
	RowHist    []int // length R, +1 per row a cell of this placement occupies
	ColHist    []int // length C, +1 per col a cell of this placement occupies
	MinCellPos int   // r*C+c of the placement's minimum absolute cell
}

// EnumeratePlacements returns every pre-valid placement for the given
// shape ids across all of their rotations and all anchors on an R×C grid,
// excluding anchors that would cover a blocked cell.
func EnumeratePlacements(lib *shapes.Library, shapeIDs []string, rows, cols int, blocked gridmask.Mask) []Candidate {
	var out []Candidate

	for _, id := range shapeIDs {
		entry, ok := lib.Lookup(id)
		if !ok {
			continue
		}
		for rotIdx, rot := range entry.Rotations {
			if rot.Bounds.Height > rows || rot.Bounds.Width > cols {
				continue
			}
			for r0 := 0; r0 <= rows-rot.Bounds.Height; r0++ {
				for c0 := 0; c0 <= cols-rot.Bounds.Width; c0++ {
					cand, ok := buildCandidate(id, rotIdx, rot.Cells, r0, c0, rows, cols, blocked)
					if ok {
						out = append(out, cand)
					}
				}
			}
		}
	}

	return out
}

func buildCandidate(shapeID string, rotation int, rotCells []core.CellRef, r0, c0, rows, cols int, blocked gridmask.Mask) (Candidate, bool) {
	cells := make([]core.CellRef, len(rotCells))
	mask := gridmask.New(rows * cols)
	rowHist := make([]int, rows)
	colHist := make([]int, cols)
	minPos := -1

	for i, rc := range rotCells {
		abs := core.CellRef{Row: r0 + rc.Row, Col: c0 + rc.Col}
		cells[i] = abs

		idx := abs.Row*cols + abs.Col
		if blocked.Test(idx) {
			return Candidate{}, false
		}
		mask.Set(idx)
		rowHist[abs.Row]++
		colHist[abs.Col]++
		if minPos == -1 || idx < minPos {
			minPos = idx
		}
	}

	return Candidate{
		Placement: core.Placement{
			ShapeID:  shapeID,
			Rotation: rotation,
			AnchorR:  r0,
			AnchorC:  c0,
			Cells:    cells,
		},
		Mask:       mask,
		RowHist:    rowHist,
		ColHist:    colHist,
		MinCellPos: minPos,
	}, true
}

// SortByMinCell orders candidates by their minimum absolute cell position
// (r*C+c), giving the free-count search a deterministic order independent
// of enumeration/insertion order.
func SortByMinCell(cands []Candidate) {
	sort.Slice(cands, func(i, j int) bool {
		return cands[i].MinCellPos < cands[j].MinCellPos
	})
}
