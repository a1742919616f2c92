package solver

import (
	"polyomino-api/internal/core"
	"polyomino-api/internal/gridmask"
)

// requirement is one color's row/column target counts as flat int slices.
type requirement struct {
	rows []int
	cols []int
}

// snapshot is a recorded solution for one color: the placement stack and
// the union cell mask at the moment requirements matched exactly.
type snapshot struct {
	placements []core.Placement
	mask       gridmask.Mask
}

// searchState carries the running counts, used-cell mask, and placement
// stack for one color's backtracking search.
type searchState struct {
	rows, cols int
	rowCounts  []int
	colCounts  []int
	used       gridmask.Mask
	forbidden  gridmask.Mask
	stack      []core.Placement
}

func newSearchState(rows, cols int, forbidden gridmask.Mask) *searchState {
	return &searchState{
		rows:      rows,
		cols:      cols,
		rowCounts: make([]int, rows),
		colCounts: make([]int, cols),
		used:      gridmask.New(rows * cols),
		forbidden: forbidden,
	}
}

func (s *searchState) overlaps(c Candidate) bool {
	return c.Mask.Overlaps(s.used) || c.Mask.Overlaps(s.forbidden)
}

func (s *searchState) push(c Candidate) {
	s.used.MergeFrom(c.Mask)
	for r := 0; r < s.rows; r++ {
		s.rowCounts[r] += c.RowHist[r]
	}
	for col := 0; col < s.cols; col++ {
		s.colCounts[col] += c.ColHist[col]
	}
	s.stack = append(s.stack, c.Placement)
}

func (s *searchState) pop(c Candidate) {
	s.used.SubtractFrom(c.Mask)
	for r := 0; r < s.rows; r++ {
		s.rowCounts[r] -= c.RowHist[r]
	}
	for col := 0; col < s.cols; col++ {
		s.colCounts[col] -= c.ColHist[col]
	}
	s.stack = s.stack[:len(s.stack)-1]
}

func (s *searchState) matches(req requirement) bool {
	for r := 0; r < s.rows; r++ {
		if s.rowCounts[r] != req.rows[r] {
			return false
		}
	}
	for c := 0; c < s.cols; c++ {
		if s.colCounts[c] != req.cols[c] {
			return false
		}
	}
	return true
}

func (s *searchState) exceeds(req requirement) bool {
	for r := 0; r < s.rows; r++ {
		if s.rowCounts[r] > req.rows[r] {
			return true
		}
	}
	for c := 0; c < s.cols; c++ {
		if s.colCounts[c] > req.cols[c] {
			return true
		}
	}
	return false
}

func (s *searchState) snapshot() snapshot {
	placements := make([]core.Placement, len(s.stack))
	copy(placements, s.stack)
	return snapshot{placements: placements, mask: s.used.Clone()}
}

// backtrackGroups runs the shared backtracking skeleton over a list of
// candidate groups. In free-count mode each group is a single placement,
// so the outer index ranges over a flat, sorted placement list. In
// exact-count mode each group is one shape instance's full set of
// pre-valid placements: picking any placement from a group consumes that
// instance and moves the search to group idx+1, the usual "choose at
// position i, recurse from i+1" idiom that avoids permuting identical
// instances. Matching states are recorded and the search continues until
// limit solutions have been collected.
func backtrackGroups(groups [][]Candidate, idx int, state *searchState, req requirement, limit int, out *[]snapshot) {
	if state.matches(req) {
		*out = append(*out, state.snapshot())
		if len(*out) >= limit {
			return
		}
	}
	if state.exceeds(req) {
		return
	}

	for i := idx; i < len(groups); i++ {
		for _, cand := range groups[i] {
			if len(*out) >= limit {
				return
			}
			if state.overlaps(cand) {
				continue
			}
			state.push(cand)
			backtrackGroups(groups, i+1, state, req, limit, out)
			state.pop(cand)
			if len(*out) >= limit {
				return
			}
		}
	}
}
