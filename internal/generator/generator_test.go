package generator

import (
	"testing"
	"time"

	"polyomino-api/internal/core"
	"polyomino-api/internal/prng"
	"polyomino-api/internal/shapes"
	"polyomino-api/internal/solver"
)

func cell(r, c int) core.CellRef { return core.CellRef{Row: r, Col: c} }

func testLibrary(t *testing.T) *shapes.Library {
	t.Helper()
	defs := []shapes.Definition{
		{ID: "square-4", Name: "Square", Cells: []core.CellRef{cell(0, 0), cell(0, 1), cell(1, 0), cell(1, 1)}},
		{ID: "line-3", Name: "Line-3", Cells: []core.CellRef{cell(0, 0), cell(0, 1), cell(0, 2)}},
	}
	lib, err := shapes.Build(defs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return lib
}

// A 2x2 grid with a single color and only square-4 in the pool has exactly
// one possible layout regardless of random seed: the square covers the
// whole grid, so every row and column requires two green cells.
func TestGenerate_SquareOnTwoByTwo(t *testing.T) {
	lib := testLibrary(t)
	cfg := Config{
		Rows:      2,
		Cols:      2,
		Colors:    []core.Color{"green"},
		Blockers:  false,
		Locks:     false,
		ShapePool: []string{"square-4"},
	}

	puzzle, err := Generate(lib, cfg, prng.NewSource(1), time.Second)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for r := 0; r < 2; r++ {
		if puzzle.Requirements.Rows[r]["green"] != 2 {
			t.Errorf("row %d: expected green requirement 2, got %d", r, puzzle.Requirements.Rows[r]["green"])
		}
		if puzzle.Requirements.Cols[r]["green"] != 2 {
			t.Errorf("col %d: expected green requirement 2, got %d", r, puzzle.Requirements.Cols[r]["green"])
		}
	}
	if len(puzzle.Blockers) != 0 {
		t.Errorf("expected no blockers, got %v", puzzle.Blockers)
	}
	if len(puzzle.Solution["green"]) != 4 {
		t.Errorf("expected 4 solution cells, got %d", len(puzzle.Solution["green"]))
	}
}

// For any successful generation, solution cells, blockers, and locks must
// be pairwise disjoint and together never exceed the grid size.
func TestGenerate_CellPartitionIsDisjoint(t *testing.T) {
	lib := testLibrary(t)
	cfg := Config{
		Rows:      5,
		Cols:      5,
		Colors:    []core.Color{"green", "blue"},
		Blockers:  true,
		Locks:     true,
		ShapePool: []string{"square-4", "line-3"},
	}

	puzzle, err := Generate(lib, cfg, prng.NewSource(42), time.Second)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	seen := make(map[core.CellRef]string)
	total := 0
	record := func(c core.CellRef, owner string) {
		if existing, ok := seen[c]; ok {
			t.Fatalf("cell %v claimed by both %q and %q", c, existing, owner)
		}
		seen[c] = owner
		total++
	}
	for _, c := range puzzle.Blockers {
		record(c, "blocker")
	}
	for color, cells := range puzzle.Locks {
		for _, c := range cells {
			record(c, "lock:"+string(color))
		}
	}
	for color, cells := range puzzle.Solution {
		for _, c := range cells {
			record(c, "solution:"+string(color))
		}
	}
	if total > 25 {
		t.Fatalf("expected at most 25 claimed cells, got %d", total)
	}
}

// Feeding the exact-count solver the generator's own per-color shape
// multiset must recover at least one solution.
func TestGenerate_RoundTripWithSolveExactCounts(t *testing.T) {
	lib := testLibrary(t)
	cfg := Config{
		Rows:      2,
		Cols:      2,
		Colors:    []core.Color{"green"},
		Blockers:  false,
		Locks:     false,
		ShapePool: []string{"square-4"},
	}

	puzzle, err := Generate(lib, cfg, prng.NewSource(7), time.Second)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	shapeCounts := map[core.Color]map[string]int{
		"green": shapeCountsFromPlacements(puzzle.Shapes["green"]),
	}

	grid := solver.GridInput{Rows: 2, Cols: 2, Cells: puzzle.Grid}
	res := solver.SolveExactCounts(lib, grid, puzzle.Requirements, shapeCounts, []core.Color{"green"})
	if !res.Success {
		t.Fatalf("expected the solver to reproduce a solution, got %+v", res)
	}
}

func shapeCountsFromPlacements(placements []core.Placement) map[string]int {
	out := make(map[string]int)
	for _, p := range placements {
		out[p.ShapeID]++
	}
	return out
}

func TestGenerate_InvalidConfigRejected(t *testing.T) {
	lib := testLibrary(t)
	cfg := Config{Rows: 0, Cols: 3, Colors: []core.Color{"green"}, ShapePool: []string{"square-4"}}

	_, err := Generate(lib, cfg, prng.NewSource(1), time.Second)
	gotErr, ok := err.(*core.Error)
	if !ok || gotErr.Kind != core.KindInvalidConfig {
		t.Fatalf("expected InvalidConfig, got %v", err)
	}
}

// A shape pool that never fits any budget fails Phase 2 on every attempt,
// so Generate must exhaust the deadline and report DeadlineExceeded.
func TestGenerate_ImpossibleShapePoolExceedsDeadline(t *testing.T) {
	lib := testLibrary(t)
	cfg := Config{
		Rows:      1,
		Cols:      1,
		Colors:    []core.Color{"green"},
		Blockers:  false,
		Locks:     false,
		ShapePool: []string{"square-4", "line-3"}, // both need >= 3 cells, budget is 1
	}

	_, err := Generate(lib, cfg, prng.NewSource(1), 20*time.Millisecond)
	gotErr, ok := err.(*core.Error)
	if !ok || gotErr.Kind != core.KindDeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
}

func TestSplitReserve(t *testing.T) {
	cases := []struct {
		blockers, locks   bool
		wantBlk, wantLock int
	}{
		{true, true, 5, 5},
		{true, false, 10, 0},
		{false, true, 0, 10},
		{false, false, 0, 0},
	}
	for _, tc := range cases {
		blk, lock := splitReserve(10, tc.blockers, tc.locks)
		if tc.blockers && tc.locks {
			if blk+lock != 10 {
				t.Errorf("blockers=%v locks=%v: %d+%d != 10", tc.blockers, tc.locks, blk, lock)
			}
			continue
		}
		if blk != tc.wantBlk || lock != tc.wantLock {
			t.Errorf("blockers=%v locks=%v: got (%d,%d), want (%d,%d)", tc.blockers, tc.locks, blk, lock, tc.wantBlk, tc.wantLock)
		}
	}
}

func TestDistributeLocks_PreservesTotal(t *testing.T) {
	colors := []core.Color{"green", "blue", "red"}
	out := distributeLocks(7, colors, prng.NewSource(3))
	sum := 0
	for _, color := range colors {
		sum += out[color]
	}
	if sum != 7 {
		t.Fatalf("expected distributed total 7, got %d", sum)
	}
}

func TestSelectShapes_StopsWhenNothingFits(t *testing.T) {
	lib := testLibrary(t)
	list, remaining := selectShapes(lib, []string{"square-4", "line-3"}, 5, prng.NewSource(9))
	if len(list) == 0 {
		t.Fatal("expected at least one shape selected")
	}
	for _, inst := range list {
		entry, _ := lib.Lookup(inst.ShapeID)
		if entry.CellCount > 5 {
			t.Errorf("selected shape %q (cellCount %d) exceeds budget", inst.ShapeID, entry.CellCount)
		}
	}
	if remaining < 0 {
		t.Fatalf("remaining budget went negative: %d", remaining)
	}
}

// The reserve is floor((R+C)/1.5) when blockers or locks are enabled, and
// every cell a color leaves unused flows into the blocker budget.
func TestBuildPlan_ReserveFormula(t *testing.T) {
	lib := testLibrary(t)
	cfg := Config{
		Rows:      3,
		Cols:      3,
		Colors:    []core.Color{"green"},
		Blockers:  true,
		Locks:     false,
		ShapePool: []string{"line-3"},
	}

	p, ok := buildPlan(lib, cfg, prng.NewSource(5))
	if !ok {
		t.Fatal("expected a valid plan")
	}
	// reserve = floor(6/1.5) = 4, perColorBudget = floor((9-4)/1) = 5.
	// line-3 costs 3 cells per instance, so at most one instance fits (3 <= 5
	// but a second would need 3 > remaining 2), leaving a remainder of 2
	// that, plus the reserve, becomes the blocker budget.
	totalShapeCells := 0
	for _, inst := range p.shapeLists["green"] {
		entry, _ := lib.Lookup(inst.ShapeID)
		totalShapeCells += entry.CellCount
	}
	if totalShapeCells > 5 {
		t.Fatalf("color exceeded its own budget: used %d of 5", totalShapeCells)
	}
	if p.blockerBudget != 9-totalShapeCells {
		t.Fatalf("expected blocker budget to absorb the rest of the grid (%d), got %d", 9-totalShapeCells, p.blockerBudget)
	}
}
