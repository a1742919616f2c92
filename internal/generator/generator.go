// Package generator constructs puzzle instances: it picks random shapes
// from the shape library, lays them out on a grid alongside blockers and
// color locks, and derives the row/column requirements a solver must later
// reproduce. Every returned puzzle is solvable by construction.
package generator

import (
	"math"
	"time"

	"polyomino-api/internal/core"
	"polyomino-api/internal/prng"
	"polyomino-api/internal/shapes"
	"polyomino-api/pkg/constants"
)

// Config is a generation request.
type Config struct {
	Rows      int
	Cols      int
	Colors    []core.Color
	Blockers  bool
	Locks     bool
	ShapePool []string
}

// DefaultConfig returns the documented defaults: 5x5, green/blue, blockers
// enabled, locks disabled, every library shape in the pool.
func DefaultConfig(lib *shapes.Library) Config {
	colors := make([]core.Color, len(constants.DefaultColors))
	for i, c := range constants.DefaultColors {
		colors[i] = core.Color(c)
	}
	return Config{
		Rows:      constants.DefaultGridRows,
		Cols:      constants.DefaultGridCols,
		Colors:    colors,
		Blockers:  true,
		Locks:     false,
		ShapePool: lib.IDs(),
	}
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.Rows <= 0 || cfg.Cols <= 0:
		return core.NewError(core.KindInvalidConfig, "gridRows and gridCols must be positive")
	case len(cfg.Colors) == 0:
		return core.NewError(core.KindInvalidConfig, "at least one color is required")
	case len(cfg.ShapePool) == 0:
		return core.NewError(core.KindInvalidConfig, "shapePool must not be empty")
	}
	return nil
}

// plan is everything the placement stage needs: budgets, shape picks, and
// the layout strategy, decided before any grid cell has been touched.
type plan struct {
	rows, cols int
	colors     []core.Color
	shapeLists map[core.Color][]shapeInstance

	blockerBudget int
	lockBudget    map[core.Color]int
	strategy      core.Strategy
}

// Generate repeatedly runs the single-attempt pipeline until one attempt
// succeeds or the wall-clock deadline elapses. An invalid config is
// rejected up front with InvalidConfig; after that, DeadlineExceeded is the
// only error that escapes, since shape-selection and placement failures
// inside an attempt are retried silently.
func Generate(lib *shapes.Library, cfg Config, source prng.Source, deadline time.Duration) (*core.Puzzle, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	giveUpAt := time.Now().Add(deadline)
	for time.Now().Before(giveUpAt) {
		if puzzle, ok := attempt(lib, cfg, source); ok {
			return puzzle, nil
		}
	}
	return nil, core.NewError(core.KindDeadlineExceeded, "generation deadline exceeded")
}

func attempt(lib *shapes.Library, cfg Config, source prng.Source) (*core.Puzzle, bool) {
	p, ok := buildPlan(lib, cfg, source)
	if !ok {
		return nil, false
	}
	return runPlacement(lib, p, source)
}

// buildPlan allocates the per-color shape budget, selects shapes, splits
// the leftover cells into blocker/lock budgets, and flips the strategy coin.
func buildPlan(lib *shapes.Library, cfg Config, source prng.Source) (plan, bool) {
	n := cfg.Rows * cfg.Cols
	k := len(cfg.Colors)

	reserve := 0
	if cfg.Blockers || cfg.Locks {
		reserve = int(math.Floor(float64(cfg.Rows+cfg.Cols) / constants.ReserveDivisor))
	}
	perColorBudget := (n - reserve) / k

	shapeLists := make(map[core.Color][]shapeInstance, k)
	totalRemainder := reserve
	for _, color := range cfg.Colors {
		list, remainder := selectShapes(lib, cfg.ShapePool, perColorBudget, source)
		if len(list) == 0 {
			return plan{}, false
		}
		shapeLists[color] = list
		totalRemainder += remainder
	}

	blockerBudget, lockTotal := splitReserve(totalRemainder, cfg.Blockers, cfg.Locks)
	lockBudget := distributeLocks(lockTotal, cfg.Colors, source)

	strategy := core.Chaotic
	if source.NextIntBelow(2) == 0 {
		strategy = core.Symmetrical
	}

	return plan{
		rows:          cfg.Rows,
		cols:          cfg.Cols,
		colors:        cfg.Colors,
		shapeLists:    shapeLists,
		blockerBudget: blockerBudget,
		lockBudget:    lockBudget,
		strategy:      strategy,
	}, true
}

// selectShapes fills one color's budget: repeatedly pick a uniformly
// random shape among those that fit the remaining budget, and a uniformly
// random rotation for it, until nothing fits. Returns the shape list and
// whatever budget is left unused.
func selectShapes(lib *shapes.Library, pool []string, budget int, source prng.Source) ([]shapeInstance, int) {
	remaining := budget
	var list []shapeInstance
	for {
		eligible := eligibleShapeIDs(lib, pool, remaining)
		if len(eligible) == 0 {
			break
		}
		id := prng.Pick(source, eligible)
		entry, _ := lib.Lookup(id)
		rotation := source.NextIntBelow(len(entry.Rotations))
		list = append(list, shapeInstance{ShapeID: id, Rotation: rotation})
		remaining -= entry.CellCount
	}
	return list, remaining
}

func eligibleShapeIDs(lib *shapes.Library, pool []string, remaining int) []string {
	var out []string
	for _, id := range pool {
		entry, ok := lib.Lookup(id)
		if ok && entry.CellCount <= remaining {
			out = append(out, id)
		}
	}
	return out
}

// splitReserve partitions the unused cell total between blockers and locks,
// according to which of the two are enabled.
func splitReserve(total int, blockersEnabled, locksEnabled bool) (blockerBudget, lockBudget int) {
	switch {
	case blockersEnabled && locksEnabled:
		blockerBudget = total / 2
		lockBudget = total - blockerBudget
	case blockersEnabled:
		blockerBudget = total
	case locksEnabled:
		lockBudget = total
	}
	return blockerBudget, lockBudget
}

// distributeLocks floor-divides the lock budget across colors, then hands
// the remainder to a shuffled, non-repeating subset of colors.
func distributeLocks(total int, colors []core.Color, source prng.Source) map[core.Color]int {
	out := make(map[core.Color]int, len(colors))
	if len(colors) == 0 {
		return out
	}

	base := total / len(colors)
	remainder := total % len(colors)
	for _, color := range colors {
		out[color] = base
	}

	order := make([]int, len(colors))
	for i := range order {
		order[i] = i
	}
	prng.Shuffle(source, order)
	for i := 0; i < remainder; i++ {
		out[colors[order[i]]]++
	}
	return out
}

// runPlacement makes a bounded number of attempts to lay out blockers,
// locks, and shapes on a fresh grid, falling back to a blocker-last layout
// when every attempt fails.
func runPlacement(lib *shapes.Library, p plan, source prng.Source) (*core.Puzzle, bool) {
	for i := 0; i < constants.InnerAttempts; i++ {
		grid := newEmptyGrid(p.rows, p.cols)

		if !placeBlockers(grid, p.rows, p.cols, p.blockerBudget, p.strategy, source) {
			continue
		}
		if !placeLocks(grid, p.rows, p.cols, p.colors, p.lockBudget, source) {
			continue
		}
		placements, ok := placeShapes(grid, p.colors, p.shapeLists, lib, source)
		if !ok {
			continue
		}
		return finalize(grid, p, placements), true
	}

	return fallback(lib, p, source)
}

func fallback(lib *shapes.Library, p plan, source prng.Source) (*core.Puzzle, bool) {
	grid := newEmptyGrid(p.rows, p.cols)
	placements, ok := placeShapes(grid, p.colors, p.shapeLists, lib, source)
	if !ok {
		return nil, false
	}

	empties := emptyCells(grid, p.rows, p.cols)
	prng.ShuffleSlice(source, empties)

	idx := 0
	for i := 0; i < p.blockerBudget && idx < len(empties); i++ {
		cell := empties[idx]
		idx++
		grid[cell.Row][cell.Col] = core.CellState{Kind: core.Blocked}
	}
	for _, color := range p.colors {
		for i := 0; i < p.lockBudget[color] && idx < len(empties); i++ {
			cell := empties[idx]
			idx++
			grid[cell.Row][cell.Col] = core.CellState{Kind: core.LockedFor, Color: color}
		}
	}

	return finalize(grid, p, placements), true
}
