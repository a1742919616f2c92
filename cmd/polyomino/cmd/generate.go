package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"polyomino-api/internal/cli"
	"polyomino-api/internal/core"
	"polyomino-api/internal/generator"
	"polyomino-api/internal/prng"
	"polyomino-api/internal/puzzles"
	"polyomino-api/internal/shapes"
	"polyomino-api/pkg/constants"
)

var (
	genCount      int
	genOutput     string
	genWorkers    int
	genSeed       int64
	genShapesFile string
	genRows       int
	genCols       int
	genColors     []string
	genBlockers   bool
	genLocks      bool
)

// generateCmd batch pre-bakes a pool of puzzles to a JSON file, the same
// pool shape internal/puzzles.Loader reads at server startup. A work
// channel of indices feeds N goroutines with an atomic progress counter
// driving the spinner display.
var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"gen", "g"},
	Short:   "Pre-bake a pool of puzzles to a JSON file",
	Long: `Generate runs the core generator repeatedly, in parallel, and writes the
resulting puzzles to a pool file the HTTP server can load at startup
(PUZZLE_POOL_FILE) to serve the daily endpoint without paying for an
on-demand generate() call per request.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().IntVarP(&genCount, "count", "c", 100, "number of puzzles to generate")
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "puzzles.json", "output pool file path")
	generateCmd.Flags().IntVarP(&genWorkers, "workers", "w", 0, "worker goroutines (default: NumCPU)")
	generateCmd.Flags().Int64VarP(&genSeed, "seed", "s", 1, "starting seed; puzzle i uses seed+i")
	generateCmd.Flags().StringVar(&genShapesFile, "shapes", "shapes.json", "shape definitions file")
	generateCmd.Flags().IntVar(&genRows, "rows", constants.DefaultGridRows, "grid rows")
	generateCmd.Flags().IntVar(&genCols, "cols", constants.DefaultGridCols, "grid cols")
	generateCmd.Flags().StringSliceVar(&genColors, "colors", constants.DefaultColors, "color palette")
	generateCmd.Flags().BoolVar(&genBlockers, "blockers", true, "enable blockers")
	generateCmd.Flags().BoolVar(&genLocks, "locks", false, "enable locks")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if genCount <= 0 {
		return fmt.Errorf("--count must be positive")
	}
	workers := genWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	defs, err := shapes.LoadDefinitionsFile(genShapesFile)
	if err != nil {
		return fmt.Errorf("loading shapes: %w", err)
	}
	lib, err := shapes.Build(defs)
	if err != nil {
		return fmt.Errorf("building shape library: %w", err)
	}

	cfg := generator.Config{
		Rows:      genRows,
		Cols:      genCols,
		Colors:    toColors(genColors),
		Blockers:  genBlockers,
		Locks:     genLocks,
		ShapePool: lib.IDs(),
	}

	cli.Info("Generating %d puzzles with %d workers...", genCount, workers)
	start := time.Now()

	results := make([]core.Puzzle, genCount)
	failures := make([]int, 0)
	var failMu sync.Mutex
	var generated int64

	work := make(chan int, genCount)
	for i := 0; i < genCount; i++ {
		work <- i
	}
	close(work)

	spin := cli.NewSpinner(fmt.Sprintf("0/%d puzzles", genCount))
	spin.Start()
	progressDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				g := atomic.LoadInt64(&generated)
				spin.UpdateMessage("%d/%d puzzles (%.1fs elapsed)", g, genCount, time.Since(start).Seconds())
			case <-progressDone:
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				seed := genSeed + int64(idx)
				puzzle, err := generator.Generate(lib, cfg, prng.NewSource(seed), constants.GenerateDeadline)
				if err != nil {
					failMu.Lock()
					failures = append(failures, idx)
					failMu.Unlock()
					atomic.AddInt64(&generated, 1)
					continue
				}
				results[idx] = *puzzle
				atomic.AddInt64(&generated, 1)
			}
		}()
	}
	wg.Wait()
	close(progressDone)
	spin.Stop()

	elapsed := time.Since(start)
	cli.Info("Generated %d/%d puzzles in %v", genCount-len(failures), genCount, elapsed)
	if len(failures) > 0 {
		cli.Warning("%d puzzle(s) failed (deadline exceeded) and were skipped", len(failures))
	}

	pool := compactPool(results, failures)
	if len(pool) == 0 {
		return fmt.Errorf("no puzzles generated successfully")
	}

	file := puzzles.PuzzleFile{Version: 1, Count: len(pool), Puzzles: pool}
	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshaling pool: %w", err)
	}
	if err := os.WriteFile(genOutput, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", genOutput, err)
	}

	info, _ := os.Stat(genOutput)
	cli.Success("Wrote %d puzzles to %s (%.2f KB)", len(pool), genOutput, float64(info.Size())/1024)
	return nil
}

// compactPool drops the indices that failed, preserving the rest in order.
func compactPool(results []core.Puzzle, failures []int) []core.Puzzle {
	failed := make(map[int]bool, len(failures))
	for _, idx := range failures {
		failed[idx] = true
	}
	out := make([]core.Puzzle, 0, len(results))
	for i, p := range results {
		if !failed[i] {
			out = append(out, p)
		}
	}
	return out
}

func toColors(ss []string) []core.Color {
	out := make([]core.Color, len(ss))
	for i, s := range ss {
		out[i] = core.Color(s)
	}
	return out
}
