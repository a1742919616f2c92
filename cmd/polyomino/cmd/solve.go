package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"polyomino-api/internal/cli"
	"polyomino-api/internal/core"
	"polyomino-api/internal/shapes"
	"polyomino-api/internal/solver"
)

var (
	solveFile       string
	solveShapesFile string
	solveExact      bool
)

// solveRequest is the CLI-facing analogue of routes.go's
// SolveCountsRequest/SolveExactCountsRequest: one JSON document read from
// --file or stdin, carrying the grid and requirements a host would
// otherwise POST to /api/solve/*.
type solveRequest struct {
	Rows          int                       `json:"rows"`
	Cols          int                       `json:"cols"`
	Grid          [][]core.CellState        `json:"grid"`
	RowReqs       []map[string]int          `json:"row_reqs"`
	ColReqs       []map[string]int          `json:"col_reqs"`
	Colors        []string                  `json:"colors"`
	EnabledShapes []string                  `json:"enabled_shapes"`
	ShapeCounts   map[string]map[string]int `json:"shape_counts"`
}

// solveCmd runs solve_counts or solve_exact_counts against a puzzle file,
// the offline counterpart to the HTTP /api/solve/* endpoints.
var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a puzzle from a JSON request file or stdin",
	Long: `Solve reads a solve request (grid, row/col requirements, colors, and
either an enabled-shapes list or a per-color shape-count multiset) and
prints the resulting solutions as JSON.

Examples:
  polyomino solve --file request.json
  cat request.json | polyomino solve --exact`,
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().StringVarP(&solveFile, "file", "f", "", "request JSON file (default: stdin)")
	solveCmd.Flags().StringVar(&solveShapesFile, "shapes", "shapes.json", "shape definitions file")
	solveCmd.Flags().BoolVar(&solveExact, "exact", false, "use solve_exact_counts (shape_counts) instead of solve_counts (enabled_shapes)")
}

func runSolve(cmd *cobra.Command, args []string) error {
	raw, err := readRequestBytes()
	if err != nil {
		return err
	}

	var req solveRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parsing request: %w", err)
	}

	defs, err := shapes.LoadDefinitionsFile(solveShapesFile)
	if err != nil {
		return fmt.Errorf("loading shapes: %w", err)
	}
	lib, err := shapes.Build(defs)
	if err != nil {
		return fmt.Errorf("building shape library: %w", err)
	}

	grid := solver.GridInput{Rows: req.Rows, Cols: req.Cols, Cells: req.Grid}
	reqs := core.Requirements{Rows: toColorCountMaps(req.RowReqs), Cols: toColorCountMaps(req.ColReqs)}
	colors := toColors(req.Colors)

	var res solver.Result
	if solveExact {
		cli.Verbose("running solve_exact_counts over %d colors", len(colors))
		res = solver.SolveExactCounts(lib, grid, reqs, toColorShapeCounts(req.ShapeCounts), colors)
	} else {
		cli.Verbose("running solve_counts over %d colors with %d enabled shapes", len(colors), len(req.EnabledShapes))
		res = solver.SolveCounts(lib, grid, reqs, req.EnabledShapes, colors)
	}

	return printSolveResult(res)
}

func readRequestBytes() ([]byte, error) {
	if solveFile != "" {
		return os.ReadFile(solveFile)
	}
	return io.ReadAll(os.Stdin)
}

func printSolveResult(res solver.Result) error {
	if !res.Success {
		cli.Warning("%s: %s", res.Kind, res.Message)
		out, _ := json.MarshalIndent(map[string]interface{}{
			"success": false,
			"kind":    res.Kind,
			"message": res.Message,
		}, "", "  ")
		fmt.Println(string(out))
		return nil
	}

	cli.Success("found %d solution(s)", len(res.Solutions))
	out, err := json.MarshalIndent(map[string]interface{}{
		"success":   true,
		"solutions": res.Solutions,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func toColorCountMaps(maps []map[string]int) []map[core.Color]int {
	out := make([]map[core.Color]int, len(maps))
	for i, m := range maps {
		cm := make(map[core.Color]int, len(m))
		for k, v := range m {
			cm[core.Color(k)] = v
		}
		out[i] = cm
	}
	return out
}

func toColorShapeCounts(m map[string]map[string]int) map[core.Color]map[string]int {
	out := make(map[core.Color]map[string]int, len(m))
	for k, v := range m {
		out[core.Color(k)] = v
	}
	return out
}
