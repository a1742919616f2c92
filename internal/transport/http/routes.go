// Package http exposes the engine over gin as JSON endpoints. The shape
// library is built once at startup (cmd/server loads shapes.json); each of
// generate, solve counts, solve exact-counts, fit-all, and validate is one
// handler, plus a daily-puzzle route and a health check.
package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"polyomino-api/internal/core"
	"polyomino-api/internal/generator"
	"polyomino-api/internal/prng"
	"polyomino-api/internal/puzzles"
	"polyomino-api/internal/shapes"
	"polyomino-api/internal/solver"
	"polyomino-api/pkg/config"
	"polyomino-api/pkg/constants"
)

var (
	cfg *config.Config
	lib *shapes.Library
)

// RegisterRoutes wires every endpoint onto r. lib is the shape library
// built once at startup from config.ShapesFile.
func RegisterRoutes(r *gin.Engine, c *config.Config, l *shapes.Library) {
	cfg = c
	lib = l

	r.GET("/health", healthHandler)

	api := r.Group("/api")
	{
		api.GET("/daily", dailyHandler)
		api.POST("/generate", generateHandler)
		api.POST("/solve/counts", solveCountsHandler)
		api.POST("/solve/exact-counts", solveExactCountsHandler)
		api.POST("/solve/fit-all", fitAllHandler)
		api.POST("/validate", validateHandler)
	}
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": constants.APIVersion,
	})
}

// errorStatus maps a core.Kind to the HTTP status a failure of that kind
// should carry; unrecognized kinds (there shouldn't be any) fall back to 500.
func errorStatus(kind core.Kind) int {
	switch kind {
	case core.KindInvalidConfig, core.KindDuplicateShapeID:
		return http.StatusBadRequest
	case core.KindNoShapesFit, core.KindNoPlacement, core.KindNoRequirements, core.KindNoSolution:
		return http.StatusOK // a well-formed request that simply has no solution
	case core.KindDeadlineExceeded:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func toColors(ss []string) []core.Color {
	out := make([]core.Color, len(ss))
	for i, s := range ss {
		out[i] = core.Color(s)
	}
	return out
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

func shapeCountsFromPuzzle(puzzle *core.Puzzle) map[core.Color]map[string]int {
	out := make(map[core.Color]map[string]int, len(puzzle.Shapes))
	for color, placements := range puzzle.Shapes {
		counts := make(map[string]int, len(placements))
		for _, p := range placements {
			counts[p.ShapeID]++
		}
		out[color] = counts
	}
	return out
}

// GenerateRequest configures a generation run. Zero-valued fields fall
// back to generator.DefaultConfig.
type GenerateRequest struct {
	Rows      int      `json:"rows"`
	Cols      int      `json:"cols"`
	Colors    []string `json:"colors"`
	Blockers  *bool    `json:"blockers"`
	Locks     *bool    `json:"locks"`
	ShapePool []string `json:"shape_pool"`
	Seed      *int64   `json:"seed"`
}

func buildGenerateConfig(req GenerateRequest) generator.Config {
	cfg := generator.DefaultConfig(lib)
	if req.Rows > 0 {
		cfg.Rows = req.Rows
	}
	if req.Cols > 0 {
		cfg.Cols = req.Cols
	}
	if len(req.Colors) > 0 {
		cfg.Colors = toColors(req.Colors)
	}
	if req.Blockers != nil {
		cfg.Blockers = *req.Blockers
	}
	if req.Locks != nil {
		cfg.Locks = *req.Locks
	}
	if len(req.ShapePool) > 0 {
		cfg.ShapePool = req.ShapePool
	}
	return cfg
}

func generateHandler(c *gin.Context) {
	var req GenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	genCfg := buildGenerateConfig(req)

	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	source := prng.NewSource(seed)

	puzzle, err := generator.Generate(lib, genCfg, source, cfg.GenerateDeadline)
	if err != nil {
		respondCoreError(c, err)
		return
	}

	shapeCounts := shapeCountsFromPuzzle(puzzle)
	puzzleID := fmt.Sprintf("puzzle-%d", seed)

	token, err := createSessionToken(cfg.SessionSecret, puzzleID, shapeCounts, constants.SessionTokenExpiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"puzzle_id": puzzleID,
		"puzzle":    puzzle,
		"token":     token,
	})
}

func respondCoreError(c *gin.Context, err error) {
	ce, ok := err.(*core.Error)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	status := errorStatus(ce.Kind)
	if status == http.StatusOK {
		c.JSON(status, gin.H{"success": false, "kind": ce.Kind, "message": ce.Msg})
		return
	}
	c.JSON(status, gin.H{"error": ce.Msg, "kind": ce.Kind})
}

// SolveCountsRequest is the free-count solve request body.
type SolveCountsRequest struct {
	Rows          int                 `json:"rows" binding:"required"`
	Cols          int                `json:"cols" binding:"required"`
	Grid          [][]core.CellState `json:"grid" binding:"required"`
	RowReqs       []map[string]int   `json:"row_reqs" binding:"required"`
	ColReqs       []map[string]int   `json:"col_reqs" binding:"required"`
	EnabledShapes []string           `json:"enabled_shapes" binding:"required"`
	Colors        []string           `json:"colors" binding:"required"`
}

func solveCountsHandler(c *gin.Context) {
	var req SolveCountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	grid := solver.GridInput{Rows: req.Rows, Cols: req.Cols, Cells: req.Grid}
	reqs := core.Requirements{Rows: toColorCountMaps(req.RowReqs), Cols: toColorCountMaps(req.ColReqs)}

	res := solver.SolveCounts(lib, grid, reqs, req.EnabledShapes, toColors(req.Colors))
	respondSolverResult(c, res)
}

// SolveExactCountsRequest is the exact-count solve request body. Token is
// optional: when present, the supplied ShapeCounts must hash to the digest
// the generate call bound it to.
type SolveExactCountsRequest struct {
	Rows        int                       `json:"rows" binding:"required"`
	Cols        int                       `json:"cols" binding:"required"`
	Grid        [][]core.CellState        `json:"grid" binding:"required"`
	RowReqs     []map[string]int          `json:"row_reqs" binding:"required"`
	ColReqs     []map[string]int          `json:"col_reqs" binding:"required"`
	ShapeCounts map[string]map[string]int `json:"shape_counts" binding:"required"`
	Colors      []string                  `json:"colors" binding:"required"`
	Token       string                    `json:"token"`
}

func solveExactCountsHandler(c *gin.Context) {
	var req SolveExactCountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	shapeCounts := make(map[core.Color]map[string]int, len(req.ShapeCounts))
	for color, counts := range req.ShapeCounts {
		shapeCounts[core.Color(color)] = counts
	}

	if req.Token != "" {
		claims, err := verifySessionToken(cfg.SessionSecret, req.Token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token: " + err.Error()})
			return
		}
		if !shapeCountsMatch(claims, shapeCounts) {
			c.JSON(http.StatusConflict, gin.H{"error": "shape_counts does not match the puzzle this token was issued for"})
			return
		}
	}

	grid := solver.GridInput{Rows: req.Rows, Cols: req.Cols, Cells: req.Grid}
	reqs := core.Requirements{Rows: toColorCountMaps(req.RowReqs), Cols: toColorCountMaps(req.ColReqs)}

	res := solver.SolveExactCounts(lib, grid, reqs, shapeCounts, toColors(req.Colors))
	respondSolverResult(c, res)
}

func respondSolverResult(c *gin.Context, res solver.Result) {
	if !res.Success {
		c.JSON(http.StatusOK, gin.H{"success": false, "kind": res.Kind, "message": res.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "solutions": res.Solutions})
}

// FitAllRequest is the fit-all solve request body.
type FitAllRequest struct {
	Rows         int            `json:"rows" binding:"required"`
	Cols         int            `json:"cols" binding:"required"`
	BlockedCells []core.CellRef `json:"blocked_cells"`
	ShapeCounts  map[string]int `json:"shape_counts" binding:"required"`
}

func fitAllHandler(c *gin.Context) {
	var req FitAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := solver.FitAllPieces(lib, req.Rows, req.Cols, req.BlockedCells, req.ShapeCounts)
	if !res.Success {
		c.JSON(http.StatusOK, gin.H{"success": false, "kind": res.Kind, "message": res.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "placements": res.Placements})
}

// ValidateRequest wraps solver.Validate so a UI can check a candidate
// placement set against requirements without re-running a full solve.
type ValidateRequest struct {
	Rows    int                       `json:"rows" binding:"required"`
	Cols    int                       `json:"cols" binding:"required"`
	Colors  []string                  `json:"colors" binding:"required"`
	Cells   map[string][]core.CellRef `json:"cells" binding:"required"`
	RowReqs []map[string]int          `json:"row_reqs" binding:"required"`
	ColReqs []map[string]int          `json:"col_reqs" binding:"required"`
}

func validateHandler(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	colors := toColors(req.Colors)
	cells := make(map[core.Color][]core.CellRef, len(req.Cells))
	for color, refs := range req.Cells {
		cells[core.Color(color)] = refs
	}

	solution := solver.SolverSolution{Cells: cells}
	reqs := core.Requirements{Rows: toColorCountMaps(req.RowReqs), Cols: toColorCountMaps(req.ColReqs)}

	report := solver.Validate(req.Rows, req.Cols, solution, colors, reqs)
	c.JSON(http.StatusOK, gin.H{
		"ok":        report.OK(),
		"row_diffs": report.RowDiffs,
		"col_diffs": report.ColDiffs,
		"overlaps":  report.Overlaps,
	})
}

// dailyHandler serves a deterministic-by-UTC-date puzzle: it prefers the
// pre-generated pool, falling back to on-demand generation with a
// date-derived seed so the fallback is just as reproducible per day.
func dailyHandler(c *gin.Context) {
	dateUTC := time.Now().UTC().Format(constants.DateFormat)

	loader := puzzles.Global()
	if loader != nil {
		puzzle, idx, err := loader.GetTodayPuzzle()
		if err == nil {
			c.JSON(http.StatusOK, gin.H{
				"date_utc":     dateUTC,
				"puzzle_index": idx,
				"puzzle":       puzzle,
			})
			return
		}
	}

	seed := dateSeed(dateUTC)
	puzzle, err := generator.Generate(lib, generator.DefaultConfig(lib), prng.NewSource(seed), cfg.GenerateDeadline)
	if err != nil {
		respondCoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date_utc":     dateUTC,
		"puzzle_index": -1,
		"puzzle":       puzzle,
	})
}

func dateSeed(dateUTC string) int64 {
	var h uint64 = 14695981039346656037 // FNV-1a 64-bit offset basis
	for _, b := range []byte(dateUTC) {
		h ^= uint64(b)
		h *= 1099511628211 // FNV-1a 64-bit prime
	}
	return int64(h)
}
