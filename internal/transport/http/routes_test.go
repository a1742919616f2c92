package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"polyomino-api/internal/core"
	"polyomino-api/internal/puzzles"
	"polyomino-api/internal/shapes"
	"polyomino-api/pkg/config"
)

func testShapeLibrary(t *testing.T) *shapes.Library {
	t.Helper()
	defs := []shapes.Definition{
		{ID: "square-4", Name: "Square", Cells: []core.CellRef{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 1, Col: 0}, {Row: 1, Col: 1}}},
		{ID: "line-3", Name: "Line-3", Cells: []core.CellRef{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}}},
	}
	lib, err := shapes.Build(defs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return lib
}

// samplePuzzle mirrors what generator.Generate would have produced for a
// 2x2 grid fully covered by one square-4 placement of green.
func samplePuzzle() core.Puzzle {
	grid := [][]core.CellState{
		{{Kind: core.FilledWith, Color: "green"}, {Kind: core.FilledWith, Color: "green"}},
		{{Kind: core.FilledWith, Color: "green"}, {Kind: core.FilledWith, Color: "green"}},
	}
	cells := []core.CellRef{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 1, Col: 0}, {Row: 1, Col: 1}}
	return core.Puzzle{
		Grid:     grid,
		Shapes:   map[core.Color][]core.Placement{"green": {{ShapeID: "square-4", Rotation: 0, AnchorR: 0, AnchorC: 0, Cells: cells}}},
		Blockers: []core.CellRef{},
		Locks:    map[core.Color][]core.CellRef{"green": {}},
		Requirements: core.Requirements{
			Rows: []map[core.Color]int{{"green": 2}, {"green": 2}},
			Cols: []map[core.Color]int{{"green": 2}, {"green": 2}},
		},
		Solution: core.SolutionCells{"green": cells},
	}
}

func init() {
	// Pre-load a tiny in-memory pool so /api/daily is fast and deterministic
	// in tests, without touching the filesystem.
	puzzles.SetGlobal(puzzles.NewLoaderFromPuzzles([]core.Puzzle{samplePuzzle(), samplePuzzle()}))
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	c := &config.Config{
		SessionSecret:    "test-session-secret-at-least-32-bytes-long",
		GenerateDeadline: time.Second,
	}
	lib := testShapeLibrary(t)
	RegisterRoutes(r, c, lib)
	return r
}

func doRequest(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, w.Body.String())
	}
	return out
}

func TestHealthHandler(t *testing.T) {
	r := setupRouter(t)
	w := doRequest(r, "GET", "/health", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeJSON(t, w)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
	if body["version"] == nil {
		t.Error("expected version in response")
	}
}

func TestDailyHandler_ServesFromPool(t *testing.T) {
	r := setupRouter(t)
	w := doRequest(r, "GET", "/api/daily", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := decodeJSON(t, w)
	if body["date_utc"] == nil {
		t.Error("expected date_utc in response")
	}
	if body["puzzle"] == nil {
		t.Error("expected puzzle in response")
	}
}

func TestGenerateHandler_DefaultsAndExplicitConfig(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{name: "empty body uses defaults", body: nil},
		{
			name: "explicit small grid with one color",
			body: map[string]interface{}{
				"rows": 2, "cols": 2,
				"colors":     []string{"green"},
				"blockers":   false,
				"locks":      false,
				"shape_pool": []string{"square-4"},
				"seed":       42,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, "POST", "/api/generate", tt.body)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
			resp := decodeJSON(t, w)
			if resp["puzzle"] == nil {
				t.Error("expected puzzle in response")
			}
			if resp["token"] == nil {
				t.Error("expected a session token in response")
			}
			if resp["puzzle_id"] == nil {
				t.Error("expected a puzzle_id in response")
			}
		})
	}
}

func TestSolveCountsHandler_SquareOnTwoByTwo(t *testing.T) {
	r := setupRouter(t)

	req := map[string]interface{}{
		"rows": 2, "cols": 2,
		"grid": [][]core.CellState{
			{{Kind: core.Empty}, {Kind: core.Empty}},
			{{Kind: core.Empty}, {Kind: core.Empty}},
		},
		"row_reqs":       []map[string]int{{"green": 2}, {"green": 2}},
		"col_reqs":       []map[string]int{{"green": 2}, {"green": 2}},
		"enabled_shapes": []string{"square-4"},
		"colors":         []string{"green"},
	}

	w := doRequest(r, "POST", "/api/solve/counts", req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeJSON(t, w)
	if resp["success"] != true {
		t.Fatalf("expected success, got %+v", resp)
	}
}

func TestSolveCountsHandler_AllZeroRequirementsReportsNoRequirements(t *testing.T) {
	r := setupRouter(t)

	req := map[string]interface{}{
		"rows": 2, "cols": 2,
		"grid": [][]core.CellState{
			{{Kind: core.Empty}, {Kind: core.Empty}},
			{{Kind: core.Empty}, {Kind: core.Empty}},
		},
		"row_reqs":       []map[string]int{{"green": 0}, {"green": 0}},
		"col_reqs":       []map[string]int{{"green": 0}, {"green": 0}},
		"enabled_shapes": []string{"square-4"},
		"colors":         []string{"green"},
	}

	w := doRequest(r, "POST", "/api/solve/counts", req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decodeJSON(t, w)
	if resp["success"] != false {
		t.Fatalf("expected success=false, got %+v", resp)
	}
	if resp["kind"] != string(core.KindNoRequirements) {
		t.Errorf("expected kind NoRequirements, got %v", resp["kind"])
	}
}

func TestFitAllHandler_LineOnSingleRow(t *testing.T) {
	r := setupRouter(t)

	req := map[string]interface{}{
		"rows": 1, "cols": 4,
		"blocked_cells": []core.CellRef{},
		"shape_counts":  map[string]int{"line-3": 1},
	}
	w := doRequest(r, "POST", "/api/solve/fit-all", req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestValidateHandler_ReportsMismatch(t *testing.T) {
	r := setupRouter(t)

	req := map[string]interface{}{
		"rows": 2, "cols": 2,
		"colors": []string{"green"},
		"cells": map[string][]core.CellRef{
			"green": {{Row: 0, Col: 0}},
		},
		"row_reqs": []map[string]int{{"green": 2}, {"green": 0}},
		"col_reqs": []map[string]int{{"green": 2}, {"green": 0}},
	}

	w := doRequest(r, "POST", "/api/validate", req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeJSON(t, w)
	if resp["ok"] != false {
		t.Fatalf("expected ok=false given an incomplete solution, got %+v", resp)
	}
}

func TestSolveExactCountsHandler_TokenMismatchRejected(t *testing.T) {
	r := setupRouter(t)

	genResp := decodeJSON(t, doRequest(r, "POST", "/api/generate", map[string]interface{}{
		"rows": 2, "cols": 2,
		"colors":     []string{"green"},
		"blockers":   false,
		"locks":      false,
		"shape_pool": []string{"square-4"},
		"seed":       1,
	}))
	token, _ := genResp["token"].(string)
	if token == "" {
		t.Fatal("expected a token from generate")
	}

	req := map[string]interface{}{
		"rows": 2, "cols": 2,
		"grid": [][]core.CellState{
			{{Kind: core.Empty}, {Kind: core.Empty}},
			{{Kind: core.Empty}, {Kind: core.Empty}},
		},
		"row_reqs":     []map[string]int{{"green": 2}, {"green": 2}},
		"col_reqs":     []map[string]int{{"green": 2}, {"green": 2}},
		"shape_counts": map[string]map[string]int{"green": {"line-3": 2}}, // wrong multiset
		"colors":       []string{"green"},
		"token":        token,
	}

	w := doRequest(r, "POST", "/api/solve/exact-counts", req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a shape_counts/token mismatch, got %d: %s", w.Code, w.Body.String())
	}
}
