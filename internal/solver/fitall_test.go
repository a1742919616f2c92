package solver

import "testing"

// Four square-4 instances tile a 4x4 empty grid exactly.
func TestFitAllPieces_FourSquaresTileFourByFour(t *testing.T) {
	lib := testLibrary(t)

	res := FitAllPieces(lib, 4, 4, nil, map[string]int{"square-4": 4})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(res.Placements) != 4 {
		t.Fatalf("expected 4 placements, got %d", len(res.Placements))
	}

	covered := map[[2]int]bool{}
	for _, p := range res.Placements {
		for _, c := range p.Cells {
			key := [2]int{c.Row, c.Col}
			if covered[key] {
				t.Fatalf("cell %v covered twice", key)
			}
			covered[key] = true
		}
	}
	if len(covered) != 16 {
		t.Fatalf("expected 16 distinct covered cells, got %d", len(covered))
	}
}

func TestFitAllPieces_NoSolutionWhenInstancesDontFit(t *testing.T) {
	lib := testLibrary(t)

	res := FitAllPieces(lib, 3, 3, nil, map[string]int{"square-4": 3})
	if res.Success {
		t.Fatalf("expected failure, got success: %+v", res)
	}
}

func TestFitAllPieces_EmptyInstancesRejected(t *testing.T) {
	lib := testLibrary(t)

	res := FitAllPieces(lib, 4, 4, nil, map[string]int{})
	if res.Success {
		t.Fatal("expected failure for empty shape counts")
	}
}
