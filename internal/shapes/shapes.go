// Package shapes provides canonical storage of polyominoes and their unique
// 90°-rotations, with bounding-box queries. Shapes are kept as sorted,
// normalized coordinate lists so equality is a plain lexicographic compare.
package shapes

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"polyomino-api/internal/core"
)

// Definition is a shape's base cell list as supplied to Build.
type Definition struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Cells []core.CellRef `json:"cells"`
}

// DefinitionsFile is the on-disk shape of a shapes.json definitions file.
type DefinitionsFile struct {
	Shapes []Definition `json:"shapes"`
}

// LoadDefinitionsFile reads a shapes.json-style file of shape definitions.
func LoadDefinitionsFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shapes: read %s: %w", path, err)
	}

	var file DefinitionsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("shapes: parse %s: %w", path, err)
	}
	return file.Shapes, nil
}

// Bounds is the {height, width} bounding box of a rotation.
type Bounds struct {
	Height int
	Width  int
}

// Rotation is one canonically-normalized orientation of a shape.
type Rotation struct {
	Cells  []core.CellRef
	Bounds Bounds
}

// Entry is a shape library entry: the canonical base shape plus its unique
// rotations. CellCount is stable across rotations.
type Entry struct {
	ID        string
	Name      string
	CellCount int
	Rotations []Rotation
}

// Library is the indexed, immutable-after-construction shape library.
type Library struct {
	entries map[string]*Entry
	order   []string
}

// Build constructs a Library from shape definitions. Duplicate identifiers
// are rejected.
func Build(defs []Definition) (*Library, error) {
	lib := &Library{entries: make(map[string]*Entry, len(defs))}

	for _, def := range defs {
		if _, exists := lib.entries[def.ID]; exists {
			return nil, core.NewError(core.KindDuplicateShapeID, fmt.Sprintf("duplicate shape id %q", def.ID))
		}
		if len(def.Cells) == 0 {
			return nil, core.NewError(core.KindInvalidConfig, fmt.Sprintf("shape %q has no cells", def.ID))
		}

		base := normalize(def.Cells)
		entry := &Entry{
			ID:        def.ID,
			Name:      def.Name,
			CellCount: len(base),
			Rotations: generateRotations(base),
		}

		lib.entries[def.ID] = entry
		lib.order = append(lib.order, def.ID)
	}

	return lib, nil
}

// Lookup returns a shape entry by id.
func (l *Library) Lookup(id string) (*Entry, bool) {
	e, ok := l.entries[id]
	return e, ok
}

// IDs returns every registered shape id in definition order.
func (l *Library) IDs() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// generateRotations iteratively applies the 90° clockwise rotation,
// renormalizes, and stops once a rotation equals an already-recorded one.
// Lines yield 2 rotations, squares and crosses 1, L-shapes 4.
func generateRotations(base []core.CellRef) []Rotation {
	rotations := []Rotation{toRotation(base)}
	seen := map[string]bool{canonicalKey(base): true}

	current := base
	for i := 0; i < 3; i++ {
		current = normalize(rotateClockwise(current))
		key := canonicalKey(current)
		if seen[key] {
			break
		}
		seen[key] = true
		rotations = append(rotations, toRotation(current))
	}

	return rotations
}

// rotateClockwise applies (r,c) -> (c, -r) to every cell.
func rotateClockwise(cells []core.CellRef) []core.CellRef {
	out := make([]core.CellRef, len(cells))
	for i, c := range cells {
		out[i] = core.CellRef{Row: c.Col, Col: -c.Row}
	}
	return out
}

// normalize shifts cells so the minimum row and column are both zero, and
// returns them sorted for stable, deterministic storage.
func normalize(cells []core.CellRef) []core.CellRef {
	minR, minC := cells[0].Row, cells[0].Col
	for _, c := range cells {
		if c.Row < minR {
			minR = c.Row
		}
		if c.Col < minC {
			minC = c.Col
		}
	}

	out := make([]core.CellRef, len(cells))
	for i, c := range cells {
		out[i] = core.CellRef{Row: c.Row - minR, Col: c.Col - minC}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})

	return out
}

// canonicalKey is a lexicographic-list equality key for a normalized,
// sorted cell set. Two shapes are equal iff they have equal cell sets.
func canonicalKey(sortedCells []core.CellRef) string {
	key := make([]byte, 0, len(sortedCells)*8)
	for _, c := range sortedCells {
		key = append(key, byte(c.Row), byte(c.Row>>8), byte(c.Col), byte(c.Col>>8))
	}
	return string(key)
}

func toRotation(cells []core.CellRef) Rotation {
	maxR, maxC := 0, 0
	for _, c := range cells {
		if c.Row > maxR {
			maxR = c.Row
		}
		if c.Col > maxC {
			maxC = c.Col
		}
	}
	return Rotation{
		Cells:  cells,
		Bounds: Bounds{Height: maxR + 1, Width: maxC + 1},
	}
}
