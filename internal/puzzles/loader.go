// Package puzzles manages a pool of pre-generated puzzles: the batch CLI
// bakes N puzzles into a JSON file ahead of time, and the HTTP server
// optionally loads that file once at startup so the daily endpoint can
// serve a puzzle without running the generator on every request. Puzzle
// selection hashes a seed string (for the daily puzzle, the UTC date) to
// a pool index with FNV-1a.
package puzzles

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"sync"
	"time"

	"polyomino-api/internal/core"
	"polyomino-api/pkg/constants"
)

// PuzzleFile is the top-level structure for the pre-baked pool JSON file.
type PuzzleFile struct {
	Version int           `json:"version"`
	Count   int           `json:"count"`
	Puzzles []core.Puzzle `json:"puzzles"`
}

// Loader manages a pre-generated puzzle pool.
type Loader struct {
	puzzles []core.Puzzle
	mu      sync.RWMutex
}

var (
	globalLoader *Loader
	loadOnce     sync.Once
	loadErr      error
)

// Load reads and parses a pool file from disk.
func Load(path string) (*Loader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read puzzle file: %w", err)
	}

	var file PuzzleFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse puzzle file: %w", err)
	}
	if len(file.Puzzles) == 0 {
		return nil, fmt.Errorf("puzzle file %s contains no puzzles", path)
	}

	return &Loader{puzzles: file.Puzzles}, nil
}

// LoadGlobal loads puzzles into the global loader (singleton). Only the
// first call does the actual read; later calls reuse its result.
func LoadGlobal(path string) error {
	loadOnce.Do(func() {
		globalLoader, loadErr = Load(path)
	})
	return loadErr
}

// Global returns the global loader instance, or nil if none was loaded.
func Global() *Loader {
	return globalLoader
}

// SetGlobal sets the global loader instance, used by tests to install an
// in-memory pool.
func SetGlobal(l *Loader) {
	globalLoader = l
}

// NewLoaderFromPuzzles creates a loader directly from an in-memory slice,
// bypassing the file round trip.
func NewLoaderFromPuzzles(puzzles []core.Puzzle) *Loader {
	out := make([]core.Puzzle, len(puzzles))
	copy(out, puzzles)
	return &Loader{puzzles: out}
}

// Count returns the number of puzzles in the pool.
func (l *Loader) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.puzzles)
}

// GetPuzzle returns the puzzle at index.
func (l *Loader) GetPuzzle(index int) (core.Puzzle, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index < 0 || index >= len(l.puzzles) {
		return core.Puzzle{}, fmt.Errorf("puzzle index %d out of range (0-%d)", index, len(l.puzzles)-1)
	}
	return l.puzzles[index], nil
}

// GetPuzzleBySeed deterministically maps a seed string to a pool index via
// FNV-1a and returns that puzzle alongside the index chosen.
func (l *Loader) GetPuzzleBySeed(seed string) (puzzle core.Puzzle, puzzleIndex int, err error) {
	l.mu.RLock()
	count := len(l.puzzles)
	l.mu.RUnlock()

	if count == 0 {
		return core.Puzzle{}, 0, fmt.Errorf("no puzzles loaded")
	}

	h := fnv.New64a()
	h.Write([]byte(seed))
	puzzleIndex = int(h.Sum64() % uint64(count)) //nolint:gosec // count is bounded by slice length

	puzzle, err = l.GetPuzzle(puzzleIndex)
	return
}

// GetDailyPuzzle returns the puzzle for a given UTC date: the seed is
// "daily:" followed by the date string, so every server instance loading
// the same pool on the same day returns the same puzzle index.
func (l *Loader) GetDailyPuzzle(date time.Time) (puzzle core.Puzzle, puzzleIndex int, err error) {
	dateStr := date.UTC().Format(constants.DateFormat)
	seed := "daily:" + dateStr
	return l.GetPuzzleBySeed(seed)
}

// GetTodayPuzzle returns the puzzle for today (UTC).
func (l *Loader) GetTodayPuzzle() (puzzle core.Puzzle, puzzleIndex int, err error) {
	return l.GetDailyPuzzle(time.Now())
}
