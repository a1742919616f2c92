package cli

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
)

// Spinner wraps github.com/briandowns/spinner for the batch-generation
// progress display of cmd/polyomino generate, muted under --verbose so it
// doesn't fight with Verbose's own line-by-line output.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner builds a cyan dot spinner with the given initial suffix message.
func NewSpinner(msg string) *Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + msg
	_ = s.Color("cyan", "bold")
	return &Spinner{s: s}
}

// Start starts the spinner unless verbose mode is on.
func (s *Spinner) Start() {
	if !VerboseEnabled {
		s.s.Start()
	}
}

// Stop stops the spinner.
func (s *Spinner) Stop() {
	s.s.Stop()
}

// UpdateMessage replaces the spinner's suffix text.
func (s *Spinner) UpdateMessage(format string, args ...interface{}) {
	s.s.Suffix = " " + fmt.Sprintf(format, args...)
}
