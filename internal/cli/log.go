// Package cli holds small helpers shared by cmd/polyomino's subcommands:
// leveled console logging and a spinner wrapper for interactive batch tooling.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// VerboseEnabled gates Verbose output; set from the root command's
// persistent --verbose flag.
var VerboseEnabled = false

// Info prints a message to stdout, regardless of verbose mode.
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// Verbose prints a message only when VerboseEnabled is set.
func Verbose(format string, args ...interface{}) {
	if VerboseEnabled {
		fmt.Println("[verbose] " + fmt.Sprintf(format, args...))
	}
}

// Warning prints a yellow warning line, always shown.
func Warning(format string, args ...interface{}) {
	color.Yellow("WARNING: " + fmt.Sprintf(format, args...))
}

// Success prints a green confirmation line.
func Success(format string, args ...interface{}) {
	color.Green(fmt.Sprintf(format, args...))
}

// Fail prints a red error line to stderr.
func Fail(format string, args ...interface{}) {
	color.New(color.FgRed).Fprintln(os.Stderr, "ERROR: "+fmt.Sprintf(format, args...))
}
