// Package cmd implements the polyomino CLI's command tree: a cobra root
// command with a persistent --verbose flag and one subcommand per concern.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"polyomino-api/internal/cli"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "polyomino",
	Short: "Batch tooling for the polyomino puzzle engine",
	Long: `polyomino is the offline companion to the HTTP server: it bakes
pre-generated puzzle pools ahead of time and can solve a puzzle file from
the command line without standing up the API.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cli.VerboseEnabled = verbose
	},
}

// Execute runs the root command. Called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(solveCmd)
}
