// Command polyomino is the engine's batch/offline CLI: a root command
// with generate and solve subcommands.
package main

import "polyomino-api/cmd/polyomino/cmd"

func main() {
	cmd.Execute()
}
