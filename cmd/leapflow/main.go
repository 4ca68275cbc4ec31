// Command leapflow is the entry point for the workflow toolkit: script
// generation, in-process execution, validation, and the HTTP API.
package main

import (
	"os"

	"github.com/leapstack-labs/leapflow/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
