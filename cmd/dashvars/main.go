// Package main provides the CLI for the dashvars dashboard variable engine.
package main

import (
	"os"

	"github.com/leapstack-labs/dashvars/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
