// Package main provides the LeapSheet command-line tool.
package main

import (
	"os"

	"github.com/leapstack-labs/leapsheet/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
