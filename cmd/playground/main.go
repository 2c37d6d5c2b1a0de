// Package main provides the playground CLI.
package main

import (
	"os"

	"github.com/shaped-ai/playground/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
