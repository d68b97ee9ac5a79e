// Package main provides the entry point for the routerctl CLI.
package main

import (
	"os"

	"github.com/foldermind/router/cmd/routerctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
