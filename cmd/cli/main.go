// Package main is the entry point for the azure-costs CLI.
package main

import (
	"os"

	"azure-costs/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
