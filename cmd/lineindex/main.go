// Package main provides the entry point for the lineindex CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/lineindex/cmd/lineindex/commands"
	"github.com/Sumatoshi-tech/lineindex/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	err := commands.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
