// Package main is the entry point for the deskboard command.
package main

import (
	"fmt"
	"os"

	"deskboard/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
