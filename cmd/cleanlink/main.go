// Package main is the entry point for the cleanlink CLI.
package main

import (
	"os"

	"github.com/jmylchreest/cleanlink/cmd/cleanlink/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
