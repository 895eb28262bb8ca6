package main

import (
	"os"

	"github.com/Makepad-fr/hosttodo/internal/cli"
)

func main() {
	// Global flags and subcommands are parsed by the CLI runner.
	os.Exit(cli.Run(os.Args[1:], cli.Options{Stdin: os.Stdin}))
}
