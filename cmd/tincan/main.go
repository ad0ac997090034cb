package main

import (
	"os"

	"github.com/hray3182/tincan/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
