package main

import (
	"os"

	"github.com/mojito-dev/mojito/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
