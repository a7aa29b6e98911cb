package main

import (
	"os"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/cmd/whisperctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
