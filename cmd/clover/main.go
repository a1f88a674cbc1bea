package main

import (
	"os"

	"github.com/Ramsey-B/clover/cmd/clover/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
