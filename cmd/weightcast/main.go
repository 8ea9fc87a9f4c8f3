package main

import (
	"os"

	"weightcast/cmd/weightcast/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
