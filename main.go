package main

import (
	"os"

	"github.com/stashware/stash/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
