package main

import (
	"os"

	"quantumtrust/cmd/qtctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
