package main

import (
	"os"

	"github.com/coaxwatch/coaxwatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
