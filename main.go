package main

import (
	"os"

	"github.com/HARSHCHAUDHARY04/ai-arena-masters/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
