package main

import (
	"os"

	"github.com/ml-archive/dandy/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
