package main

import (
	"os"

	"github.com/orbo-dev/orbo/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
