package main

import (
	"os"

	"github.com/reachly/wallet/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
