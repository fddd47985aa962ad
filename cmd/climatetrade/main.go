package main

import (
	"os"

	"github.com/hubdemarcel/ClimateTrade-sub002/cmd/climatetrade/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
