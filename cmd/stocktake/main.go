package main

import (
	"os"

	"github.com/garyjia/stocktake/cmd/stocktake/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
