package main

import (
	"os"

	"github.com/layerworks/strata/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
