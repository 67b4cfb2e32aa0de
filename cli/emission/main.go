package main

import (
	"os"

	emissioncmder "github.com/Kirito123l/emission-agent/cmd/emission"
)

func main() {
	cmd := emissioncmder.NewEmissionCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
