package main

import (
	"os"

	wklpcmder "github.com/owlcave/wklp/cmd/wklp"
)

func main() {
	cmd := wklpcmder.NewWKLPCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
