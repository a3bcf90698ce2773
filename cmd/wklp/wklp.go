// Package wklpcmder
package wklpcmder

import (
	"github.com/spf13/cobra"

	seedcmder "github.com/owlcave/wklp/cmd/wklp/seed"
	servecmder "github.com/owlcave/wklp/cmd/wklp/serve"
)

const wklpLongDesc string = `WKLP is an extractive question answering service over a fixed
document corpus.

Run services using:
  wklp serve           Run the API server
  wklp seed            Build the corpus database from a JSONL file`

const wklpShortDesc string = "WKLP - Question Answering API"

func NewWKLPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wklp",
		Short: wklpShortDesc,
		Long:  wklpLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Directory containing config.toml")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(seedcmder.NewSeedCmd())

	return cmd
}
