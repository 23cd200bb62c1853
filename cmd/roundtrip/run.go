package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/roundtrip"
	"github.com/gogpu/roundtrip/internal/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the round trip",
	Long: `Runs the round trip once (or --repeat times) and prints

  reading data back, N bytes
  waiting
  received data, N bytes

on stdout. A mapping failure or a --verify mismatch exits with status 1.`,
	Args: cobra.NoArgs,
	RunE: runRoundTrip,
}

func init() {
	config.RegisterFlags(runCmd.Flags())
	rootCmd.AddCommand(runCmd)
}

func runRoundTrip(cmd *cobra.Command, _ []string) error {
	cfg, err := settings.RunConfig()
	if err != nil {
		return err
	}

	r, err := roundtrip.NewRunner(cfg, roundtrip.WithOutput(cmd.OutOrStdout()))
	if err != nil {
		return err
	}

	results, err := r.Repeat(cmd.Context(), settings.Repeat)
	if err != nil {
		return err
	}
	if n := len(results); n > 1 {
		roundtrip.Logger().Info("repeated runs agree", "runs", n, "bytes", results[0].BytesReceived)
	}
	if cfg.Verify {
		last := results[len(results)-1]
		fmt.Fprintf(cmd.ErrOrStderr(), "verified %d words equal to %d\n", len(last.Words), last.Expected)
	}
	return nil
}
