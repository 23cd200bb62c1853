package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/roundtrip"
	"github.com/gogpu/roundtrip/internal/config"
)

var (
	cfgFile  string
	settings config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "roundtrip",
	Short: "GPU compute round-trip harness",
	Long: `roundtrip copies a zeroed buffer to device memory, dispatches a compute
kernel over it a number of times without waiting between dispatches, and
reads the buffer back. It shows whether queue submission order alone keeps
large workloads correct.

Without a subcommand it behaves like "roundtrip run".`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runRoundTrip,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./roundtrip.yaml)")
	rootCmd.PersistentFlags().String(config.KeyLogLevel, config.Default().LogLevel, "log level (debug, info, warn, error)")
	config.RegisterFlags(rootCmd.Flags())
}

// setup loads settings and installs the stderr logger.
func setup(cmd *cobra.Command, _ []string) error {
	s, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	level, err := s.Level()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	roundtrip.SetLogger(logger)

	settings = s
	return nil
}
