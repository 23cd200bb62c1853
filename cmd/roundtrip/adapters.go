package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/roundtrip"
	"github.com/gogpu/roundtrip/internal/probe"
)

var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "List adapters the hal backend can open",
	Long: `Lists the adapters the hal backend enumerates. When built with the rust
tag it also shows the adapter wgpu-native would pick.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()

		adapters, err := roundtrip.Adapters()
		if err != nil {
			return err
		}
		for i, a := range adapters {
			fmt.Fprintf(out, "%d: %s\n", i, a)
		}

		if !probe.Available() {
			return nil
		}
		pref, err := roundtrip.ParsePowerPreference(settings.Power)
		if err != nil {
			return err
		}
		native, err := probe.Native(pref)
		if errors.Is(err, probe.ErrLibraryNotFound) {
			fmt.Fprintf(out, "native: %v\n", err)
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "native: %s\n", native)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adaptersCmd)
}
