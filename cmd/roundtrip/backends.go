package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/roundtrip"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List registered backends",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		for _, name := range roundtrip.Backends() {
			marker := ""
			if name == roundtrip.DefaultBackend {
				marker = " (default)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s\n", name, marker)
		}
	},
}

func init() {
	rootCmd.AddCommand(backendsCmd)
}
