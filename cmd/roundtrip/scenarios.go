package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gogpu/roundtrip"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Print the documented iteration/entry thresholds",
	Long: `Prints the (iterations, entries) pairs observed on the reference machine
with no waits between dispatches. Results depend on the driver; run them with
"roundtrip run --iterations I --entries E".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ITERATIONS\tENTRIES\tDEBUG\tRELEASE")
		for _, s := range roundtrip.Scenarios() {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", s.Iterations, s.Entries, s.Debug, s.Release)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(scenariosCmd)
}
