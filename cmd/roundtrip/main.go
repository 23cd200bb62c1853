// Command roundtrip uploads a zeroed buffer to the GPU, runs a compute kernel
// over it a number of times and reads it back, reporting byte counts.
//
// Usage:
//
//	roundtrip [run] [--iterations 10] [--entries 200000] [--sync none]
//	roundtrip backends
//	roundtrip adapters
//	roundtrip scenarios
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
