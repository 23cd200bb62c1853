// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package roundtrip is a harness that probes GPU compute queue ordering.
//
// A run uploads a zero-filled buffer of 32-bit words to device memory,
// dispatches a compute kernel over it a configurable number of times,
// copies the result back and reports how many bytes came home:
//
//	reading data back, 800000 bytes
//	waiting
//	received data, 800000 bytes
//
// Between dispatches the harness does not wait for the device by default.
// Correctness then rests entirely on queue submission order, which is the
// property under test. A [SyncPolicy] can insert completion waits every N
// dispatches to measure where that stops holding.
//
// # Quick Start
//
//	cfg := roundtrip.DefaultConfig()
//	cfg.Iterations = 100
//	cfg.Entries = 1_000_000
//
//	res, err := roundtrip.Run(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.BytesReceived)
//
// # Backends
//
// The default "hal" backend is Pure Go (gogpu/wgpu over Vulkan, zero CGO).
// Building with -tags wgpunative adds a "native" backend on wgpu-native.
// Third parties can add more with [RegisterBackend].
//
// # Logging
//
// The package is silent by default. See [SetLogger].
package roundtrip
