package roundtrip

import (
	"log/slog"
	"time"
)

// Timings records how long each phase of a run took.
type Timings struct {
	// Acquire covers adapter selection and device creation.
	Acquire time.Duration
	// Setup covers buffer provisioning and pipeline construction.
	Setup time.Duration
	// Dispatch covers the seed upload and every dispatch submission,
	// including waits inserted by the sync policy.
	Dispatch time.Duration
	// Readback covers the final copy, the map request and the device drain.
	Readback time.Duration
	// Total covers the whole run.
	Total time.Duration
}

// Result reports one round trip.
type Result struct {
	Iterations int
	Entries    int

	// DataSize is Entries*4.
	DataSize uint64

	// Mapped is true when the staging buffer mapped successfully.
	Mapped bool

	// BytesReceived is the number of decoded words times 4. It is zero when
	// mapping failed.
	BytesReceived uint64

	// Words holds the decoded staging contents.
	Words []uint32

	// Waits counts completion waits inserted by the sync policy. The final
	// drain before mapping is not included.
	Waits int

	Sync    SyncPolicy
	Backend string
	Adapter AdapterInfo

	// Verified is true when the run compared words against the expected value.
	Verified bool

	// Expected is the value every word should hold when Verified is set.
	Expected uint32

	// Mismatches counts words that differ from Expected.
	Mismatches int

	Timings Timings
}

// OK reports whether the data came back complete and, if verified, correct.
func (r *Result) OK() bool {
	return r.Mapped && r.BytesReceived == r.DataSize && r.Mismatches == 0
}

// LogValue implements slog.LogValuer.
func (r *Result) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("iterations", r.Iterations),
		slog.Int("entries", r.Entries),
		slog.Uint64("data_size", r.DataSize),
		slog.Uint64("bytes_received", r.BytesReceived),
		slog.String("sync", r.Sync.String()),
		slog.Int("waits", r.Waits),
		slog.String("backend", r.Backend),
		slog.Duration("total", r.Timings.Total),
	}
	if r.Verified {
		attrs = append(attrs, slog.Int("mismatches", r.Mismatches))
	}
	return slog.GroupValue(attrs...)
}
