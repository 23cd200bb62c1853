package roundtrip

import (
	"fmt"
	"math"
	"time"

	"github.com/gogpu/roundtrip/gpucore"
)

// Default run parameters. They match the configuration documented to
// complete reliably.
const (
	DefaultIterations = 10
	DefaultEntries    = 200_000
	DefaultBackend    = "hal"
	DefaultTimeout    = 30 * time.Second
)

// Config describes one round trip.
type Config struct {
	// Iterations is the number of dispatches. Zero runs the seed copy and
	// readback only.
	Iterations int

	// Entries is the number of 32-bit words in the buffer. Each dispatch
	// launches one workgroup per entry.
	Entries int

	// Sync places completion waits in the dispatch loop.
	Sync SyncPolicy

	// Backend names a registered backend.
	Backend string

	// PowerPreference picks among several adapters.
	PowerPreference PowerPreference

	// Timeout bounds the whole run. Zero means no bound beyond the caller's
	// context.
	Timeout time.Duration

	// Verify compares every returned word with the value the bundled kernel
	// produces.
	Verify bool

	// ShaderPath optionally names a precompiled SPIR-V artifact to use
	// instead of the embedded kernel.
	ShaderPath string
}

// DefaultConfig returns the documented reliable configuration.
func DefaultConfig() Config {
	return Config{
		Iterations: DefaultIterations,
		Entries:    DefaultEntries,
		Backend:    DefaultBackend,
		Timeout:    DefaultTimeout,
	}
}

// DataSize returns Entries*4, the byte size used for every allocation,
// binding, copy and map of the run.
func (c Config) DataSize() uint64 {
	return gpucore.DataSize(c.Entries)
}

// Validate reports the first problem with c.
func (c Config) Validate() error {
	switch {
	case c.Entries < 1:
		return fmt.Errorf("%w: entries must be at least 1, got %d", ErrInvalidConfig, c.Entries)
	case uint64(c.Entries) > math.MaxUint32:
		return fmt.Errorf("%w: entries %d exceeds the dispatch range", ErrInvalidConfig, c.Entries)
	case c.Iterations < 0:
		return fmt.Errorf("%w: iterations must not be negative, got %d", ErrInvalidConfig, c.Iterations)
	case c.Sync.Every < 0:
		return fmt.Errorf("%w: sync interval must not be negative, got %d", ErrInvalidConfig, c.Sync.Every)
	case c.Timeout < 0:
		return fmt.Errorf("%w: timeout must not be negative, got %s", ErrInvalidConfig, c.Timeout)
	}
	return nil
}

// expectedValue is the value every word holds after a fault-free run of the
// bundled kernel, which adds one per dispatch.
func (c Config) expectedValue() uint32 {
	return uint32(c.Iterations) //nolint:gosec // checked non-negative by Validate
}
