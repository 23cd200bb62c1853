package roundtrip

import (
	"errors"

	"github.com/gogpu/roundtrip/gpucore"
)

// Errors returned by Run. Backend failures wrap the gpucore sentinels
// re-exported here, so errors.Is works against either name.
var (
	// ErrNoAdapter is returned when no compute-capable adapter is available.
	ErrNoAdapter = gpucore.ErrNoAdapter

	// ErrDeviceRequest is returned when the adapter refuses to open a device.
	ErrDeviceRequest = gpucore.ErrDeviceRequest

	// ErrShaderModule is returned when the compute kernel cannot be loaded.
	ErrShaderModule = gpucore.ErrShaderModule

	// ErrMappingFailed is returned when the staging buffer could not be
	// mapped after the final readback. No result line is printed.
	ErrMappingFailed = gpucore.ErrMappingFailed

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("roundtrip: invalid configuration")

	// ErrInvalidSyncPolicy is returned by ParseSyncPolicy.
	ErrInvalidSyncPolicy = errors.New("roundtrip: invalid sync policy")

	// ErrDataMismatch is returned when verification finds words that differ
	// from the expected value. The Result is still returned.
	ErrDataMismatch = errors.New("roundtrip: data mismatch")

	// ErrUnknownBackend is returned when the configured backend is not registered.
	ErrUnknownBackend = errors.New("roundtrip: unknown backend")

	// ErrSizeMismatch is returned when the mapped range does not hold exactly
	// DataSize bytes.
	ErrSizeMismatch = errors.New("roundtrip: mapped size mismatch")
)

// ErrInconsistentRuns is returned by Runner.Repeat when repeated runs with the
// same configuration report different byte counts.
var ErrInconsistentRuns = errors.New("roundtrip: repeated runs disagree")
