package gpucore

import "errors"

// Backend errors. Implementations wrap these so callers can use errors.Is.
var (
	// ErrNoAdapter is returned when no compute-capable adapter is available.
	ErrNoAdapter = errors.New("gpucore: no compute-capable adapter")

	// ErrDeviceRequest is returned when an adapter refuses to open a device.
	ErrDeviceRequest = errors.New("gpucore: device request failed")

	// ErrNotAcquired is returned when a step runs before Acquire.
	ErrNotAcquired = errors.New("gpucore: device not acquired")

	// ErrNotProvisioned is returned when a step runs before Provision.
	ErrNotProvisioned = errors.New("gpucore: buffers not provisioned")

	// ErrPipelineNotBuilt is returned when Dispatch runs before BuildPipeline.
	ErrPipelineNotBuilt = errors.New("gpucore: compute pipeline not built")

	// ErrShaderModule is returned when the shader program cannot be loaded.
	ErrShaderModule = errors.New("gpucore: shader module creation failed")

	// ErrMappingFailed is returned by Mapped when the staging buffer could
	// not be mapped for reading.
	ErrMappingFailed = errors.New("gpucore: buffer mapping failed")

	// ErrMapNotRequested is returned by Mapped when RequestMap was never called.
	ErrMapNotRequested = errors.New("gpucore: buffer mapping was not requested")
)
