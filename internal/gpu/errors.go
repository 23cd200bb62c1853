package gpu

import (
	"errors"

	"github.com/gogpu/roundtrip/gpucore"
)

// Device and pipeline errors.
var (
	// ErrNilHALDevice is returned when creating resources without a device.
	ErrNilHALDevice = errors.New("gpu: HAL device is nil")

	// ErrNilHALQueue is returned when writing or reading without a queue.
	ErrNilHALQueue = errors.New("gpu: HAL queue is nil")

	// ErrBackendUnavailable is returned when the Vulkan HAL backend is not
	// registered in this build.
	ErrBackendUnavailable = errors.New("gpu: vulkan backend not available")

	// ErrNilProgram is returned by BuildPipeline when no program is given.
	ErrNilProgram = errors.New("gpu: shader program is nil")

	// ErrProviderNotHAL is returned when a device provider does not expose
	// HAL device and queue handles.
	ErrProviderNotHAL = errors.New("gpu: provider does not expose HAL types")

	// ErrWaitTimeout is returned when the context of Backend.Wait ends
	// before the queue completes the newest submission.
	ErrWaitTimeout = errors.New("gpu: submission wait timed out")
)

// Aliases for the backend-neutral errors, so callers of this package can
// match them without importing gpucore.
var (
	ErrNoAdapter        = gpucore.ErrNoAdapter
	ErrDeviceRequest    = gpucore.ErrDeviceRequest
	ErrNotAcquired      = gpucore.ErrNotAcquired
	ErrNotProvisioned   = gpucore.ErrNotProvisioned
	ErrPipelineNotBuilt = gpucore.ErrPipelineNotBuilt
	ErrShaderModule     = gpucore.ErrShaderModule
	ErrMappingFailed    = gpucore.ErrMappingFailed
	ErrMapNotRequested  = gpucore.ErrMapNotRequested
)
