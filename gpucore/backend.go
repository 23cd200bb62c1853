package gpucore

import (
	"context"

	"github.com/gogpu/roundtrip/shader"
)

// Backend executes one compute round trip on a single device.
//
// Methods must be called in lifecycle order (see the package documentation)
// from a single goroutine. A Backend is used for exactly one run; Close
// releases everything it created and is safe to call at any point.
type Backend interface {
	// Name returns the registry name of the backend.
	Name() string

	// Acquire selects an adapter and opens a device and its queue.
	Acquire(ctx context.Context, opts AcquireOptions) (AdapterInfo, error)

	// Provision creates the host-visible staging buffer, initialized with
	// seed, and a device-local storage buffer of the same size.
	Provision(seed []byte) error

	// BuildPipeline creates the binding layout, pipeline layout, compute
	// pipeline and the bind group over the storage buffer.
	BuildPipeline(prog *shader.Program) error

	// SeedUpload submits one batch copying staging into storage.
	SeedUpload() error

	// Dispatch submits one batch dispatching the pipeline over x*y*z
	// workgroups. It does not wait for completion.
	Dispatch(x, y, z uint32) error

	// Readback submits one batch copying storage into staging.
	Readback() error

	// RequestMap starts an asynchronous read mapping of the staging buffer.
	RequestMap() error

	// Wait blocks until the device has executed all submitted work and any
	// pending map request has resolved, or ctx is done.
	Wait(ctx context.Context) error

	// Mapped returns the mapped staging bytes. The slice is valid until Close.
	// It returns an error wrapping ErrMappingFailed if mapping failed.
	Mapped() ([]byte, error)

	// Close releases all resources owned by the backend.
	Close()
}
