package roundtrip

import (
	"io"
	"os"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/roundtrip/shader"
)

// Option configures a Run.
//
// Example:
//
//	// Default: registry backend from cfg.Backend, protocol lines on stdout
//	res, err := roundtrip.Run(ctx, cfg)
//
//	// Capture output and share an application's device
//	res, err := roundtrip.Run(ctx, cfg,
//	    roundtrip.WithOutput(&buf),
//	    roundtrip.WithDeviceProvider(app))
type Option func(*runOptions)

// runOptions holds optional configuration for a Run.
type runOptions struct {
	factory  BackendFactory
	output   io.Writer
	program  *shader.Program
	provider gpucontext.DeviceProvider
}

// defaultOptions returns the default run options.
func defaultOptions() runOptions {
	return runOptions{
		output: os.Stdout,
	}
}

// WithBackendFactory bypasses the registry and builds the run's backend from
// f. Use it for dependency injection of custom or simulated backends.
func WithBackendFactory(f BackendFactory) Option {
	return func(o *runOptions) {
		o.factory = f
	}
}

// WithOutput sets the writer receiving the protocol lines.
// A nil writer discards them.
func WithOutput(w io.Writer) Option {
	return func(o *runOptions) {
		if w == nil {
			w = io.Discard
		}
		o.output = w
	}
}

// WithProgram sets the compute kernel, overriding Config.ShaderPath and the
// embedded default.
func WithProgram(p *shader.Program) Option {
	return func(o *runOptions) {
		o.program = p
	}
}

// WithDeviceProvider runs on a device owned by provider instead of opening
// one. The provider should also implement HalDevice() any and HalQueue() any
// for the hal backend. The backend must implement DeviceProviderAware.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(o *runOptions) {
		o.provider = p
	}
}
