package roundtrip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/roundtrip/gpucore"
	"github.com/gogpu/roundtrip/shader"
)

// Runner executes round trips for one configuration.
type Runner struct {
	cfg  Config
	opts runOptions
}

// NewRunner validates cfg and returns a Runner for it.
func NewRunner(cfg Config, opts ...Option) (*Runner, error) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultBackend
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Runner{cfg: cfg, opts: o}, nil
}

// Run executes one round trip for cfg. See Runner.Run.
func Run(ctx context.Context, cfg Config, opts ...Option) (*Result, error) {
	r, err := NewRunner(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx)
}

// Config returns the runner's configuration.
func (r *Runner) Config() Config {
	return r.cfg
}

// Run executes the protocol once on a fresh backend:
//
//  1. acquire a device
//  2. provision staging (seeded with zeros) and storage buffers
//  3. build the compute pipeline
//  4. copy staging to storage
//  5. dispatch Iterations times, waiting as the sync policy says
//  6. copy storage to staging, map it and drain the device
//  7. decode and report
//
// Setup failures return a nil Result. Mapping failure returns a Result with
// Mapped unset and an error wrapping ErrMappingFailed; no result line is
// written. A verification mismatch returns the full Result together with
// ErrDataMismatch.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	cfg := r.cfg
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	backend, err := r.newBackend()
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	log := Logger()
	propagateLogger(backend, log)

	if r.opts.provider != nil {
		dpa, ok := backend.(DeviceProviderAware)
		if !ok {
			return nil, fmt.Errorf("roundtrip: backend %q cannot use a shared device", backend.Name())
		}
		if err := dpa.SetDeviceProvider(r.opts.provider); err != nil {
			return nil, fmt.Errorf("roundtrip: use shared device: %w", err)
		}
	}

	res := &Result{
		Iterations: cfg.Iterations,
		Entries:    cfg.Entries,
		DataSize:   cfg.DataSize(),
		Sync:       cfg.Sync,
		Backend:    backend.Name(),
	}
	start := time.Now()
	defer func() { res.Timings.Total = time.Since(start) }()

	// Acquire
	phase := time.Now()
	info, err := backend.Acquire(ctx, gpucore.AcquireOptions{PowerPreference: cfg.PowerPreference})
	if err != nil {
		return nil, fmt.Errorf("roundtrip: acquire device: %w", err)
	}
	res.Adapter = info
	res.Timings.Acquire = time.Since(phase)
	log.Info("roundtrip: adapter selected", "adapter", info.String())

	// Provision and build
	phase = time.Now()
	seed := EncodeWords(NewData(cfg.Entries))
	if uint64(len(seed)) != res.DataSize {
		return nil, fmt.Errorf("%w: seed is %d bytes, want %d", ErrSizeMismatch, len(seed), res.DataSize)
	}
	if err := backend.Provision(seed); err != nil {
		return nil, fmt.Errorf("roundtrip: provision buffers: %w", err)
	}
	log.Debug("roundtrip: buffers provisioned", "size", res.DataSize)

	prog, err := r.program()
	if err != nil {
		return nil, err
	}
	if err := backend.BuildPipeline(prog); err != nil {
		return nil, fmt.Errorf("roundtrip: build pipeline: %w", err)
	}
	res.Timings.Setup = time.Since(phase)

	// Seed and dispatch
	phase = time.Now()
	if err := backend.SeedUpload(); err != nil {
		return nil, fmt.Errorf("roundtrip: seed upload: %w", err)
	}

	width := uint32(cfg.Entries) //nolint:gosec // bounded by Validate
	if width > MaxWorkgroupsPerDimension && cfg.Iterations > 0 {
		log.Warn("roundtrip: dispatch width exceeds the common per-dimension limit",
			"workgroups", width, "limit", MaxWorkgroupsPerDimension)
	}
	for i := 1; i <= cfg.Iterations; i++ {
		if err := backend.Dispatch(width, 1, 1); err != nil {
			return nil, fmt.Errorf("roundtrip: dispatch %d: %w", i, err)
		}
		if cfg.Sync.WaitAfter(i) {
			if err := backend.Wait(ctx); err != nil {
				return nil, fmt.Errorf("roundtrip: wait after dispatch %d: %w", i, err)
			}
			res.Waits++
		}
	}
	res.Timings.Dispatch = time.Since(phase)
	log.Debug("roundtrip: dispatches submitted", "count", cfg.Iterations, "waits", res.Waits)

	// Readback
	phase = time.Now()
	if err := backend.Readback(); err != nil {
		return nil, fmt.Errorf("roundtrip: readback: %w", err)
	}
	r.printf("reading data back, %d bytes\n", res.DataSize)

	if err := backend.RequestMap(); err != nil {
		return res, fmt.Errorf("roundtrip: request map: %w", err)
	}
	r.printf("waiting\n")

	if err := backend.Wait(ctx); err != nil {
		return res, fmt.Errorf("roundtrip: drain device: %w", err)
	}

	mapped, err := backend.Mapped()
	res.Timings.Readback = time.Since(phase)
	if err != nil {
		if !errors.Is(err, ErrMappingFailed) {
			err = fmt.Errorf("%w: %w", ErrMappingFailed, err)
		}
		log.Warn("roundtrip: mapping failed", "err", err)
		return res, fmt.Errorf("roundtrip: %w", err)
	}

	words, err := DecodeWords(mapped)
	if err != nil {
		return res, fmt.Errorf("roundtrip: decode: %w", err)
	}
	res.Mapped = true
	res.Words = words
	res.BytesReceived = uint64(len(words)) * gpucore.WordSize
	r.printf("received data, %d bytes\n", res.BytesReceived)

	if res.BytesReceived != res.DataSize {
		return res, fmt.Errorf("%w: received %d bytes, want %d", ErrSizeMismatch, res.BytesReceived, res.DataSize)
	}

	if cfg.Verify {
		res.Verified = true
		res.Expected = cfg.expectedValue()
		res.Mismatches = countMismatches(words, res.Expected)
		if res.Mismatches > 0 {
			log.Warn("roundtrip: verification failed", "mismatches", res.Mismatches, "expected", res.Expected)
			return res, fmt.Errorf("%w: %d of %d words differ from %d",
				ErrDataMismatch, res.Mismatches, len(words), res.Expected)
		}
	}

	res.Timings.Total = time.Since(start)
	log.Info("roundtrip: run complete", "result", res)
	return res, nil
}

// Repeat runs the round trip n times and checks that every run reports the
// same byte count. It stops at the first failed run.
func (r *Runner) Repeat(ctx context.Context, n int) ([]*Result, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: repeat count must be at least 1, got %d", ErrInvalidConfig, n)
	}

	results := make([]*Result, 0, n)
	for i := 0; i < n; i++ {
		res, err := r.Run(ctx)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			return results, fmt.Errorf("run %d of %d: %w", i+1, n, err)
		}
		if first := results[0]; res.BytesReceived != first.BytesReceived {
			return results, fmt.Errorf("%w: run %d received %d bytes, run 1 received %d",
				ErrInconsistentRuns, i+1, res.BytesReceived, first.BytesReceived)
		}
	}
	return results, nil
}

func (r *Runner) newBackend() (Backend, error) {
	factory := r.opts.factory
	if factory == nil {
		f, err := lookupBackend(r.cfg.Backend)
		if err != nil {
			return nil, err
		}
		factory = f
	}
	b := factory()
	if b == nil {
		return nil, fmt.Errorf("roundtrip: backend factory for %q returned nil", r.cfg.Backend)
	}
	return b, nil
}

// program resolves the kernel: an explicit program, then a SPIR-V artifact
// from Config.ShaderPath, then the embedded default.
func (r *Runner) program() (*shader.Program, error) {
	if r.opts.program != nil {
		return r.opts.program, nil
	}

	var (
		prog *shader.Program
		err  error
	)
	if r.cfg.ShaderPath != "" {
		prog, err = shader.Load(r.cfg.ShaderPath)
	} else {
		prog, err = shader.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("roundtrip: %w: %w", ErrShaderModule, err)
	}
	return prog, nil
}

func (r *Runner) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.opts.output, format, args...)
}
