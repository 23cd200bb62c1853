package gpu

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/roundtrip/gpucore"
	"github.com/gogpu/roundtrip/shader"
)

// BackendName is the registry name of the HAL backend.
const BackendName = "hal"

// defaultPollInterval is the delay between two completion polls of the queue.
const defaultPollInterval = time.Millisecond

// closeWaitTimeout bounds the idle wait Close performs when work is still
// in flight.
const closeWaitTimeout = 5 * time.Second

// Option configures a Backend.
type Option func(*Backend)

// WithInstanceFactory overrides the HAL instance factory. Tests pass
// noop.API to run without a GPU.
func WithInstanceFactory(f InstanceFactory) Option {
	return func(b *Backend) {
		b.factory = f
	}
}

// WithPollInterval sets the delay between two completion polls.
func WithPollInterval(d time.Duration) Option {
	return func(b *Backend) {
		if d > 0 {
			b.pollInterval = d
		}
	}
}

// Backend runs the round-trip protocol on a gogpu/wgpu HAL device.
//
// Backend is safe for concurrent use, but the protocol steps are meant to be
// driven in order from a single goroutine.
type Backend struct {
	mu sync.Mutex

	factory      InstanceFactory
	pollInterval time.Duration
	closeTimeout time.Duration

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	info     gpucore.AdapterInfo
	external bool // true when using shared device (don't destroy on Close)

	staging *Buffer
	storage *Buffer
	size    uint64

	pipe *computePipeline

	// inflight holds command buffers submitted since the last wait and
	// lastSubmit the queue's index of the newest one.
	inflight   []hal.CommandBuffer
	lastSubmit uint64

	// hungCmds holds command buffers whose submission never completed.
	// They stay allocated, and so does every object they reference,
	// because the device may still execute them.
	hung     bool
	hungCmds []hal.CommandBuffer

	submits int
	waits   int

	mapRequested bool
	mapDone      bool
	mapStatus    MapStatus
}

var _ gpucore.Backend = (*Backend)(nil)

// New creates a HAL backend. No GPU work happens until Acquire.
func New(opts ...Option) *Backend {
	b := &Backend{pollInterval: defaultPollInterval, closeTimeout: closeWaitTimeout}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the backend identifier.
func (b *Backend) Name() string {
	return BackendName
}

// SetLogger sets the logger for the HAL backend.
func (b *Backend) SetLogger(l *slog.Logger) {
	setLogger(l)
}

// SetDeviceProvider switches the backend to a shared GPU device from an
// external provider. The provider must implement HalDevice() any and
// HalQueue() any returning hal.Device and hal.Queue. Any device the backend
// opened itself is released first.
func (b *Backend) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return ErrProviderNotHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("%w: HalDevice is not hal.Device", ErrProviderNotHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("%w: HalQueue is not hal.Queue", ErrProviderNotHAL)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseLocked()

	b.device = device
	b.queue = queue
	b.external = true
	b.info = gpucore.AdapterInfo{
		Name:    "shared device",
		Backend: BackendName,
		Shared:  true,
	}
	slogger().Debug("gpu: using shared device from provider")
	return nil
}

// Acquire opens a device on the adapter chosen by opts.PowerPreference.
// With a shared device it returns immediately.
func (b *Backend) Acquire(ctx context.Context, opts gpucore.AcquireOptions) (gpucore.AdapterInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device != nil {
		return b.info, nil
	}

	factory := b.factory
	if factory == nil {
		f, err := defaultFactory()
		if err != nil {
			return gpucore.AdapterInfo{}, fmt.Errorf("%w: %w", ErrNoAdapter, err)
		}
		factory = f
	}

	opened, err := openDevice(ctx, factory, opts.PowerPreference)
	if err != nil {
		return gpucore.AdapterInfo{}, err
	}
	b.instance = opened.instance
	b.device = opened.device
	b.queue = opened.queue
	b.info = opened.info
	return b.info, nil
}

// Provision creates the staging buffer holding seed and a storage buffer of
// the same size.
func (b *Backend) Provision(seed []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil {
		return ErrNotAcquired
	}
	if len(seed) == 0 {
		return fmt.Errorf("%w: size is 0", ErrInvalidBufferSize)
	}
	if b.staging != nil {
		return fmt.Errorf("gpu: buffers already provisioned")
	}

	size := uint64(len(seed))
	staging, err := CreateBuffer(b.device, b.queue, &BufferDescriptor{
		Label:    "roundtrip_staging",
		Size:     size,
		Usage:    gputypes.BufferUsageMapRead | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
		Contents: seed,
	})
	if err != nil {
		return fmt.Errorf("create staging buffer: %w", err)
	}

	storage, err := CreateBuffer(b.device, b.queue, &BufferDescriptor{
		Label: "roundtrip_storage",
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		staging.Destroy()
		return fmt.Errorf("create storage buffer: %w", err)
	}

	b.staging = staging
	b.storage = storage
	b.size = size
	return nil
}

// BuildPipeline creates the compute pipeline and its bind group.
func (b *Backend) BuildPipeline(prog *shader.Program) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.storage == nil {
		return ErrNotProvisioned
	}
	if prog == nil {
		return ErrNilProgram
	}
	if b.pipe != nil {
		b.pipe.destroy(b.device)
		b.pipe = nil
	}

	pipe, err := newComputePipeline(b.device, prog, b.storage.Raw(), b.size)
	if err != nil {
		return err
	}
	b.pipe = pipe
	slogger().Debug("gpu: compute pipeline built", "program", prog.Name, "spirv_words", len(prog.SPIRV))
	return nil
}

// SeedUpload submits the staging to storage copy.
func (b *Backend) SeedUpload() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.storage == nil {
		return ErrNotProvisioned
	}
	src, dst := b.staging.Raw(), b.storage.Raw()
	return b.submitLocked("roundtrip_seed", func(encoder hal.CommandEncoder) {
		encoder.CopyBufferToBuffer(src, dst, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: b.size},
		})
	})
}

// Dispatch submits one compute pass of x*y*z workgroups.
func (b *Backend) Dispatch(x, y, z uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pipe == nil {
		return ErrPipelineNotBuilt
	}
	pipe := b.pipe
	return b.submitLocked("roundtrip_dispatch", func(encoder hal.CommandEncoder) {
		computePass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "roundtrip_pass"})
		computePass.SetPipeline(pipe.pipeline)
		computePass.SetBindGroup(0, pipe.bindGroup, nil)
		computePass.Dispatch(x, y, z)
		computePass.End()
	})
}

// Readback submits the storage to staging copy.
func (b *Backend) Readback() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.storage == nil {
		return ErrNotProvisioned
	}
	src, dst := b.storage.Raw(), b.staging.Raw()
	return b.submitLocked("roundtrip_readback", func(encoder hal.CommandEncoder) {
		encoder.CopyBufferToBuffer(src, dst, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: b.size},
		})
	})
}

// submitLocked records one command buffer and submits it. The caller must
// hold b.mu.
func (b *Backend) submitLocked(label string, record func(hal.CommandEncoder)) error {
	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label + "_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	record(encoder)

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	index, err := b.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		b.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("submit %s: %w", label, err)
	}

	b.inflight = append(b.inflight, cmdBuf)
	b.lastSubmit = index
	b.submits++
	return nil
}

// RequestMap starts a read mapping of the whole staging buffer.
func (b *Backend) RequestMap() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.staging == nil {
		return ErrNotProvisioned
	}
	if b.mapRequested {
		return ErrBufferAlreadyMapped
	}

	b.mapRequested = true
	b.mapDone = false
	err := b.staging.MapRead(func(status MapStatus) {
		b.mapStatus = status
		b.mapDone = true
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMappingFailed, err)
	}
	return nil
}

// Wait blocks until the device has executed everything submitted so far.
// A pending map request resolves once the device is idle.
func (b *Backend) Wait(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil {
		return ErrNotAcquired
	}
	if err := b.waitIdleLocked(ctx); err != nil {
		return err
	}

	b.freeInflightLocked()
	b.waits++

	if b.mapRequested && !b.mapDone {
		b.staging.Resolve()
	}
	slogger().Debug("gpu: device idle", "waits", b.waits, "submits", b.submits)
	return nil
}

// waitIdleLocked polls the queue until it reports the newest submission
// complete or ctx ends. Work that never completes is abandoned together with
// its command buffers. The caller must hold b.mu.
func (b *Backend) waitIdleLocked(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for b.queue.PollCompleted() < b.lastSubmit {
		select {
		case <-ctx.Done():
			err := fmt.Errorf("wait for GPU: %w: %w", ErrWaitTimeout, ctx.Err())
			b.abandonLocked(err)
			return err
		case <-ticker.C:
		}
	}
	return nil
}

// abandonLocked keeps the in-flight command buffers alive. Freeing them while
// the queue may still execute them is undefined.
func (b *Backend) abandonLocked(cause error) {
	b.hung = true
	b.hungCmds = append(b.hungCmds, b.inflight...)
	b.inflight = nil
	slogger().Warn("gpu: submission did not complete, leaking command buffers",
		"submission", b.lastSubmit, "command_buffers", len(b.hungCmds), "err", cause)
}

func (b *Backend) freeInflightLocked() {
	for _, cmdBuf := range b.inflight {
		b.device.FreeCommandBuffer(cmdBuf)
	}
	b.inflight = b.inflight[:0]
}

// Mapped returns the staging contents once mapping succeeded.
func (b *Backend) Mapped() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.mapRequested {
		return nil, ErrMapNotRequested
	}
	if !b.mapDone {
		return nil, ErrBufferMapPending
	}
	if b.mapStatus != MapSuccess {
		return nil, fmt.Errorf("%w: status %s", ErrMappingFailed, b.mapStatus)
	}
	data, err := b.staging.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMappingFailed, err)
	}
	return data, nil
}

// Stats reports how many batches were submitted and how many completion
// waits ran.
func (b *Backend) Stats() (submits, waits int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submits, b.waits
}

// Close releases all resources. A shared device is left open.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseLocked()
}

// releaseLocked destroys buffers, pipeline and, unless shared, the device.
// After a hung wait every device object is leaked instead, since pending
// work may still reference it. The caller must hold b.mu.
func (b *Backend) releaseLocked() {
	if b.device != nil && len(b.inflight) > 0 && !b.hung {
		ctx, cancel := context.WithTimeout(context.Background(), b.closeTimeout)
		if err := b.waitIdleLocked(ctx); err == nil {
			b.freeInflightLocked()
		}
		cancel()
	}

	if b.hung {
		slogger().Warn("gpu: leaking device resources after a hung wait",
			"command_buffers", len(b.hungCmds)+len(b.inflight))
		b.forgetLocked()
		return
	}

	if b.staging != nil {
		_ = b.staging.Unmap()
		b.staging.Destroy()
		b.staging = nil
	}
	if b.storage != nil {
		b.storage.Destroy()
		b.storage = nil
	}
	b.pipe.destroy(b.device)
	b.pipe = nil

	if !b.external {
		if b.device != nil {
			b.device.Destroy()
		}
		if b.instance != nil {
			b.instance.Destroy()
		}
	}
	b.forgetLocked()
}

// forgetLocked drops every reference to device state. The caller must hold b.mu.
func (b *Backend) forgetLocked() {
	b.staging = nil
	b.storage = nil
	b.pipe = nil
	b.device = nil
	b.queue = nil
	b.instance = nil
	b.external = false
	b.inflight = nil
	b.lastSubmit = 0
	b.hung = false
	b.hungCmds = nil
	b.info = gpucore.AdapterInfo{}

	b.size = 0
	b.mapRequested = false
	b.mapDone = false
	b.mapStatus = MapSuccess
}
