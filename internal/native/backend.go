//go:build wgpunative

package native

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openfluke/webgpu/wgpu"

	"github.com/gogpu/roundtrip/gpucore"
	"github.com/gogpu/roundtrip/shader"
)

// BackendName is the registry name of the wgpu-native backend.
const BackendName = "native"

// pollSleep is the pause between non-blocking polls while a map is pending.
const pollSleep = time.Millisecond

// ErrNoWGSL is returned by BuildPipeline for programs without WGSL source;
// wgpu-native is fed WGSL, not SPIR-V words.
var ErrNoWGSL = errors.New("native: program has no WGSL source")

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(slog.DiscardHandler))
}

func slogger() *slog.Logger { return loggerPtr.Load() }

// Backend runs the round-trip protocol on wgpu-native.
type Backend struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	info     gpucore.AdapterInfo

	staging *wgpu.Buffer
	storage *wgpu.Buffer
	size    uint64

	module    *wgpu.ShaderModule
	bgl       *wgpu.BindGroupLayout
	pl        *wgpu.PipelineLayout
	pipeline  *wgpu.ComputePipeline
	bindGroup *wgpu.BindGroup

	mapRequested bool
	mapDone      atomic.Bool
	mapStatus    wgpu.BufferMapAsyncStatus
	mapped       bool
}

var _ gpucore.Backend = (*Backend)(nil)

// New creates a wgpu-native backend.
func New() *Backend {
	return &Backend{}
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return BackendName }

// SetLogger sets the logger for the native backend.
func (b *Backend) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	loggerPtr.Store(l)
}

// Acquire requests an adapter and a device with default limits.
func (b *Backend) Acquire(ctx context.Context, opts gpucore.AcquireOptions) (gpucore.AdapterInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device != nil {
		return b.info, nil
	}
	if err := ctx.Err(); err != nil {
		return gpucore.AdapterInfo{}, err
	}

	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return gpucore.AdapterInfo{}, fmt.Errorf("%w: CreateInstance returned nil", gpucore.ErrNoAdapter)
	}

	adapterOpts := &wgpu.RequestAdapterOptions{}
	switch opts.PowerPreference {
	case gpucore.PowerPreferenceHighPerformance:
		adapterOpts.PowerPreference = wgpu.PowerPreferenceHighPerformance
	case gpucore.PowerPreferenceLowPower:
		adapterOpts.PowerPreference = wgpu.PowerPreferenceLowPower
	}
	adapter, err := instance.RequestAdapter(adapterOpts)
	if err != nil || adapter == nil {
		instance.Release()
		return gpucore.AdapterInfo{}, fmt.Errorf("%w: %v", gpucore.ErrNoAdapter, err)
	}

	if !adapter.HasFeature(wgpu.NativeFeatureMappablePrimaryBuffers) {
		adapter.Release()
		instance.Release()
		return gpucore.AdapterInfo{}, fmt.Errorf("%w: adapter lacks %s", gpucore.ErrDeviceRequest, wgpu.NativeFeatureMappablePrimaryBuffers)
	}

	device, err := adapter.RequestDevice(deviceDescriptor())
	if err != nil || device == nil {
		adapter.Release()
		instance.Release()
		return gpucore.AdapterInfo{}, fmt.Errorf("%w: %v", gpucore.ErrDeviceRequest, err)
	}

	b.instance = instance
	b.adapter = adapter
	b.device = device
	b.queue = device.GetQueue()

	info := adapter.GetInfo()
	b.info = gpucore.AdapterInfo{
		Name:       info.Name,
		Vendor:     info.VendorName,
		DeviceType: deviceType(info.AdapterType),
		Backend:    BackendName,
	}
	slogger().Info("native: adapter selected", "adapter", b.info.Name, "vendor", b.info.Vendor)
	return b.info, nil
}

// stagingUsage is the usage of the staging buffer. wgpu-native accepts
// MapRead beside CopySrc only with NativeFeatureMappablePrimaryBuffers.
const stagingUsage = wgpu.BufferUsageMapRead | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// deviceDescriptor requests the features stagingUsage depends on and
// default limits.
func deviceDescriptor() *wgpu.DeviceDescriptor {
	return &wgpu.DeviceDescriptor{
		Label:            "roundtrip_device",
		RequiredFeatures: []wgpu.FeatureName{wgpu.NativeFeatureMappablePrimaryBuffers},
	}
}

func deviceType(t wgpu.AdapterType) gpucore.DeviceType {
	switch t {
	case wgpu.AdapterTypeDiscreteGPU:
		return gpucore.DeviceTypeDiscreteGPU
	case wgpu.AdapterTypeIntegratedGPU:
		return gpucore.DeviceTypeIntegratedGPU
	default:
		return gpucore.DeviceTypeOther
	}
}

// Provision creates the staging buffer with seed as initial contents and an
// empty storage buffer of the same size.
func (b *Backend) Provision(seed []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil {
		return gpucore.ErrNotAcquired
	}
	if len(seed) == 0 {
		return fmt.Errorf("native: invalid buffer size: 0")
	}

	staging, err := b.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "roundtrip_staging",
		Contents: seed,
		Usage:    stagingUsage,
	})
	if err != nil {
		return fmt.Errorf("create staging buffer: %w", err)
	}

	storage, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "roundtrip_storage",
		Size:  uint64(len(seed)),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		staging.Release()
		return fmt.Errorf("create storage buffer: %w", err)
	}

	b.staging = staging
	b.storage = storage
	b.size = uint64(len(seed))
	return nil
}

// BuildPipeline compiles prog's WGSL and creates the pipeline objects.
func (b *Backend) BuildPipeline(prog *shader.Program) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.storage == nil {
		return gpucore.ErrNotProvisioned
	}
	if prog == nil || prog.WGSL == "" {
		return fmt.Errorf("%w: %w", gpucore.ErrShaderModule, ErrNoWGSL)
	}

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          prog.Name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: prog.WGSL},
	})
	if err != nil {
		return fmt.Errorf("%w: %w", gpucore.ErrShaderModule, err)
	}
	b.module = module

	bgl, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "roundtrip_bgl",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	b.bgl = bgl

	pl, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "roundtrip_pl",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	b.pl = pl

	pipeline, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   "roundtrip_pipeline",
		Layout:  pl,
		Compute: wgpu.ProgrammableStageDescriptor{Module: module, EntryPoint: shader.EntryPoint},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	b.pipeline = pipeline

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "roundtrip_bind",
		Layout: bgl,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.storage, Size: b.size},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	b.bindGroup = bindGroup
	return nil
}

// SeedUpload submits the staging to storage copy.
func (b *Backend) SeedUpload() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.storage == nil {
		return gpucore.ErrNotProvisioned
	}
	return b.submitLocked(func(enc *wgpu.CommandEncoder) {
		enc.CopyBufferToBuffer(b.staging, 0, b.storage, 0, b.size)
	})
}

// Dispatch submits one compute pass.
func (b *Backend) Dispatch(x, y, z uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pipeline == nil {
		return gpucore.ErrPipelineNotBuilt
	}
	return b.submitLocked(func(enc *wgpu.CommandEncoder) {
		pass := enc.BeginComputePass(nil)
		pass.SetPipeline(b.pipeline)
		pass.SetBindGroup(0, b.bindGroup, nil)
		pass.DispatchWorkgroups(x, y, z)
		pass.End()
	})
}

// Readback submits the storage to staging copy.
func (b *Backend) Readback() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.storage == nil {
		return gpucore.ErrNotProvisioned
	}
	return b.submitLocked(func(enc *wgpu.CommandEncoder) {
		enc.CopyBufferToBuffer(b.storage, 0, b.staging, 0, b.size)
	})
}

func (b *Backend) submitLocked(record func(*wgpu.CommandEncoder)) error {
	enc, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	defer enc.Release()

	record(enc)

	cb, err := enc.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish command buffer: %w", err)
	}
	defer cb.Release()

	b.queue.Submit(cb)
	return nil
}

// RequestMap starts mapping the staging buffer for reading.
func (b *Backend) RequestMap() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.staging == nil {
		return gpucore.ErrNotProvisioned
	}
	if b.mapRequested {
		return fmt.Errorf("native: map already requested")
	}

	b.mapRequested = true
	b.mapDone.Store(false)
	err := b.staging.MapAsync(wgpu.MapModeRead, 0, b.size, func(status wgpu.BufferMapAsyncStatus) {
		b.mapStatus = status
		b.mapDone.Store(true)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", gpucore.ErrMappingFailed, err)
	}
	return nil
}

// Wait blocks on Device.Poll until the queue is empty, then keeps polling
// without blocking until a pending map callback fires or ctx ends.
func (b *Backend) Wait(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.device == nil {
		return gpucore.ErrNotAcquired
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}

	b.device.Poll(true, nil)

	if !b.mapRequested {
		return nil
	}
	for !b.mapDone.Load() {
		b.device.Poll(false, nil)
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for map: %w", ctx.Err())
		case <-time.After(pollSleep):
		}
	}
	return nil
}

// Mapped returns the mapped staging range.
func (b *Backend) Mapped() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.mapRequested {
		return nil, gpucore.ErrMapNotRequested
	}
	if !b.mapDone.Load() {
		return nil, fmt.Errorf("%w: map still pending", gpucore.ErrMappingFailed)
	}
	if b.mapStatus != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("%w: status %d", gpucore.ErrMappingFailed, b.mapStatus)
	}

	data := b.staging.GetMappedRange(0, uint(b.size))
	if data == nil {
		return nil, fmt.Errorf("%w: mapped range nil", gpucore.ErrMappingFailed)
	}
	b.mapped = true
	return data, nil
}

// Close releases every object in reverse creation order.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.mapped {
		b.staging.Unmap()
		b.mapped = false
	}
	if b.bindGroup != nil {
		b.bindGroup.Release()
		b.bindGroup = nil
	}
	if b.pipeline != nil {
		b.pipeline.Release()
		b.pipeline = nil
	}
	if b.pl != nil {
		b.pl.Release()
		b.pl = nil
	}
	if b.bgl != nil {
		b.bgl.Release()
		b.bgl = nil
	}
	if b.module != nil {
		b.module.Release()
		b.module = nil
	}
	if b.storage != nil {
		b.storage.Destroy()
		b.storage.Release()
		b.storage = nil
	}
	if b.staging != nil {
		b.staging.Destroy()
		b.staging.Release()
		b.staging = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
	b.mapRequested = false
}
