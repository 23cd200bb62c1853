package gpu

import (
	"context"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/roundtrip/gpucore"
	"github.com/gogpu/roundtrip/shader"
)

// createNoopDevice creates a noop device and queue for testing.
// The cleanup function must be called when done.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// newNoopBackend returns a backend acquired on the noop HAL.
func newNoopBackend(t *testing.T) *Backend {
	t.Helper()
	b := New(WithInstanceFactory(&noop.API{}))
	t.Cleanup(b.Close)
	return b
}

// testProgram is a SPIR-V header the noop device accepts as a module.
func testProgram() *shader.Program {
	return &shader.Program{
		Name:       "test",
		SPIRV:      []uint32{shader.Magic, 0x00010000, 0, 1, 0},
		EntryPoint: shader.EntryPoint,
	}
}

type fakeProvider struct {
	device any
	queue  any
}

func (p fakeProvider) HalDevice() any { return p.device }
func (p fakeProvider) HalQueue() any  { return p.queue }

// stuckQueue submits normally but never reports a submission complete.
type stuckQueue struct {
	hal.Queue
}

func (q *stuckQueue) PollCompleted() uint64 { return 0 }

// countingDevice counts the objects released through it and fails MapBuffer
// with mapErr when set.
type countingDevice struct {
	hal.Device

	mapErr error

	freedCmds          int
	destroyedBuffers   int
	destroyedPipelines int
}

func (d *countingDevice) FreeCommandBuffer(cmdBuf hal.CommandBuffer) {
	d.freedCmds++
	d.Device.FreeCommandBuffer(cmdBuf)
}

func (d *countingDevice) DestroyBuffer(buffer hal.Buffer) {
	d.destroyedBuffers++
	d.Device.DestroyBuffer(buffer)
}

func (d *countingDevice) DestroyComputePipeline(pipeline hal.ComputePipeline) {
	d.destroyedPipelines++
	d.Device.DestroyComputePipeline(pipeline)
}

func (d *countingDevice) MapBuffer(buffer hal.Buffer, offset, size uint64) (hal.BufferMapping, error) {
	if d.mapErr != nil {
		return hal.BufferMapping{}, d.mapErr
	}
	return d.Device.MapBuffer(buffer, offset, size)
}

// provisionAndSubmit runs the protocol on b up to and including readback.
func provisionAndSubmit(t *testing.T, b *Backend) {
	t.Helper()
	if _, err := b.Acquire(context.Background(), gpucore.AcquireOptions{}); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := b.Provision(make([]byte, 16)); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if err := b.BuildPipeline(testProgram()); err != nil {
		t.Fatalf("BuildPipeline() error = %v", err)
	}
	if err := b.SeedUpload(); err != nil {
		t.Fatalf("SeedUpload() error = %v", err)
	}
	if err := b.Dispatch(4, 1, 1); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if err := b.Readback(); err != nil {
		t.Fatalf("Readback() error = %v", err)
	}
}
