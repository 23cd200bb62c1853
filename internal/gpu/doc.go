// Package gpu implements the round-trip backend on the Pure Go WebGPU HAL.
//
// The backend opens a Vulkan device through github.com/gogpu/wgpu/hal (zero
// CGO), provisions a staging and a storage buffer, and records one command
// buffer per protocol step:
//
//	seed:      CopyBufferToBuffer(staging -> storage)
//	dispatch:  compute pass, SetPipeline, SetBindGroup(0), Dispatch(n, 1, 1)
//	readback:  CopyBufferToBuffer(storage -> staging)
//
// Batches are ordered only by queue submission order. [Backend.Wait] polls
// the queue until the newest submission index is complete; command buffers
// recorded before the wait are freed afterwards. When the context ends first,
// those command buffers and every device object are leaked rather than freed
// while the queue may still use them.
//
// # Buffer mapping
//
// The staging buffer is wrapped in a [Buffer], which tracks the WebGPU async
// map state machine (Unmapped -> Pending -> Mapped). A pending map resolves at
// the next completed wait by copying out of a short MapBuffer mapping.
//
// # Shared devices
//
// [Backend.SetDeviceProvider] switches the backend to a device owned by an
// external provider (for example a gogpu application). A shared device is
// never destroyed by Close.
//
// # Testing
//
// Tests run against the hal/noop device, which accepts every call without a
// GPU present. Tests that need real hardware live behind the gpu build tag in
// the root package.
package gpu
