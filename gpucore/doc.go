// Package gpucore defines the contract between the round-trip runner and the
// GPU backends that execute it.
//
// A [Backend] walks a fixed resource lifecycle, one step per method:
//
//	Acquire -> Provision -> BuildPipeline -> SeedUpload
//	        -> Dispatch x N -> Readback -> RequestMap -> Wait -> Mapped
//	        -> Close
//
// Work recorded by SeedUpload, Dispatch and Readback is submitted to the
// device queue without a fence. Ordering between those batches comes only from
// queue submission order. Wait is the single point where the host blocks until
// the device has drained everything submitted so far; it is also where a
// pending map request resolves.
//
// Two implementations exist:
//   - internal/gpu: Pure Go, gogpu/wgpu HAL (Vulkan), the default
//   - internal/native: wgpu-native through cgo, built with -tags wgpunative
package gpucore
