//go:build rust

package probe

import (
	"fmt"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/gogpu/roundtrip/gpucore"
)

// Available reports whether the native probe was compiled in.
func Available() bool { return true }

// Native returns the adapter wgpu-native selects for pref.
func Native(pref gpucore.PowerPreference) (gpucore.AdapterInfo, error) {
	if err := wgpu.Init(); err != nil {
		return gpucore.AdapterInfo{}, fmt.Errorf("%w: %w", ErrLibraryNotFound, err)
	}

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return gpucore.AdapterInfo{}, fmt.Errorf("instance creation failed: %w", err)
	}
	defer instance.Release()

	opts := &wgpu.RequestAdapterOptions{}
	switch pref {
	case gpucore.PowerPreferenceHighPerformance:
		opts.PowerPreference = wgpu.PowerPreferenceHighPerformance
	case gpucore.PowerPreferenceLowPower:
		opts.PowerPreference = wgpu.PowerPreferenceLowPower
	}
	adapter, err := instance.RequestAdapter(opts)
	if err != nil {
		return gpucore.AdapterInfo{}, fmt.Errorf("%w: %w", gpucore.ErrNoAdapter, err)
	}
	defer adapter.Release()

	info, err := adapter.GetInfo()
	if err != nil {
		return gpucore.AdapterInfo{}, fmt.Errorf("adapter info: %w", err)
	}

	return gpucore.AdapterInfo{
		Name:       info.Device,
		Vendor:     info.Vendor,
		DeviceType: deviceType(info.AdapterType),
		Backend:    "wgpu-native/" + backendTypeToString(info.BackendType),
	}, nil
}

func deviceType(at wgpu.AdapterType) gpucore.DeviceType {
	switch at {
	case wgpu.AdapterTypeDiscreteGPU:
		return gpucore.DeviceTypeDiscreteGPU
	case wgpu.AdapterTypeIntegratedGPU:
		return gpucore.DeviceTypeIntegratedGPU
	default:
		return gpucore.DeviceTypeOther
	}
}

// backendTypeToString converts wgpu backend type to string.
func backendTypeToString(bt wgpu.BackendType) string {
	switch bt {
	case wgpu.BackendTypeNull:
		return "Null"
	case wgpu.BackendTypeWebGPU:
		return "WebGPU"
	case wgpu.BackendTypeD3D11:
		return "D3D11"
	case wgpu.BackendTypeD3D12:
		return "D3D12"
	case wgpu.BackendTypeMetal:
		return "Metal"
	case wgpu.BackendTypeVulkan:
		return "Vulkan"
	case wgpu.BackendTypeOpenGL:
		return "OpenGL"
	case wgpu.BackendTypeOpenGLES:
		return "OpenGLES"
	default:
		return "Unknown"
	}
}
