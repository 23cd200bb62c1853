package gpu

import (
	"context"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/roundtrip/gpucore"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// InstanceFactory creates HAL instances. The value returned by
// hal.GetBackend satisfies it, as does noop.API.
type InstanceFactory interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// defaultFactory returns the Vulkan HAL backend.
func defaultFactory() (InstanceFactory, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, ErrBackendUnavailable
	}
	return backend, nil
}

// openedDevice is the result of a successful acquisition.
type openedDevice struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	info     gpucore.AdapterInfo
}

// openDevice creates an instance, selects one adapter and opens a device on
// it with no optional features and default limits. There is no retry and no
// fallback to another adapter when Open fails.
func openDevice(ctx context.Context, factory InstanceFactory, pref gpucore.PowerPreference) (*openedDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	instance, err := factory.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrNoAdapter, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no adapters enumerated", ErrNoAdapter)
	}

	types := make([]gputypes.DeviceType, len(adapters))
	for i := range adapters {
		types[i] = adapters[i].Info.DeviceType
	}
	selected := &adapters[pickAdapter(types, pref)]

	if err := ctx.Err(); err != nil {
		instance.Destroy()
		return nil, err
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: %s: %w", ErrDeviceRequest, selected.Info.Name, err)
	}

	info := gpucore.AdapterInfo{
		Name:       selected.Info.Name,
		DeviceType: deviceType(selected.Info.DeviceType),
		Backend:    BackendName,
	}
	slogger().Info("gpu: adapter selected", "adapter", info.Name, "type", info.DeviceType, "candidates", len(adapters))

	return &openedDevice{
		instance: instance,
		device:   openDev.Device,
		queue:    openDev.Queue,
		info:     info,
	}, nil
}

// pickAdapter returns the index of the adapter to open.
//
// The default preference takes the first discrete or integrated GPU. The
// low-power and high-performance preferences look for their class first and
// then behave like the default. With no GPU at all the first adapter wins.
func pickAdapter(types []gputypes.DeviceType, pref gpucore.PowerPreference) int {
	find := func(want gputypes.DeviceType) int {
		for i, t := range types {
			if t == want {
				return i
			}
		}
		return -1
	}

	switch pref {
	case gpucore.PowerPreferenceHighPerformance:
		if i := find(gputypes.DeviceTypeDiscreteGPU); i >= 0 {
			return i
		}
	case gpucore.PowerPreferenceLowPower:
		if i := find(gputypes.DeviceTypeIntegratedGPU); i >= 0 {
			return i
		}
	}

	for i, t := range types {
		if t == gputypes.DeviceTypeDiscreteGPU || t == gputypes.DeviceTypeIntegratedGPU {
			return i
		}
	}
	return 0
}

func deviceType(t gputypes.DeviceType) gpucore.DeviceType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucore.DeviceTypeDiscreteGPU
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucore.DeviceTypeIntegratedGPU
	default:
		return gpucore.DeviceTypeOther
	}
}

// EnumerateAdapters lists the adapters factory exposes. A nil factory uses
// the Vulkan HAL backend.
func EnumerateAdapters(factory InstanceFactory) ([]gpucore.AdapterInfo, error) {
	if factory == nil {
		f, err := defaultFactory()
		if err != nil {
			return nil, err
		}
		factory = f
	}

	instance, err := factory.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	defer instance.Destroy()

	adapters := instance.EnumerateAdapters(nil)
	infos := make([]gpucore.AdapterInfo, 0, len(adapters))
	for i := range adapters {
		infos = append(infos, gpucore.AdapterInfo{
			Name:       adapters[i].Info.Name,
			DeviceType: deviceType(adapters[i].Info.DeviceType),
			Backend:    BackendName,
		})
	}
	return infos, nil
}
