package roundtrip

import (
	"github.com/gogpu/roundtrip/gpucore"
	"github.com/gogpu/roundtrip/internal/gpu"
)

// Backend executes one round trip on a device. See gpucore.Backend.
type Backend = gpucore.Backend

// AdapterInfo describes the adapter a run executed on.
type AdapterInfo = gpucore.AdapterInfo

// PowerPreference selects among several adapters.
type PowerPreference = gpucore.PowerPreference

// Power preferences.
const (
	PowerPreferenceDefault         = gpucore.PowerPreferenceDefault
	PowerPreferenceLowPower        = gpucore.PowerPreferenceLowPower
	PowerPreferenceHighPerformance = gpucore.PowerPreferenceHighPerformance
)

// ParsePowerPreference parses "default", "low-power" or "high-performance".
func ParsePowerPreference(s string) (PowerPreference, error) {
	return gpucore.ParsePowerPreference(s)
}

// MaxWorkgroupsPerDimension is the common WebGPU limit on a single dispatch
// dimension. Wider dispatches are submitted anyway and logged as a warning.
const MaxWorkgroupsPerDimension = 65535

// Adapters lists the adapters the default HAL backend can open.
func Adapters() ([]AdapterInfo, error) {
	return gpu.EnumerateAdapters(nil)
}
