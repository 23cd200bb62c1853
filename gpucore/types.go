package gpucore

import (
	"errors"
	"fmt"
	"strings"
)

// WordSize is the byte width of one element of the round-trip buffer.
const WordSize = 4

// DataSize returns the byte size of a buffer holding entries elements.
// Every allocation, binding, copy and map of a run uses this value.
func DataSize(entries int) uint64 {
	if entries <= 0 {
		return 0
	}
	return uint64(entries) * WordSize
}

// DeviceType classifies the physical adapter behind a device.
type DeviceType int

const (
	// DeviceTypeOther is any adapter that is not a known GPU class.
	DeviceTypeOther DeviceType = iota
	// DeviceTypeIntegratedGPU shares memory with the host.
	DeviceTypeIntegratedGPU
	// DeviceTypeDiscreteGPU has dedicated device memory.
	DeviceTypeDiscreteGPU
)

// String returns the string representation of DeviceType.
func (t DeviceType) String() string {
	switch t {
	case DeviceTypeOther:
		return "Other"
	case DeviceTypeIntegratedGPU:
		return "IntegratedGPU"
	case DeviceTypeDiscreteGPU:
		return "DiscreteGPU"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// PowerPreference selects among several adapters.
type PowerPreference int

const (
	// PowerPreferenceDefault takes the first GPU the platform enumerates.
	PowerPreferenceDefault PowerPreference = iota
	// PowerPreferenceLowPower prefers integrated adapters.
	PowerPreferenceLowPower
	// PowerPreferenceHighPerformance prefers discrete adapters.
	PowerPreferenceHighPerformance
)

// ErrUnknownPowerPreference is returned by ParsePowerPreference.
var ErrUnknownPowerPreference = errors.New("gpucore: unknown power preference")

// String returns the flag spelling of the preference.
func (p PowerPreference) String() string {
	switch p {
	case PowerPreferenceDefault:
		return "default"
	case PowerPreferenceLowPower:
		return "low-power"
	case PowerPreferenceHighPerformance:
		return "high-performance"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// ParsePowerPreference parses "default", "low-power" or "high-performance".
// The empty string is the default preference.
func ParsePowerPreference(s string) (PowerPreference, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return PowerPreferenceDefault, nil
	case "low-power", "low":
		return PowerPreferenceLowPower, nil
	case "high-performance", "high":
		return PowerPreferenceHighPerformance, nil
	default:
		return PowerPreferenceDefault, fmt.Errorf("%w: %q", ErrUnknownPowerPreference, s)
	}
}

// AcquireOptions configure adapter and device acquisition.
type AcquireOptions struct {
	// PowerPreference picks among several adapters.
	PowerPreference PowerPreference
}

// AdapterInfo describes the adapter a run executed on.
type AdapterInfo struct {
	// Name is the adapter name reported by the driver.
	Name string

	// Vendor is the vendor name, if the backend reports one.
	Vendor string

	// DeviceType classifies the adapter.
	DeviceType DeviceType

	// Backend names the backend that opened the device ("hal", "native").
	Backend string

	// Shared is true when the device belongs to an external provider.
	Shared bool
}

// String returns a one-line description for logs.
func (i AdapterInfo) String() string {
	var b strings.Builder
	b.WriteString(i.Name)
	if i.Vendor != "" {
		b.WriteString(" (")
		b.WriteString(i.Vendor)
		b.WriteString(")")
	}
	fmt.Fprintf(&b, " [%s, %s", i.DeviceType, i.Backend)
	if i.Shared {
		b.WriteString(", shared")
	}
	b.WriteString("]")
	return b.String()
}
