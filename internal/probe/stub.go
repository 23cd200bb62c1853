//go:build !rust

package probe

import "github.com/gogpu/roundtrip/gpucore"

// Available reports whether the native probe was compiled in.
func Available() bool { return false }

// Native always fails without the rust build tag.
func Native(gpucore.PowerPreference) (gpucore.AdapterInfo, error) {
	return gpucore.AdapterInfo{}, ErrUnavailable
}
