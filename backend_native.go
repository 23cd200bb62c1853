//go:build wgpunative

package roundtrip

import "github.com/gogpu/roundtrip/internal/native"

// init registers the wgpu-native backend when built with -tags wgpunative.
func init() {
	_ = RegisterBackend(native.BackendName, func() Backend {
		return native.New()
	})
}
