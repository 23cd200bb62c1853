package roundtrip

import "github.com/gogpu/roundtrip/internal/gpu"

// init registers the Pure Go HAL backend as the default.
func init() {
	_ = RegisterBackend(gpu.BackendName, func() Backend {
		return gpu.New()
	})
}
