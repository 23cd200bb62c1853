// Package probe asks wgpu-native which adapter it would pick, as a cross
// check for the adapter the HAL backend selects.
//
// The probe loads wgpu-native at run time through go-webgpu (goffi, no cgo)
// and is only available with the rust build tag.
package probe

import "errors"

// ErrUnavailable is returned when the binary was built without the rust tag.
var ErrUnavailable = errors.New("probe: wgpu-native probe not built (use -tags rust)")

// ErrLibraryNotFound is returned when wgpu-native cannot be loaded.
var ErrLibraryNotFound = errors.New("probe: wgpu-native library not found")
