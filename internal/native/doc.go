// Package native implements the round-trip backend on wgpu-native.
//
// It goes through github.com/openfluke/webgpu (cgo) and is only built with
// the wgpunative tag:
//
//	go build -tags wgpunative ./cmd/roundtrip
//
// Buffer mapping follows wgpu-native directly: MapAsync registers a callback
// and Device.Poll drives it until the callback fires.
package native
