//go:build wgpunative && gpu

package native

import (
	"context"
	"testing"

	"github.com/gogpu/roundtrip/gpucore"
	"github.com/gogpu/roundtrip/shader"
)

func TestNativeRoundTrip(t *testing.T) {
	const entries = 1024
	ctx := context.Background()

	b := New()
	defer b.Close()

	info, err := b.Acquire(ctx, gpucore.AcquireOptions{})
	if err != nil {
		t.Skipf("no wgpu-native adapter: %v", err)
	}
	t.Logf("adapter: %s", info)

	prog, err := shader.Default()
	if err != nil {
		t.Fatalf("shader.Default() error = %v", err)
	}

	size := gpucore.DataSize(entries)
	if err := b.Provision(make([]byte, size)); err != nil {
		t.Fatal(err)
	}
	if err := b.BuildPipeline(prog); err != nil {
		t.Fatal(err)
	}
	if err := b.SeedUpload(); err != nil {
		t.Fatal(err)
	}
	if err := b.Dispatch(entries, 1, 1); err != nil {
		t.Fatal(err)
	}
	if err := b.Readback(); err != nil {
		t.Fatal(err)
	}
	if err := b.RequestMap(); err != nil {
		t.Fatal(err)
	}
	if err := b.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	data, err := b.Mapped()
	if err != nil {
		t.Fatal(err)
	}
	if uint64(len(data)) != size {
		t.Errorf("len(Mapped()) = %d, want %d", len(data), size)
	}
}
