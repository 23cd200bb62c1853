package roundtrip

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

func testConfig(entries, iterations int) Config {
	cfg := DefaultConfig()
	cfg.Entries = entries
	cfg.Iterations = iterations
	cfg.Backend = "cpu"
	return cfg
}

func TestRunOutputLines(t *testing.T) {
	var out bytes.Buffer
	b := &cpuBackend{}

	res, err := cpuRun(testConfig(5, 0), b, WithOutput(&out))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := "reading data back, 20 bytes\nwaiting\nreceived data, 20 bytes\n"
	if got := out.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if res.BytesReceived != 20 {
		t.Errorf("BytesReceived = %d, want 20", res.BytesReceived)
	}
	if !res.Mapped || !res.OK() {
		t.Errorf("result not OK: %+v", res)
	}
	if !b.closed {
		t.Error("backend not closed after run")
	}
}

func TestRunSeedCopyIdentity(t *testing.T) {
	b := &cpuBackend{}
	res, err := cpuRun(testConfig(5, 0), b, WithOutput(nil))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	zeros := make([]byte, 20)
	if !bytes.Equal(b.seedStorage, zeros) {
		t.Errorf("storage after seed = %v, want five zero words", b.seedStorage)
	}
	if want := make([]uint32, 5); !reflect.DeepEqual(res.Words, want) {
		t.Errorf("Words = %v, want %v", res.Words, want)
	}
}

func TestRunDataSizeEverywhere(t *testing.T) {
	tests := []struct {
		entries    int
		iterations int
	}{
		{1, 0},
		{5, 3},
		{1000, 10},
		{70000, 2},
	}
	for _, tt := range tests {
		b := &cpuBackend{}
		res, err := cpuRun(testConfig(tt.entries, tt.iterations), b, WithOutput(nil))
		if err != nil {
			t.Fatalf("Run(%d, %d) error = %v", tt.entries, tt.iterations, err)
		}

		want := uint64(tt.entries) * 4
		if res.DataSize != want || res.BytesReceived != want {
			t.Errorf("entries=%d: DataSize=%d BytesReceived=%d, want %d",
				tt.entries, res.DataSize, res.BytesReceived, want)
		}
		for i, size := range b.sizes {
			if size != want {
				t.Errorf("entries=%d: size[%d] = %d, want %d", tt.entries, i, size, want)
			}
		}
		for i, d := range b.dims {
			if d != [3]uint32{uint32(tt.entries), 1, 1} {
				t.Errorf("entries=%d: dispatch %d dims = %v", tt.entries, i, d)
			}
		}
		if len(b.dims) != tt.iterations {
			t.Errorf("dispatches = %d, want %d", len(b.dims), tt.iterations)
		}
	}
}

func TestRunMappingFailure(t *testing.T) {
	var out bytes.Buffer
	b := &cpuBackend{failMap: true}

	res, err := cpuRun(testConfig(5, 1), b, WithOutput(&out))
	if !errors.Is(err, ErrMappingFailed) {
		t.Fatalf("Run() error = %v, want ErrMappingFailed", err)
	}
	if res == nil {
		t.Fatal("expected partial result on mapping failure")
	}
	if res.Mapped || res.BytesReceived != 0 {
		t.Errorf("result claims data: %+v", res)
	}
	if strings.Contains(out.String(), "received data") {
		t.Errorf("result line printed on mapping failure: %q", out.String())
	}
	if want := "reading data back, 20 bytes\nwaiting\n"; out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestRunSyncPolicy(t *testing.T) {
	tests := []struct {
		sync      SyncPolicy
		wantWaits int
		wantAt    []int
	}{
		{SyncNone, 0, []int{10}},
		{SyncEach, 10, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 10}},
		{SyncEvery(3), 3, []int{3, 6, 9, 10}},
		{SyncEvery(5), 2, []int{5, 10, 10}},
		{SyncEvery(20), 0, []int{10}},
	}
	for _, tt := range tests {
		t.Run(tt.sync.String(), func(t *testing.T) {
			cfg := testConfig(8, 10)
			cfg.Sync = tt.sync
			b := &cpuBackend{}

			res, err := cpuRun(cfg, b, WithOutput(nil))
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.Waits != tt.wantWaits {
				t.Errorf("Waits = %d, want %d", res.Waits, tt.wantWaits)
			}
			if res.Waits != tt.sync.Waits(cfg.Iterations) {
				t.Errorf("Waits = %d, policy predicts %d", res.Waits, tt.sync.Waits(cfg.Iterations))
			}
			if !reflect.DeepEqual(b.waitsAt, tt.wantAt) {
				t.Errorf("waits at dispatch %v, want %v", b.waitsAt, tt.wantAt)
			}
		})
	}
}

func TestRunVerify(t *testing.T) {
	cfg := testConfig(16, 7)
	cfg.Verify = true

	res, err := cpuRun(cfg, &cpuBackend{}, WithOutput(nil))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Verified || res.Expected != 7 || res.Mismatches != 0 {
		t.Errorf("verification = %v/%d/%d, want true/7/0", res.Verified, res.Expected, res.Mismatches)
	}
}

func TestRunVerifyDetectsLostDispatches(t *testing.T) {
	cfg := testConfig(16, 10)
	cfg.Verify = true

	// Without waits the simulated device keeps only 4 of 10 dispatches.
	res, err := cpuRun(cfg, &cpuBackend{maxUnsynced: 4}, WithOutput(nil))
	if !errors.Is(err, ErrDataMismatch) {
		t.Fatalf("Run() error = %v, want ErrDataMismatch", err)
	}
	if res == nil || res.Mismatches != 16 {
		t.Fatalf("result = %+v, want 16 mismatches", res)
	}
	if res.BytesReceived != 64 {
		t.Errorf("BytesReceived = %d, want 64", res.BytesReceived)
	}
	if res.OK() {
		t.Error("OK() = true with mismatches")
	}

	// Waiting every 4 dispatches keeps the device in step.
	cfg.Sync = SyncEvery(4)
	if _, err := cpuRun(cfg, &cpuBackend{maxUnsynced: 4}, WithOutput(nil)); err != nil {
		t.Errorf("Run(every:4) error = %v", err)
	}
}

func TestRunWithoutVerifyIgnoresValues(t *testing.T) {
	res, err := cpuRun(testConfig(16, 10), &cpuBackend{maxUnsynced: 1}, WithOutput(nil))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Verified || res.Mismatches != 0 {
		t.Errorf("unverified run reported verification: %+v", res)
	}
}

func TestRepeatIdempotent(t *testing.T) {
	created := 0
	r, err := NewRunner(testConfig(100, 3),
		WithBackendFactory(func() Backend {
			created++
			return &cpuBackend{}
		}),
		WithProgram(testProgram()),
		WithOutput(nil),
	)
	if err != nil {
		t.Fatal(err)
	}

	results, err := r.Repeat(context.Background(), 4)
	if err != nil {
		t.Fatalf("Repeat() error = %v", err)
	}
	if len(results) != 4 || created != 4 {
		t.Fatalf("runs = %d, backends = %d, want 4/4", len(results), created)
	}
	for i, res := range results {
		if res.BytesReceived != 400 {
			t.Errorf("run %d BytesReceived = %d, want 400", i, res.BytesReceived)
		}
	}

	if _, err := r.Repeat(context.Background(), 0); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Repeat(0) error = %v, want ErrInvalidConfig", err)
	}
}

func TestRepeatStopsAtFailure(t *testing.T) {
	n := 0
	r, err := NewRunner(testConfig(4, 1),
		WithBackendFactory(func() Backend {
			n++
			return &cpuBackend{failMap: n == 2}
		}),
		WithProgram(testProgram()),
		WithOutput(nil),
	)
	if err != nil {
		t.Fatal(err)
	}

	results, err := r.Repeat(context.Background(), 5)
	if !errors.Is(err, ErrMappingFailed) {
		t.Fatalf("Repeat() error = %v, want ErrMappingFailed", err)
	}
	if n != 2 || len(results) != 2 {
		t.Errorf("runs = %d, results = %d, want 2/2", n, len(results))
	}
}

func TestRunAcquireFailure(t *testing.T) {
	var out bytes.Buffer
	b := &cpuBackend{acquireErr: ErrNoAdapter}

	res, err := cpuRun(testConfig(5, 1), b, WithOutput(&out))
	if !errors.Is(err, ErrNoAdapter) {
		t.Fatalf("Run() error = %v, want ErrNoAdapter", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil on setup failure", res)
	}
	if out.Len() != 0 {
		t.Errorf("output on setup failure: %q", out.String())
	}
	if !b.closed {
		t.Error("backend not closed after failure")
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := &cpuBackend{}
	_, err := Run(ctx, testConfig(5, 1),
		WithBackendFactory(func() Backend { return b }),
		WithProgram(testProgram()),
		WithOutput(nil),
	)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	if _, err := Run(context.Background(), testConfig(0, 1)); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Run(entries=0) error = %v, want ErrInvalidConfig", err)
	}
}

func TestRunUnknownBackend(t *testing.T) {
	cfg := testConfig(5, 1)
	cfg.Backend = "does-not-exist"
	if _, err := Run(context.Background(), cfg, WithOutput(nil)); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Run() error = %v, want ErrUnknownBackend", err)
	}
}

func TestRunShaderPathErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.spv")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(5, 1)
	cfg.ShaderPath = path
	b := &cpuBackend{}
	_, err := Run(context.Background(), cfg,
		WithBackendFactory(func() Backend { return b }),
		WithOutput(nil),
	)
	if !errors.Is(err, ErrShaderModule) {
		t.Errorf("Run() error = %v, want ErrShaderModule", err)
	}
}

type stubProvider struct{}

func (stubProvider) Device() gpucontext.Device             { return nil }
func (stubProvider) Queue() gpucontext.Queue               { return nil }
func (stubProvider) Adapter() gpucontext.Adapter           { return nil }
func (stubProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatBGRA8Unorm }
func (stubProvider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{} }

func TestRunDeviceProvider(t *testing.T) {
	b := &providerBackend{}
	if _, err := cpuRun(testConfig(5, 1), b, WithOutput(nil), WithDeviceProvider(stubProvider{})); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, ok := b.provider.(stubProvider); !ok {
		t.Errorf("provider = %T, want stubProvider", b.provider)
	}

	_, err := cpuRun(testConfig(5, 1), &cpuBackend{}, WithOutput(nil), WithDeviceProvider(stubProvider{}))
	if err == nil || !strings.Contains(err.Error(), "shared device") {
		t.Errorf("Run() on backend without provider support = %v", err)
	}
}
