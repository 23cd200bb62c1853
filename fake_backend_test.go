package roundtrip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/roundtrip/gpucore"
	"github.com/gogpu/roundtrip/shader"
)

// cpuBackend simulates a device on the host. Submitted work is queued and
// only executes when Wait drains the queue, like a real device queue.
type cpuBackend struct {
	acquireErr error
	failMap    bool

	// maxUnsynced, when positive, drops dispatches queued beyond this many
	// since the last wait. It models a device that loses work when nothing
	// orders it.
	maxUnsynced int

	staging []byte
	storage []byte
	program *shader.Program

	queue    []func()
	unsynced int

	submits     int
	dispatches  int
	waitsAt     []int // dispatch count at each Wait
	dims        [][3]uint32
	sizes       []uint64 // every size used for allocation, copy and map
	seedStorage []byte   // storage contents right after the seed copy ran

	mapRequested bool
	mapDone      bool
	mapped       []byte

	logger   *slog.Logger
	provider any
	closed   bool
}

var _ gpucore.Backend = (*cpuBackend)(nil)

func (b *cpuBackend) Name() string { return "cpu" }

func (b *cpuBackend) SetLogger(l *slog.Logger) { b.logger = l }

func (b *cpuBackend) Acquire(ctx context.Context, _ gpucore.AcquireOptions) (gpucore.AdapterInfo, error) {
	if err := ctx.Err(); err != nil {
		return gpucore.AdapterInfo{}, err
	}
	if b.acquireErr != nil {
		return gpucore.AdapterInfo{}, b.acquireErr
	}
	return gpucore.AdapterInfo{Name: "cpu", Backend: "cpu"}, nil
}

func (b *cpuBackend) Provision(seed []byte) error {
	if len(seed) == 0 {
		return errors.New("cpu: empty seed")
	}
	b.staging = append([]byte(nil), seed...)
	b.storage = make([]byte, len(seed))
	for i := range b.storage {
		b.storage[i] = 0xAA // undefined until the seed copy
	}
	b.sizes = append(b.sizes, uint64(len(b.staging)), uint64(len(b.storage)))
	return nil
}

func (b *cpuBackend) BuildPipeline(prog *shader.Program) error {
	if prog == nil {
		return errors.New("cpu: nil program")
	}
	b.program = prog
	b.sizes = append(b.sizes, uint64(len(b.storage)))
	return nil
}

func (b *cpuBackend) SeedUpload() error {
	size := uint64(len(b.staging))
	b.sizes = append(b.sizes, size)
	b.submit(func() {
		copy(b.storage, b.staging[:size])
		b.seedStorage = append([]byte(nil), b.storage...)
	})
	return nil
}

func (b *cpuBackend) Dispatch(x, y, z uint32) error {
	if b.program == nil {
		return gpucore.ErrPipelineNotBuilt
	}
	b.dispatches++
	b.dims = append(b.dims, [3]uint32{x, y, z})
	b.unsynced++
	if b.maxUnsynced > 0 && b.unsynced > b.maxUnsynced {
		b.submits++
		return nil
	}
	b.submit(func() {
		words, _ := DecodeWords(b.storage)
		for i := 0; i < int(x) && i < len(words); i++ {
			words[i]++
		}
		copy(b.storage, EncodeWords(words))
	})
	return nil
}

func (b *cpuBackend) Readback() error {
	size := uint64(len(b.storage))
	b.sizes = append(b.sizes, size)
	b.submit(func() {
		copy(b.staging, b.storage[:size])
	})
	return nil
}

func (b *cpuBackend) submit(op func()) {
	b.queue = append(b.queue, op)
	b.submits++
}

func (b *cpuBackend) RequestMap() error {
	b.mapRequested = true
	b.sizes = append(b.sizes, uint64(len(b.staging)))
	return nil
}

func (b *cpuBackend) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, op := range b.queue {
		op()
	}
	b.queue = nil
	b.unsynced = 0
	b.waitsAt = append(b.waitsAt, b.dispatches)

	if b.mapRequested && !b.mapDone {
		b.mapDone = true
		if !b.failMap {
			b.mapped = append([]byte(nil), b.staging...)
		}
	}
	return nil
}

func (b *cpuBackend) Mapped() ([]byte, error) {
	if !b.mapRequested {
		return nil, gpucore.ErrMapNotRequested
	}
	if b.failMap {
		return nil, fmt.Errorf("%w: simulated", gpucore.ErrMappingFailed)
	}
	return b.mapped, nil
}

func (b *cpuBackend) Close() { b.closed = true }

// providerBackend adds shared-device support to cpuBackend.
type providerBackend struct {
	cpuBackend
}

func (b *providerBackend) SetDeviceProvider(provider any) error {
	if provider == nil {
		return errors.New("cpu: nil provider")
	}
	b.provider = provider
	return nil
}

// testProgram is a stand-in kernel so root tests never need naga.
func testProgram() *shader.Program {
	return &shader.Program{Name: "test", SPIRV: []uint32{shader.Magic}, EntryPoint: shader.EntryPoint}
}

// cpuRun runs cfg on b with output captured in out.
func cpuRun(cfg Config, b Backend, opts ...Option) (*Result, error) {
	base := []Option{
		WithBackendFactory(func() Backend { return b }),
		WithProgram(testProgram()),
	}
	return Run(context.Background(), cfg, append(base, opts...)...)
}
