package gpu

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Buffer errors.
var (
	ErrBufferDestroyed     = errors.New("gpu: buffer has been destroyed")
	ErrInvalidBufferSize   = errors.New("gpu: invalid buffer size")
	ErrBufferAlreadyMapped = errors.New("gpu: buffer is already mapped or mapping is pending")
	ErrBufferNotMapped     = errors.New("gpu: buffer is not mapped")
	ErrBufferMapPending    = errors.New("gpu: buffer mapping is pending")
	ErrMapUsageMismatch    = errors.New("gpu: buffer lacks MapRead usage")
	ErrContentsSize        = errors.New("gpu: initial contents size does not match buffer size")
)

// Buffer sizes must be whole words; copies and bindings use the full size.
const sizeAlignment uint64 = 4

type mapState uint8

const (
	stateUnmapped mapState = iota
	statePending
	stateMapped
)

func (s mapState) String() string {
	switch s {
	case stateUnmapped:
		return "unmapped"
	case statePending:
		return "pending"
	case stateMapped:
		return "mapped"
	}
	return fmt.Sprintf("mapState(%d)", uint8(s))
}

// MapStatus is the outcome of a read mapping, delivered to the MapRead
// callback exactly once.
type MapStatus int

const (
	// MapSuccess means the whole buffer is readable through Bytes.
	MapSuccess MapStatus = iota
	// MapReadFailed means the device refused to hand the contents back.
	MapReadFailed
	// MapCancelled means Unmap ran before the request resolved.
	MapCancelled
	// MapDestroyed means Destroy ran before the request resolved.
	MapDestroyed
)

func (s MapStatus) String() string {
	switch s {
	case MapSuccess:
		return "success"
	case MapReadFailed:
		return "read failed"
	case MapCancelled:
		return "cancelled"
	case MapDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("MapStatus(%d)", int(s))
}

// BufferDescriptor describes a buffer to create.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage gputypes.BufferUsage

	// Contents, if set, is written right after creation. Its length must
	// equal Size and Usage must include CopyDst.
	Contents []byte
}

// Buffer is a HAL buffer that can be read back with a whole-buffer async
// mapping: MapRead moves it to pending, Resolve reads the contents once the
// device is idle, Unmap returns it to unmapped.
//
// Resolve copies the contents out of a short hal.Device.MapBuffer mapping.
// Call it only after every submission writing the buffer has completed.
type Buffer struct {
	mu sync.Mutex

	raw    hal.Buffer
	device hal.Device

	label string
	size  uint64
	usage gputypes.BufferUsage

	state     mapState
	onMapped  func(MapStatus)
	contents  []byte
	destroyed bool
}

// CreateBuffer creates a buffer on device and uploads desc.Contents, if any,
// through queue.
func CreateBuffer(device hal.Device, queue hal.Queue, desc *BufferDescriptor) (*Buffer, error) {
	switch {
	case device == nil:
		return nil, ErrNilHALDevice
	case desc == nil:
		return nil, errors.New("gpu: buffer descriptor is nil")
	case desc.Size == 0:
		return nil, fmt.Errorf("%w: size is 0", ErrInvalidBufferSize)
	case desc.Size%sizeAlignment != 0:
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrInvalidBufferSize, desc.Size, sizeAlignment)
	case desc.Usage == 0:
		return nil, errors.New("gpu: buffer usage is empty")
	}

	if desc.Contents != nil {
		switch {
		case uint64(len(desc.Contents)) != desc.Size:
			return nil, fmt.Errorf("%w: %d bytes for a %d byte buffer", ErrContentsSize, len(desc.Contents), desc.Size)
		case !desc.Usage.Contains(gputypes.BufferUsageCopyDst):
			return nil, errors.New("gpu: initial contents require CopyDst usage")
		case queue == nil:
			return nil, ErrNilHALQueue
		}
	}

	raw, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", desc.Label, err)
	}
	if desc.Contents != nil {
		if err := queue.WriteBuffer(raw, 0, desc.Contents); err != nil {
			device.DestroyBuffer(raw)
			return nil, fmt.Errorf("seed buffer %q: %w", desc.Label, err)
		}
	}

	slogger().Debug("gpu: buffer created", "label", desc.Label, "size", desc.Size, "seeded", desc.Contents != nil)
	return &Buffer{
		raw:    raw,
		device: device,
		label:  desc.Label,
		size:   desc.Size,
		usage:  desc.Usage,
	}, nil
}

// Label returns the debug label.
func (b *Buffer) Label() string { return b.label }

// Size returns the size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Usage returns the usage flags.
func (b *Buffer) Usage() gputypes.BufferUsage { return b.usage }

// Raw returns the HAL handle, or nil once destroyed.
func (b *Buffer) Raw() hal.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.raw
}

func (b *Buffer) currentState() mapState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// MapRead requests a read mapping of the whole buffer. onMapped, which may
// be nil, runs once the request resolves, is cancelled or the buffer is
// destroyed.
func (b *Buffer) MapRead(onMapped func(MapStatus)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.destroyed:
		return ErrBufferDestroyed
	case b.state != stateUnmapped:
		return fmt.Errorf("%w: %s", ErrBufferAlreadyMapped, b.state)
	case !b.usage.Contains(gputypes.BufferUsageMapRead):
		return ErrMapUsageMismatch
	}

	b.state = statePending
	b.onMapped = onMapped
	return nil
}

// Resolve completes a pending read mapping and reports whether one was
// pending. A failed read leaves the buffer unmapped and reports MapReadFailed.
func (b *Buffer) Resolve() bool {
	b.mu.Lock()
	if b.state != statePending {
		b.mu.Unlock()
		return false
	}

	status := MapSuccess
	data := make([]byte, b.size)
	if err := b.readLocked(data); err != nil {
		slogger().Warn("gpu: map read failed", "buffer", b.label, "err", err)
		status = MapReadFailed
		b.state = stateUnmapped
	} else {
		b.contents = data
		b.state = stateMapped
	}
	onMapped := b.onMapped
	b.onMapped = nil
	b.mu.Unlock()

	if onMapped != nil {
		onMapped(status)
	}
	return true
}

func (b *Buffer) readLocked(dst []byte) error {
	mapping, err := b.device.MapBuffer(b.raw, 0, b.size)
	if err != nil {
		return err
	}
	copy(dst, unsafe.Slice((*byte)(mapping.Ptr), b.size))
	return b.device.UnmapBuffer(b.raw)
}

// Bytes returns the mapped contents. The slice is invalid after Unmap.
func (b *Buffer) Bytes() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.destroyed:
		return nil, ErrBufferDestroyed
	case b.state == statePending:
		return nil, ErrBufferMapPending
	case b.state != stateMapped:
		return nil, ErrBufferNotMapped
	}
	return b.contents, nil
}

// Unmap drops the mapped contents. A pending request is reported as
// MapCancelled. Unmapping an unmapped buffer does nothing.
func (b *Buffer) Unmap() error {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return ErrBufferDestroyed
	}
	onMapped := b.cancelLocked()
	b.mu.Unlock()

	if onMapped != nil {
		onMapped(MapCancelled)
	}
	return nil
}

// Destroy releases the HAL buffer. A pending request is reported as
// MapDestroyed. Destroy is idempotent.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	b.destroyed = true
	onMapped := b.cancelLocked()
	raw := b.raw
	b.raw = nil
	b.mu.Unlock()

	if onMapped != nil {
		onMapped(MapDestroyed)
	}
	if b.device != nil && raw != nil {
		b.device.DestroyBuffer(raw)
	}
}

// cancelLocked resets the mapping and returns the callback of a request
// that was still pending.
func (b *Buffer) cancelLocked() func(MapStatus) {
	var onMapped func(MapStatus)
	if b.state == statePending {
		onMapped = b.onMapped
	}
	b.state = stateUnmapped
	b.onMapped = nil
	b.contents = nil
	return onMapped
}
