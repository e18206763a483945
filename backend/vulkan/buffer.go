package vulkan

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"

	"dynamik/graphics"
)

// BufferKind selects usage and memory placement of a Buffer.
type BufferKind int

const (
	BufferKindVertex BufferKind = iota
	BufferKindIndex
	BufferKindUniform
	BufferKindStaging
	BufferKindStorage
)

func (k BufferKind) String() string {
	switch k {
	case BufferKindVertex:
		return "Vertex"
	case BufferKindIndex:
		return "Index"
	case BufferKindUniform:
		return "Uniform"
	case BufferKindStaging:
		return "Staging"
	case BufferKindStorage:
		return "Storage"
	}
	return fmt.Sprintf("BufferKind(%d)", int(k))
}

// usage returns the buffer usage and memory properties of the kind. Vertex,
// index and storage buffers live in device local memory and are filled
// through a staging buffer; uniform and staging buffers are host visible.
func (k BufferKind) usage() (vk.BufferUsageFlags, vk.MemoryPropertyFlags, bool) {
	hostVisible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	deviceLocal := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	switch k {
	case BufferKindVertex:
		return vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit | vk.BufferUsageTransferDstBit), deviceLocal, true
	case BufferKindIndex:
		return vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit | vk.BufferUsageTransferDstBit), deviceLocal, true
	case BufferKindUniform:
		return vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), hostVisible, true
	case BufferKindStaging:
		return vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), hostVisible, true
	case BufferKindStorage:
		return vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit | vk.BufferUsageTransferDstBit), deviceLocal, true
	}
	return 0, 0, false
}

func (k BufferKind) hostVisible() bool {
	return k == BufferKindUniform || k == BufferKindStaging
}

// Buffer is a GPU buffer of a fixed size owned by its creator.
type Buffer struct {
	Kind BufferKind

	device *Device
	size   vk.DeviceSize
	handle vk.Buffer
	memory vk.DeviceMemory
	state  lifecycle
}

// NewBuffer describes a buffer. No native object exists before Initialize.
func NewBuffer(device *Device, kind BufferKind, size uint64) *Buffer {
	return &Buffer{Kind: kind, device: device, size: vk.DeviceSize(size)}
}

func (b *Buffer) name() string {
	return strings.ToLower(b.Kind.String()) + " buffer"
}

func (b *Buffer) Initialize() error {
	ok, err := b.state.beginInitialize(b.name())
	if !ok {
		return err
	}
	usage, props, known := b.Kind.usage()
	if !known {
		graphics.Logger().Error("unknown buffer kind", slog.String("kind", b.Kind.String()))
		return errors.Wrapf(graphics.ErrUnsupported, "buffer kind %s", b.Kind)
	}
	if b.size == 0 {
		return errors.Errorf("%s: zero size", b.name())
	}
	handle, mem, err := b.device.allocateBuffer(b.size, usage, props)
	if err != nil {
		return err
	}
	b.handle, b.memory = handle, mem
	b.state = lifecycleInitialized
	return nil
}

// Write copies data to the start of the buffer. Host visible buffers are
// written directly, device local ones through staging memory.
func (b *Buffer) Write(data []byte) error {
	if err := b.state.usable(b.name()); err != nil {
		return err
	}
	if vk.DeviceSize(len(data)) > b.size {
		return errors.Errorf("%s: %d bytes do not fit %d", b.name(), len(data), b.size)
	}
	if len(data) == 0 {
		return nil
	}
	if b.Kind.hostVisible() {
		if err := b.device.driver.WriteMemory(b.device.handle, b.memory, 0, data); err != nil {
			return nativeError("vkMapMemory", err)
		}
		return nil
	}
	return b.device.upload(b.handle, data)
}

func (b *Buffer) Terminate() error {
	if err := b.state.beginTerminate(b.name()); err != nil {
		return err
	}
	b.device.freeBuffer(b.handle, b.memory)
	b.handle, b.memory = nil, nil
	b.state = lifecycleTerminated
	return nil
}

func (b *Buffer) Handle() vk.Buffer   { return b.handle }
func (b *Buffer) Size() uint64        { return uint64(b.size) }
func (b *Buffer) IsInitialized() bool { return b.state == lifecycleInitialized }

func (b *Buffer) descriptorInfo() vk.DescriptorBufferInfo {
	return vk.DescriptorBufferInfo{Buffer: b.handle, Offset: 0, Range: b.size}
}
