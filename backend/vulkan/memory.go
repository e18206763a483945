package vulkan

import (
	"log/slog"

	vk "github.com/goki/vulkan"

	"dynamik/graphics"
)

// allocateBuffer creates a buffer and binds freshly allocated memory of the
// requested properties to it.
func (d *Device) allocateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags) (vk.Buffer, vk.DeviceMemory, error) {
	info := &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	buf, err := d.driver.CreateBuffer(d.handle, info)
	if err != nil {
		return nil, nil, nativeError("vkCreateBuffer", err)
	}
	req := d.driver.BufferMemoryRequirements(d.handle, buf)
	typeIndex, err := d.findMemoryType(req.MemoryTypeBits, props)
	if err != nil {
		d.driver.DestroyBuffer(d.handle, buf)
		graphics.Logger().Error("no memory type for buffer", slog.Any("err", err))
		return nil, nil, err
	}
	mem, err := d.driver.AllocateMemory(d.handle, req.Size, typeIndex)
	if err != nil {
		d.driver.DestroyBuffer(d.handle, buf)
		return nil, nil, nativeError("vkAllocateMemory", err)
	}
	if err := d.driver.BindBufferMemory(d.handle, buf, mem); err != nil {
		d.driver.DestroyBuffer(d.handle, buf)
		d.driver.FreeMemory(d.handle, mem)
		return nil, nil, nativeError("vkBindBufferMemory", err)
	}
	graphics.Logger().Debug("allocated buffer", slog.Uint64("size", uint64(size)), slog.Uint64("memory_type", uint64(typeIndex)))
	return buf, mem, nil
}

func (d *Device) freeBuffer(buf vk.Buffer, mem vk.DeviceMemory) {
	d.driver.DestroyBuffer(d.handle, buf)
	d.driver.FreeMemory(d.handle, mem)
}

// imageSpec describes a single mip, single layer 2D image.
type imageSpec struct {
	width, height uint32
	format        vk.Format
	usage         vk.ImageUsageFlags
	props         vk.MemoryPropertyFlags
}

func (d *Device) allocateImage(spec imageSpec) (vk.Image, vk.DeviceMemory, error) {
	info := &vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    spec.format,
		Extent: vk.Extent3D{
			Width:  spec.width,
			Height: spec.height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         spec.usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	img, err := d.driver.CreateImage(d.handle, info)
	if err != nil {
		return nil, nil, nativeError("vkCreateImage", err)
	}
	req := d.driver.ImageMemoryRequirements(d.handle, img)
	typeIndex, err := d.findMemoryType(req.MemoryTypeBits, spec.props)
	if err != nil {
		d.driver.DestroyImage(d.handle, img)
		graphics.Logger().Error("no memory type for image", slog.Any("err", err))
		return nil, nil, err
	}
	mem, err := d.driver.AllocateMemory(d.handle, req.Size, typeIndex)
	if err != nil {
		d.driver.DestroyImage(d.handle, img)
		return nil, nil, nativeError("vkAllocateMemory", err)
	}
	if err := d.driver.BindImageMemory(d.handle, img, mem); err != nil {
		d.driver.DestroyImage(d.handle, img)
		d.driver.FreeMemory(d.handle, mem)
		return nil, nil, nativeError("vkBindImageMemory", err)
	}
	graphics.Logger().Debug("allocated image", slog.Uint64("width", uint64(spec.width)), slog.Uint64("height", uint64(spec.height)))
	return img, mem, nil
}

func (d *Device) freeImage(img vk.Image, mem vk.DeviceMemory) {
	d.driver.DestroyImage(d.handle, img)
	d.driver.FreeMemory(d.handle, mem)
}

// createImageView creates a full size 2D view of image.
func (d *Device) createImageView(image vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	info := &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	view, err := d.driver.CreateImageView(d.handle, info)
	if err != nil {
		return nil, nativeError("vkCreateImageView", err)
	}
	return view, nil
}

// upload copies data into a device local buffer through host visible
// staging memory, split into chunks of at most the device staging limit.
func (d *Device) upload(dst vk.Buffer, data []byte) error {
	chunk := uint64(len(data))
	if d.stagingLimit > 0 && chunk > d.stagingLimit {
		chunk = d.stagingLimit
	}
	staging := NewBuffer(d, BufferKindStaging, chunk)
	if err := staging.Initialize(); err != nil {
		return err
	}
	defer staging.Terminate()

	for off := uint64(0); off < uint64(len(data)); off += chunk {
		end := off + chunk
		if end > uint64(len(data)) {
			end = uint64(len(data))
		}
		if err := staging.Write(data[off:end]); err != nil {
			return err
		}
		region := vk.BufferCopy{DstOffset: vk.DeviceSize(off), Size: vk.DeviceSize(end - off)}
		if err := d.driver.CopyBuffer(d.Commands(), staging.handle, dst, region); err != nil {
			return nativeError("vkCmdCopyBuffer", err)
		}
	}
	return nil
}
