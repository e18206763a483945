package vulkan

import (
	"log/slog"

	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"

	"dynamik/graphics"
)

// Texture is a sampled 2D image with its view and sampler.
type Texture struct {
	Width  uint32
	Height uint32
	Format vk.Format

	device  *Device
	image   vk.Image
	memory  vk.DeviceMemory
	view    vk.ImageView
	sampler vk.Sampler
	layout  vk.ImageLayout
	state   lifecycle
}

// NewTexture describes a texture. A zero format means 8 bit sRGB RGBA.
func NewTexture(device *Device, width, height uint32, format vk.Format) *Texture {
	if format == vk.FormatUndefined {
		format = vk.FormatR8g8b8a8Srgb
	}
	return &Texture{Width: width, Height: height, Format: format, device: device}
}

func (t *Texture) Initialize() error {
	ok, err := t.state.beginInitialize("texture")
	if !ok {
		return err
	}
	if t.Width == 0 || t.Height == 0 {
		return errors.Errorf("texture: empty extent %dx%d", t.Width, t.Height)
	}
	d := t.device
	img, mem, err := d.allocateImage(imageSpec{
		width:  t.Width,
		height: t.Height,
		format: t.Format,
		usage:  vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		props:  vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	})
	if err != nil {
		return err
	}
	view, err := d.createImageView(img, t.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		d.freeImage(img, mem)
		return err
	}
	sampler, err := d.createSampler()
	if err != nil {
		d.driver.DestroyImageView(d.handle, view)
		d.freeImage(img, mem)
		return err
	}
	t.image, t.memory, t.view, t.sampler = img, mem, view, sampler
	t.layout = vk.ImageLayoutUndefined
	t.state = lifecycleInitialized
	return nil
}

// Upload replaces the texture contents with tightly packed pixels and leaves
// the image ready for shader reads.
func (t *Texture) Upload(pixels []byte) error {
	if err := t.state.usable("texture"); err != nil {
		return err
	}
	want := uint64(t.Width) * uint64(t.Height) * uint64(formatPixelSize(t.Format))
	if uint64(len(pixels)) != want {
		return errors.Errorf("texture: got %d bytes, want %d", len(pixels), want)
	}
	d := t.device
	staging := NewBuffer(d, BufferKindStaging, want)
	if err := staging.Initialize(); err != nil {
		return err
	}
	defer staging.Terminate()
	if err := staging.Write(pixels); err != nil {
		return err
	}

	cc := d.Commands()
	if err := d.driver.TransitionImageLayout(cc, t.image, t.Format, t.layout, vk.ImageLayoutTransferDstOptimal); err != nil {
		return nativeError("vkCmdPipelineBarrier", err)
	}
	if err := d.driver.CopyBufferToImage(cc, staging.handle, t.image, t.Width, t.Height); err != nil {
		return nativeError("vkCmdCopyBufferToImage", err)
	}
	if err := d.driver.TransitionImageLayout(cc, t.image, t.Format, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		return nativeError("vkCmdPipelineBarrier", err)
	}
	t.layout = vk.ImageLayoutShaderReadOnlyOptimal
	graphics.Logger().Debug("uploaded texture", slog.Uint64("width", uint64(t.Width)), slog.Uint64("height", uint64(t.Height)))
	return nil
}

func (t *Texture) Terminate() error {
	if err := t.state.beginTerminate("texture"); err != nil {
		return err
	}
	d := t.device
	d.driver.DestroySampler(d.handle, t.sampler)
	d.driver.DestroyImageView(d.handle, t.view)
	d.freeImage(t.image, t.memory)
	t.image, t.memory, t.view, t.sampler = nil, nil, nil, nil
	t.state = lifecycleTerminated
	return nil
}

func (t *Texture) IsInitialized() bool { return t.state == lifecycleInitialized }

func (t *Texture) descriptorInfo() vk.DescriptorImageInfo {
	return vk.DescriptorImageInfo{
		Sampler:     t.sampler,
		ImageView:   t.view,
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
}

// createSampler creates a linear, clamp to border sampler with anisotropy
// when the device supports it.
func (d *Device) createSampler() (vk.Sampler, error) {
	anisotropy := d.physical.Features.SamplerAnisotropy == vk.True
	info := &vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        vk.FilterLinear,
		MinFilter:        vk.FilterLinear,
		MipmapMode:       vk.SamplerMipmapModeLinear,
		AddressModeU:     vk.SamplerAddressModeClampToBorder,
		AddressModeV:     vk.SamplerAddressModeClampToBorder,
		AddressModeW:     vk.SamplerAddressModeClampToBorder,
		AnisotropyEnable: vk.False,
		MaxAnisotropy:    1,
		CompareEnable:    vk.False,
		CompareOp:        vk.CompareOpAlways,
		BorderColor:      vk.BorderColorIntOpaqueBlack,
	}
	if anisotropy {
		info.AnisotropyEnable = vk.True
		info.MaxAnisotropy = d.physical.Limits.MaxSamplerAnisotropy
	}
	sampler, err := d.driver.CreateSampler(d.handle, info)
	if err != nil {
		return nil, nativeError("vkCreateSampler", err)
	}
	return sampler, nil
}

// formatPixelSize is the byte size of one texel for the formats textures
// are created with.
func formatPixelSize(f vk.Format) uint32 {
	switch f {
	case vk.FormatR8Unorm:
		return 1
	case vk.FormatR16g16b16a16Sfloat:
		return 8
	case vk.FormatR32g32b32a32Sfloat:
		return 16
	}
	return 4
}
