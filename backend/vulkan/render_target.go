package vulkan

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"

	"dynamik/graphics"
)

var errNoSurfaceFormats = errors.New("surface offers no formats or present modes")

type RenderTargetKind int

const (
	// RenderTargetSwapchain renders into the display's swapchain images.
	RenderTargetSwapchain RenderTargetKind = iota
	// RenderTargetOffscreen renders into one owned color image that is
	// sampled afterwards.
	RenderTargetOffscreen
)

func (k RenderTargetKind) String() string {
	switch k {
	case RenderTargetSwapchain:
		return "Swapchain"
	case RenderTargetOffscreen:
		return "Offscreen"
	}
	return fmt.Sprintf("RenderTargetKind(%d)", int(k))
}

// RenderTarget is a render pass with one framebuffer per color image, each
// with a shared depth attachment.
type RenderTarget struct {
	Kind RenderTargetKind

	device      *Device
	extent      vk.Extent2D
	colorFormat vk.Format
	colorSpace  vk.ColorSpace
	depthFormat vk.Format
	presentMode vk.PresentMode
	renderPass  vk.RenderPass

	swapchain    vk.Swapchain
	images       []vk.Image
	colorMemory  vk.DeviceMemory
	views        []vk.ImageView
	depthImage   vk.Image
	depthMemory  vk.DeviceMemory
	depthView    vk.ImageView
	framebuffers []vk.Framebuffer
	state        lifecycle
}

// NewSwapchainTarget describes a target presenting to the device's display.
// Mailbox presentation is used when available.
func NewSwapchainTarget(device *Device) *RenderTarget {
	return &RenderTarget{
		Kind:        RenderTargetSwapchain,
		device:      device,
		presentMode: vk.PresentModeMailbox,
	}
}

// NewOffscreenTarget describes a target rendering into an owned image. A
// zero format means 8 bit sRGB RGBA.
func NewOffscreenTarget(device *Device, width, height uint32, format vk.Format) *RenderTarget {
	if format == vk.FormatUndefined {
		format = vk.FormatR8g8b8a8Srgb
	}
	return &RenderTarget{
		Kind:        RenderTargetOffscreen,
		device:      device,
		extent:      vk.Extent2D{Width: width, Height: height},
		colorFormat: format,
	}
}

// SetPresentMode chooses the preferred present mode before Initialize.
func (rt *RenderTarget) SetPresentMode(mode vk.PresentMode) {
	rt.presentMode = mode
}

func (rt *RenderTarget) Initialize() error {
	ok, err := rt.state.beginInitialize("render target")
	if !ok {
		return err
	}
	d := rt.device
	if rt.depthFormat, err = d.depthFormat(); err != nil {
		graphics.Logger().Error("no depth format supported", slog.Any("err", err))
		return err
	}
	if rt.Kind == RenderTargetSwapchain {
		support, err := d.driver.SurfaceSupport(d.physical.Handle, d.display.surface)
		if err != nil {
			return nativeError("vkGetPhysicalDeviceSurfaceFormatsKHR", err)
		}
		if !support.Adequate() {
			return nativeError("vkGetPhysicalDeviceSurfaceFormatsKHR", errNoSurfaceFormats)
		}
		f := selectSurfaceFormat(support.Formats, vk.FormatB8g8r8a8Srgb, vk.ColorSpaceSrgbNonlinear)
		rt.colorFormat, rt.colorSpace = f.Format, f.ColorSpace
	}
	if err := rt.createRenderPass(); err != nil {
		return err
	}
	if err := rt.createAttachments(); err != nil {
		d.driver.DestroyRenderPass(d.handle, rt.renderPass)
		rt.renderPass = nil
		return err
	}
	rt.state = lifecycleInitialized
	graphics.Logger().Info("initialized render target",
		slog.String("kind", rt.Kind.String()),
		slog.Uint64("width", uint64(rt.extent.Width)),
		slog.Uint64("height", uint64(rt.extent.Height)))
	return nil
}

// Resize recreates every extent dependent object. Swapchain targets take
// their size from the surface and ignore width and height.
func (rt *RenderTarget) Resize(width, height uint32) error {
	if err := rt.state.usable("render target"); err != nil {
		return err
	}
	if err := rt.device.WaitIdle(); err != nil {
		return err
	}
	rt.destroyAttachments()
	if rt.Kind == RenderTargetOffscreen {
		rt.extent = vk.Extent2D{Width: width, Height: height}
	}
	return rt.createAttachments()
}

func (rt *RenderTarget) Terminate() error {
	if err := rt.state.beginTerminate("render target"); err != nil {
		return err
	}
	rt.destroyAttachments()
	rt.device.driver.DestroyRenderPass(rt.device.handle, rt.renderPass)
	rt.renderPass = nil
	rt.state = lifecycleTerminated
	return nil
}

func (rt *RenderTarget) IsInitialized() bool       { return rt.state == lifecycleInitialized }
func (rt *RenderTarget) Device() *Device           { return rt.device }
func (rt *RenderTarget) RenderPass() vk.RenderPass { return rt.renderPass }
func (rt *RenderTarget) Swapchain() vk.Swapchain   { return rt.swapchain }
func (rt *RenderTarget) Extent() vk.Extent2D       { return rt.extent }
func (rt *RenderTarget) ColorFormat() vk.Format    { return rt.colorFormat }
func (rt *RenderTarget) ImageCount() int           { return len(rt.framebuffers) }

func (rt *RenderTarget) Framebuffer(i uint32) vk.Framebuffer {
	return rt.framebuffers[i]
}

// Aspect is width over height, zero for an empty extent.
func (rt *RenderTarget) Aspect() float32 {
	if rt.extent.Height == 0 {
		return 0
	}
	return float32(rt.extent.Width) / float32(rt.extent.Height)
}

// ColorDescriptor is the sampled view of an offscreen target's image.
func (rt *RenderTarget) ColorDescriptor(sampler vk.Sampler) vk.DescriptorImageInfo {
	var view vk.ImageView
	if len(rt.views) > 0 {
		view = rt.views[0]
	}
	return vk.DescriptorImageInfo{Sampler: sampler, ImageView: view, ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal}
}

func (rt *RenderTarget) createRenderPass() error {
	finalLayout := vk.ImageLayoutPresentSrc
	if rt.Kind == RenderTargetOffscreen {
		finalLayout = vk.ImageLayoutShaderReadOnlyOptimal
	}
	color := vk.AttachmentDescription{
		Format:         rt.colorFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    finalLayout,
	}
	depth := vk.AttachmentDescription{
		Format:         rt.depthFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	depthRef := vk.AttachmentReference{Attachment: 1, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal}
	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       []vk.AttachmentReference{{Attachment: 0, Layout: vk.ImageLayoutColorAttachmentOptimal}},
		PDepthStencilAttachment: &depthRef,
	}
	stages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit)
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  stages,
		DstStageMask:  stages,
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
	}
	info := &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 2,
		PAttachments:    []vk.AttachmentDescription{color, depth},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
	pass, err := rt.device.driver.CreateRenderPass(rt.device.handle, info)
	if err != nil {
		return nativeError("vkCreateRenderPass", err)
	}
	rt.renderPass = pass
	return nil
}

// createAttachments creates the color images and views, the depth image
// and the framebuffers for the current extent.
func (rt *RenderTarget) createAttachments() error {
	d := rt.device
	switch rt.Kind {
	case RenderTargetSwapchain:
		if err := rt.createSwapchain(); err != nil {
			return err
		}
	case RenderTargetOffscreen:
		img, mem, err := d.allocateImage(imageSpec{
			width:  rt.extent.Width,
			height: rt.extent.Height,
			format: rt.colorFormat,
			usage:  vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageSampledBit),
			props:  vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		})
		if err != nil {
			return err
		}
		rt.images, rt.colorMemory = []vk.Image{img}, mem
	default:
		return errors.Wrapf(graphics.ErrUnsupported, "render target kind %s", rt.Kind)
	}

	for _, img := range rt.images {
		view, err := d.createImageView(img, rt.colorFormat, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			rt.destroyAttachments()
			return err
		}
		rt.views = append(rt.views, view)
	}
	if err := rt.createDepth(); err != nil {
		rt.destroyAttachments()
		return err
	}
	for i, view := range rt.views {
		info := &vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      rt.renderPass,
			AttachmentCount: 2,
			PAttachments:    []vk.ImageView{view, rt.depthView},
			Width:           rt.extent.Width,
			Height:          rt.extent.Height,
			Layers:          1,
		}
		fb, err := d.driver.CreateFramebuffer(d.handle, info)
		if err != nil {
			rt.destroyAttachments()
			return nativeError(fmt.Sprintf("vkCreateFramebuffer[%d]", i), err)
		}
		rt.framebuffers = append(rt.framebuffers, fb)
	}
	return nil
}

func (rt *RenderTarget) createDepth() error {
	d := rt.device
	img, mem, err := d.allocateImage(imageSpec{
		width:  rt.extent.Width,
		height: rt.extent.Height,
		format: rt.depthFormat,
		usage:  vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		props:  vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
	})
	if err != nil {
		return err
	}
	view, err := d.createImageView(img, rt.depthFormat, vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if err != nil {
		d.freeImage(img, mem)
		return err
	}
	rt.depthImage, rt.depthMemory, rt.depthView = img, mem, view
	err = d.driver.TransitionImageLayout(d.Commands(), img, rt.depthFormat, vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal)
	if err != nil {
		return nativeError("vkCmdPipelineBarrier", err)
	}
	return nil
}

// destroyAttachments releases everything createAttachments made. It is safe
// on a partially created target.
func (rt *RenderTarget) destroyAttachments() {
	d := rt.device
	for _, fb := range rt.framebuffers {
		d.driver.DestroyFramebuffer(d.handle, fb)
	}
	rt.framebuffers = nil
	if rt.depthView != nil {
		d.driver.DestroyImageView(d.handle, rt.depthView)
		d.freeImage(rt.depthImage, rt.depthMemory)
		rt.depthImage, rt.depthMemory, rt.depthView = nil, nil, nil
	}
	for _, v := range rt.views {
		d.driver.DestroyImageView(d.handle, v)
	}
	rt.views = nil
	switch rt.Kind {
	case RenderTargetSwapchain:
		if rt.swapchain != nil {
			d.driver.DestroySwapchain(d.handle, rt.swapchain)
			rt.swapchain = nil
		}
	case RenderTargetOffscreen:
		if len(rt.images) > 0 {
			d.freeImage(rt.images[0], rt.colorMemory)
			rt.colorMemory = nil
		}
	}
	rt.images = nil
}
