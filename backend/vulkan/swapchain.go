package vulkan

import (
	"log/slog"

	vk "github.com/goki/vulkan"

	"dynamik/graphics"
)

// undefinedExtent marks a surface whose size is chosen by the swapchain.
const undefinedExtent = 0xFFFFFFFF

// selectSurfaceFormat returns the desired format if available, otherwise
// the first one offered.
func selectSurfaceFormat(formats []vk.SurfaceFormat, format vk.Format, space vk.ColorSpace) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == format && f.ColorSpace == space {
			return f
		}
	}
	graphics.Logger().Debug("preferred surface format unavailable, using first", slog.Int("format", int(formats[0].Format)))
	return formats[0]
}

// selectPresentMode falls back to FIFO, which is always available.
func selectPresentMode(modes []vk.PresentMode, desired vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == desired {
			return m
		}
	}
	return vk.PresentModeFifo
}

// selectExtent uses the surface extent when it is fixed and otherwise the
// window size clamped to the allowed range.
func selectExtent(caps vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != undefinedExtent {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// swapchainImageCount asks for one image more than the minimum, within the
// maximum when there is one.
func swapchainImageCount(caps vk.SurfaceCapabilities) uint32 {
	n := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && n > caps.MaxImageCount {
		n = caps.MaxImageCount
	}
	return n
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}

// createSwapchain creates the swapchain for the target's display and reads
// its images.
func (rt *RenderTarget) createSwapchain() error {
	d := rt.device
	support, err := d.driver.SurfaceSupport(d.physical.Handle, d.display.surface)
	if err != nil {
		return nativeError("vkGetPhysicalDeviceSurfaceCapabilitiesKHR", err)
	}
	if !support.Adequate() {
		return nativeError("vkGetPhysicalDeviceSurfaceFormatsKHR", errNoSurfaceFormats)
	}
	w, h := d.display.window.FramebufferSize()
	rt.extent = selectExtent(support.Capabilities, w, h)
	mode := selectPresentMode(support.PresentModes, rt.presentMode)
	sharing, families := d.queues.sharing()

	info := &vk.SwapchainCreateInfo{
		SType:                 vk.StructureTypeSwapchainCreateInfo,
		Surface:               d.display.surface,
		MinImageCount:         swapchainImageCount(support.Capabilities),
		ImageFormat:           rt.colorFormat,
		ImageColorSpace:       rt.colorSpace,
		ImageExtent:           rt.extent,
		ImageArrayLayers:      1,
		ImageUsage:            vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode:      sharing,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
		PreTransform:          support.Capabilities.CurrentTransform,
		CompositeAlpha:        vk.CompositeAlphaOpaqueBit,
		PresentMode:           mode,
		Clipped:               vk.True,
	}
	sc, err := d.driver.CreateSwapchain(d.handle, info)
	if err != nil {
		return nativeError("vkCreateSwapchainKHR", err)
	}
	images, err := d.driver.SwapchainImages(d.handle, sc)
	if err != nil {
		d.driver.DestroySwapchain(d.handle, sc)
		return nativeError("vkGetSwapchainImagesKHR", err)
	}
	rt.swapchain = sc
	rt.images = images
	graphics.Logger().Debug("created swapchain",
		slog.Int("images", len(images)),
		slog.Uint64("width", uint64(rt.extent.Width)),
		slog.Uint64("height", uint64(rt.extent.Height)))
	return nil
}
