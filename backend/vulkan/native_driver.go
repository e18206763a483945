package vulkan

import (
	"unsafe"

	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"
)

// NativeDriver forwards to the Vulkan loader.
type NativeDriver struct{}

var _ Driver = NativeDriver{}

// NewNativeDriver loads the Vulkan entry points through the window system's
// vkGetInstanceProcAddr.
func NewNativeDriver(getInstanceProcAddr unsafe.Pointer) (NativeDriver, error) {
	vk.SetGetInstanceProcAddr(getInstanceProcAddr)
	if err := vk.Init(); err != nil {
		return NativeDriver{}, errors.Wrap(err, "vulkan loader")
	}
	return NativeDriver{}, nil
}

func (NativeDriver) InstanceExtensions() ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	if err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &count, props)); err != nil {
		return nil, err
	}
	names := make([]string, len(props))
	for i := range props {
		props[i].Deref()
		names[i] = vk.ToString(props[i].ExtensionName[:])
	}
	return names, nil
}

func (NativeDriver) InstanceLayers() ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.LayerProperties, count)
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, props)); err != nil {
		return nil, err
	}
	names := make([]string, len(props))
	for i := range props {
		props[i].Deref()
		names[i] = vk.ToString(props[i].LayerName[:])
	}
	return names, nil
}

func (NativeDriver) CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, error) {
	var inst vk.Instance
	if err := vk.Error(vk.CreateInstance(info, nil, &inst)); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(inst); err != nil {
		vk.DestroyInstance(inst, nil)
		return nil, err
	}
	return inst, nil
}

func (NativeDriver) DestroyInstance(inst vk.Instance) { vk.DestroyInstance(inst, nil) }

func (NativeDriver) DestroySurface(inst vk.Instance, surface vk.Surface) {
	vk.DestroySurface(inst, surface, nil)
}

func (NativeDriver) PhysicalDevices(inst vk.Instance) ([]vk.PhysicalDevice, error) {
	var count uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(inst, &count, nil)); err != nil {
		return nil, err
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := vk.Error(vk.EnumeratePhysicalDevices(inst, &count, devices)); err != nil {
		return nil, err
	}
	return devices, nil
}

func (d NativeDriver) DescribePhysicalDevice(pd vk.PhysicalDevice, surface vk.Surface) (PhysicalDeviceInfo, error) {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &props)
	props.Deref()
	props.Limits.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(pd, &features)
	features.Deref()

	var memory vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &memory)
	memory.Deref()
	for i := range memory.MemoryTypes {
		memory.MemoryTypes[i].Deref()
	}
	for i := range memory.MemoryHeaps {
		memory.MemoryHeaps[i].Deref()
	}

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, families)
	queues := make([]QueueFamily, len(families))
	for i := range families {
		families[i].Deref()
		var present vk.Bool32
		if err := vk.Error(vk.GetPhysicalDeviceSurfaceSupport(pd, uint32(i), surface, &present)); err != nil {
			return PhysicalDeviceInfo{}, err
		}
		queues[i] = QueueFamily{Flags: families[i].QueueFlags, Count: families[i].QueueCount, Present: present == vk.True}
	}

	var extCount uint32
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &extCount, nil)); err != nil {
		return PhysicalDeviceInfo{}, err
	}
	exts := make([]vk.ExtensionProperties, extCount)
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &extCount, exts)); err != nil {
		return PhysicalDeviceInfo{}, err
	}
	names := make([]string, len(exts))
	for i := range exts {
		exts[i].Deref()
		names[i] = vk.ToString(exts[i].ExtensionName[:])
	}

	support, err := d.SurfaceSupport(pd, surface)
	if err != nil {
		return PhysicalDeviceInfo{}, err
	}
	return PhysicalDeviceInfo{
		Handle:        pd,
		Name:          vk.ToString(props.DeviceName[:]),
		Type:          props.DeviceType,
		Limits:        props.Limits,
		Features:      features,
		Memory:        memory,
		QueueFamilies: queues,
		Extensions:    names,
		Swapchain:     support,
	}, nil
}

func (NativeDriver) SurfaceSupport(pd vk.PhysicalDevice, surface vk.Surface) (SwapchainSupport, error) {
	var s SwapchainSupport
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(pd, surface, &s.Capabilities)); err != nil {
		return s, err
	}
	s.Capabilities.Deref()
	s.Capabilities.CurrentExtent.Deref()
	s.Capabilities.MinImageExtent.Deref()
	s.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, nil)
	s.Formats = make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, s.Formats)
	for i := range s.Formats {
		s.Formats[i].Deref()
	}

	var modeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &modeCount, nil)
	s.PresentModes = make([]vk.PresentMode, modeCount)
	vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &modeCount, s.PresentModes)
	return s, nil
}

func (NativeDriver) FormatProperties(pd vk.PhysicalDevice, format vk.Format) vk.FormatProperties {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(pd, format, &props)
	props.Deref()
	return props
}

func (NativeDriver) CreateDevice(pd vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, error) {
	var dev vk.Device
	if err := vk.Error(vk.CreateDevice(pd, info, nil, &dev)); err != nil {
		return nil, err
	}
	return dev, nil
}

func (NativeDriver) DestroyDevice(dev vk.Device) { vk.DestroyDevice(dev, nil) }

func (NativeDriver) DeviceQueue(dev vk.Device, family uint32) vk.Queue {
	var q vk.Queue
	vk.GetDeviceQueue(dev, family, 0, &q)
	return q
}

func (NativeDriver) DeviceWaitIdle(dev vk.Device) error {
	return vk.Error(vk.DeviceWaitIdle(dev))
}

func (NativeDriver) CreateCommandPool(dev vk.Device, family uint32) (vk.CommandPool, error) {
	info := &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: family,
	}
	var pool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(dev, info, nil, &pool)); err != nil {
		return nil, err
	}
	return pool, nil
}

func (NativeDriver) DestroyCommandPool(dev vk.Device, pool vk.CommandPool) {
	vk.DestroyCommandPool(dev, pool, nil)
}

func (NativeDriver) AllocateCommandBuffers(dev vk.Device, pool vk.CommandPool, count uint32) ([]vk.CommandBuffer, error) {
	info := &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	}
	buffers := make([]vk.CommandBuffer, count)
	if err := vk.Error(vk.AllocateCommandBuffers(dev, info, buffers)); err != nil {
		return nil, err
	}
	return buffers, nil
}

func (NativeDriver) CreateBuffer(dev vk.Device, info *vk.BufferCreateInfo) (vk.Buffer, error) {
	var buf vk.Buffer
	if err := vk.Error(vk.CreateBuffer(dev, info, nil, &buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (NativeDriver) DestroyBuffer(dev vk.Device, buf vk.Buffer) { vk.DestroyBuffer(dev, buf, nil) }

func (NativeDriver) BufferMemoryRequirements(dev vk.Device, buf vk.Buffer) vk.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dev, buf, &req)
	req.Deref()
	return req
}

func (NativeDriver) CreateImage(dev vk.Device, info *vk.ImageCreateInfo) (vk.Image, error) {
	var img vk.Image
	if err := vk.Error(vk.CreateImage(dev, info, nil, &img)); err != nil {
		return nil, err
	}
	return img, nil
}

func (NativeDriver) DestroyImage(dev vk.Device, img vk.Image) { vk.DestroyImage(dev, img, nil) }

func (NativeDriver) ImageMemoryRequirements(dev vk.Device, img vk.Image) vk.MemoryRequirements {
	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(dev, img, &req)
	req.Deref()
	return req
}

func (NativeDriver) AllocateMemory(dev vk.Device, size vk.DeviceSize, typeIndex uint32) (vk.DeviceMemory, error) {
	info := &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  size,
		MemoryTypeIndex: typeIndex,
	}
	var mem vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(dev, info, nil, &mem)); err != nil {
		return nil, err
	}
	return mem, nil
}

func (NativeDriver) FreeMemory(dev vk.Device, mem vk.DeviceMemory) { vk.FreeMemory(dev, mem, nil) }

func (NativeDriver) BindBufferMemory(dev vk.Device, buf vk.Buffer, mem vk.DeviceMemory) error {
	return vk.Error(vk.BindBufferMemory(dev, buf, mem, 0))
}

func (NativeDriver) BindImageMemory(dev vk.Device, img vk.Image, mem vk.DeviceMemory) error {
	return vk.Error(vk.BindImageMemory(dev, img, mem, 0))
}

func (NativeDriver) WriteMemory(dev vk.Device, mem vk.DeviceMemory, offset vk.DeviceSize, data []byte) error {
	var ptr unsafe.Pointer
	if err := vk.Error(vk.MapMemory(dev, mem, offset, vk.DeviceSize(len(data)), 0, &ptr)); err != nil {
		return err
	}
	vk.Memcopy(ptr, data)
	vk.UnmapMemory(dev, mem)
	return nil
}

func (NativeDriver) CreateImageView(dev vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	var view vk.ImageView
	if err := vk.Error(vk.CreateImageView(dev, info, nil, &view)); err != nil {
		return nil, err
	}
	return view, nil
}

func (NativeDriver) DestroyImageView(dev vk.Device, view vk.ImageView) {
	vk.DestroyImageView(dev, view, nil)
}

func (NativeDriver) CreateSampler(dev vk.Device, info *vk.SamplerCreateInfo) (vk.Sampler, error) {
	var s vk.Sampler
	if err := vk.Error(vk.CreateSampler(dev, info, nil, &s)); err != nil {
		return nil, err
	}
	return s, nil
}

func (NativeDriver) DestroySampler(dev vk.Device, s vk.Sampler) { vk.DestroySampler(dev, s, nil) }

func (NativeDriver) CreateRenderPass(dev vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	var pass vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(dev, info, nil, &pass)); err != nil {
		return nil, err
	}
	return pass, nil
}

func (NativeDriver) DestroyRenderPass(dev vk.Device, pass vk.RenderPass) {
	vk.DestroyRenderPass(dev, pass, nil)
}

func (NativeDriver) CreateFramebuffer(dev vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	var fb vk.Framebuffer
	if err := vk.Error(vk.CreateFramebuffer(dev, info, nil, &fb)); err != nil {
		return nil, err
	}
	return fb, nil
}

func (NativeDriver) DestroyFramebuffer(dev vk.Device, fb vk.Framebuffer) {
	vk.DestroyFramebuffer(dev, fb, nil)
}

func (NativeDriver) CreateSwapchain(dev vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	var sc vk.Swapchain
	if err := vk.Error(vk.CreateSwapchain(dev, info, nil, &sc)); err != nil {
		return nil, err
	}
	return sc, nil
}

func (NativeDriver) DestroySwapchain(dev vk.Device, sc vk.Swapchain) {
	vk.DestroySwapchain(dev, sc, nil)
}

func (NativeDriver) SwapchainImages(dev vk.Device, sc vk.Swapchain) ([]vk.Image, error) {
	var count uint32
	if err := vk.Error(vk.GetSwapchainImages(dev, sc, &count, nil)); err != nil {
		return nil, err
	}
	images := make([]vk.Image, count)
	if err := vk.Error(vk.GetSwapchainImages(dev, sc, &count, images)); err != nil {
		return nil, err
	}
	return images, nil
}
