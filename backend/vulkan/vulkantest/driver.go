// Package vulkantest provides an in-memory vulkan.Driver. It hands out
// opaque handles, keeps a log of native calls and tracks live objects so
// tests can check creation and destruction order without a GPU.
package vulkantest

import (
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"

	"dynamik/backend/vulkan"
)

// Driver records every native call by its Vulkan name, for example
// "vkCreateBuffer". Calls named in Fail return the mapped error.
type Driver struct {
	// Fail maps a native call name to the error it returns.
	Fail map[string]error

	InstanceExtensionNames []string
	LayerNames             []string
	// Devices are returned in order by PhysicalDevices; their
	// Handle fields are assigned on first use.
	Devices []vulkan.PhysicalDeviceInfo
	Surface vulkan.SwapchainSupport

	// AcquireErrors and PresentErrors are consumed one per call before
	// falling back to success.
	AcquireErrors []error
	PresentErrors []error

	mu       sync.Mutex
	calls    []string
	live     map[uintptr]string
	invalid  []string
	memory   map[uintptr][]byte
	bound    map[uintptr]uintptr
	sizes    map[uintptr]vk.DeviceSize
	writes   [][]vk.WriteDescriptorSet
	poolSets []uint32
	frames   []vulkan.FrameRecording
	handles  []*uint64
	acquired uint32
}

var _ vulkan.Driver = (*Driver)(nil)

// New returns a driver exposing one suitable physical device with a single
// graphics and present queue family, a device local and a host visible
// memory type, and an 800x600 surface.
func New() *Driver {
	var mem vk.PhysicalDeviceMemoryProperties
	mem.MemoryTypeCount = 2
	mem.MemoryTypes[0].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	mem.MemoryTypes[1].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

	surface := vulkan.SwapchainSupport{
		Capabilities: vk.SurfaceCapabilities{
			MinImageCount:    2,
			MaxImageCount:    3,
			CurrentExtent:    vk.Extent2D{Width: 800, Height: 600},
			MinImageExtent:   vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent:   vk.Extent2D{Width: 4096, Height: 4096},
			CurrentTransform: vk.SurfaceTransformIdentityBit,
		},
		Formats:      []vk.SurfaceFormat{{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}},
		PresentModes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
	}
	d := &Driver{
		Fail:                   make(map[string]error),
		InstanceExtensionNames: []string{"VK_KHR_surface"},
		LayerNames:             []string{"VK_LAYER_KHRONOS_validation"},
		Surface:                surface,
		live:                   make(map[uintptr]string),
		memory:                 make(map[uintptr][]byte),
		bound:                  make(map[uintptr]uintptr),
		sizes:                  make(map[uintptr]vk.DeviceSize),
	}
	d.Devices = []vulkan.PhysicalDeviceInfo{{
		Name:          "fake gpu",
		Type:          vk.PhysicalDeviceTypeDiscreteGpu,
		Features:      vk.PhysicalDeviceFeatures{SamplerAnisotropy: vk.True},
		Limits:        vk.PhysicalDeviceLimits{MaxSamplerAnisotropy: 16},
		Memory:        mem,
		QueueFamilies: []vulkan.QueueFamily{{Flags: vk.QueueFlags(vk.QueueGraphicsBit), Count: 1, Present: true}},
		Extensions:    []string{"VK_KHR_swapchain"},
		Swapchain:     surface,
	}}
	return d
}

// Calls returns a copy of the call log.
func (d *Driver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// Count returns how often a native call was made.
func (d *Driver) Count(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c == name {
			n++
		}
	}
	return n
}

// Live returns the kinds of every object created and not yet destroyed.
func (d *Driver) Live() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	kinds := make([]string, 0, len(d.live))
	for _, k := range d.live {
		kinds = append(kinds, k)
	}
	return kinds
}

// Invalid lists destroy calls on handles that were not live.
func (d *Driver) Invalid() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.invalid...)
}

// Writes returns the descriptor writes of every UpdateDescriptorSets call.
func (d *Driver) Writes() [][]vk.WriteDescriptorSet {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]vk.WriteDescriptorSet(nil), d.writes...)
}

// PoolSets returns the set capacity of every descriptor pool created.
func (d *Driver) PoolSets() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint32(nil), d.poolSets...)
}

// Frames returns every recorded frame.
func (d *Driver) Frames() []vulkan.FrameRecording {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]vulkan.FrameRecording(nil), d.frames...)
}

// BufferContents returns the bytes of the memory bound to buf.
func (d *Driver) BufferContents(buf vk.Buffer) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.memory[d.bound[key(unsafe.Pointer(buf))]]...)
}

func key(p unsafe.Pointer) uintptr { return uintptr(p) }

// call logs name and returns the configured failure. It must be called
// with mu held.
func (d *Driver) call(name string) error {
	d.calls = append(d.calls, name)
	return d.Fail[name]
}

func (d *Driver) record(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.call(name)
}

// create logs name and, on success, returns a new live handle.
func (d *Driver) create(name, kind string) (unsafe.Pointer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call(name); err != nil {
		return nil, err
	}
	p := d.newHandle()
	d.live[key(p)] = kind
	return p, nil
}

func (d *Driver) newHandle() unsafe.Pointer {
	h := new(uint64)
	d.handles = append(d.handles, h)
	return unsafe.Pointer(h)
}

func (d *Driver) destroy(name string, p unsafe.Pointer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, name)
	if _, ok := d.live[key(p)]; !ok {
		d.invalid = append(d.invalid, fmt.Sprintf("%s(%#x)", name, key(p)))
		return
	}
	delete(d.live, key(p))
}

func (d *Driver) InstanceExtensions() ([]string, error) {
	return d.InstanceExtensionNames, d.record("vkEnumerateInstanceExtensionProperties")
}

func (d *Driver) InstanceLayers() ([]string, error) {
	return d.LayerNames, d.record("vkEnumerateInstanceLayerProperties")
}

func (d *Driver) CreateInstance(*vk.InstanceCreateInfo) (vk.Instance, error) {
	p, err := d.create("vkCreateInstance", "instance")
	return vk.Instance(p), err
}

func (d *Driver) DestroyInstance(i vk.Instance) { d.destroy("vkDestroyInstance", unsafe.Pointer(i)) }

// CreateSurface creates a live surface as a window system would.
func (d *Driver) CreateSurface() (vk.Surface, error) {
	p, err := d.create("vkCreateSurfaceKHR", "surface")
	return vk.Surface(p), err
}

func (d *Driver) DestroySurface(_ vk.Instance, s vk.Surface) {
	d.destroy("vkDestroySurfaceKHR", unsafe.Pointer(s))
}

func (d *Driver) PhysicalDevices(vk.Instance) ([]vk.PhysicalDevice, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}
	out := make([]vk.PhysicalDevice, len(d.Devices))
	for i := range d.Devices {
		if d.Devices[i].Handle == nil {
			d.Devices[i].Handle = vk.PhysicalDevice(d.newHandle())
		}
		out[i] = d.Devices[i].Handle
	}
	return out, nil
}

func (d *Driver) DescribePhysicalDevice(pd vk.PhysicalDevice, _ vk.Surface) (vulkan.PhysicalDeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkGetPhysicalDeviceProperties"); err != nil {
		return vulkan.PhysicalDeviceInfo{}, err
	}
	for _, info := range d.Devices {
		if info.Handle == pd {
			return info, nil
		}
	}
	return vulkan.PhysicalDeviceInfo{}, fmt.Errorf("unknown physical device")
}

func (d *Driver) SurfaceSupport(vk.PhysicalDevice, vk.Surface) (vulkan.SwapchainSupport, error) {
	return d.Surface, d.record("vkGetPhysicalDeviceSurfaceCapabilitiesKHR")
}

// FormatProperties reports every feature for every format.
func (d *Driver) FormatProperties(vk.PhysicalDevice, vk.Format) vk.FormatProperties {
	all := vk.FormatFeatureFlags(^uint32(0))
	return vk.FormatProperties{LinearTilingFeatures: all, OptimalTilingFeatures: all, BufferFeatures: all}
}

func (d *Driver) CreateDevice(vk.PhysicalDevice, *vk.DeviceCreateInfo) (vk.Device, error) {
	p, err := d.create("vkCreateDevice", "device")
	return vk.Device(p), err
}

func (d *Driver) DestroyDevice(dev vk.Device) { d.destroy("vkDestroyDevice", unsafe.Pointer(dev)) }

func (d *Driver) DeviceQueue(vk.Device, uint32) vk.Queue {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, "vkGetDeviceQueue")
	return vk.Queue(d.newHandle())
}

func (d *Driver) DeviceWaitIdle(vk.Device) error { return d.record("vkDeviceWaitIdle") }

func (d *Driver) CreateCommandPool(vk.Device, uint32) (vk.CommandPool, error) {
	p, err := d.create("vkCreateCommandPool", "command pool")
	return vk.CommandPool(p), err
}

func (d *Driver) DestroyCommandPool(_ vk.Device, pool vk.CommandPool) {
	d.destroy("vkDestroyCommandPool", unsafe.Pointer(pool))
}

func (d *Driver) AllocateCommandBuffers(_ vk.Device, _ vk.CommandPool, count uint32) ([]vk.CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkAllocateCommandBuffers"); err != nil {
		return nil, err
	}
	out := make([]vk.CommandBuffer, count)
	for i := range out {
		out[i] = vk.CommandBuffer(d.newHandle())
	}
	return out, nil
}

func (d *Driver) CreateBuffer(_ vk.Device, info *vk.BufferCreateInfo) (vk.Buffer, error) {
	p, err := d.create("vkCreateBuffer", "buffer")
	if err == nil {
		d.mu.Lock()
		d.sizes[key(p)] = info.Size
		d.mu.Unlock()
	}
	return vk.Buffer(p), err
}

func (d *Driver) DestroyBuffer(_ vk.Device, b vk.Buffer) {
	d.destroy("vkDestroyBuffer", unsafe.Pointer(b))
}

func (d *Driver) BufferMemoryRequirements(_ vk.Device, b vk.Buffer) vk.MemoryRequirements {
	d.mu.Lock()
	defer d.mu.Unlock()
	return vk.MemoryRequirements{Size: d.sizes[key(unsafe.Pointer(b))], Alignment: 4, MemoryTypeBits: ^uint32(0)}
}

func (d *Driver) CreateImage(_ vk.Device, info *vk.ImageCreateInfo) (vk.Image, error) {
	p, err := d.create("vkCreateImage", "image")
	if err == nil {
		d.mu.Lock()
		d.sizes[key(p)] = vk.DeviceSize(info.Extent.Width) * vk.DeviceSize(info.Extent.Height) * 4
		d.mu.Unlock()
	}
	return vk.Image(p), err
}

func (d *Driver) DestroyImage(_ vk.Device, img vk.Image) {
	d.destroy("vkDestroyImage", unsafe.Pointer(img))
}

func (d *Driver) ImageMemoryRequirements(_ vk.Device, img vk.Image) vk.MemoryRequirements {
	d.mu.Lock()
	defer d.mu.Unlock()
	return vk.MemoryRequirements{Size: d.sizes[key(unsafe.Pointer(img))], Alignment: 4, MemoryTypeBits: ^uint32(0)}
}

func (d *Driver) AllocateMemory(_ vk.Device, size vk.DeviceSize, _ uint32) (vk.DeviceMemory, error) {
	p, err := d.create("vkAllocateMemory", "memory")
	if err == nil {
		d.mu.Lock()
		d.memory[key(p)] = make([]byte, size)
		d.mu.Unlock()
	}
	return vk.DeviceMemory(p), err
}

func (d *Driver) FreeMemory(_ vk.Device, mem vk.DeviceMemory) {
	d.destroy("vkFreeMemory", unsafe.Pointer(mem))
}

func (d *Driver) BindBufferMemory(_ vk.Device, b vk.Buffer, mem vk.DeviceMemory) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkBindBufferMemory"); err != nil {
		return err
	}
	d.bound[key(unsafe.Pointer(b))] = key(unsafe.Pointer(mem))
	return nil
}

func (d *Driver) BindImageMemory(_ vk.Device, img vk.Image, mem vk.DeviceMemory) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkBindImageMemory"); err != nil {
		return err
	}
	d.bound[key(unsafe.Pointer(img))] = key(unsafe.Pointer(mem))
	return nil
}

func (d *Driver) WriteMemory(_ vk.Device, mem vk.DeviceMemory, offset vk.DeviceSize, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkMapMemory"); err != nil {
		return err
	}
	buf, ok := d.memory[key(unsafe.Pointer(mem))]
	if !ok || int(offset)+len(data) > len(buf) {
		return fmt.Errorf("write of %d bytes at %d outside mapped memory", len(data), offset)
	}
	copy(buf[offset:], data)
	return nil
}

func (d *Driver) CopyBuffer(_ vulkan.CommandContext, src, dst vk.Buffer, region vk.BufferCopy) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkCmdCopyBuffer"); err != nil {
		return err
	}
	from := d.memory[d.bound[key(unsafe.Pointer(src))]]
	to := d.memory[d.bound[key(unsafe.Pointer(dst))]]
	end := region.SrcOffset + region.Size
	if int(end) > len(from) || int(region.DstOffset+region.Size) > len(to) {
		return fmt.Errorf("copy region %+v out of range", region)
	}
	copy(to[region.DstOffset:], from[region.SrcOffset:end])
	return nil
}

func (d *Driver) CopyBufferToImage(_ vulkan.CommandContext, src vk.Buffer, dst vk.Image, width, height uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkCmdCopyBufferToImage"); err != nil {
		return err
	}
	from := d.memory[d.bound[key(unsafe.Pointer(src))]]
	to := d.memory[d.bound[key(unsafe.Pointer(dst))]]
	copy(to, from)
	return nil
}

func (d *Driver) TransitionImageLayout(vulkan.CommandContext, vk.Image, vk.Format, vk.ImageLayout, vk.ImageLayout) error {
	return d.record("vkCmdPipelineBarrier")
}

func (d *Driver) CreateImageView(vk.Device, *vk.ImageViewCreateInfo) (vk.ImageView, error) {
	p, err := d.create("vkCreateImageView", "image view")
	return vk.ImageView(p), err
}

func (d *Driver) DestroyImageView(_ vk.Device, v vk.ImageView) {
	d.destroy("vkDestroyImageView", unsafe.Pointer(v))
}

func (d *Driver) CreateSampler(vk.Device, *vk.SamplerCreateInfo) (vk.Sampler, error) {
	p, err := d.create("vkCreateSampler", "sampler")
	return vk.Sampler(p), err
}

func (d *Driver) DestroySampler(_ vk.Device, s vk.Sampler) {
	d.destroy("vkDestroySampler", unsafe.Pointer(s))
}

func (d *Driver) CreateRenderPass(vk.Device, *vk.RenderPassCreateInfo) (vk.RenderPass, error) {
	p, err := d.create("vkCreateRenderPass", "render pass")
	return vk.RenderPass(p), err
}

func (d *Driver) DestroyRenderPass(_ vk.Device, rp vk.RenderPass) {
	d.destroy("vkDestroyRenderPass", unsafe.Pointer(rp))
}

func (d *Driver) CreateFramebuffer(vk.Device, *vk.FramebufferCreateInfo) (vk.Framebuffer, error) {
	p, err := d.create("vkCreateFramebuffer", "framebuffer")
	return vk.Framebuffer(p), err
}

func (d *Driver) DestroyFramebuffer(_ vk.Device, fb vk.Framebuffer) {
	d.destroy("vkDestroyFramebuffer", unsafe.Pointer(fb))
}

func (d *Driver) CreateSwapchain(vk.Device, *vk.SwapchainCreateInfo) (vk.Swapchain, error) {
	p, err := d.create("vkCreateSwapchainKHR", "swapchain")
	return vk.Swapchain(p), err
}

func (d *Driver) DestroySwapchain(_ vk.Device, sc vk.Swapchain) {
	d.destroy("vkDestroySwapchainKHR", unsafe.Pointer(sc))
}

// SwapchainImages returns the surface's minimum image count of images.
func (d *Driver) SwapchainImages(vk.Device, vk.Swapchain) ([]vk.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkGetSwapchainImagesKHR"); err != nil {
		return nil, err
	}
	out := make([]vk.Image, d.Surface.Capabilities.MinImageCount)
	for i := range out {
		out[i] = vk.Image(d.newHandle())
	}
	return out, nil
}

func (d *Driver) CreateShaderModule(vk.Device, []uint32) (vk.ShaderModule, error) {
	p, err := d.create("vkCreateShaderModule", "shader module")
	return vk.ShaderModule(p), err
}

func (d *Driver) DestroyShaderModule(_ vk.Device, m vk.ShaderModule) {
	d.destroy("vkDestroyShaderModule", unsafe.Pointer(m))
}

func (d *Driver) CreateDescriptorSetLayout(vk.Device, []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	p, err := d.create("vkCreateDescriptorSetLayout", "descriptor set layout")
	return vk.DescriptorSetLayout(p), err
}

func (d *Driver) DestroyDescriptorSetLayout(_ vk.Device, l vk.DescriptorSetLayout) {
	d.destroy("vkDestroyDescriptorSetLayout", unsafe.Pointer(l))
}

func (d *Driver) CreateDescriptorPool(_ vk.Device, _ []vk.DescriptorPoolSize, maxSets uint32) (vk.DescriptorPool, error) {
	p, err := d.create("vkCreateDescriptorPool", "descriptor pool")
	if err == nil {
		d.mu.Lock()
		d.poolSets = append(d.poolSets, maxSets)
		d.mu.Unlock()
	}
	return vk.DescriptorPool(p), err
}

func (d *Driver) DestroyDescriptorPool(_ vk.Device, pool vk.DescriptorPool) {
	d.destroy("vkDestroyDescriptorPool", unsafe.Pointer(pool))
}

// AllocateDescriptorSet returns a set freed with its pool, so it is not
// tracked as live.
func (d *Driver) AllocateDescriptorSet(vk.Device, vk.DescriptorPool, vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkAllocateDescriptorSets"); err != nil {
		return nil, err
	}
	return vk.DescriptorSet(d.newHandle()), nil
}

func (d *Driver) UpdateDescriptorSets(_ vk.Device, writes []vk.WriteDescriptorSet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, "vkUpdateDescriptorSets")
	d.writes = append(d.writes, append([]vk.WriteDescriptorSet(nil), writes...))
}

func (d *Driver) CreatePipelineLayout(vk.Device, *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	p, err := d.create("vkCreatePipelineLayout", "pipeline layout")
	return vk.PipelineLayout(p), err
}

func (d *Driver) DestroyPipelineLayout(_ vk.Device, l vk.PipelineLayout) {
	d.destroy("vkDestroyPipelineLayout", unsafe.Pointer(l))
}

func (d *Driver) CreateGraphicsPipeline(vk.Device, *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	p, err := d.create("vkCreateGraphicsPipelines", "pipeline")
	return vk.Pipeline(p), err
}

func (d *Driver) DestroyPipeline(_ vk.Device, p vk.Pipeline) {
	d.destroy("vkDestroyPipeline", unsafe.Pointer(p))
}

func (d *Driver) CreateSemaphore(vk.Device) (vk.Semaphore, error) {
	p, err := d.create("vkCreateSemaphore", "semaphore")
	return vk.Semaphore(p), err
}

func (d *Driver) DestroySemaphore(_ vk.Device, s vk.Semaphore) {
	d.destroy("vkDestroySemaphore", unsafe.Pointer(s))
}

func (d *Driver) CreateFence(vk.Device, bool) (vk.Fence, error) {
	p, err := d.create("vkCreateFence", "fence")
	return vk.Fence(p), err
}

func (d *Driver) DestroyFence(_ vk.Device, f vk.Fence) { d.destroy("vkDestroyFence", unsafe.Pointer(f)) }

func (d *Driver) WaitForFence(vk.Device, vk.Fence) error { return d.record("vkWaitForFences") }

func (d *Driver) ResetFence(vk.Device, vk.Fence) error { return d.record("vkResetFences") }

// AcquireNextImage cycles through the swapchain images.
func (d *Driver) AcquireNextImage(vk.Device, vk.Swapchain, vk.Semaphore) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkAcquireNextImageKHR"); err != nil {
		return 0, err
	}
	if len(d.AcquireErrors) > 0 {
		err := d.AcquireErrors[0]
		d.AcquireErrors = d.AcquireErrors[1:]
		if err != nil {
			return 0, err
		}
	}
	index := d.acquired % d.Surface.Capabilities.MinImageCount
	d.acquired++
	return index, nil
}

func (d *Driver) RecordFrame(_ vk.CommandBuffer, f *vulkan.FrameRecording) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkEndCommandBuffer"); err != nil {
		return err
	}
	rec := *f
	rec.Draws = append([]vulkan.DrawCall(nil), f.Draws...)
	d.frames = append(d.frames, rec)
	return nil
}

func (d *Driver) Submit(vk.Queue, vk.CommandBuffer, vk.Semaphore, vk.Semaphore, vk.Fence) error {
	return d.record("vkQueueSubmit")
}

func (d *Driver) Present(vk.Queue, vk.Swapchain, uint32, vk.Semaphore) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.call("vkQueuePresentKHR"); err != nil {
		return err
	}
	if len(d.PresentErrors) > 0 {
		err := d.PresentErrors[0]
		d.PresentErrors = d.PresentErrors[1:]
		return err
	}
	return nil
}

// Window is a fixed size window whose surfaces come from the driver.
type Window struct {
	Driver *Driver
	Width  uint32
	Height uint32
}

func (w *Window) CreateSurface(vk.Instance) (vk.Surface, error) { return w.Driver.CreateSurface() }

func (w *Window) FramebufferSize() (uint32, uint32) { return w.Width, w.Height }
