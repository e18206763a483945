// Package vulkan maps engine render objects onto Vulkan: the instance,
// display and device ownership tree, buffers, textures, render targets,
// shader modules derived from reflection, the pipeline cache and the frame
// presenter.
//
// Every native call goes through a Driver. NativeDriver talks to the loader,
// vulkantest.Driver keeps everything in memory so the package can be tested
// without a GPU.
package vulkan

import (
	vk "github.com/goki/vulkan"
)

// Driver is the native API surface used by the backend.
type Driver interface {
	InstanceDriver
	DeviceDriver
	MemoryDriver
	TransferDriver
	ViewDriver
	PipelineDriver
	FrameDriver
}

type InstanceDriver interface {
	InstanceExtensions() ([]string, error)
	InstanceLayers() ([]string, error)
	CreateInstance(info *vk.InstanceCreateInfo) (vk.Instance, error)
	DestroyInstance(instance vk.Instance)
	DestroySurface(instance vk.Instance, surface vk.Surface)

	PhysicalDevices(instance vk.Instance) ([]vk.PhysicalDevice, error)
	// DescribePhysicalDevice reads everything device selection needs,
	// including per queue family present support for the surface.
	DescribePhysicalDevice(pd vk.PhysicalDevice, surface vk.Surface) (PhysicalDeviceInfo, error)
	SurfaceSupport(pd vk.PhysicalDevice, surface vk.Surface) (SwapchainSupport, error)
	FormatProperties(pd vk.PhysicalDevice, format vk.Format) vk.FormatProperties
}

type DeviceDriver interface {
	CreateDevice(pd vk.PhysicalDevice, info *vk.DeviceCreateInfo) (vk.Device, error)
	DestroyDevice(device vk.Device)
	DeviceQueue(device vk.Device, family uint32) vk.Queue
	DeviceWaitIdle(device vk.Device) error
	CreateCommandPool(device vk.Device, family uint32) (vk.CommandPool, error)
	DestroyCommandPool(device vk.Device, pool vk.CommandPool)
	AllocateCommandBuffers(device vk.Device, pool vk.CommandPool, count uint32) ([]vk.CommandBuffer, error)
}

type MemoryDriver interface {
	CreateBuffer(device vk.Device, info *vk.BufferCreateInfo) (vk.Buffer, error)
	DestroyBuffer(device vk.Device, buffer vk.Buffer)
	BufferMemoryRequirements(device vk.Device, buffer vk.Buffer) vk.MemoryRequirements
	CreateImage(device vk.Device, info *vk.ImageCreateInfo) (vk.Image, error)
	DestroyImage(device vk.Device, image vk.Image)
	ImageMemoryRequirements(device vk.Device, image vk.Image) vk.MemoryRequirements
	AllocateMemory(device vk.Device, size vk.DeviceSize, typeIndex uint32) (vk.DeviceMemory, error)
	FreeMemory(device vk.Device, memory vk.DeviceMemory)
	BindBufferMemory(device vk.Device, buffer vk.Buffer, memory vk.DeviceMemory) error
	BindImageMemory(device vk.Device, image vk.Image, memory vk.DeviceMemory) error
	// WriteMemory maps host visible memory, copies data at offset and unmaps.
	WriteMemory(device vk.Device, memory vk.DeviceMemory, offset vk.DeviceSize, data []byte) error
}

// TransferDriver records and submits single use command buffers and waits
// for the queue to drain before returning.
type TransferDriver interface {
	CopyBuffer(cc CommandContext, src, dst vk.Buffer, region vk.BufferCopy) error
	CopyBufferToImage(cc CommandContext, src vk.Buffer, dst vk.Image, width, height uint32) error
	TransitionImageLayout(cc CommandContext, image vk.Image, format vk.Format, from, to vk.ImageLayout) error
}

type ViewDriver interface {
	CreateImageView(device vk.Device, info *vk.ImageViewCreateInfo) (vk.ImageView, error)
	DestroyImageView(device vk.Device, view vk.ImageView)
	CreateSampler(device vk.Device, info *vk.SamplerCreateInfo) (vk.Sampler, error)
	DestroySampler(device vk.Device, sampler vk.Sampler)
	CreateRenderPass(device vk.Device, info *vk.RenderPassCreateInfo) (vk.RenderPass, error)
	DestroyRenderPass(device vk.Device, pass vk.RenderPass)
	CreateFramebuffer(device vk.Device, info *vk.FramebufferCreateInfo) (vk.Framebuffer, error)
	DestroyFramebuffer(device vk.Device, fb vk.Framebuffer)
	CreateSwapchain(device vk.Device, info *vk.SwapchainCreateInfo) (vk.Swapchain, error)
	DestroySwapchain(device vk.Device, swapchain vk.Swapchain)
	SwapchainImages(device vk.Device, swapchain vk.Swapchain) ([]vk.Image, error)
}

type PipelineDriver interface {
	CreateShaderModule(device vk.Device, code []uint32) (vk.ShaderModule, error)
	DestroyShaderModule(device vk.Device, module vk.ShaderModule)
	CreateDescriptorSetLayout(device vk.Device, bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(device vk.Device, layout vk.DescriptorSetLayout)
	CreateDescriptorPool(device vk.Device, sizes []vk.DescriptorPoolSize, maxSets uint32) (vk.DescriptorPool, error)
	DestroyDescriptorPool(device vk.Device, pool vk.DescriptorPool)
	AllocateDescriptorSet(device vk.Device, pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error)
	UpdateDescriptorSets(device vk.Device, writes []vk.WriteDescriptorSet)
	CreatePipelineLayout(device vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error)
	DestroyPipelineLayout(device vk.Device, layout vk.PipelineLayout)
	CreateGraphicsPipeline(device vk.Device, info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error)
	DestroyPipeline(device vk.Device, pipeline vk.Pipeline)
}

type FrameDriver interface {
	CreateSemaphore(device vk.Device) (vk.Semaphore, error)
	DestroySemaphore(device vk.Device, semaphore vk.Semaphore)
	CreateFence(device vk.Device, signaled bool) (vk.Fence, error)
	DestroyFence(device vk.Device, fence vk.Fence)
	WaitForFence(device vk.Device, fence vk.Fence) error
	ResetFence(device vk.Device, fence vk.Fence) error
	// AcquireNextImage returns ErrSwapchainOutOfDate when the swapchain no
	// longer matches the surface.
	AcquireNextImage(device vk.Device, swapchain vk.Swapchain, signal vk.Semaphore) (uint32, error)
	RecordFrame(cmd vk.CommandBuffer, frame *FrameRecording) error
	Submit(queue vk.Queue, cmd vk.CommandBuffer, wait, signal vk.Semaphore, fence vk.Fence) error
	// Present returns ErrSwapchainOutOfDate for out of date and suboptimal
	// swapchains.
	Present(queue vk.Queue, swapchain vk.Swapchain, index uint32, wait vk.Semaphore) error
}

// CommandContext is where single use commands are recorded and submitted.
type CommandContext struct {
	Device vk.Device
	Pool   vk.CommandPool
	Queue  vk.Queue
}

// QueueFamily is one queue family of a physical device.
type QueueFamily struct {
	Flags   vk.QueueFlags
	Count   uint32
	Present bool
}

// PhysicalDeviceInfo is the dereferenced description of a physical device.
type PhysicalDeviceInfo struct {
	Handle        vk.PhysicalDevice
	Name          string
	Type          vk.PhysicalDeviceType
	Limits        vk.PhysicalDeviceLimits
	Features      vk.PhysicalDeviceFeatures
	Memory        vk.PhysicalDeviceMemoryProperties
	QueueFamilies []QueueFamily
	Extensions    []string
	Swapchain     SwapchainSupport
}

// SwapchainSupport is what a surface allows on one physical device.
type SwapchainSupport struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

// Adequate reports whether a swapchain can be created at all.
func (s SwapchainSupport) Adequate() bool {
	return len(s.Formats) > 0 && len(s.PresentModes) > 0
}

// FrameRecording is the content of one frame's command buffer.
type FrameRecording struct {
	RenderPass  vk.RenderPass
	Framebuffer vk.Framebuffer
	Extent      vk.Extent2D
	ClearColor  [4]float32
	Draws       []DrawCall
}

// DrawCall is one indexed or non indexed draw with its bound state.
type DrawCall struct {
	Pipeline      vk.Pipeline
	Layout        vk.PipelineLayout
	DescriptorSet vk.DescriptorSet
	Viewport      vk.Viewport
	Scissor       vk.Rect2D
	VertexBuffer  vk.Buffer
	IndexBuffer   vk.Buffer
	// VertexCount is used when no index buffer is bound.
	VertexCount   uint32
	IndexCount    uint32
	PushConstants []PushConstantWrite
}

// PushConstantWrite is one vkCmdPushConstants call.
type PushConstantWrite struct {
	Stages vk.ShaderStageFlags
	Offset uint32
	Data   []byte
}
