package vulkan

import (
	"math"
	"unsafe"

	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"
)

// singleUse records fn into a one time command buffer, submits it and waits
// for the queue to drain.
func singleUse(cc CommandContext, fn func(cmd vk.CommandBuffer)) error {
	info := &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        cc.Pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cmds := make([]vk.CommandBuffer, 1)
	if err := vk.Error(vk.AllocateCommandBuffers(cc.Device, info, cmds)); err != nil {
		return err
	}
	defer vk.FreeCommandBuffers(cc.Device, cc.Pool, 1, cmds)

	begin := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := vk.Error(vk.BeginCommandBuffer(cmds[0], begin)); err != nil {
		return err
	}
	fn(cmds[0])
	if err := vk.Error(vk.EndCommandBuffer(cmds[0])); err != nil {
		return err
	}
	submit := []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    cmds,
	}}
	if err := vk.Error(vk.QueueSubmit(cc.Queue, 1, submit, nil)); err != nil {
		return err
	}
	return vk.Error(vk.QueueWaitIdle(cc.Queue))
}

func (NativeDriver) CopyBuffer(cc CommandContext, src, dst vk.Buffer, region vk.BufferCopy) error {
	return singleUse(cc, func(cmd vk.CommandBuffer) {
		vk.CmdCopyBuffer(cmd, src, dst, 1, []vk.BufferCopy{region})
	})
}

func (NativeDriver) CopyBufferToImage(cc CommandContext, src vk.Buffer, dst vk.Image, width, height uint32) error {
	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: 1},
	}
	return singleUse(cc, func(cmd vk.CommandBuffer) {
		vk.CmdCopyBufferToImage(cmd, src, dst, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
	})
}

// layoutAccess returns the access mask and pipeline stage a layout is
// reached from or left to.
func layoutAccess(layout vk.ImageLayout) (vk.AccessFlags, vk.PipelineStageFlags, bool) {
	switch layout {
	case vk.ImageLayoutUndefined:
		return 0, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), true
	case vk.ImageLayoutTransferDstOptimal:
		return vk.AccessFlags(vk.AccessTransferWriteBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit), true
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.AccessFlags(vk.AccessShaderReadBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), true
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit), true
	}
	return 0, 0, false
}

func (NativeDriver) TransitionImageLayout(cc CommandContext, image vk.Image, format vk.Format, from, to vk.ImageLayout) error {
	srcAccess, srcStage, okFrom := layoutAccess(from)
	dstAccess, dstStage, okTo := layoutAccess(to)
	if !okFrom || !okTo || to == vk.ImageLayoutUndefined {
		return errors.Errorf("unsupported image layout transition %d -> %d", from, to)
	}
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if to == vk.ImageLayoutDepthStencilAttachmentOptimal {
		aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
		if hasStencilComponent(format) {
			aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
		}
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	return singleUse(cc, func(cmd vk.CommandBuffer) {
		vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	})
}

func (NativeDriver) CreateSemaphore(dev vk.Device) (vk.Semaphore, error) {
	info := &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var s vk.Semaphore
	if err := vk.Error(vk.CreateSemaphore(dev, info, nil, &s)); err != nil {
		return nil, err
	}
	return s, nil
}

func (NativeDriver) DestroySemaphore(dev vk.Device, s vk.Semaphore) { vk.DestroySemaphore(dev, s, nil) }

func (NativeDriver) CreateFence(dev vk.Device, signaled bool) (vk.Fence, error) {
	info := &vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var f vk.Fence
	if err := vk.Error(vk.CreateFence(dev, info, nil, &f)); err != nil {
		return nil, err
	}
	return f, nil
}

func (NativeDriver) DestroyFence(dev vk.Device, f vk.Fence) { vk.DestroyFence(dev, f, nil) }

func (NativeDriver) WaitForFence(dev vk.Device, f vk.Fence) error {
	return vk.Error(vk.WaitForFences(dev, 1, []vk.Fence{f}, vk.True, math.MaxUint64))
}

func (NativeDriver) ResetFence(dev vk.Device, f vk.Fence) error {
	return vk.Error(vk.ResetFences(dev, 1, []vk.Fence{f}))
}

func (NativeDriver) AcquireNextImage(dev vk.Device, sc vk.Swapchain, signal vk.Semaphore) (uint32, error) {
	var index uint32
	res := vk.AcquireNextImage(dev, sc, math.MaxUint64, signal, nil, &index)
	switch res {
	case vk.Success, vk.Suboptimal:
		return index, nil
	case vk.ErrorOutOfDate:
		return 0, ErrSwapchainOutOfDate
	}
	return 0, vk.Error(res)
}

// RecordFrame records one render pass over the frame's draws.
func (NativeDriver) RecordFrame(cmd vk.CommandBuffer, f *FrameRecording) error {
	if err := vk.Error(vk.ResetCommandBuffer(cmd, 0)); err != nil {
		return err
	}
	begin := &vk.CommandBufferBeginInfo{SType: vk.StructureTypeCommandBufferBeginInfo}
	if err := vk.Error(vk.BeginCommandBuffer(cmd, begin)); err != nil {
		return err
	}
	clearValues := []vk.ClearValue{
		vk.NewClearValue(f.ClearColor[:]),
		vk.NewClearDepthStencil(1, 0),
	}
	pass := &vk.RenderPassBeginInfo{
		SType:           vk.StructureTypeRenderPassBeginInfo,
		RenderPass:      f.RenderPass,
		Framebuffer:     f.Framebuffer,
		RenderArea:      vk.Rect2D{Extent: f.Extent},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cmd, pass, vk.SubpassContentsInline)
	for _, d := range f.Draws {
		vk.CmdBindPipeline(cmd, vk.PipelineBindPointGraphics, d.Pipeline)
		vk.CmdSetViewport(cmd, 0, 1, []vk.Viewport{d.Viewport})
		vk.CmdSetScissor(cmd, 0, 1, []vk.Rect2D{d.Scissor})
		if d.DescriptorSet != nil {
			vk.CmdBindDescriptorSets(cmd, vk.PipelineBindPointGraphics, d.Layout, 0, 1, []vk.DescriptorSet{d.DescriptorSet}, 0, nil)
		}
		for _, pc := range d.PushConstants {
			if len(pc.Data) == 0 {
				continue
			}
			vk.CmdPushConstants(cmd, d.Layout, pc.Stages, pc.Offset, uint32(len(pc.Data)), unsafe.Pointer(&pc.Data[0]))
		}
		if d.VertexBuffer != nil {
			vk.CmdBindVertexBuffers(cmd, 0, 1, []vk.Buffer{d.VertexBuffer}, []vk.DeviceSize{0})
		}
		if d.IndexBuffer != nil {
			vk.CmdBindIndexBuffer(cmd, d.IndexBuffer, 0, vk.IndexTypeUint32)
			vk.CmdDrawIndexed(cmd, d.IndexCount, 1, 0, 0, 0)
		} else {
			vk.CmdDraw(cmd, d.VertexCount, 1, 0, 0)
		}
	}
	vk.CmdEndRenderPass(cmd)
	return vk.Error(vk.EndCommandBuffer(cmd))
}

func (NativeDriver) Submit(queue vk.Queue, cmd vk.CommandBuffer, wait, signal vk.Semaphore, fence vk.Fence) error {
	info := []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{wait},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signal},
	}}
	return vk.Error(vk.QueueSubmit(queue, 1, info, fence))
}

func (NativeDriver) Present(queue vk.Queue, sc vk.Swapchain, index uint32, wait vk.Semaphore) error {
	info := &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc},
		PImageIndices:      []uint32{index},
	}
	switch res := vk.QueuePresent(queue, info); res {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return ErrSwapchainOutOfDate
	default:
		return vk.Error(res)
	}
}
