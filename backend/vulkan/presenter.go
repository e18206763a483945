package vulkan

import (
	"log/slog"

	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"

	"dynamik/graphics"
)

// MaxFramesInFlight is the number of frames recorded ahead of the GPU.
const MaxFramesInFlight = 3

type frame struct {
	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	inFlight       vk.Fence
	commands       vk.CommandBuffer
}

// Presenter records draw calls into a swapchain render target and presents
// the result, keeping up to MaxFramesInFlight frames queued.
type Presenter struct {
	device     *Device
	target     *RenderTarget
	frames     []frame
	current    int
	clearColor [4]float32
	resized    bool
	state      lifecycle
}

func NewPresenter(target *RenderTarget) *Presenter {
	return &Presenter{
		device:     target.Device(),
		target:     target,
		clearColor: [4]float32{0.01, 0.01, 0.01, 1},
	}
}

func (p *Presenter) SetClearColor(c [4]float32) { p.clearColor = c }

func (p *Presenter) IsInitialized() bool { return p.state == lifecycleInitialized }

// NotifyResized makes the next frame recreate the swapchain.
func (p *Presenter) NotifyResized() { p.resized = true }

func (p *Presenter) Initialize() error {
	ok, err := p.state.beginInitialize("presenter")
	if !ok {
		return err
	}
	if p.target.Kind != RenderTargetSwapchain {
		return errors.Wrapf(graphics.ErrUnsupported, "presenting %s render target", p.target.Kind)
	}
	d := p.device
	cmds, err := d.driver.AllocateCommandBuffers(d.handle, d.commandPool, MaxFramesInFlight)
	if err != nil {
		return nativeError("vkAllocateCommandBuffers", err)
	}
	for i := 0; i < MaxFramesInFlight; i++ {
		f := frame{commands: cmds[i]}
		if f.imageAvailable, err = d.driver.CreateSemaphore(d.handle); err == nil {
			if f.renderFinished, err = d.driver.CreateSemaphore(d.handle); err == nil {
				f.inFlight, err = d.driver.CreateFence(d.handle, true)
			}
		}
		p.frames = append(p.frames, f)
		if err != nil {
			p.destroyFrames()
			return nativeError("vkCreateSemaphore", err)
		}
	}
	p.state = lifecycleInitialized
	return nil
}

// Present draws one frame. An out of date swapchain is recreated and the
// frame dropped without error.
func (p *Presenter) Present(draws []DrawCall) error {
	if err := p.state.usable("presenter"); err != nil {
		return err
	}
	d := p.device
	f := p.frames[p.current]
	if err := d.driver.WaitForFence(d.handle, f.inFlight); err != nil {
		return nativeError("vkWaitForFences", err)
	}
	index, err := d.driver.AcquireNextImage(d.handle, p.target.Swapchain(), f.imageAvailable)
	if errors.Is(err, ErrSwapchainOutOfDate) {
		return p.recreate()
	}
	if err != nil {
		return nativeError("vkAcquireNextImageKHR", err)
	}
	if err := d.driver.ResetFence(d.handle, f.inFlight); err != nil {
		return nativeError("vkResetFences", err)
	}

	rec := &FrameRecording{
		RenderPass:  p.target.RenderPass(),
		Framebuffer: p.target.Framebuffer(index),
		Extent:      p.target.Extent(),
		ClearColor:  p.clearColor,
		Draws:       draws,
	}
	if err := d.driver.RecordFrame(f.commands, rec); err != nil {
		return nativeError("vkEndCommandBuffer", err)
	}
	if err := d.driver.Submit(d.graphicsQueue, f.commands, f.imageAvailable, f.renderFinished, f.inFlight); err != nil {
		return nativeError("vkQueueSubmit", err)
	}
	err = d.driver.Present(d.presentQueue, p.target.Swapchain(), index, f.renderFinished)
	p.current = (p.current + 1) % MaxFramesInFlight
	if errors.Is(err, ErrSwapchainOutOfDate) || p.resized {
		p.resized = false
		return p.recreate()
	}
	if err != nil {
		return nativeError("vkQueuePresentKHR", err)
	}
	return nil
}

func (p *Presenter) recreate() error {
	graphics.Logger().Debug("recreating swapchain", slog.Int("frame", p.current))
	return p.target.Resize(0, 0)
}

func (p *Presenter) Terminate() error {
	if err := p.state.beginTerminate("presenter"); err != nil {
		return err
	}
	if err := p.device.WaitIdle(); err != nil {
		graphics.Logger().Warn("device not idle before presenter teardown", slog.Any("err", err))
	}
	p.destroyFrames()
	p.state = lifecycleTerminated
	return nil
}

// destroyFrames releases the synchronization objects. Command buffers are
// freed with the device's command pool.
func (p *Presenter) destroyFrames() {
	d := p.device
	for _, f := range p.frames {
		if f.imageAvailable != nil {
			d.driver.DestroySemaphore(d.handle, f.imageAvailable)
		}
		if f.renderFinished != nil {
			d.driver.DestroySemaphore(d.handle, f.renderFinished)
		}
		if f.inFlight != nil {
			d.driver.DestroyFence(d.handle, f.inFlight)
		}
	}
	p.frames = nil
}
