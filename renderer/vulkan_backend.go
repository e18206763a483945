package renderer

import (
	"log/slog"
	"path/filepath"

	"github.com/pkg/errors"

	"dynamik/backend/vulkan"
	"dynamik/graphics"
	"dynamik/model"
)

type VulkanConfig struct {
	Instance vulkan.InstanceConfig
	Device   vulkan.DeviceConfig
	// Window is attached at construction. Without it a SetWindowHandle
	// command must precede Initialize.
	Window vulkan.Window
	// Samples is the multisample count of the scene pipeline.
	Samples    uint32
	ClearColor [4]float32
	// UniformSize is the size of the camera uniform buffer. It is raised to
	// model.CameraUniformSize when smaller.
	UniformSize uint64
	// VertexShader and FragmentShader are the SPIR-V files of the scene
	// pipeline.
	VertexShader   string
	FragmentShader string
}

type entity struct {
	model    *model.Model
	vertices *vulkan.Buffer
	indices  *vulkan.Buffer
}

// VulkanBackend renders the submitted models with one pipeline built from
// the configured shaders. Its object tree is rebuilt from scratch on every
// Initialize.
type VulkanBackend struct {
	driver vulkan.Driver
	cfg    VulkanConfig
	window vulkan.Window

	instance  *vulkan.Instance
	device    *vulkan.Device
	target    *vulkan.RenderTarget
	presenter *vulkan.Presenter
	pipelines *vulkan.PipelineManager

	targetHandle graphics.RenderTargetHandle
	viewport     graphics.Viewport
	shaders      map[graphics.ShaderLocation]*graphics.ShaderCode
	pipeline     vulkan.PipelineHandle
	resources    map[int]*vulkan.PipelineResource
	camera       *model.Camera
	cameraBuffer *vulkan.Buffer
	entities     []entity
}

var _ Backend = (*VulkanBackend)(nil)

func NewVulkanBackend(driver vulkan.Driver, cfg VulkanConfig) *VulkanBackend {
	if cfg.Samples == 0 {
		cfg.Samples = 1
	}
	return &VulkanBackend{driver: driver, cfg: cfg, window: cfg.Window}
}

// Initialize creates the instance, and the device too when a window is
// attached.
func (b *VulkanBackend) Initialize() error {
	if b.instance != nil {
		graphics.Logger().Warn("vulkan backend already initialized")
		return nil
	}
	inst, err := vulkan.NewInstance(b.driver, b.cfg.Instance)
	if err != nil {
		return err
	}
	b.instance = inst
	if b.window == nil {
		return nil
	}
	return b.createDevice()
}

func (b *VulkanBackend) createDevice() error {
	if b.device != nil {
		graphics.Logger().Warn("vulkan device already created")
		return nil
	}
	if b.window == nil {
		return errors.Wrap(graphics.ErrNotInitialized, "no window attached")
	}
	display, err := b.instance.CreateDisplay(b.window)
	if err != nil {
		return err
	}
	device, err := display.CreateDevice(b.cfg.Device)
	if err != nil {
		return err
	}
	b.device = device
	b.pipelines = vulkan.NewPipelineManager(device)
	return nil
}

func (b *VulkanBackend) Execute(cmd Command) error {
	if b.instance == nil {
		return errors.Wrap(graphics.ErrNotInitialized, "vulkan backend")
	}
	switch c := cmd.(type) {
	case SetSamples:
		b.cfg.Samples = c.Samples
		return nil
	case SetWindowHandle:
		if b.device != nil {
			return errors.New("window handle set after device creation")
		}
		b.window = c.Window
		return nil
	case Initialize:
		return b.createDevice()
	case CreateContext:
		if b.target != nil {
			return errors.New("render context already created")
		}
		if err := b.createContext(c.Type, c.Viewport); err != nil {
			b.releaseContext()
			return err
		}
		return nil
	case InitializeCamera:
		b.camera = c.Camera
		b.fitCamera()
		return nil
	case SubmitEntity:
		return b.submit(c.Entity)
	case SubmitLevel:
		b.clearScene()
		for _, m := range c.Entities {
			if err := b.submit(m); err != nil {
				return err
			}
		}
		return nil
	case ResizeFrameBuffer:
		return b.resize(c.Width, c.Height)
	case ReloadShader:
		return b.reloadShader(c.Path)
	case RawInstruction:
		if c.Raw == InstructionInitialize {
			return b.createDevice()
		}
		return errors.Wrapf(graphics.ErrUnsupported, "raw %s instruction", c.Raw)
	}
	return errors.Wrapf(graphics.ErrUnsupported, "%s command", cmd.Instruction())
}

func (b *VulkanBackend) createContext(typ ContextType, viewport graphics.Viewport) error {
	if b.device == nil {
		return errors.Wrap(graphics.ErrNotInitialized, "create context without device")
	}
	var target *vulkan.RenderTarget
	switch typ {
	case ContextTypeDefault:
		target = vulkan.NewSwapchainTarget(b.device)
	case ContextTypeOffscreen:
		target = vulkan.NewOffscreenTarget(b.device, viewport.Width, viewport.Height, 0)
	default:
		return errors.Wrapf(graphics.ErrUnsupported, "context type %s", typ)
	}
	if err := target.Initialize(); err != nil {
		return err
	}
	b.target = target
	b.viewport = viewport
	b.targetHandle = b.pipelines.AttachRenderTarget(target)

	if typ == ContextTypeDefault {
		b.presenter = vulkan.NewPresenter(target)
		b.presenter.SetClearColor(b.cfg.ClearColor)
		if err := b.presenter.Initialize(); err != nil {
			return err
		}
	}

	size := b.cfg.UniformSize
	if size < model.CameraUniformSize {
		size = model.CameraUniformSize
	}
	b.cameraBuffer = vulkan.NewBuffer(b.device, vulkan.BufferKindUniform, size)
	if err := b.cameraBuffer.Initialize(); err != nil {
		return err
	}
	if err := b.loadShaders(); err != nil {
		return err
	}
	b.fitCamera()
	return b.buildPipeline()
}

// releaseContext undoes a partially created context.
func (b *VulkanBackend) releaseContext() {
	if b.cameraBuffer != nil && b.cameraBuffer.IsInitialized() {
		b.cameraBuffer.Terminate()
	}
	if b.presenter != nil && b.presenter.IsInitialized() {
		b.presenter.Terminate()
	}
	if b.target != nil && b.target.IsInitialized() {
		b.target.Terminate()
	}
	b.cameraBuffer, b.presenter, b.target = nil, nil, nil
	b.shaders = nil
}

func (b *VulkanBackend) loadShaders() error {
	b.shaders = make(map[graphics.ShaderLocation]*graphics.ShaderCode)
	stages := []struct {
		path     string
		location graphics.ShaderLocation
	}{
		{b.cfg.VertexShader, graphics.ShaderLocationVertex},
		{b.cfg.FragmentShader, graphics.ShaderLocationFragment},
	}
	for _, s := range stages {
		if s.path == "" {
			continue
		}
		code := &graphics.ShaderCode{}
		if err := code.LoadCode(s.path, graphics.ShaderCodeTypeSPIRV, s.location); err != nil {
			return err
		}
		b.shaders[s.location] = code
	}
	if len(b.shaders) == 0 {
		return errors.Wrap(graphics.ErrMissingResource, "no shaders configured")
	}
	return nil
}

// buildPipeline creates or looks up the scene pipeline for the current
// shaders and binds the camera buffer to the scene's resource of that
// pipeline.
func (b *VulkanBackend) buildPipeline() error {
	var shaders []*graphics.ShaderCode
	for _, loc := range []graphics.ShaderLocation{graphics.ShaderLocationVertex, graphics.ShaderLocationFragment} {
		if code, ok := b.shaders[loc]; ok {
			shaders = append(shaders, code)
		}
	}
	spec := graphics.NewPipelineSpecification(graphics.PipelineTypeGraphics, shaders...)
	spec.RenderTarget = b.targetHandle
	spec.Viewport = b.viewport
	spec.Multisampling.SampleCount = b.cfg.Samples
	spec.DepthStencil.EnableTest = true
	spec.DepthStencil.EnableWrite = true

	h, err := b.pipelines.CreatePipeline(spec)
	if err != nil {
		return err
	}
	p, _ := b.pipelines.Pipeline(h)
	res, ok := b.resources[h.Slot()]
	if !ok {
		allocated, err := p.AllocateResources(1)
		if err != nil {
			return err
		}
		res = allocated[0]
		if b.resources == nil {
			b.resources = make(map[int]*vulkan.PipelineResource)
		}
		b.resources[h.Slot()] = res
	}
	if len(p.Bindings()) > 0 {
		err := res.Update([]*vulkan.Buffer{b.cameraBuffer}, nil)
		if err != nil && !errors.Is(err, graphics.ErrMissingResource) {
			return err
		}
	}
	b.pipeline = h
	return nil
}

// reloadShader reloads the stage loaded from path. On failure the current
// pipeline stays in use.
func (b *VulkanBackend) reloadShader(path string) error {
	var stage *graphics.ShaderCode
	for _, code := range b.shaders {
		if samePath(code.Path, path) {
			stage = code
		}
	}
	if stage == nil {
		graphics.Logger().Debug("ignoring change to unused shader", slog.String("path", path))
		return nil
	}
	code := &graphics.ShaderCode{}
	if err := code.LoadCode(stage.Path, stage.Type, stage.Location); err != nil {
		return err
	}
	old := b.shaders[stage.Location]
	b.shaders[stage.Location] = code
	if err := b.buildPipeline(); err != nil {
		b.shaders[stage.Location] = old
		return err
	}
	graphics.Logger().Info("reloaded shader", slog.String("path", path), slog.Int("slot", b.pipeline.Slot()))
	return nil
}

func samePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}

func (b *VulkanBackend) fitCamera() {
	if b.camera != nil && b.target != nil {
		b.camera.Aspect = b.target.Aspect()
	}
}

func (b *VulkanBackend) submit(m *model.Model) error {
	if b.device == nil {
		return errors.Wrap(graphics.ErrNotInitialized, "submit entity without device")
	}
	if m == nil || m.Mesh == nil || len(m.Mesh.Vertices) == 0 {
		return errors.Wrap(graphics.ErrMissingResource, "entity without mesh")
	}
	e := entity{model: m}
	vertices := m.Mesh.VertexBytes()
	e.vertices = vulkan.NewBuffer(b.device, vulkan.BufferKindVertex, uint64(len(vertices)))
	if err := e.vertices.Initialize(); err != nil {
		return err
	}
	if err := e.vertices.Write(vertices); err != nil {
		e.release()
		return err
	}
	if len(m.Mesh.Indices) > 0 {
		indices := m.Mesh.IndexBytes()
		e.indices = vulkan.NewBuffer(b.device, vulkan.BufferKindIndex, uint64(len(indices)))
		if err := e.indices.Initialize(); err != nil {
			e.release()
			return err
		}
		if err := e.indices.Write(indices); err != nil {
			e.release()
			return err
		}
	}
	b.entities = append(b.entities, e)
	graphics.Logger().Debug("submitted entity", slog.String("name", m.Name), slog.Int("vertices", len(m.Mesh.Vertices)))
	return nil
}

func (e entity) release() {
	if e.vertices != nil && e.vertices.IsInitialized() {
		e.vertices.Terminate()
	}
	if e.indices != nil && e.indices.IsInitialized() {
		e.indices.Terminate()
	}
}

func (b *VulkanBackend) clearScene() {
	if len(b.entities) > 0 && b.device != nil {
		if err := b.device.WaitIdle(); err != nil {
			graphics.Logger().Warn("device not idle before clearing scene", slog.Any("err", err))
		}
	}
	for _, e := range b.entities {
		e.release()
	}
	b.entities = nil
}

func (b *VulkanBackend) resize(width, height uint32) error {
	if b.target == nil {
		return errors.Wrap(graphics.ErrNotInitialized, "resize without render context")
	}
	if err := b.target.Resize(width, height); err != nil {
		return err
	}
	b.fitCamera()
	return nil
}

// Present uploads the camera and draws every entity. It does nothing until a
// swapchain context exists.
func (b *VulkanBackend) Present() error {
	if b.presenter == nil {
		return nil
	}
	p, ok := b.pipelines.Pipeline(b.pipeline)
	if !ok {
		return b.presenter.Present(nil)
	}
	res := b.resources[b.pipeline.Slot()]
	if b.camera != nil {
		if err := b.cameraBuffer.Write(b.camera.Uniform().Bytes()); err != nil {
			return err
		}
	}
	draws := make([]vulkan.DrawCall, 0, len(b.entities))
	for _, e := range b.entities {
		var push []vulkan.PushConstantWrite
		if w, err := p.PushConstants(graphics.ShaderLocationVertex, e.model.PushConstants()); err == nil {
			push = append(push, w)
		}
		count := uint32(len(e.model.Mesh.Indices))
		if e.indices == nil {
			count = uint32(len(e.model.Mesh.Vertices))
		}
		draws = append(draws, p.Draw(res, e.vertices, e.indices, count, push...))
	}
	return b.presenter.Present(draws)
}

// Terminate destroys every object in reverse creation order and leaves the
// backend ready for another Initialize. The attached window is kept.
func (b *VulkanBackend) Terminate() error {
	if b.instance == nil {
		graphics.Logger().Warn("terminate on uninitialized vulkan backend")
		return errors.Wrap(graphics.ErrNotInitialized, "vulkan backend")
	}
	log := graphics.Logger()
	if b.device != nil {
		if err := b.device.WaitIdle(); err != nil {
			log.Warn("device not idle before teardown", slog.Any("err", err))
		}
	}
	b.clearScene()
	if b.pipelines != nil {
		b.pipelines.Destroy()
	}
	b.releaseContext()
	err := b.instance.Destroy()

	*b = VulkanBackend{driver: b.driver, cfg: b.cfg, window: b.window}
	return err
}
