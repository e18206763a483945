package renderer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dynamik/backend/vulkan"
	"dynamik/backend/vulkan/vulkantest"
	"dynamik/graphics"
	"dynamik/model"
	"dynamik/spirv"
	"dynamik/spirv/spirvtest"
)

// meshVertexShader matches model.Vertex and takes the model matrix as push
// constants.
func meshVertexShader() []byte {
	b := spirvtest.New()
	f32 := b.TypeFloat(32)
	vec4 := b.TypeVector(f32, 4)
	b.Interface("inPosition", spirv.StorageClassInput, b.TypeVector(f32, 3), 0)
	b.Interface("inColor", spirv.StorageClassInput, vec4, 1)
	push := b.Struct("Model", spirvtest.Field{Name: "transform", Type: b.TypeMatrix(vec4, 4)})
	b.Decorate(push, spirv.DecorationBlock)
	b.Variable(spirv.StorageClassPushConstant, push)
	return b.Bytes()
}

func uniformFragmentShader(blocks int) []byte {
	b := spirvtest.New()
	mat4 := b.TypeMatrix(b.TypeVector(b.TypeFloat(32), 4), 4)
	for i := 0; i < blocks; i++ {
		block := b.Struct("Camera", spirvtest.Field{Name: "view", Type: mat4}, spirvtest.Field{Name: "projection", Type: mat4})
		b.Decorate(block, spirv.DecorationBlock)
		b.Resource("camera", spirv.StorageClassUniform, block, uint32(i))
	}
	return b.Bytes()
}

type backendFixture struct {
	driver   *vulkantest.Driver
	backend  *VulkanBackend
	window   *vulkantest.Window
	vertex   string
	fragment string
}

func newBackendFixture(t *testing.T, attachWindow bool) *backendFixture {
	t.Helper()
	dir := t.TempDir()
	f := &backendFixture{
		driver:   vulkantest.New(),
		vertex:   filepath.Join(dir, "mesh.vert.spv"),
		fragment: filepath.Join(dir, "mesh.frag.spv"),
	}
	f.window = &vulkantest.Window{Driver: f.driver, Width: 800, Height: 600}
	require.NoError(t, os.WriteFile(f.vertex, meshVertexShader(), 0o644))
	require.NoError(t, os.WriteFile(f.fragment, uniformFragmentShader(1), 0o644))

	cfg := VulkanConfig{
		Instance:       vulkan.InstanceConfig{ApplicationName: "test", Extensions: []string{"VK_KHR_surface"}},
		ClearColor:     [4]float32{0, 0, 1, 1},
		VertexShader:   f.vertex,
		FragmentShader: f.fragment,
	}
	if attachWindow {
		cfg.Window = f.window
	}
	f.backend = NewVulkanBackend(f.driver, cfg)
	return f
}

func TestVulkanBackendDrawsEntities(t *testing.T) {
	f := newBackendFixture(t, true)
	r := New(f.backend, Options{})
	r.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	camera := model.DefaultCamera(1)
	require.NoError(t, r.Do(ctx, CreateContext{Type: ContextTypeDefault}))
	require.NoError(t, r.Do(ctx, InitializeCamera{Camera: camera}))
	require.NoError(t, r.Do(ctx, SubmitEntity{Entity: model.NewCube("cube")}))
	assert.InDelta(t, 800.0/600.0, camera.Aspect, 1e-6)

	seen := len(f.driver.Frames())
	require.Eventually(t, func() bool { return len(f.driver.Frames()) > seen+1 }, 5*time.Second, time.Millisecond)
	frames := f.driver.Frames()
	last := frames[len(frames)-1]
	assert.Equal(t, [4]float32{0, 0, 1, 1}, last.ClearColor)
	require.Len(t, last.Draws, 1)
	assert.Equal(t, uint32(36), last.Draws[0].IndexCount)
	assert.NotNil(t, last.Draws[0].IndexBuffer)
	require.Len(t, last.Draws[0].PushConstants, 1)
	assert.Len(t, last.Draws[0].PushConstants[0].Data, model.PushConstantsSize)
	writes := f.driver.Writes()
	require.NotEmpty(t, writes)
	assert.Equal(t, writes[len(writes)-1][0].DstSet, last.Draws[0].DescriptorSet)

	require.NoError(t, r.Stop(ctx))
	assert.Empty(t, f.driver.Live())
	assert.Empty(t, f.driver.Invalid())
}

func TestVulkanBackendReloadsShaders(t *testing.T) {
	f := newBackendFixture(t, true)
	r := New(f.backend, Options{})
	r.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, r.Do(ctx, CreateContext{}))
	assert.Equal(t, 1, f.backend.pipeline.Slot())

	require.NoError(t, os.WriteFile(f.fragment, uniformFragmentShader(2), 0o644))
	require.NoError(t, r.Do(ctx, ReloadShader{Path: f.fragment}))
	assert.Equal(t, 2, f.backend.pipeline.Slot())
	assert.Equal(t, 2, f.driver.Count("vkCreateGraphicsPipelines"))

	require.NoError(t, r.Do(ctx, ReloadShader{Path: filepath.Join(filepath.Dir(f.fragment), "other.spv")}))
	assert.Equal(t, 2, f.driver.Count("vkCreateGraphicsPipelines"))

	require.NoError(t, os.WriteFile(f.fragment, []byte{1, 2, 3}, 0o644))
	err := r.Do(ctx, ReloadShader{Path: f.fragment})
	assert.True(t, errors.Is(err, graphics.ErrInvalidBytecode))
	assert.Equal(t, 2, f.backend.pipeline.Slot())

	// restoring the first shader hits the pipeline cache
	require.NoError(t, os.WriteFile(f.fragment, uniformFragmentShader(1), 0o644))
	require.NoError(t, r.Do(ctx, ReloadShader{Path: f.fragment}))
	assert.Equal(t, 1, f.backend.pipeline.Slot())
	assert.Equal(t, 2, f.driver.Count("vkCreateGraphicsPipelines"))
	// the scene keeps the resource it allocated for that pipeline
	assert.Equal(t, 2, f.driver.Count("vkAllocateDescriptorSets"))
	assert.Len(t, f.backend.resources, 2)

	require.NoError(t, r.Stop(ctx))
	assert.Empty(t, f.driver.Live())
}

func TestVulkanBackendWindowHandshake(t *testing.T) {
	f := newBackendFixture(t, false)
	b := f.backend

	assert.True(t, errors.Is(b.Execute(Initialize{}), graphics.ErrNotInitialized))
	require.NoError(t, b.Initialize())
	assert.ElementsMatch(t, []string{"instance"}, f.driver.Live())

	assert.True(t, errors.Is(b.Execute(CreateContext{}), graphics.ErrNotInitialized))
	assert.True(t, errors.Is(b.Execute(Initialize{}), graphics.ErrNotInitialized))
	require.NoError(t, b.Execute(SetWindowHandle{Window: f.window}))
	require.NoError(t, b.Execute(RawInstruction{Raw: InstructionInitialize}))
	assert.Error(t, b.Execute(SetWindowHandle{Window: f.window}))
	assert.Contains(t, f.driver.Live(), "device")

	require.NoError(t, b.Terminate())
	assert.Empty(t, f.driver.Live())
	assert.True(t, errors.Is(b.Terminate(), graphics.ErrNotInitialized))

	// the window survives a reset
	require.NoError(t, b.Initialize())
	assert.Contains(t, f.driver.Live(), "device")
	require.NoError(t, b.Terminate())
}

func TestVulkanBackendOffscreenContext(t *testing.T) {
	f := newBackendFixture(t, true)
	b := f.backend
	require.NoError(t, b.Initialize())

	require.NoError(t, b.Execute(SetSamples{Samples: 4}))
	assert.True(t, errors.Is(b.Execute(CreateContext{Type: ContextType(5)}), graphics.ErrUnsupported))
	require.NoError(t, b.Execute(CreateContext{Type: ContextTypeOffscreen, Viewport: graphics.Viewport{Width: 320, Height: 240}}))
	assert.Error(t, b.Execute(CreateContext{}))
	p, ok := b.pipelines.Pipeline(b.pipeline)
	require.True(t, ok)
	assert.Equal(t, uint32(4), p.Specification().Multisampling.SampleCount)

	require.NoError(t, b.Execute(SubmitLevel{Entities: []*model.Model{model.NewCube("a"), model.NewGridPlane("b")}}))
	require.NoError(t, b.Execute(SubmitLevel{Entities: []*model.Model{model.NewCube("c")}}))
	assert.Len(t, b.entities, 1)
	assert.True(t, errors.Is(b.Execute(SubmitEntity{}), graphics.ErrMissingResource))

	require.NoError(t, b.Execute(ResizeFrameBuffer{Width: 640, Height: 480}))
	assert.Equal(t, uint32(640), b.target.Extent().Width)
	require.NoError(t, b.Present())
	assert.Empty(t, f.driver.Frames())

	assert.True(t, errors.Is(b.Execute(RawInstruction{Raw: InstructionSubmitEntity}), graphics.ErrUnsupported))

	require.NoError(t, b.Terminate())
	assert.Empty(t, f.driver.Live())
	assert.Empty(t, f.driver.Invalid())
}

func TestVulkanBackendContextFailureReleases(t *testing.T) {
	f := newBackendFixture(t, true)
	require.NoError(t, os.Remove(f.fragment))
	b := f.backend
	require.NoError(t, b.Initialize())

	assert.Error(t, b.Execute(CreateContext{}))
	assert.ElementsMatch(t, []string{"instance", "surface", "device", "command pool"}, f.driver.Live())
	assert.Nil(t, b.target)

	require.NoError(t, b.Terminate())
	assert.Empty(t, f.driver.Live())
}
