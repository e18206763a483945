package vulkan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dynamik/backend/vulkan"
	"dynamik/backend/vulkan/vulkantest"
	"dynamik/graphics"
	"dynamik/spirv"
	"dynamik/spirv/spirvtest"
)

type fixture struct {
	driver   *vulkantest.Driver
	instance *vulkan.Instance
	display  *vulkan.Display
	device   *vulkan.Device
}

func newFixture(t *testing.T, cfg vulkan.DeviceConfig) *fixture {
	t.Helper()
	drv := vulkantest.New()
	inst, err := vulkan.NewInstance(drv, vulkan.InstanceConfig{ApplicationName: "test", Extensions: []string{"VK_KHR_surface"}})
	require.NoError(t, err)
	disp, err := inst.CreateDisplay(&vulkantest.Window{Driver: drv, Width: 800, Height: 600})
	require.NoError(t, err)
	dev, err := disp.CreateDevice(cfg)
	require.NoError(t, err)
	return &fixture{driver: drv, instance: inst, display: disp, device: dev}
}

// treeObjects are the objects alive while only the ownership tree exists.
var treeObjects = []string{"instance", "surface", "device", "command pool"}

func (f *fixture) assertOnlyTree(t *testing.T) {
	t.Helper()
	assert.ElementsMatch(t, treeObjects, f.driver.Live())
	assert.Empty(t, f.driver.Invalid())
}

func (f *fixture) swapchainTarget(t *testing.T) *vulkan.RenderTarget {
	t.Helper()
	rt := vulkan.NewSwapchainTarget(f.device)
	require.NoError(t, rt.Initialize())
	return rt
}

func code(t *testing.T, b *spirvtest.Builder, loc graphics.ShaderLocation) *graphics.ShaderCode {
	t.Helper()
	c := &graphics.ShaderCode{}
	require.NoError(t, c.SetCode(b.Words(), graphics.ShaderCodeTypeSPIRV, loc))
	return c
}

// vertexShader has a position and color input and a 64 byte push constant
// block.
func vertexShader(t *testing.T) *graphics.ShaderCode {
	b := spirvtest.New()
	f32 := b.TypeFloat(32)
	vec3 := b.TypeVector(f32, 3)
	vec4 := b.TypeVector(f32, 4)
	mat4 := b.TypeMatrix(vec4, 4)
	b.Interface("inPosition", spirv.StorageClassInput, vec3, 0)
	b.Interface("inColor", spirv.StorageClassInput, vec4, 1)
	push := b.Struct("Transform", spirvtest.Field{Name: "mvp", Type: mat4})
	b.Decorate(push, spirv.DecorationBlock)
	b.Variable(spirv.StorageClassPushConstant, push)
	return code(t, b, graphics.ShaderLocationVertex)
}

// fragmentShader declares n uniform blocks at bindings 0 to n-1.
func fragmentShader(t *testing.T, n int) *graphics.ShaderCode {
	b := spirvtest.New()
	vec4 := b.TypeVector(b.TypeFloat(32), 4)
	for i := 0; i < n; i++ {
		block := b.Struct("Block", spirvtest.Field{Name: "value", Type: vec4})
		b.Decorate(block, spirv.DecorationBlock)
		b.Resource("block", spirv.StorageClassUniform, block, uint32(i))
	}
	return code(t, b, graphics.ShaderLocationFragment)
}

// texturedShader has a uniform block at binding 0 and a sampler at 1.
func texturedShader(t *testing.T) *graphics.ShaderCode {
	b := spirvtest.New()
	f32 := b.TypeFloat(32)
	vec4 := b.TypeVector(f32, 4)
	block := b.Struct("Material", spirvtest.Field{Name: "tint", Type: vec4})
	b.Decorate(block, spirv.DecorationBlock)
	b.Resource("material", spirv.StorageClassUniform, block, 0)
	b.Resource("albedo", spirv.StorageClassUniformConstant, b.TypeSampledImage(b.TypeImage(f32, spirv.Dim2D, false, 1)), 1)
	return code(t, b, graphics.ShaderLocationFragment)
}

func uniformBuffers(t *testing.T, dev *vulkan.Device, n int) []*vulkan.Buffer {
	t.Helper()
	out := make([]*vulkan.Buffer, n)
	for i := range out {
		out[i] = vulkan.NewBuffer(dev, vulkan.BufferKindUniform, 16)
		require.NoError(t, out[i].Initialize())
	}
	return out
}
