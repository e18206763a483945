package vulkan

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vk "github.com/goki/vulkan"

	"dynamik/graphics"
	"dynamik/spirv"
	"dynamik/spirv/spirvtest"
)

func reflected(t *testing.T, b *spirvtest.Builder, loc graphics.ShaderLocation) *graphics.ShaderCode {
	t.Helper()
	var code graphics.ShaderCode
	require.NoError(t, code.SetCode(b.Words(), graphics.ShaderCodeTypeSPIRV, loc))
	return &code
}

func TestDeriveVertexInput(t *testing.T) {
	b := spirvtest.New()
	f32 := b.TypeFloat(32)
	vec2 := b.TypeVector(f32, 2)
	vec3 := b.TypeVector(f32, 3)
	mat4 := b.TypeMatrix(b.TypeVector(f32, 4), 4)
	b.Interface("inPosition", spirv.StorageClassInput, vec3, 0)
	b.Interface("inUV", spirv.StorageClassInput, vec2, 1)
	b.Interface("inInstance", spirv.StorageClassInput, mat4, 2)

	m, _, err := DeriveShaderModule(reflected(t, b, graphics.ShaderLocationVertex), 0)
	require.NoError(t, err)
	assert.Equal(t, vk.ShaderStageVertexBit, m.Stage)

	require.Len(t, m.VertexBindings, 1)
	assert.Equal(t, uint32(16+8+64), m.VertexBindings[0].Stride)
	assert.Equal(t, vk.VertexInputRateVertex, m.VertexBindings[0].InputRate)

	require.Len(t, m.VertexAttributes, 6)
	assert.Equal(t, vk.FormatR32g32b32Sfloat, m.VertexAttributes[0].Format)
	assert.Equal(t, vk.FormatR32g32Sfloat, m.VertexAttributes[1].Format)
	assert.Equal(t, uint32(16), m.VertexAttributes[1].Offset)
	for col := uint32(0); col < 4; col++ {
		a := m.VertexAttributes[2+col]
		assert.Equal(t, 2+col, a.Location)
		assert.Equal(t, 24+col*16, a.Offset)
		assert.Equal(t, vk.FormatR32g32b32a32Sfloat, a.Format)
	}
}

func TestDeriveFragmentHasNoVertexInput(t *testing.T) {
	b := spirvtest.New()
	b.Interface("inColor", spirv.StorageClassInput, b.TypeVector(b.TypeFloat(32), 4), 0)

	m, _, err := DeriveShaderModule(reflected(t, b, graphics.ShaderLocationFragment), 0)
	require.NoError(t, err)
	assert.Empty(t, m.VertexBindings)
	assert.Empty(t, m.VertexAttributes)
}

func TestDeriveBindingsAndPushConstants(t *testing.T) {
	b := spirvtest.New()
	f32 := b.TypeFloat(32)
	vec4 := b.TypeVector(f32, 4)
	block := b.Struct("Light", spirvtest.Field{Name: "color", Type: vec4})
	b.Decorate(block, spirv.DecorationBlock)
	b.Resource("light", spirv.StorageClassUniform, block, 0)
	sampled := b.TypeSampledImage(b.TypeImage(f32, spirv.Dim2D, false, 1))
	b.Resource("albedo", spirv.StorageClassUniformConstant, sampled, 1)
	b.Resource("normal", spirv.StorageClassUniformConstant, sampled, 2)
	push := b.Struct("Params", spirvtest.Field{Name: "exposure", Type: vec4})
	b.Decorate(push, spirv.DecorationBlock)
	b.Variable(spirv.StorageClassPushConstant, push)

	m, next, err := DeriveShaderModule(reflected(t, b, graphics.ShaderLocationFragment), 64)
	require.NoError(t, err)
	assert.Equal(t, uint32(80), next)

	require.Len(t, m.PushConstants, 1)
	assert.Equal(t, vk.PushConstantRange{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		Offset:     64,
		Size:       16,
	}, m.PushConstants[0])

	require.Len(t, m.Bindings, 3)
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, m.Bindings[0].DescriptorType)
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, m.Bindings[1].DescriptorType)
	assert.Equal(t, []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 2},
	}, m.PoolSizes)
}

func binding(n uint32, typ vk.DescriptorType, stage vk.ShaderStageFlagBits) vk.DescriptorSetLayoutBinding {
	return vk.DescriptorSetLayoutBinding{Binding: n, DescriptorType: typ, DescriptorCount: 1, StageFlags: vk.ShaderStageFlags(stage)}
}

func TestMergeBindings(t *testing.T) {
	vert := ShaderModule{Bindings: []vk.DescriptorSetLayoutBinding{
		binding(3, vk.DescriptorTypeUniformBuffer, vk.ShaderStageVertexBit),
		binding(0, vk.DescriptorTypeUniformBuffer, vk.ShaderStageVertexBit),
	}}
	frag := ShaderModule{Bindings: []vk.DescriptorSetLayoutBinding{
		binding(0, vk.DescriptorTypeUniformBuffer, vk.ShaderStageFragmentBit),
		binding(1, vk.DescriptorTypeCombinedImageSampler, vk.ShaderStageFragmentBit),
	}}

	merged, err := mergeBindings([]ShaderModule{vert, frag})
	require.NoError(t, err)
	require.Len(t, merged, 3)
	assert.Equal(t, []uint32{0, 1, 3}, []uint32{merged[0].Binding, merged[1].Binding, merged[2].Binding})
	assert.Equal(t, vk.ShaderStageFlags(vk.ShaderStageVertexBit|vk.ShaderStageFragmentBit), merged[0].StageFlags)
	assert.Equal(t, []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 2},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 1},
	}, poolSizes(merged))

	conflict := ShaderModule{Bindings: []vk.DescriptorSetLayoutBinding{
		binding(1, vk.DescriptorTypeStorageBuffer, vk.ShaderStageVertexBit),
	}}
	_, err = mergeBindings([]ShaderModule{frag, conflict})
	assert.True(t, errors.Is(err, graphics.ErrDuplicateBinding))
}

func TestDescriptorTypes(t *testing.T) {
	for _, typ := range []graphics.UniformType{
		graphics.UniformTypeSampler2D, graphics.UniformTypeSamplerCube,
		graphics.UniformTypeSampler2DArray, graphics.UniformTypeSamplerCubeArray,
	} {
		got, ok := descriptorType(typ)
		assert.True(t, ok)
		assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, got, typ.String())
	}
	_, ok := descriptorType(graphics.UniformTypeConstant)
	assert.False(t, ok)
	_, ok = descriptorType(graphics.UniformTypeUndefined)
	assert.False(t, ok)
}

func TestStageConversions(t *testing.T) {
	assert.Equal(t, vk.ShaderStageFlags(vk.ShaderStageTessellationControlBit|vk.ShaderStageTessellationEvaluationBit),
		shaderStage(graphics.ShaderLocationTessellation))
	assert.Equal(t, vk.ShaderStageTessellationControlBit, pipelineStage(graphics.ShaderLocationTessellation))
	assert.Equal(t, vk.ShaderStageFragmentBit, pipelineStage(graphics.ShaderLocationFragment))
	assert.Equal(t, vk.ShaderStageFlags(0x100), shaderStage(graphics.ShaderLocationRayGen))

	assert.Equal(t, vk.FormatR32Sint, vertexFormat(graphics.DataTypeInt32))
	assert.Equal(t, vk.FormatR32Uint, vertexFormat(graphics.DataTypeBool))
	assert.Equal(t, vk.FormatR32g32b32Sfloat, vertexFormat(graphics.DataTypeMat3))
	assert.Equal(t, vk.FormatUndefined, vertexFormat(graphics.DataTypeUndefined))

	assert.Equal(t, vk.SampleCount1Bit, sampleCount(0))
	assert.Equal(t, vk.SampleCount4Bit, sampleCount(6))
	assert.Equal(t, vk.SampleCount64Bit, sampleCount(128))
	assert.Equal(t, polygonModeFillRectangle, polygonMode(graphics.PolygonModeFillRectangle))
}
