package spirv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dynamik/spirv"
	"dynamik/spirv/spirvtest"
)

func TestResourcesClassification(t *testing.T) {
	b := spirvtest.New()
	f32 := b.TypeFloat(32)
	vec4 := b.TypeVector(f32, 4)

	ubo := b.Struct("Globals", spirvtest.Field{Name: "color", Type: vec4})
	b.Decorate(ubo, spirv.DecorationBlock)
	b.Resource("globals", spirv.StorageClassUniform, ubo, 0)

	legacySSBO := b.Struct("Legacy", spirvtest.Field{Name: "data", Type: vec4})
	b.Decorate(legacySSBO, spirv.DecorationBufferBlock)
	b.Resource("legacy", spirv.StorageClassUniform, legacySSBO, 1)

	ssbo := b.Struct("Particles", spirvtest.Field{Name: "pos", Type: b.TypeRuntimeArray(vec4)})
	b.Decorate(ssbo, spirv.DecorationBlock)
	b.Resource("", spirv.StorageClassStorageBuffer, ssbo, 2)

	storage := b.TypeImage(f32, spirv.Dim2D, false, 2)
	b.Resource("target", spirv.StorageClassUniformConstant, storage, 3)

	sampled := b.TypeSampledImage(b.TypeImage(f32, spirv.DimCube, false, 1))
	b.Resource("sky", spirv.StorageClassUniformConstant, sampled, 4)

	b.Resource("albedo", spirv.StorageClassUniformConstant, b.TypeImage(f32, spirv.Dim2D, true, 1), 5)
	b.Resource("linear", spirv.StorageClassUniformConstant, b.TypeSampler(), 6)
	b.Resource("tlas", spirv.StorageClassUniformConstant, b.TypeAccelerationStructure(), 7)

	pc := b.Struct("Push", spirvtest.Field{Name: "model", Type: vec4})
	b.Decorate(pc, spirv.DecorationBlock)
	b.Variable(spirv.StorageClassPushConstant, pc)

	m, err := spirv.Parse(b.Words())
	require.NoError(t, err)
	res := m.Resources()

	require.Len(t, res.UniformBuffers, 1)
	assert.Equal(t, "globals", res.UniformBuffers[0].Name)
	assert.Equal(t, uint32(0), res.UniformBuffers[0].Binding)

	require.Len(t, res.StorageBuffers, 2)
	assert.Equal(t, "legacy", res.StorageBuffers[0].Name)
	// unnamed instance falls back to the block name
	assert.Equal(t, "Particles", res.StorageBuffers[1].Name)

	require.Len(t, res.StorageImages, 1)
	assert.Equal(t, uint32(3), res.StorageImages[0].Binding)

	require.Len(t, res.SampledImages, 1)
	dim, arrayed := m.ImageInfo(res.SampledImages[0].TypeID)
	assert.Equal(t, spirv.DimCube, dim)
	assert.False(t, arrayed)

	require.Len(t, res.SeparateImages, 1)
	_, arrayed = m.ImageInfo(res.SeparateImages[0].TypeID)
	assert.True(t, arrayed)

	require.Len(t, res.SeparateSamplers, 1)
	require.Len(t, res.AccelerationStructures, 1)
	assert.Equal(t, uint32(7), res.AccelerationStructures[0].Binding)

	require.Len(t, res.PushConstantBuffers, 1)
	assert.Equal(t, "Push", res.PushConstantBuffers[0].Name)
	assert.Equal(t, spirv.ResourcePushConstant, res.PushConstantBuffers[0].Kind)
}

func TestResourcesStageInterfaceSkipsBuiltIns(t *testing.T) {
	b := spirvtest.New()
	f32 := b.TypeFloat(32)
	vec3 := b.TypeVector(f32, 3)
	vec4 := b.TypeVector(f32, 4)

	b.Interface("inNormal", spirv.StorageClassInput, vec3, 1)
	b.Interface("inPos", spirv.StorageClassInput, vec3, 0)

	vertexID := b.Variable(spirv.StorageClassInput, b.TypeInt(32, true))
	b.Decorate(vertexID, spirv.DecorationBuiltIn, 42)

	perVertex := b.TypeStruct(vec4)
	b.MemberDecorate(perVertex, 0, spirv.DecorationBuiltIn, 0)
	b.Variable(spirv.StorageClassOutput, perVertex)

	b.Interface("outColor", spirv.StorageClassOutput, vec4, 0)

	m, err := spirv.Parse(b.Words())
	require.NoError(t, err)
	res := m.Resources()

	require.Len(t, res.StageInputs, 2)
	assert.Equal(t, "inNormal", res.StageInputs[0].Name)
	assert.Equal(t, uint32(1), res.StageInputs[0].Location)
	require.Len(t, res.StageOutputs, 1)
	assert.Equal(t, "outColor", res.StageOutputs[0].Name)
}

func TestResourcesArraySize(t *testing.T) {
	b := spirvtest.New()
	f32 := b.TypeFloat(32)
	img := b.TypeSampledImage(b.TypeImage(f32, spirv.Dim2D, false, 1))
	b.Resource("textures", spirv.StorageClassUniformConstant, b.TypeArray(img, 4), 0)

	m, err := spirv.Parse(b.Words())
	require.NoError(t, err)
	res := m.Resources()

	require.Len(t, res.SampledImages, 1)
	assert.Equal(t, uint32(4), res.SampledImages[0].ArraySize)
	assert.Equal(t, spirv.ResourceSampledImage, res.SampledImages[0].Kind)
}

func TestMembers(t *testing.T) {
	b := spirvtest.New()
	f32 := b.TypeFloat(32)
	vec2 := b.TypeVector(f32, 2)
	s := b.Struct("Light", spirvtest.Field{Name: "dir", Type: vec2}, spirvtest.Field{Name: "power", Type: f32, Offset: 8})

	m, err := spirv.Parse(b.Words())
	require.NoError(t, err)

	members := m.Members(s)
	require.Len(t, members, 2)
	assert.Equal(t, "dir", members[0].Name)
	assert.Equal(t, uint32(8), members[1].Offset)
	assert.Equal(t, f32, members[1].TypeID)
	assert.Equal(t, uint32(12), m.Size(s))
	assert.Nil(t, m.Members(f32))
}

func TestResourcesSubpassInputs(t *testing.T) {
	b := spirvtest.New()
	f32 := b.TypeFloat(32)
	b.Resource("gbuffer", spirv.StorageClassUniformConstant, b.TypeImage(f32, spirv.DimSubpassData, false, 2), 0)
	b.Resource("target", spirv.StorageClassUniformConstant, b.TypeImage(f32, spirv.Dim2D, false, 2), 1)

	m, err := spirv.Parse(b.Words())
	require.NoError(t, err)
	res := m.Resources()

	require.Len(t, res.SubpassInputs, 1)
	assert.Equal(t, "gbuffer", res.SubpassInputs[0].Name)
	assert.Equal(t, spirv.ResourceSubpassInput, res.SubpassInputs[0].Kind)
	assert.Equal(t, "subpass input", res.SubpassInputs[0].Kind.String())
	require.Len(t, res.StorageImages, 1)
	assert.Empty(t, res.SeparateImages)
}
