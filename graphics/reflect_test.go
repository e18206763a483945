package graphics_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dynamik/graphics"
	"dynamik/graphics/graphicstest"
	"dynamik/spirv"
	"dynamik/spirv/spirvtest"
)

// cameraVertexShader declares a uniform block with two vec4 members at
// binding 0, a vec3 input at location 0 and a vec4 output.
func cameraVertexShader() *spirvtest.Builder {
	b := spirvtest.New()
	f32 := b.TypeFloat(32)
	vec3 := b.TypeVector(f32, 3)
	vec4 := b.TypeVector(f32, 4)

	block := b.Struct("Camera",
		spirvtest.Field{Name: "eye", Type: vec4},
		spirvtest.Field{Name: "tint", Type: vec4, Offset: 16})
	b.Decorate(block, spirv.DecorationBlock)
	ubo := b.Resource("camera", spirv.StorageClassUniform, block, 0)

	in := b.Interface("inPosition", spirv.StorageClassInput, vec3, 0)
	out := b.Interface("outColor", spirv.StorageClassOutput, vec4, 0)
	b.EntryPoint(spirv.ExecutionModelVertex, "main", ubo, in, out)
	return b
}

func writeShader(t *testing.T, b *spirvtest.Builder) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shader.vert.spv")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
	return path
}

func TestReflectCameraVertexShader(t *testing.T) {
	var code graphics.ShaderCode
	require.NoError(t, code.LoadCode(writeShader(t, cameraVertexShader()), graphics.ShaderCodeTypeSPIRV, graphics.ShaderLocationVertex))

	uniforms := code.Uniforms()
	require.Len(t, uniforms, 1)
	u := uniforms[0]
	assert.Equal(t, "camera", u.Name)
	assert.Equal(t, uint32(0), u.Binding)
	assert.Equal(t, graphics.UniformTypeUniformBuffer, u.Type)
	assert.Equal(t, graphics.ShaderLocationVertex, u.Location)
	assert.Len(t, u.Attributes(), 2)
	assert.Equal(t, uint64(32), u.Size())
	assert.True(t, u.IsInitialized())
	assert.Len(t, u.Bytes(), 32)

	inputs := code.InputAttributes()
	require.Len(t, inputs, 1)
	assert.Equal(t, uint32(0), inputs[0].Location)
	assert.Equal(t, "inPosition", inputs[0].Name)
	assert.Equal(t, uint32(16), inputs[0].Size())
	assert.Equal(t, graphics.DataTypeVec3, inputs[0].Type)

	require.Len(t, code.OutputAttributes(), 1)
	assert.Equal(t, uint32(16), code.OutputAttributes()[0].Size())
}

func TestReflectIsIdempotent(t *testing.T) {
	var code graphics.ShaderCode
	require.NoError(t, code.SetCode(cameraVertexShader().Words(), graphics.ShaderCodeTypeSPIRV, graphics.ShaderLocationVertex))
	first := code.Digest()

	require.NoError(t, code.PerformReflection())
	second := code.Digest()

	assert.Equal(t, first, second)
	assert.NotSame(t, first.Uniforms[0], second.Uniforms[0])
}

func TestReflectAttributesSortedByLocation(t *testing.T) {
	b := spirvtest.New()
	f32 := b.TypeFloat(32)
	vec2 := b.TypeVector(f32, 2)
	vec3 := b.TypeVector(f32, 3)
	mat4 := b.TypeMatrix(b.TypeVector(f32, 4), 4)
	b.Interface("inUV", spirv.StorageClassInput, vec2, 2)
	b.Interface("inInstance", spirv.StorageClassInput, mat4, 3)
	b.Interface("inPosition", spirv.StorageClassInput, vec3, 0)
	b.Interface("inNormal", spirv.StorageClassInput, vec3, 1)

	var code graphics.ShaderCode
	require.NoError(t, code.SetCode(b.Words(), graphics.ShaderCodeTypeSPIRV, graphics.ShaderLocationVertex))

	in := code.InputAttributes()
	require.Len(t, in, 4)
	names := []string{in[0].Name, in[1].Name, in[2].Name, in[3].Name}
	assert.Equal(t, []string{"inPosition", "inNormal", "inUV", "inInstance"}, names)

	assert.Equal(t, uint32(16), in[1].Offset)
	assert.Equal(t, uint32(32), in[2].Offset)
	assert.Equal(t, uint32(8), in[2].Size())
	assert.Equal(t, uint32(40), in[3].Offset)
	assert.Equal(t, uint32(4), in[3].LayerCount)
	assert.Equal(t, uint32(64), in[3].Size())
}

func TestReflectPushConstantPacking(t *testing.T) {
	b := spirvtest.New()
	f32 := b.TypeFloat(32)
	vec4 := b.TypeVector(f32, 4)
	mat4 := b.TypeMatrix(vec4, 4)

	sizes := []uint32{64, 16, 48}
	first := b.Struct("Transform", spirvtest.Field{Name: "model", Type: mat4})
	second := b.Struct("Material", spirvtest.Field{Name: "albedo", Type: vec4})
	third := b.Struct("Lights", spirvtest.Field{Name: "dirs", Type: b.TypeArray(vec4, 3)})
	for _, s := range []uint32{first, second, third} {
		b.Decorate(s, spirv.DecorationBlock)
		b.Variable(spirv.StorageClassPushConstant, s)
	}

	var code graphics.ShaderCode
	require.NoError(t, code.SetCode(b.Words(), graphics.ShaderCodeTypeSPIRV, graphics.ShaderLocationVertex))

	ranges := graphics.PushConstantRanges(code.Uniforms())
	require.Len(t, ranges, 3)
	var want uint32
	for i, r := range ranges {
		assert.Equal(t, sizes[i], r.Size, r.Name)
		assert.Equal(t, want, r.Offset, r.Name)
		if i > 0 {
			prev := ranges[i-1]
			assert.LessOrEqual(t, prev.Offset+prev.Size, r.Offset)
		}
		want += sizes[i]
	}
	for _, u := range code.Uniforms() {
		assert.Equal(t, graphics.UniformTypeConstant, u.Type)
		assert.True(t, u.IsInitialized())
	}
	lights, ok := code.Uniforms()[2].Attribute("dirs")
	require.True(t, ok)
	assert.Equal(t, uint32(3), lights.LayerCount)
}

func TestPushConstantRangesSkipDescriptors(t *testing.T) {
	vp := graphics.NewUniform("vp", graphics.UniformTypeConstant, 0, graphics.ShaderLocationVertex)
	require.NoError(t, vp.AddAttribute("m", 64, 1))
	ubo := graphics.NewUniform("ubo", graphics.UniformTypeUniformBuffer, 0, graphics.ShaderLocationVertex)
	require.NoError(t, ubo.AddAttribute("x", 16, 1))
	fp := graphics.NewUniform("fp", graphics.UniformTypeConstant, 0, graphics.ShaderLocationFragment)
	require.NoError(t, fp.AddAttribute("c", 16, 1))

	ranges := graphics.PushConstantRanges([]*graphics.Uniform{vp, ubo, fp})
	assert.Equal(t, []graphics.ConstantRange{
		{Name: "vp", Location: graphics.ShaderLocationVertex, Offset: 0, Size: 64},
		{Name: "fp", Location: graphics.ShaderLocationFragment, Offset: 64, Size: 16},
	}, ranges)
}

func TestReflectSamplerRefinement(t *testing.T) {
	b := spirvtest.New()
	f32 := b.TypeFloat(32)
	sampled := func(dim spirv.Dim, arrayed bool) uint32 {
		return b.TypeSampledImage(b.TypeImage(f32, dim, arrayed, 1))
	}
	b.Resource("albedo", spirv.StorageClassUniformConstant, sampled(spirv.Dim2D, false), 0)
	b.Resource("sky", spirv.StorageClassUniformConstant, sampled(spirv.DimCube, false), 1)
	b.Resource("layers", spirv.StorageClassUniformConstant, sampled(spirv.Dim2D, true), 2)
	b.Resource("probes", spirv.StorageClassUniformConstant, sampled(spirv.DimCube, true), 3)
	b.Resource("target", spirv.StorageClassUniformConstant, b.TypeImage(f32, spirv.Dim2D, false, 2), 4)
	b.Resource("tlas", spirv.StorageClassUniformConstant, b.TypeAccelerationStructure(), 5)

	var code graphics.ShaderCode
	require.NoError(t, code.SetCode(b.Words(), graphics.ShaderCodeTypeSPIRV, graphics.ShaderLocationFragment))

	var got []graphics.UniformType
	for _, u := range code.Uniforms() {
		got = append(got, u.Type)
	}
	// storage images are listed before sampled images
	assert.Equal(t, []graphics.UniformType{
		graphics.UniformTypeStorageImage,
		graphics.UniformTypeSampler2D,
		graphics.UniformTypeSamplerCube,
		graphics.UniformTypeSampler2DArray,
		graphics.UniformTypeSamplerCubeArray,
		graphics.UniformTypeAccelerationStructure,
	}, got)
}

func TestReflectDuplicateBinding(t *testing.T) {
	logs := graphicstest.CaptureLogs(t)

	b := spirvtest.New()
	f32 := b.TypeFloat(32)
	img := b.TypeSampledImage(b.TypeImage(f32, spirv.Dim2D, false, 1))
	b.Resource("a", spirv.StorageClassUniformConstant, img, 1)
	b.Resource("b", spirv.StorageClassUniformConstant, img, 1)

	var code graphics.ShaderCode
	err := code.SetCode(b.Words(), graphics.ShaderCodeTypeSPIRV, graphics.ShaderLocationFragment)
	assert.True(t, errors.Is(err, graphics.ErrDuplicateBinding))
	assert.Empty(t, code.Uniforms())
	assert.Equal(t, 1, logs.Count(slog.LevelError))
}

func TestReflectUnsupportedCodeType(t *testing.T) {
	logs := graphicstest.CaptureLogs(t)

	var code graphics.ShaderCode
	err := code.SetCode(cameraVertexShader().Words(), graphics.ShaderCodeTypeGLSL, graphics.ShaderLocationVertex)
	assert.True(t, errors.Is(err, graphics.ErrUnsupported))
	assert.Equal(t, graphics.ReflectionDigest{}, code.Digest())
	assert.NotEmpty(t, code.Words())
	assert.Equal(t, 1, logs.Count(slog.LevelError))
}

func TestReflectInvalidBytecode(t *testing.T) {
	logs := graphicstest.CaptureLogs(t)

	var code graphics.ShaderCode
	err := code.SetCode([]uint32{1, 2, 3, 4, 5}, graphics.ShaderCodeTypeSPIRV, graphics.ShaderLocationVertex)
	assert.True(t, errors.Is(err, graphics.ErrInvalidBytecode))
	assert.Empty(t, code.Uniforms())
	assert.Equal(t, 1, logs.Count(slog.LevelError))
}

func TestReflectMalformedModules(t *testing.T) {
	header := func(bound uint32) []uint32 { return []uint32{spirv.Magic, 0x00010000, 0, bound, 0} }
	op := func(op spirv.Op, n uint32) uint32 { return n<<16 | uint32(op) }
	input := uint32(spirv.StorageClassInput)
	tests := []struct {
		name string
		body []uint32
	}{
		{"cyclic vector input", []uint32{
			op(spirv.OpTypeVector, 4), 1, 1, 3,
			op(spirv.OpTypePointer, 4), 2, input, 1,
			op(spirv.OpVariable, 4), 2, 3, input,
		}},
		{"cyclic struct member", []uint32{
			op(spirv.OpTypeStruct, 3), 1, 1,
			op(spirv.OpTypePointer, 4), 2, uint32(spirv.StorageClassUniform), 1,
			op(spirv.OpVariable, 4), 2, 3, uint32(spirv.StorageClassUniform),
		}},
		{"truncated instruction", []uint32{op(spirv.OpTypeFloat, 4), 1}},
		{"zero word count", []uint32{op(spirv.OpTypeFloat, 0), 1, 32}},
		{"id outside bound", []uint32{op(spirv.OpTypeFloat, 3), 9, 32}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := graphicstest.CaptureLogs(t)

			var code graphics.ShaderCode
			err := code.SetCode(append(header(4), tt.body...), graphics.ShaderCodeTypeSPIRV, graphics.ShaderLocationVertex)
			assert.True(t, errors.Is(err, graphics.ErrInvalidBytecode), "got %v", err)
			assert.Equal(t, graphics.ReflectionDigest{}, code.Digest())
			assert.Equal(t, 1, logs.Count(slog.LevelError))
		})
	}
}

func TestReflectSubpassInput(t *testing.T) {
	b := spirvtest.New()
	b.Resource("gbuffer", spirv.StorageClassUniformConstant, b.TypeImage(b.TypeFloat(32), spirv.DimSubpassData, false, 2), 3)

	var code graphics.ShaderCode
	require.NoError(t, code.SetCode(b.Words(), graphics.ShaderCodeTypeSPIRV, graphics.ShaderLocationFragment))
	require.Len(t, code.Uniforms(), 1)
	u := code.Uniforms()[0]
	assert.Equal(t, graphics.UniformTypeInputAttachment, u.Type)
	assert.Equal(t, uint32(3), u.Binding)
	assert.Equal(t, "gbuffer", u.Name)
}

func TestLoadCodeMissingFile(t *testing.T) {
	logs := graphicstest.CaptureLogs(t)

	var code graphics.ShaderCode
	err := code.LoadCode(filepath.Join(t.TempDir(), "missing.spv"), graphics.ShaderCodeTypeSPIRV, graphics.ShaderLocationVertex)
	assert.Error(t, err)
	assert.Empty(t, code.Words())
	assert.Zero(t, code.Hash())
	assert.Equal(t, 1, logs.Count(slog.LevelError))
}

func TestLoadCodeOddLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odd.spv")
	require.NoError(t, os.WriteFile(path, []byte{3, 2, 35, 7, 0, 0}, 0o644))

	var code graphics.ShaderCode
	err := code.LoadCode(path, graphics.ShaderCodeTypeSPIRV, graphics.ShaderLocationVertex)
	assert.True(t, errors.Is(err, graphics.ErrInvalidBytecode))
	assert.Empty(t, code.Words())
}

func TestShaderCodeHashDependsOnWordsOnly(t *testing.T) {
	words := cameraVertexShader().Words()
	var a, b graphics.ShaderCode
	require.NoError(t, a.SetCode(words, graphics.ShaderCodeTypeSPIRV, graphics.ShaderLocationVertex))
	_ = b.SetCode(words, graphics.ShaderCodeTypeGLSL, graphics.ShaderLocationFragment)
	assert.Equal(t, a.Hash(), b.Hash())

	var c graphics.ShaderCode
	require.NoError(t, c.SetCode(append(words, 2<<16|uint32(spirv.OpTypeVoid), 99), graphics.ShaderCodeTypeSPIRV, graphics.ShaderLocationVertex))
	assert.NotEqual(t, a.Hash(), c.Hash())
}
