package vulkan

import (
	vk "github.com/goki/vulkan"

	"dynamik/graphics"
)

// Extension values the bindings do not name.
const (
	descriptorTypeAccelerationStructure = vk.DescriptorType(1000150000)
	polygonModeFillRectangle            = vk.PolygonMode(1000153000)

	stageRaygen       = 0x100
	stageAnyHit       = 0x200
	stageClosestHit   = 0x400
	stageMiss         = 0x800
	stageIntersection = 0x1000
	stageCallable     = 0x2000
	stageTask         = 0x40
	stageMesh         = 0x80
)

// descriptorType maps a uniform kind to its descriptor type. Every sampler
// kind binds as a combined image sampler. Constants have no descriptor.
func descriptorType(t graphics.UniformType) (vk.DescriptorType, bool) {
	switch t {
	case graphics.UniformTypeUniformBuffer:
		return vk.DescriptorTypeUniformBuffer, true
	case graphics.UniformTypeStorageBuffer:
		return vk.DescriptorTypeStorageBuffer, true
	case graphics.UniformTypeUniformBufferDynamic:
		return vk.DescriptorTypeUniformBufferDynamic, true
	case graphics.UniformTypeStorageBufferDynamic:
		return vk.DescriptorTypeStorageBufferDynamic, true
	case graphics.UniformTypeUniformTexelBuffer:
		return vk.DescriptorTypeUniformTexelBuffer, true
	case graphics.UniformTypeStorageTexelBuffer:
		return vk.DescriptorTypeStorageTexelBuffer, true
	case graphics.UniformTypeInputAttachment:
		return vk.DescriptorTypeInputAttachment, true
	case graphics.UniformTypeStorageImage:
		return vk.DescriptorTypeStorageImage, true
	case graphics.UniformTypeSampler2D, graphics.UniformTypeSamplerCube,
		graphics.UniformTypeSampler2DArray, graphics.UniformTypeSamplerCubeArray:
		return vk.DescriptorTypeCombinedImageSampler, true
	case graphics.UniformTypeAccelerationStructure:
		return descriptorTypeAccelerationStructure, true
	}
	return 0, false
}

func shaderStage(l graphics.ShaderLocation) vk.ShaderStageFlags {
	switch l {
	case graphics.ShaderLocationAll:
		return vk.ShaderStageFlags(vk.ShaderStageAll)
	case graphics.ShaderLocationVertex:
		return vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	case graphics.ShaderLocationTessellation:
		return vk.ShaderStageFlags(vk.ShaderStageTessellationControlBit | vk.ShaderStageTessellationEvaluationBit)
	case graphics.ShaderLocationGeometry:
		return vk.ShaderStageFlags(vk.ShaderStageGeometryBit)
	case graphics.ShaderLocationFragment:
		return vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	case graphics.ShaderLocationCompute:
		return vk.ShaderStageFlags(vk.ShaderStageComputeBit)
	case graphics.ShaderLocationAllGraphics:
		return vk.ShaderStageFlags(vk.ShaderStageAllGraphics)
	case graphics.ShaderLocationRayGen:
		return stageRaygen
	case graphics.ShaderLocationAnyHit:
		return stageAnyHit
	case graphics.ShaderLocationClosestHit:
		return stageClosestHit
	case graphics.ShaderLocationMiss:
		return stageMiss
	case graphics.ShaderLocationIntersection:
		return stageIntersection
	case graphics.ShaderLocationCallable:
		return stageCallable
	case graphics.ShaderLocationTask:
		return stageTask
	case graphics.ShaderLocationMesh:
		return stageMesh
	}
	return 0
}

// pipelineStage is the single stage bit a shader module is attached with.
// Tessellation code is bound as the control stage.
func pipelineStage(l graphics.ShaderLocation) vk.ShaderStageFlagBits {
	if l == graphics.ShaderLocationTessellation {
		return vk.ShaderStageTessellationControlBit
	}
	return vk.ShaderStageFlagBits(shaderStage(l))
}

// vertexFormat is the attribute format of one layer of t.
func vertexFormat(t graphics.DataType) vk.Format {
	switch t {
	case graphics.DataTypeBool, graphics.DataTypeUint32:
		return vk.FormatR32Uint
	case graphics.DataTypeInt32:
		return vk.FormatR32Sint
	case graphics.DataTypeFloat32:
		return vk.FormatR32Sfloat
	case graphics.DataTypeFloat64:
		return vk.FormatR64Sfloat
	case graphics.DataTypeVec2, graphics.DataTypeMat2:
		return vk.FormatR32g32Sfloat
	case graphics.DataTypeVec3, graphics.DataTypeMat3:
		return vk.FormatR32g32b32Sfloat
	case graphics.DataTypeVec4, graphics.DataTypeMat4:
		return vk.FormatR32g32b32a32Sfloat
	case graphics.DataTypeIVec2:
		return vk.FormatR32g32Sint
	case graphics.DataTypeIVec3:
		return vk.FormatR32g32b32Sint
	case graphics.DataTypeIVec4:
		return vk.FormatR32g32b32a32Sint
	case graphics.DataTypeUVec2:
		return vk.FormatR32g32Uint
	case graphics.DataTypeUVec3:
		return vk.FormatR32g32b32Uint
	case graphics.DataTypeUVec4:
		return vk.FormatR32g32b32a32Uint
	case graphics.DataTypeDVec2:
		return vk.FormatR64g64Sfloat
	case graphics.DataTypeDVec3:
		return vk.FormatR64g64b64Sfloat
	case graphics.DataTypeDVec4:
		return vk.FormatR64g64b64a64Sfloat
	}
	return vk.FormatUndefined
}

func polygonMode(m graphics.PolygonMode) vk.PolygonMode {
	switch m {
	case graphics.PolygonModeLine:
		return vk.PolygonModeLine
	case graphics.PolygonModePoint:
		return vk.PolygonModePoint
	case graphics.PolygonModeFillRectangle:
		return polygonModeFillRectangle
	}
	return vk.PolygonModeFill
}

// sampleCount rounds n down to a supported power of two.
func sampleCount(n uint32) vk.SampleCountFlagBits {
	switch {
	case n >= 64:
		return vk.SampleCount64Bit
	case n >= 32:
		return vk.SampleCount32Bit
	case n >= 16:
		return vk.SampleCount16Bit
	case n >= 8:
		return vk.SampleCount8Bit
	case n >= 4:
		return vk.SampleCount4Bit
	case n >= 2:
		return vk.SampleCount2Bit
	}
	return vk.SampleCount1Bit
}

func bool32(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}
