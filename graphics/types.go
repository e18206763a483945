package graphics

import "fmt"

// DataType is the element type of a shader attribute.
type DataType int

const (
	DataTypeUndefined DataType = iota
	DataTypeBool
	DataTypeInt32
	DataTypeUint32
	DataTypeFloat32
	DataTypeFloat64
	DataTypeVec2
	DataTypeVec3
	DataTypeVec4
	DataTypeIVec2
	DataTypeIVec3
	DataTypeIVec4
	DataTypeUVec2
	DataTypeUVec3
	DataTypeUVec4
	DataTypeDVec2
	DataTypeDVec3
	DataTypeDVec4
	DataTypeMat2
	DataTypeMat3
	DataTypeMat4
)

var dataTypeNames = [...]string{
	"Undefined", "Bool", "Int32", "Uint32", "Float32", "Float64",
	"Vec2", "Vec3", "Vec4", "IVec2", "IVec3", "IVec4",
	"UVec2", "UVec3", "UVec4", "DVec2", "DVec3", "DVec4",
	"Mat2", "Mat3", "Mat4",
}

func (d DataType) String() string {
	if d < 0 || int(d) >= len(dataTypeNames) {
		return fmt.Sprintf("DataType(%d)", int(d))
	}
	return dataTypeNames[d]
}

// Components returns the number of scalar components.
func (d DataType) Components() uint32 {
	switch d {
	case DataTypeBool, DataTypeInt32, DataTypeUint32, DataTypeFloat32, DataTypeFloat64:
		return 1
	case DataTypeVec2, DataTypeIVec2, DataTypeUVec2, DataTypeDVec2:
		return 2
	case DataTypeVec3, DataTypeIVec3, DataTypeUVec3, DataTypeDVec3:
		return 3
	case DataTypeVec4, DataTypeIVec4, DataTypeUVec4, DataTypeDVec4, DataTypeMat2:
		return 4
	case DataTypeMat3:
		return 9
	case DataTypeMat4:
		return 16
	}
	return 0
}

// Size returns the tightly packed byte size.
func (d DataType) Size() uint32 {
	switch d {
	case DataTypeFloat64, DataTypeDVec2, DataTypeDVec3, DataTypeDVec4:
		return 8 * d.Components()
	case DataTypeUndefined:
		return 0
	}
	return 4 * d.Components()
}

// DataTypeOf picks the element type for a numeric shape. Matrices are
// reported by column count, so a mat4 is DataTypeMat4 with one layer, while
// stage attributes use the column type with one layer per column.
func DataTypeOf(float, signed bool, width, vecSize, columns uint32) DataType {
	if columns > 1 && float && width == 32 && vecSize == columns {
		switch columns {
		case 2:
			return DataTypeMat2
		case 3:
			return DataTypeMat3
		case 4:
			return DataTypeMat4
		}
	}
	var scalar DataType
	var vectors [3]DataType
	switch {
	case float && width == 64:
		scalar, vectors = DataTypeFloat64, [3]DataType{DataTypeDVec2, DataTypeDVec3, DataTypeDVec4}
	case float:
		scalar, vectors = DataTypeFloat32, [3]DataType{DataTypeVec2, DataTypeVec3, DataTypeVec4}
	case signed:
		scalar, vectors = DataTypeInt32, [3]DataType{DataTypeIVec2, DataTypeIVec3, DataTypeIVec4}
	default:
		scalar, vectors = DataTypeUint32, [3]DataType{DataTypeUVec2, DataTypeUVec3, DataTypeUVec4}
	}
	if vecSize >= 2 && vecSize <= 4 {
		return vectors[vecSize-2]
	}
	return scalar
}

// ShaderLocation is the pipeline stage a shader or uniform belongs to.
type ShaderLocation int

const (
	ShaderLocationAll ShaderLocation = iota
	ShaderLocationVertex
	ShaderLocationTessellation
	ShaderLocationGeometry
	ShaderLocationFragment
	ShaderLocationCompute
	ShaderLocationAllGraphics
	ShaderLocationRayGen
	ShaderLocationAnyHit
	ShaderLocationClosestHit
	ShaderLocationMiss
	ShaderLocationIntersection
	ShaderLocationCallable
	ShaderLocationTask
	ShaderLocationMesh
)

var shaderLocationNames = [...]string{
	"All", "Vertex", "Tessellation", "Geometry", "Fragment", "Compute",
	"AllGraphics", "RayGen", "AnyHit", "ClosestHit", "Miss", "Intersection",
	"Callable", "Task", "Mesh",
}

func (l ShaderLocation) String() string {
	if l < 0 || int(l) >= len(shaderLocationNames) {
		return fmt.Sprintf("ShaderLocation(%d)", int(l))
	}
	return shaderLocationNames[l]
}

// ShaderCodeType tags the format of the words held by a ShaderCode.
type ShaderCodeType int

const (
	ShaderCodeTypeUndefined ShaderCodeType = iota
	ShaderCodeTypeSPIRV
	ShaderCodeTypeGLSL
	ShaderCodeTypeHLSL
)

func (t ShaderCodeType) String() string {
	switch t {
	case ShaderCodeTypeSPIRV:
		return "SPIR-V"
	case ShaderCodeTypeGLSL:
		return "GLSL"
	case ShaderCodeTypeHLSL:
		return "HLSL"
	}
	return "Undefined"
}

// UniformType is the descriptor kind of a Uniform.
type UniformType int

const (
	UniformTypeUndefined UniformType = iota
	UniformTypeUniformBuffer
	UniformTypeStorageBuffer
	UniformTypeUniformBufferDynamic
	UniformTypeStorageBufferDynamic
	UniformTypeUniformTexelBuffer
	UniformTypeStorageTexelBuffer
	UniformTypeInputAttachment
	UniformTypeStorageImage
	// UniformTypeConstant is a push constant block. It has no descriptor
	// binding.
	UniformTypeConstant
	UniformTypeSampler2D
	UniformTypeSamplerCube
	UniformTypeSampler2DArray
	UniformTypeSamplerCubeArray
	UniformTypeAccelerationStructure
)

var uniformTypeNames = [...]string{
	"Undefined", "UniformBuffer", "StorageBuffer", "UniformBufferDynamic",
	"StorageBufferDynamic", "UniformTexelBuffer", "StorageTexelBuffer",
	"InputAttachment", "StorageImage", "Constant", "Sampler2D", "SamplerCube",
	"Sampler2DArray", "SamplerCubeArray", "AccelerationStructure",
}

func (t UniformType) String() string {
	if t < 0 || int(t) >= len(uniformTypeNames) {
		return fmt.Sprintf("UniformType(%d)", int(t))
	}
	return uniformTypeNames[t]
}

// IsSampler reports whether the uniform binds an image through a sampler.
func (t UniformType) IsSampler() bool {
	switch t {
	case UniformTypeSampler2D, UniformTypeSamplerCube, UniformTypeSampler2DArray, UniformTypeSamplerCubeArray:
		return true
	}
	return false
}
