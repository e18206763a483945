// Package spirv decodes the parts of a SPIR-V module needed to reflect the
// resource interface of a shader: types, names, decorations and the global
// variables they describe.
//
// Only the logical layout section of the module is interpreted. Function
// bodies are skipped instruction by instruction without validation.
package spirv

// Magic is the first word of every SPIR-V module.
const Magic uint32 = 0x07230203

// HeaderWords is the size of the module header in words.
const HeaderWords = 5

// Op is a SPIR-V instruction opcode.
type Op uint16

const (
	OpName                         Op = 5
	OpMemberName                   Op = 6
	OpEntryPoint                   Op = 15
	OpTypeVoid                     Op = 19
	OpTypeBool                     Op = 20
	OpTypeInt                      Op = 21
	OpTypeFloat                    Op = 22
	OpTypeVector                   Op = 23
	OpTypeMatrix                   Op = 24
	OpTypeImage                    Op = 25
	OpTypeSampler                  Op = 26
	OpTypeSampledImage             Op = 27
	OpTypeArray                    Op = 28
	OpTypeRuntimeArray             Op = 29
	OpTypeStruct                   Op = 30
	OpTypePointer                  Op = 32
	OpTypeFunction                 Op = 33
	OpConstant                     Op = 43
	OpFunction                     Op = 54
	OpVariable                     Op = 59
	OpDecorate                     Op = 71
	OpMemberDecorate               Op = 72
	OpTypeAccelerationStructureKHR Op = 5341
)

// Decoration is a SPIR-V decoration id.
type Decoration uint32

const (
	DecorationBlock         Decoration = 2
	DecorationBufferBlock   Decoration = 3
	DecorationBuiltIn       Decoration = 11
	DecorationLocation      Decoration = 30
	DecorationBinding       Decoration = 33
	DecorationDescriptorSet Decoration = 34
	DecorationOffset        Decoration = 35
)

// StorageClass is the SPIR-V storage class of a pointer or variable.
type StorageClass uint32

const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassPushConstant    StorageClass = 9
	StorageClassStorageBuffer   StorageClass = 12
)

// ExecutionModel identifies the stage an entry point runs in.
type ExecutionModel uint32

const (
	ExecutionModelVertex                 ExecutionModel = 0
	ExecutionModelTessellationControl    ExecutionModel = 1
	ExecutionModelTessellationEvaluation ExecutionModel = 2
	ExecutionModelGeometry               ExecutionModel = 3
	ExecutionModelFragment               ExecutionModel = 4
	ExecutionModelGLCompute              ExecutionModel = 5
	ExecutionModelTaskEXT                ExecutionModel = 5364
	ExecutionModelMeshEXT                ExecutionModel = 5365
	ExecutionModelRayGenerationKHR       ExecutionModel = 5313
	ExecutionModelIntersectionKHR        ExecutionModel = 5314
	ExecutionModelAnyHitKHR              ExecutionModel = 5315
	ExecutionModelClosestHitKHR          ExecutionModel = 5316
	ExecutionModelMissKHR                ExecutionModel = 5317
	ExecutionModelCallableKHR            ExecutionModel = 5318
)

// Dim is the dimensionality of an image type.
type Dim uint32

const (
	Dim1D          Dim = 0
	Dim2D          Dim = 1
	Dim3D          Dim = 2
	DimCube        Dim = 3
	DimRect        Dim = 4
	DimBuffer      Dim = 5
	DimSubpassData Dim = 6
)

// Image "Sampled" operand values.
const (
	imageSampledUnknown = 0
	imageSampled        = 1
	imageStorage        = 2
)
