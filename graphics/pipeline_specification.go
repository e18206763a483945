package graphics

import (
	"hash/fnv"
)

// PipelineType selects the kind of native pipeline a specification builds.
type PipelineType int

const (
	PipelineTypeUndefined PipelineType = iota
	PipelineTypeGraphics
	PipelineTypeCompute
	PipelineTypeRayTracing
)

func (t PipelineType) String() string {
	switch t {
	case PipelineTypeUndefined:
		return "Undefined"
	case PipelineTypeGraphics:
		return "Graphics"
	case PipelineTypeCompute:
		return "Compute"
	case PipelineTypeRayTracing:
		return "RayTracing"
	}
	return "Unknown"
}

// PrimitiveTopology values follow the Vulkan enumeration order.
type PrimitiveTopology int

const (
	TopologyPointList PrimitiveTopology = iota
	TopologyLineList
	TopologyLineStrip
	TopologyTriangleList
	TopologyTriangleStrip
	TopologyTriangleFan
	TopologyLineListWithAdjacency
	TopologyLineStripWithAdjacency
	TopologyTriangleListWithAdjacency
	TopologyTriangleStripWithAdjacency
	TopologyPatchList
)

type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
	CullModeFrontAndBack
)

type FrontFace int

const (
	FrontFaceCounterClockwise FrontFace = iota
	FrontFaceClockwise
)

type PolygonMode int

const (
	PolygonModeFill PolygonMode = iota
	PolygonModeLine
	PolygonModePoint
	PolygonModeFillRectangle
)

// CompareOp values follow the Vulkan enumeration order.
type CompareOp int

const (
	CompareOpNever CompareOp = iota
	CompareOpLess
	CompareOpEqual
	CompareOpLessOrEqual
	CompareOpGreater
	CompareOpNotEqual
	CompareOpGreaterOrEqual
	CompareOpAlways
)

// LogicOp values follow the Vulkan enumeration order.
type LogicOp int

const (
	LogicOpClear LogicOp = iota
	LogicOpAnd
	LogicOpAndReverse
	LogicOpCopy
	LogicOpAndInverted
	LogicOpNoOp
	LogicOpXor
	LogicOpOr
	LogicOpNor
	LogicOpEquivalent
	LogicOpInvert
	LogicOpOrReverse
	LogicOpCopyInverted
	LogicOpOrInverted
	LogicOpNand
	LogicOpSet
)

type InputAssemblySpecification struct {
	Topology               PrimitiveTopology
	EnablePrimitiveRestart bool
}

type TessellationSpecification struct {
	ControlPointCount uint32
}

type RasterizerSpecification struct {
	LineWidth        float32
	DepthBiasFactor  float32
	DepthSlopeFactor float32
	DepthBiasClamp   float32
	CullMode         CullMode
	FrontFace        FrontFace
	PolygonMode      PolygonMode
	EnableDepthClamp bool
	EnableDepthBias  bool
	EnableDiscard    bool
}

type MultisamplingSpecification struct {
	SampleCount           uint32
	MinSampleShading      float32
	EnableSampleShading   bool
	EnableAlphaToCoverage bool
	EnableAlphaToOne      bool
}

type DepthStencilSpecification struct {
	MaxBound          float32
	MinBound          float32
	CompareOp         CompareOp
	EnableTest        bool
	EnableWrite       bool
	EnableStencilTest bool
	EnableBoundsTest  bool
}

type ColorBlendSpecification struct {
	BlendConstants [4]float32
	LogicOp        LogicOp
	EnableLogicOp  bool
	EnableBlend    bool
}

// Viewport is the region of the render target drawn to. A zero size means
// the full extent of the target.
type Viewport struct {
	XOffset float32
	YOffset float32
	Width   uint32
	Height  uint32
}

// RenderTargetHandle identifies a render target registered with a pipeline
// manager. Zero is no target.
type RenderTargetHandle uint64

// PipelineSpecification is everything that decides whether two pipeline
// requests can share one native pipeline.
type PipelineSpecification struct {
	Shaders      []*ShaderCode
	Type         PipelineType
	RenderTarget RenderTargetHandle
	Viewport     Viewport

	InputAssembly InputAssemblySpecification
	Tessellation  TessellationSpecification
	Rasterizer    RasterizerSpecification
	Multisampling MultisamplingSpecification
	DepthStencil  DepthStencilSpecification
	ColorBlend    ColorBlendSpecification
}

// NewPipelineSpecification returns a specification with the default fixed
// function state: triangle lists, no culling, counter clockwise front faces,
// filled polygons, one sample and a [0, 1] depth range compared with Less.
func NewPipelineSpecification(typ PipelineType, shaders ...*ShaderCode) PipelineSpecification {
	return PipelineSpecification{
		Shaders: shaders,
		Type:    typ,
		InputAssembly: InputAssemblySpecification{
			Topology: TopologyTriangleList,
		},
		Rasterizer: RasterizerSpecification{
			LineWidth:        1,
			DepthBiasFactor:  1,
			DepthSlopeFactor: 1,
			CullMode:         CullModeNone,
			FrontFace:        FrontFaceCounterClockwise,
			PolygonMode:      PolygonModeFill,
		},
		Multisampling: MultisamplingSpecification{
			SampleCount: 1,
		},
		DepthStencil: DepthStencilSpecification{
			MaxBound:  1,
			MinBound:  0,
			CompareOp: CompareOpLess,
		},
		ColorBlend: ColorBlendSpecification{
			LogicOp: LogicOpCopy,
		},
	}
}

// Equal compares every field. Shaders are compared pairwise by content hash,
// code type and stage. Floats are compared exactly, so state derived along
// two different arithmetic paths may not match.
func (s PipelineSpecification) Equal(o PipelineSpecification) bool {
	if len(s.Shaders) != len(o.Shaders) {
		return false
	}
	for i := range s.Shaders {
		a, b := s.Shaders[i], o.Shaders[i]
		if a == b {
			continue
		}
		if a == nil || b == nil {
			return false
		}
		if a.Hash() != b.Hash() || a.Type != b.Type || a.Location != b.Location {
			return false
		}
	}
	// every remaining field is comparable
	return s.Type == o.Type &&
		s.RenderTarget == o.RenderTarget &&
		s.Viewport == o.Viewport &&
		s.InputAssembly == o.InputAssembly &&
		s.Tessellation == o.Tessellation &&
		s.Rasterizer == o.Rasterizer &&
		s.Multisampling == o.Multisampling &&
		s.DepthStencil == o.DepthStencil &&
		s.ColorBlend == o.ColorBlend
}

// Hash covers only the shader content hashes and the pipeline type. It is a
// function of a subset of the fields Equal compares, so equal specifications
// always hash equal while specifications differing only in fixed function
// state collide.
func (s PipelineSpecification) Hash() uint64 {
	h := fnv.New64a()
	for _, sh := range s.Shaders {
		var sum uint64
		if sh != nil {
			sum = sh.Hash()
		}
		hashWriteUint64(h, sum)
	}
	hashWriteUint32(h, uint32(s.Type))
	return h.Sum64()
}

// Stage returns the first shader for a stage.
func (s PipelineSpecification) Stage(location ShaderLocation) (*ShaderCode, bool) {
	for _, sh := range s.Shaders {
		if sh != nil && sh.Location == location {
			return sh, true
		}
	}
	return nil, false
}
