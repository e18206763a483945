package spirv

// ResourceKind groups interface variables the way a descriptor layout needs
// them.
type ResourceKind int

const (
	ResourceUniformBuffer ResourceKind = iota
	ResourceStorageBuffer
	ResourceStorageImage
	ResourceSampledImage
	ResourceSeparateImage
	ResourceSeparateSampler
	ResourceAccelerationStructure
	ResourceSubpassInput
	ResourcePushConstant
	ResourceStageInput
	ResourceStageOutput
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceUniformBuffer:
		return "uniform buffer"
	case ResourceStorageBuffer:
		return "storage buffer"
	case ResourceStorageImage:
		return "storage image"
	case ResourceSampledImage:
		return "sampled image"
	case ResourceSeparateImage:
		return "separate image"
	case ResourceSeparateSampler:
		return "separate sampler"
	case ResourceAccelerationStructure:
		return "acceleration structure"
	case ResourceSubpassInput:
		return "subpass input"
	case ResourcePushConstant:
		return "push constant"
	case ResourceStageInput:
		return "stage input"
	case ResourceStageOutput:
		return "stage output"
	}
	return "unknown"
}

// Resource is one interface variable of the module. TypeID is the variable's
// type with the pointer and any array levels removed; ArraySize is the length
// of the outermost array, zero when the variable is not an array.
type Resource struct {
	Kind       ResourceKind
	Name       string
	VariableID uint32
	TypeID     uint32
	Binding    uint32
	Set        uint32
	Location   uint32
	ArraySize  uint32
}

// Resources is the classified interface of a module. Every list keeps the
// declaration order of the variables.
type Resources struct {
	UniformBuffers         []Resource
	StorageBuffers         []Resource
	StorageImages          []Resource
	SampledImages          []Resource
	SeparateImages         []Resource
	SeparateSamplers       []Resource
	AccelerationStructures []Resource
	SubpassInputs          []Resource
	PushConstantBuffers    []Resource
	StageInputs            []Resource
	StageOutputs           []Resource
}

// Resources classifies every module scope variable. Built-in inputs and
// outputs such as gl_Position are not reported.
func (m *Module) Resources() Resources {
	var res Resources
	for _, v := range m.Variables {
		ptr, ok := m.types[v.Type]
		if !ok || ptr.Kind != KindPointer {
			continue
		}
		base, arraySize := m.stripArrays(ptr.Elem)
		if base == nil {
			continue
		}
		r := Resource{
			VariableID: v.ID,
			TypeID:     base.ID,
			Name:       m.names[v.ID],
			ArraySize:  arraySize,
		}
		r.Binding, _ = m.Decoration(v.ID, DecorationBinding)
		r.Set, _ = m.Decoration(v.ID, DecorationDescriptorSet)
		r.Location, _ = m.Decoration(v.ID, DecorationLocation)

		switch v.StorageClass {
		case StorageClassUniform:
			m.fallbackToTypeName(&r)
			if m.HasDecoration(base.ID, DecorationBufferBlock) {
				r.Kind = ResourceStorageBuffer
				res.StorageBuffers = append(res.StorageBuffers, r)
			} else {
				r.Kind = ResourceUniformBuffer
				res.UniformBuffers = append(res.UniformBuffers, r)
			}
		case StorageClassStorageBuffer:
			m.fallbackToTypeName(&r)
			r.Kind = ResourceStorageBuffer
			res.StorageBuffers = append(res.StorageBuffers, r)
		case StorageClassPushConstant:
			m.fallbackToTypeName(&r)
			r.Kind = ResourcePushConstant
			res.PushConstantBuffers = append(res.PushConstantBuffers, r)
		case StorageClassUniformConstant:
			switch base.Kind {
			case KindImage:
				switch {
				case base.Dim == DimSubpassData:
					r.Kind = ResourceSubpassInput
					res.SubpassInputs = append(res.SubpassInputs, r)
				case base.Sampled == imageStorage:
					r.Kind = ResourceStorageImage
					res.StorageImages = append(res.StorageImages, r)
				default:
					r.Kind = ResourceSeparateImage
					res.SeparateImages = append(res.SeparateImages, r)
				}
			case KindSampler:
				r.Kind = ResourceSeparateSampler
				res.SeparateSamplers = append(res.SeparateSamplers, r)
			case KindSampledImage:
				r.Kind = ResourceSampledImage
				res.SampledImages = append(res.SampledImages, r)
			case KindAccelerationStructure:
				r.Kind = ResourceAccelerationStructure
				res.AccelerationStructures = append(res.AccelerationStructures, r)
			}
		case StorageClassInput:
			if m.isBuiltIn(v.ID, base) {
				continue
			}
			r.Kind = ResourceStageInput
			res.StageInputs = append(res.StageInputs, r)
		case StorageClassOutput:
			if m.isBuiltIn(v.ID, base) {
				continue
			}
			r.Kind = ResourceStageOutput
			res.StageOutputs = append(res.StageOutputs, r)
		}
	}
	return res
}

// Blocks are often declared as instances without a name; use the block name.
func (m *Module) fallbackToTypeName(r *Resource) {
	if r.Name == "" {
		r.Name = m.names[r.TypeID]
	}
}

func (m *Module) stripArrays(id uint32) (*Type, uint32) {
	t, ok := m.types[id]
	if !ok {
		return nil, 0
	}
	var outer uint32
	first := true
	for t.Kind == KindArray || t.Kind == KindRuntimeArray {
		if first {
			outer = t.Count
			first = false
		}
		next, ok := m.types[t.Elem]
		if !ok {
			return nil, 0
		}
		t = next
	}
	return t, outer
}

func (m *Module) isBuiltIn(varID uint32, base *Type) bool {
	if m.HasDecoration(varID, DecorationBuiltIn) {
		return true
	}
	if base.Kind != KindStruct {
		return false
	}
	for i := range base.Members {
		if _, ok := m.MemberDecoration(base.ID, uint32(i), DecorationBuiltIn); ok {
			return true
		}
	}
	return false
}

// Shape describes the numeric layout of a type: scalar bit width, vector
// size and matrix column count. Non numeric types report a zero width.
type Shape struct {
	Base    TypeKind
	Width   uint32
	Signed  bool
	VecSize uint32
	Columns uint32
}

// Shape resolves the numeric shape of id. Arrays are not unwrapped.
func (m *Module) Shape(id uint32) Shape {
	t, ok := m.types[id]
	if !ok {
		return Shape{}
	}
	switch t.Kind {
	case KindBool, KindInt, KindFloat:
		return Shape{Base: t.Kind, Width: t.Width, Signed: t.Signed, VecSize: 1, Columns: 1}
	case KindVector:
		s := m.Shape(t.Elem)
		s.VecSize = t.Count
		return s
	case KindMatrix:
		s := m.Shape(t.Elem)
		s.Columns = t.Count
		return s
	}
	return Shape{Base: t.Kind}
}

// Member is one member of a struct type.
type Member struct {
	Index  uint32
	Name   string
	TypeID uint32
	Offset uint32
}

// Members lists the members of a struct type in declaration order.
func (m *Module) Members(structID uint32) []Member {
	t, ok := m.types[structID]
	if !ok || t.Kind != KindStruct {
		return nil
	}
	members := make([]Member, len(t.Members))
	for i, typeID := range t.Members {
		idx := uint32(i)
		off, _ := m.MemberDecoration(structID, idx, DecorationOffset)
		members[i] = Member{
			Index:  idx,
			Name:   m.MemberName(structID, idx),
			TypeID: typeID,
			Offset: off,
		}
	}
	return members
}

// ImageInfo returns the dimensionality and arrayed flag of an image, a
// sampled image or a separate sampler. Samplers report Dim2D.
func (m *Module) ImageInfo(id uint32) (Dim, bool) {
	t, ok := m.types[id]
	if !ok {
		return Dim2D, false
	}
	if t.Kind == KindSampledImage {
		if img, ok := m.types[t.Elem]; ok {
			t = img
		}
	}
	if t.Kind != KindImage {
		return Dim2D, false
	}
	return t.Dim, t.Arrayed
}

// Size returns the tightly packed byte size of a type. Struct sizes use the
// member offsets, so a block decorated with std140 offsets reports its padded
// size up to the end of the last member.
func (m *Module) Size(id uint32) uint32 {
	t, ok := m.types[id]
	if !ok {
		return 0
	}
	switch t.Kind {
	case KindBool, KindInt, KindFloat:
		return t.Width / 8
	case KindVector, KindMatrix, KindArray:
		return t.Count * m.Size(t.Elem)
	case KindStruct:
		var end, sum uint32
		for _, mem := range m.Members(id) {
			size := m.Size(mem.TypeID)
			sum += size
			if e := mem.Offset + size; e > end {
				end = e
			}
		}
		// structs without explicit layout are packed
		if end < sum {
			return sum
		}
		return end
	}
	return 0
}
