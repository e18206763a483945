package graphics

import (
	"log/slog"
	"sort"

	"github.com/pkg/errors"

	"dynamik/spirv"
)

// ReflectionDigest is the resource contract of one shader stage.
type ReflectionDigest struct {
	Uniforms         []*Uniform
	InputAttributes  []ShaderAttribute
	OutputAttributes []ShaderAttribute
}

// Reflect derives the uniforms and stage attributes of SPIR-V bytecode.
// Other code types are logged and yield an empty digest with ErrUnsupported.
//
// Uniforms are listed by kind in a fixed order: uniform buffers, storage
// buffers, storage images, sampled images, separate images, separate
// samplers, acceleration structures and push constant blocks. Within a kind
// they keep declaration order. Blocks and push constants are initialized.
func Reflect(code *ShaderCode) (ReflectionDigest, error) {
	log := Logger().With(slog.String("shader", code.Path), slog.String("stage", code.Location.String()))
	if code.Type != ShaderCodeTypeSPIRV {
		log.Error("reflection is only supported for SPIR-V", slog.String("type", code.Type.String()))
		return ReflectionDigest{}, errors.Wrapf(ErrUnsupported, "reflect %s", code.Type)
	}
	m, err := spirv.Parse(code.Words())
	if err != nil {
		log.Error("failed to parse SPIR-V", slog.Any("err", err))
		return ReflectionDigest{}, errors.Wrapf(ErrInvalidBytecode, "reflect: %v", err)
	}

	r := reflector{module: m, location: code.Location, bindings: make(map[uint32]string)}
	res := m.Resources()
	steps := []struct {
		list []spirv.Resource
		typ  UniformType
		init bool
	}{
		{res.UniformBuffers, UniformTypeUniformBuffer, true},
		{res.StorageBuffers, UniformTypeStorageBuffer, true},
		{res.StorageImages, UniformTypeStorageImage, false},
		{res.SampledImages, UniformTypeSampler2D, false},
		{res.SeparateImages, UniformTypeSampler2D, false},
		{res.SeparateSamplers, UniformTypeSampler2D, false},
		{res.AccelerationStructures, UniformTypeAccelerationStructure, true},
		{res.SubpassInputs, UniformTypeInputAttachment, false},
		{res.PushConstantBuffers, UniformTypeConstant, true},
	}
	var digest ReflectionDigest
	for _, step := range steps {
		for _, rsc := range step.list {
			u, err := r.uniform(rsc, step.typ, step.init)
			if err != nil {
				log.Error("failed to reflect uniform", slog.String("uniform", rsc.Name), slog.Any("err", err))
				return ReflectionDigest{}, err
			}
			digest.Uniforms = append(digest.Uniforms, u)
		}
	}
	digest.InputAttributes = r.attributes(res.StageInputs)
	digest.OutputAttributes = r.attributes(res.StageOutputs)

	log.Debug("reflected shader",
		slog.Int("uniforms", len(digest.Uniforms)),
		slog.Int("inputs", len(digest.InputAttributes)),
		slog.Int("outputs", len(digest.OutputAttributes)))
	return digest, nil
}

type reflector struct {
	module   *spirv.Module
	location ShaderLocation
	bindings map[uint32]string
}

func (r *reflector) uniform(rsc spirv.Resource, typ UniformType, init bool) (*Uniform, error) {
	if typ == UniformTypeSampler2D {
		typ = r.samplerType(rsc.TypeID)
	}
	if typ != UniformTypeConstant {
		if prev, ok := r.bindings[rsc.Binding]; ok {
			return nil, errors.Wrapf(ErrDuplicateBinding, "binding %d used by %q and %q", rsc.Binding, prev, rsc.Name)
		}
		r.bindings[rsc.Binding] = rsc.Name
	}

	u := NewUniform(rsc.Name, typ, rsc.Binding, r.location)
	for _, member := range r.module.Members(rsc.TypeID) {
		elemSize, layers := r.memberLayout(member.TypeID)
		if err := u.AddAttribute(member.Name, elemSize, layers); err != nil {
			return nil, err
		}
	}
	if init {
		if err := u.Initialize(); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (r *reflector) samplerType(id uint32) UniformType {
	dim, arrayed := r.module.ImageInfo(id)
	switch {
	case dim == spirv.DimCube && arrayed:
		return UniformTypeSamplerCubeArray
	case dim == spirv.DimCube:
		return UniformTypeSamplerCube
	case arrayed:
		return UniformTypeSampler2DArray
	}
	return UniformTypeSampler2D
}

// memberLayout returns the element size and layer count of a block member.
// Arrays contribute one layer per element; runtime arrays have no fixed
// size and report zero layers.
func (r *reflector) memberLayout(id uint32) (uint32, uint32) {
	layers := uint32(1)
	if t, ok := r.module.Type(id); ok {
		switch t.Kind {
		case spirv.KindArray:
			layers = t.Count
			id = t.Elem
		case spirv.KindRuntimeArray:
			layers = 0
			id = t.Elem
		}
	}
	if t, ok := r.module.Type(id); ok && t.Kind == spirv.KindStruct {
		return r.module.Size(id), layers
	}
	s := r.module.Shape(id)
	return (s.Width / 8) * s.VecSize * s.Columns, layers
}

func (r *reflector) attributes(list []spirv.Resource) []ShaderAttribute {
	if len(list) == 0 {
		return nil
	}
	attrs := make([]ShaderAttribute, 0, len(list))
	for _, rsc := range list {
		s := r.module.Shape(rsc.TypeID)
		vec := s.VecSize
		if vec == 3 {
			vec = 4
		}
		attrs = append(attrs, ShaderAttribute{
			Name:        rsc.Name,
			Location:    rsc.Location,
			LayerCount:  s.Columns,
			Type:        DataTypeOf(s.Base == spirv.KindFloat, s.Signed, s.Width, s.VecSize, 1),
			ElementSize: (s.Width / 8) * vec,
		})
	}
	sort.SliceStable(attrs, func(i, j int) bool { return attrs[i].Location < attrs[j].Location })

	var offset uint32
	for i := range attrs {
		attrs[i].Offset = offset
		offset += attrs[i].Size()
	}
	return attrs
}

// ConstantRange is the packed placement of one push constant block.
type ConstantRange struct {
	Name     string
	Location ShaderLocation
	Offset   uint32
	Size     uint32
}

// PushConstantRanges packs every Constant uniform in order. Each block
// starts where the previous one ended.
func PushConstantRanges(uniforms []*Uniform) []ConstantRange {
	var ranges []ConstantRange
	var offset uint32
	for _, u := range uniforms {
		if u.Type != UniformTypeConstant {
			continue
		}
		size := uint32(u.Size())
		ranges = append(ranges, ConstantRange{
			Name:     u.Name,
			Location: u.Location,
			Offset:   offset,
			Size:     size,
		})
		offset += size
	}
	return ranges
}
