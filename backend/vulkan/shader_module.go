package vulkan

import (
	"log/slog"
	"sort"

	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"

	"dynamik/graphics"
)

// ShaderModule is the native layout contract of one shader stage: its
// descriptor bindings, pool sizes, push constant ranges and, for the vertex
// stage, the vertex input description.
type ShaderModule struct {
	Code  *graphics.ShaderCode
	Stage vk.ShaderStageFlagBits

	Bindings         []vk.DescriptorSetLayoutBinding
	PoolSizes        []vk.DescriptorPoolSize
	PushConstants    []vk.PushConstantRange
	VertexBindings   []vk.VertexInputBindingDescription
	VertexAttributes []vk.VertexInputAttributeDescription

	handle vk.ShaderModule
}

// DeriveShaderModule builds the layout contract of code from its reflected
// uniforms and attributes. Push constant ranges start at pushOffset; the
// offset after the last range is returned so stages can be chained.
func DeriveShaderModule(code *graphics.ShaderCode, pushOffset uint32) (ShaderModule, uint32, error) {
	m := ShaderModule{Code: code, Stage: pipelineStage(code.Location)}
	stage := shaderStage(code.Location)
	seen := make(map[uint32]string)
	counts := make(map[vk.DescriptorType]uint32)
	var order []vk.DescriptorType

	for _, u := range code.Uniforms() {
		if u.Type == graphics.UniformTypeConstant {
			size := uint32(u.Size())
			m.PushConstants = append(m.PushConstants, vk.PushConstantRange{
				StageFlags: stage,
				Offset:     pushOffset,
				Size:       size,
			})
			pushOffset += size
			continue
		}
		typ, ok := descriptorType(u.Type)
		if !ok {
			graphics.Logger().Warn("uniform has no descriptor type", slog.String("uniform", u.Name), slog.String("type", u.Type.String()))
			continue
		}
		if prev, dup := seen[u.Binding]; dup {
			return ShaderModule{}, pushOffset, errors.Wrapf(graphics.ErrDuplicateBinding,
				"%s stage binding %d used by %q and %q", code.Location, u.Binding, prev, u.Name)
		}
		seen[u.Binding] = u.Name
		m.Bindings = append(m.Bindings, vk.DescriptorSetLayoutBinding{
			Binding:         u.Binding,
			DescriptorType:  typ,
			DescriptorCount: 1,
			StageFlags:      stage,
		})
		if counts[typ] == 0 {
			order = append(order, typ)
		}
		counts[typ]++
	}
	for _, typ := range order {
		m.PoolSizes = append(m.PoolSizes, vk.DescriptorPoolSize{Type: typ, DescriptorCount: counts[typ]})
	}

	if code.Location == graphics.ShaderLocationVertex {
		m.VertexBindings, m.VertexAttributes = vertexInput(code.InputAttributes())
	}
	return m, pushOffset, nil
}

// vertexInput describes one interleaved vertex buffer at binding 0. A
// matrix input takes one location per column.
func vertexInput(attrs []graphics.ShaderAttribute) ([]vk.VertexInputBindingDescription, []vk.VertexInputAttributeDescription) {
	if len(attrs) == 0 {
		return nil, nil
	}
	var stride uint32
	var descs []vk.VertexInputAttributeDescription
	for _, a := range attrs {
		for l := uint32(0); l < a.LayerCount; l++ {
			descs = append(descs, vk.VertexInputAttributeDescription{
				Location: a.Location + l,
				Binding:  0,
				Format:   vertexFormat(a.Type),
				Offset:   a.Offset + l*a.ElementSize,
			})
		}
		stride += a.Size()
	}
	binding := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    stride,
		InputRate: vk.VertexInputRateVertex,
	}
	return []vk.VertexInputBindingDescription{binding}, descs
}

// mergeBindings joins the bindings of every stage by binding number, OR-ing
// the stage flags, and sorts them ascending. Two stages declaring different
// descriptor types at one binding is an error.
func mergeBindings(modules []ShaderModule) ([]vk.DescriptorSetLayoutBinding, error) {
	index := make(map[uint32]int)
	var merged []vk.DescriptorSetLayoutBinding
	for _, m := range modules {
		for _, b := range m.Bindings {
			i, ok := index[b.Binding]
			if !ok {
				index[b.Binding] = len(merged)
				merged = append(merged, b)
				continue
			}
			if merged[i].DescriptorType != b.DescriptorType {
				return nil, errors.Wrapf(graphics.ErrDuplicateBinding,
					"binding %d declared as descriptor types %d and %d", b.Binding, merged[i].DescriptorType, b.DescriptorType)
			}
			merged[i].StageFlags |= b.StageFlags
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Binding < merged[j].Binding })
	return merged, nil
}

// poolSizes counts descriptors per type over merged bindings.
func poolSizes(bindings []vk.DescriptorSetLayoutBinding) []vk.DescriptorPoolSize {
	var sizes []vk.DescriptorPoolSize
	for _, b := range bindings {
		found := false
		for i := range sizes {
			if sizes[i].Type == b.DescriptorType {
				sizes[i].DescriptorCount += b.DescriptorCount
				found = true
				break
			}
		}
		if !found {
			sizes = append(sizes, vk.DescriptorPoolSize{Type: b.DescriptorType, DescriptorCount: b.DescriptorCount})
		}
	}
	return sizes
}
