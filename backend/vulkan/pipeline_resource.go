package vulkan

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"

	"dynamik/graphics"
)

// PipelineResource owns one descriptor set laid out for the bindings of a
// pipeline. Every instance drawn with the pipeline updates and binds its
// own resource.
type PipelineResource struct {
	pipeline *GraphicsPipeline
	set      vk.DescriptorSet
}

// AllocateResources allocates n descriptor sets from a new pool sized for
// exactly n sets. The pool is released when the pipeline is destroyed. A
// pipeline without bindings returns resources without a set.
func (p *GraphicsPipeline) AllocateResources(n int) ([]*PipelineResource, error) {
	if p.destroyed {
		graphics.Logger().Warn("resource allocation on destroyed pipeline")
		return nil, errors.Wrap(graphics.ErrTerminated, "pipeline resources")
	}
	if n <= 0 {
		return nil, errors.Errorf("pipeline resources: invalid count %d", n)
	}
	out := make([]*PipelineResource, n)
	for i := range out {
		out[i] = &PipelineResource{pipeline: p}
	}
	if len(p.bindings) == 0 {
		return out, nil
	}

	drv, dev := p.device.driver, p.device.handle
	sizes := poolSizes(p.bindings)
	for i := range sizes {
		sizes[i].DescriptorCount *= uint32(n)
	}
	pool, err := drv.CreateDescriptorPool(dev, sizes, uint32(n))
	if err != nil {
		return nil, nativeError("vkCreateDescriptorPool", err)
	}
	p.pools = append(p.pools, pool)
	for _, res := range out {
		if res.set, err = drv.AllocateDescriptorSet(dev, pool, p.setLayout); err != nil {
			return nil, nativeError("vkAllocateDescriptorSets", err)
		}
	}
	graphics.Logger().Debug("allocated pipeline resources", slog.Int("count", n), slog.Int("bindings", len(p.bindings)))
	return out, nil
}

func (r *PipelineResource) DescriptorSet() vk.DescriptorSet { return r.set }

// SkippedBinding is a descriptor binding Update could not write.
type SkippedBinding struct {
	Binding uint32
	Type    vk.DescriptorType
	Reason  error
}

// SkippedBindingsError lists the bindings left unwritten by Update. It
// matches ErrMissingResource or ErrUnsupported when any skip had that reason.
type SkippedBindingsError struct {
	Bindings []SkippedBinding
}

func (e *SkippedBindingsError) Error() string {
	parts := make([]string, len(e.Bindings))
	for i, b := range e.Bindings {
		parts[i] = fmt.Sprintf("binding %d: %v", b.Binding, b.Reason)
	}
	return "skipped descriptor bindings: " + strings.Join(parts, "; ")
}

func (e *SkippedBindingsError) Is(target error) bool {
	for _, b := range e.Bindings {
		if b.Reason == target {
			return true
		}
	}
	return false
}

// Update writes buffers and textures into the descriptor set of r. Bindings
// are visited in ascending order; image bindings take the next texture and
// buffer bindings the next buffer. A binding with nothing left to bind, or
// of a kind that cannot be written, is logged and skipped while the others
// are still written in one batch.
func (r *PipelineResource) Update(buffers []*Buffer, textures []*Texture) error {
	p := r.pipeline
	if p.destroyed {
		graphics.Logger().Warn("update of destroyed pipeline")
		return errors.Wrap(graphics.ErrTerminated, "pipeline update")
	}
	var writes []vk.WriteDescriptorSet
	var skipped []SkippedBinding
	skip := func(b vk.DescriptorSetLayoutBinding, reason error, msg string) {
		graphics.Logger().Error(msg, slog.Uint64("binding", uint64(b.Binding)), slog.Int("type", int(b.DescriptorType)))
		skipped = append(skipped, SkippedBinding{Binding: b.Binding, Type: b.DescriptorType, Reason: reason})
	}
	var nextBuffer, nextTexture int

	for _, b := range p.bindings {
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          r.set,
			DstBinding:      b.Binding,
			DescriptorCount: 1,
			DescriptorType:  b.DescriptorType,
		}
		switch b.DescriptorType {
		case vk.DescriptorTypeSampler, vk.DescriptorTypeCombinedImageSampler,
			vk.DescriptorTypeSampledImage, vk.DescriptorTypeStorageImage:
			if nextTexture >= len(textures) || textures[nextTexture] == nil {
				nextTexture++
				skip(b, graphics.ErrMissingResource, "no texture left for binding")
				continue
			}
			info := textures[nextTexture].descriptorInfo()
			nextTexture++
			if b.DescriptorType == vk.DescriptorTypeStorageImage {
				info.ImageLayout = vk.ImageLayoutGeneral
			}
			write.PImageInfo = []vk.DescriptorImageInfo{info}
		case vk.DescriptorTypeUniformBuffer, vk.DescriptorTypeStorageBuffer,
			vk.DescriptorTypeUniformBufferDynamic, vk.DescriptorTypeStorageBufferDynamic:
			if nextBuffer >= len(buffers) || buffers[nextBuffer] == nil {
				nextBuffer++
				skip(b, graphics.ErrMissingResource, "no buffer left for binding")
				continue
			}
			write.PBufferInfo = []vk.DescriptorBufferInfo{buffers[nextBuffer].descriptorInfo()}
			nextBuffer++
		default:
			skip(b, graphics.ErrUnsupported, "unsupported feature")
			continue
		}
		writes = append(writes, write)
	}

	if len(writes) > 0 {
		p.device.driver.UpdateDescriptorSets(p.device.handle, writes)
	}
	if len(skipped) > 0 {
		return &SkippedBindingsError{Bindings: skipped}
	}
	return nil
}
