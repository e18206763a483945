package vulkan

import (
	"log/slog"

	"github.com/pkg/errors"

	vk "github.com/goki/vulkan"

	"dynamik/graphics"
)

const entryPoint = "main\x00"

// GraphicsPipeline is a native graphics pipeline with its layout and the
// descriptor set layout covering the bindings of every stage. Descriptor
// sets are owned by the PipelineResources allocated from it, so pipelines
// shared through a cache never share bound resources.
type GraphicsPipeline struct {
	device *Device
	target *RenderTarget
	spec   graphics.PipelineSpecification

	bindings      []vk.DescriptorSetLayoutBinding
	pushConstants []vk.PushConstantRange
	vertexStride  uint32

	setLayout vk.DescriptorSetLayout
	layout    vk.PipelineLayout
	pools     []vk.DescriptorPool
	handle    vk.Pipeline
	destroyed bool
}

// newGraphicsPipeline builds every native object for spec. Shader modules
// only live for the duration of the call.
func newGraphicsPipeline(device *Device, target *RenderTarget, spec graphics.PipelineSpecification) (*GraphicsPipeline, error) {
	p := &GraphicsPipeline{device: device, target: target, spec: spec}
	drv, dev := device.driver, device.handle

	modules := make([]ShaderModule, 0, len(spec.Shaders))
	defer func() {
		for _, m := range modules {
			if m.handle != nil {
				drv.DestroyShaderModule(dev, m.handle)
			}
		}
	}()
	var pushOffset uint32
	for i, code := range spec.Shaders {
		if code == nil {
			return nil, errors.Errorf("pipeline: shader %d is nil", i)
		}
		m, next, err := DeriveShaderModule(code, pushOffset)
		if err != nil {
			graphics.Logger().Error("failed to derive shader module", slog.String("stage", code.Location.String()), slog.Any("err", err))
			return nil, err
		}
		pushOffset = next
		m.handle, err = drv.CreateShaderModule(dev, code.Words())
		if err != nil {
			return nil, nativeError("vkCreateShaderModule", err)
		}
		modules = append(modules, m)
		p.pushConstants = append(p.pushConstants, m.PushConstants...)
		if len(m.VertexBindings) > 0 {
			p.vertexStride = m.VertexBindings[0].Stride
		}
	}

	var err error
	if p.bindings, err = mergeBindings(modules); err != nil {
		graphics.Logger().Error("conflicting descriptor bindings", slog.Any("err", err))
		return nil, err
	}
	if err := p.createLayouts(); err != nil {
		p.Destroy()
		return nil, err
	}
	if p.handle, err = drv.CreateGraphicsPipeline(dev, p.createInfo(modules)); err != nil {
		p.Destroy()
		return nil, nativeError("vkCreateGraphicsPipelines", err)
	}
	graphics.Logger().Debug("created graphics pipeline",
		slog.Int("stages", len(modules)),
		slog.Int("bindings", len(p.bindings)),
		slog.Int("push_constants", len(p.pushConstants)))
	return p, nil
}

func (p *GraphicsPipeline) createLayouts() error {
	drv, dev := p.device.driver, p.device.handle
	setLayout, err := drv.CreateDescriptorSetLayout(dev, p.bindings)
	if err != nil {
		return nativeError("vkCreateDescriptorSetLayout", err)
	}
	p.setLayout = setLayout
	info := &vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{setLayout},
		PushConstantRangeCount: uint32(len(p.pushConstants)),
		PPushConstantRanges:    p.pushConstants,
	}
	layout, err := drv.CreatePipelineLayout(dev, info)
	if err != nil {
		return nativeError("vkCreatePipelineLayout", err)
	}
	p.layout = layout
	return nil
}

func (p *GraphicsPipeline) createInfo(modules []ShaderModule) *vk.GraphicsPipelineCreateInfo {
	s := p.spec
	stages := make([]vk.PipelineShaderStageCreateInfo, 0, len(modules))
	vertexInput := &vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	for _, m := range modules {
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  m.Stage,
			Module: m.handle,
			PName:  entryPoint,
		})
		if len(m.VertexBindings) > 0 {
			vertexInput.VertexBindingDescriptionCount = uint32(len(m.VertexBindings))
			vertexInput.PVertexBindingDescriptions = m.VertexBindings
			vertexInput.VertexAttributeDescriptionCount = uint32(len(m.VertexAttributes))
			vertexInput.PVertexAttributeDescriptions = m.VertexAttributes
		}
	}

	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	blendAttachment := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         bool32(s.ColorBlend.EnableBlend),
		SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask:      vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
	}
	info := &vk.GraphicsPipelineCreateInfo{
		SType:             vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:        uint32(len(stages)),
		PStages:           stages,
		PVertexInputState: vertexInput,
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology:               vk.PrimitiveTopology(s.InputAssembly.Topology),
			PrimitiveRestartEnable: bool32(s.InputAssembly.EnablePrimitiveRestart),
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
			DepthClampEnable:        bool32(s.Rasterizer.EnableDepthClamp),
			RasterizerDiscardEnable: bool32(s.Rasterizer.EnableDiscard),
			PolygonMode:             polygonMode(s.Rasterizer.PolygonMode),
			CullMode:                vk.CullModeFlags(s.Rasterizer.CullMode),
			FrontFace:               vk.FrontFace(s.Rasterizer.FrontFace),
			DepthBiasEnable:         bool32(s.Rasterizer.EnableDepthBias),
			DepthBiasConstantFactor: s.Rasterizer.DepthBiasFactor,
			DepthBiasClamp:          s.Rasterizer.DepthBiasClamp,
			DepthBiasSlopeFactor:    s.Rasterizer.DepthSlopeFactor,
			LineWidth:               s.Rasterizer.LineWidth,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples:  sampleCount(s.Multisampling.SampleCount),
			SampleShadingEnable:   bool32(s.Multisampling.EnableSampleShading),
			MinSampleShading:      s.Multisampling.MinSampleShading,
			AlphaToCoverageEnable: bool32(s.Multisampling.EnableAlphaToCoverage),
			AlphaToOneEnable:      bool32(s.Multisampling.EnableAlphaToOne),
		},
		PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
			SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:       bool32(s.DepthStencil.EnableTest),
			DepthWriteEnable:      bool32(s.DepthStencil.EnableWrite),
			DepthCompareOp:        vk.CompareOp(s.DepthStencil.CompareOp),
			DepthBoundsTestEnable: bool32(s.DepthStencil.EnableBoundsTest),
			StencilTestEnable:     bool32(s.DepthStencil.EnableStencilTest),
			MinDepthBounds:        s.DepthStencil.MinBound,
			MaxDepthBounds:        s.DepthStencil.MaxBound,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			LogicOpEnable:   bool32(s.ColorBlend.EnableLogicOp),
			LogicOp:         vk.LogicOp(s.ColorBlend.LogicOp),
			AttachmentCount: 1,
			PAttachments:    []vk.PipelineColorBlendAttachmentState{blendAttachment},
			BlendConstants:  s.ColorBlend.BlendConstants,
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: uint32(len(dynamicStates)),
			PDynamicStates:    dynamicStates,
		},
		Layout:            p.layout,
		RenderPass:        p.target.RenderPass(),
		BasePipelineIndex: -1,
	}
	if _, ok := s.Stage(graphics.ShaderLocationTessellation); ok {
		info.PTessellationState = &vk.PipelineTessellationStateCreateInfo{
			SType:              vk.StructureTypePipelineTessellationStateCreateInfo,
			PatchControlPoints: s.Tessellation.ControlPointCount,
		}
	}
	return info
}

// PushConstants places data in the push constant range of a stage. A stage
// declares at most one push constant block, so the first range whose stage
// flags include location is the range of that stage.
func (p *GraphicsPipeline) PushConstants(location graphics.ShaderLocation, data []byte) (PushConstantWrite, error) {
	stage := shaderStage(location)
	for _, r := range p.pushConstants {
		if r.StageFlags&stage == 0 {
			continue
		}
		if uint32(len(data)) > r.Size {
			return PushConstantWrite{}, errors.Errorf("push constants: %d bytes exceed %s range of %d", len(data), location, r.Size)
		}
		return PushConstantWrite{Stages: r.StageFlags, Offset: r.Offset, Data: data}, nil
	}
	return PushConstantWrite{}, errors.Errorf("push constants: no range for %s stage", location)
}

// Draw describes an indexed draw with this pipeline covering its viewport,
// binding the descriptor set of res. A nil index buffer draws count vertices
// instead and a nil res binds no set.
func (p *GraphicsPipeline) Draw(res *PipelineResource, vertices, indices *Buffer, count uint32, push ...PushConstantWrite) DrawCall {
	extent := p.target.Extent()
	vp := p.spec.Viewport
	w, h := vp.Width, vp.Height
	if w == 0 || h == 0 {
		w, h = extent.Width, extent.Height
	}
	call := DrawCall{
		Pipeline: p.handle,
		Layout:   p.layout,
		Viewport: vk.Viewport{
			X:        vp.XOffset,
			Y:        vp.YOffset,
			Width:    float32(w),
			Height:   float32(h),
			MinDepth: 0,
			MaxDepth: 1,
		},
		Scissor: vk.Rect2D{
			Offset: vk.Offset2D{X: int32(vp.XOffset), Y: int32(vp.YOffset)},
			Extent: vk.Extent2D{Width: w, Height: h},
		},
		PushConstants: push,
	}
	if res != nil {
		call.DescriptorSet = res.set
	}
	if vertices != nil {
		call.VertexBuffer = vertices.Handle()
	}
	if indices != nil {
		call.IndexBuffer = indices.Handle()
		call.IndexCount = count
	} else {
		call.VertexCount = count
	}
	return call
}

func (p *GraphicsPipeline) Handle() vk.Pipeline                        { return p.handle }
func (p *GraphicsPipeline) Layout() vk.PipelineLayout                  { return p.layout }
func (p *GraphicsPipeline) Bindings() []vk.DescriptorSetLayoutBinding  { return p.bindings }
func (p *GraphicsPipeline) PushConstantRanges() []vk.PushConstantRange { return p.pushConstants }
func (p *GraphicsPipeline) VertexStride() uint32                       { return p.vertexStride }
func (p *GraphicsPipeline) Specification() graphics.PipelineSpecification {
	return p.spec
}

// Destroy releases the native objects in reverse creation order, freeing
// the sets of every allocated resource with their pools. It is safe on a
// partially built pipeline.
func (p *GraphicsPipeline) Destroy() {
	if p.destroyed {
		graphics.Logger().Warn("pipeline already destroyed")
		return
	}
	drv, dev := p.device.driver, p.device.handle
	if p.handle != nil {
		drv.DestroyPipeline(dev, p.handle)
	}
	for _, pool := range p.pools {
		drv.DestroyDescriptorPool(dev, pool)
	}
	if p.layout != nil {
		drv.DestroyPipelineLayout(dev, p.layout)
	}
	if p.setLayout != nil {
		drv.DestroyDescriptorSetLayout(dev, p.setLayout)
	}
	p.handle, p.pools, p.layout, p.setLayout = nil, nil, nil, nil
	p.destroyed = true
}
