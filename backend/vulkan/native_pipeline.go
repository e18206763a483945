package vulkan

import (
	vk "github.com/goki/vulkan"
)

func (NativeDriver) CreateShaderModule(dev vk.Device, code []uint32) (vk.ShaderModule, error) {
	info := &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
	var m vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(dev, info, nil, &m)); err != nil {
		return nil, err
	}
	return m, nil
}

func (NativeDriver) DestroyShaderModule(dev vk.Device, m vk.ShaderModule) {
	vk.DestroyShaderModule(dev, m, nil)
}

func (NativeDriver) CreateDescriptorSetLayout(dev vk.Device, bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	info := &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	var layout vk.DescriptorSetLayout
	if err := vk.Error(vk.CreateDescriptorSetLayout(dev, info, nil, &layout)); err != nil {
		return nil, err
	}
	return layout, nil
}

func (NativeDriver) DestroyDescriptorSetLayout(dev vk.Device, layout vk.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(dev, layout, nil)
}

func (NativeDriver) CreateDescriptorPool(dev vk.Device, sizes []vk.DescriptorPoolSize, maxSets uint32) (vk.DescriptorPool, error) {
	info := &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var pool vk.DescriptorPool
	if err := vk.Error(vk.CreateDescriptorPool(dev, info, nil, &pool)); err != nil {
		return nil, err
	}
	return pool, nil
}

func (NativeDriver) DestroyDescriptorPool(dev vk.Device, pool vk.DescriptorPool) {
	vk.DestroyDescriptorPool(dev, pool, nil)
}

func (NativeDriver) AllocateDescriptorSet(dev vk.Device, pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	info := &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	var set vk.DescriptorSet
	if err := vk.Error(vk.AllocateDescriptorSets(dev, info, &set)); err != nil {
		return nil, err
	}
	return set, nil
}

func (NativeDriver) UpdateDescriptorSets(dev vk.Device, writes []vk.WriteDescriptorSet) {
	vk.UpdateDescriptorSets(dev, uint32(len(writes)), writes, 0, nil)
}

func (NativeDriver) CreatePipelineLayout(dev vk.Device, info *vk.PipelineLayoutCreateInfo) (vk.PipelineLayout, error) {
	var layout vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(dev, info, nil, &layout)); err != nil {
		return nil, err
	}
	return layout, nil
}

func (NativeDriver) DestroyPipelineLayout(dev vk.Device, layout vk.PipelineLayout) {
	vk.DestroyPipelineLayout(dev, layout, nil)
}

func (NativeDriver) CreateGraphicsPipeline(dev vk.Device, info *vk.GraphicsPipelineCreateInfo) (vk.Pipeline, error) {
	pipelines := make([]vk.Pipeline, 1)
	if err := vk.Error(vk.CreateGraphicsPipelines(dev, nil, 1, []vk.GraphicsPipelineCreateInfo{*info}, nil, pipelines)); err != nil {
		return nil, err
	}
	return pipelines[0], nil
}

func (NativeDriver) DestroyPipeline(dev vk.Device, p vk.Pipeline) { vk.DestroyPipeline(dev, p, nil) }
