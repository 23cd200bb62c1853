package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/roundtrip/shader"
)

// computePipeline holds the immutable objects built once per run: the shader
// module, one storage binding at slot 0, the pipeline and the bind group
// covering the whole storage buffer.
type computePipeline struct {
	module     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
	bindGroup  hal.BindGroup
}

// newComputePipeline builds the pipeline for prog over storage[0:size).
// On failure every object created so far is destroyed.
func newComputePipeline(device hal.Device, prog *shader.Program, storage hal.Buffer, size uint64) (*computePipeline, error) {
	p := &computePipeline{}
	if err := p.build(device, prog, storage, size); err != nil {
		p.destroy(device)
		return nil, err
	}
	return p, nil
}

func (p *computePipeline) build(device hal.Device, prog *shader.Program, storage hal.Buffer, size uint64) error {
	source := hal.ShaderSource{SPIRV: prog.SPIRV}
	if len(prog.SPIRV) == 0 {
		source = hal.ShaderSource{WGSL: prog.WGSL}
	}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  prog.Name,
		Source: source,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrShaderModule, prog.Name, err)
	}
	p.module = module

	bindLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "roundtrip_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	p.bindLayout = bindLayout

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "roundtrip_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	entryPoint := prog.EntryPoint
	if entryPoint == "" {
		entryPoint = shader.EntryPoint
	}
	pipeline, err := device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "roundtrip_pipeline", Layout: p.pipeLayout,
		Compute: hal.ComputeState{Module: p.module, EntryPoint: entryPoint},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	p.pipeline = pipeline

	bindGroup, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "roundtrip_bind_group",
		Layout: p.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: storage.NativeHandle(), Offset: 0, Size: size}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	p.bindGroup = bindGroup

	return nil
}

func (p *computePipeline) destroy(device hal.Device) {
	if p == nil || device == nil {
		return
	}
	if p.bindGroup != nil {
		device.DestroyBindGroup(p.bindGroup)
		p.bindGroup = nil
	}
	if p.pipeline != nil {
		device.DestroyComputePipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.module != nil {
		device.DestroyShaderModule(p.module)
		p.module = nil
	}
}
