package renderer

import (
	"fmt"
	"hash/fnv"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// Pipeline build stages reported by PipelineStageError.
const (
	StageRenderPass       = "render pass"
	StageShaderModule     = "shader module"
	StagePipelineLayout   = "pipeline layout"
	StageGraphicsPipeline = "graphics pipeline"
)

// PipelineStageError names the build step that failed.
type PipelineStageError struct {
	Stage string
	Err   error
}

func (e *PipelineStageError) Error() string {
	return fmt.Sprintf("pipeline build failed at %s: %v", e.Stage, e.Err)
}

func (e *PipelineStageError) Unwrap() error {
	return e.Err
}

func stageError(stage string, err error) error {
	return errors.WithStack(&PipelineStageError{Stage: stage, Err: err})
}

// BuildRenderPass creates the single-subpass render pass with one color attachment that
// is cleared, stored and handed over for presentation.
func (p Phase) BuildRenderPass(device metadata.Handle, format metadata.Format) (metadata.Handle, error) {
	info := &metadata.RenderPassCreateInfo{
		SType: metadata.StructureTypeRenderPassCreateInfo,
		Attachments: []metadata.AttachmentDescription{{
			Format:        format,
			Samples:       1,
			LoadOp:        metadata.AttachmentLoadOpClear,
			StoreOp:       metadata.AttachmentStoreOpStore,
			InitialLayout: metadata.ImageLayoutUndefined,
			FinalLayout:   metadata.ImageLayoutPresentSrc,
		}},
		// Keep the subpass from writing the attachment before the acquired image is available.
		Dependencies: []metadata.SubpassDependency{{
			SrcSubpass:    metadata.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  metadata.PipelineStageColorAttachmentOutput,
			DstStageMask:  metadata.PipelineStageColorAttachmentOutput,
			SrcAccessMask: 0,
			DstAccessMask: metadata.AccessColorAttachmentRead | metadata.AccessColorAttachmentWrite,
		}},
	}
	renderPass, err := p.Driver.CreateRenderPass(device, info)
	if err != nil {
		return metadata.NullHandle, stageError(StageRenderPass, err)
	}
	p.Registry.Push(KindRenderPass, "main", func() { p.Driver.DestroyRenderPass(device, renderPass) })
	core.LogDebug("Render pass created for format %d.", format)
	return renderPass, nil
}

/** @brief Everything a graphics pipeline is built from. */
type PipelineConfig struct {
	/** @brief The render pass the pipeline renders in, subpass 0. */
	RenderPass metadata.Handle
	/** @brief Compiled shader stages. Modules are created from these and destroyed after the build. */
	Stages []metadata.ShaderStage
	/** @brief The vertex layout. Nothing beyond it is assumed. */
	VertexLayout metadata.VertexLayout
	Raster       metadata.RasterConfig
	Multisample  metadata.MultisampleConfig
	Blend        metadata.BlendConfig
	/** @brief Descriptor set layouts of the pipeline layout. */
	SetLayouts []metadata.Handle
	/** @brief Initial viewport extent. Viewport and scissor are dynamic. */
	Extent metadata.Extent2D
}

// DefaultPipelineConfig fills the fixed-function state with the engine defaults.
func DefaultPipelineConfig(renderPass metadata.Handle, stages []metadata.ShaderStage, layout metadata.VertexLayout) PipelineConfig {
	return PipelineConfig{
		RenderPass:   renderPass,
		Stages:       stages,
		VertexLayout: layout,
		Raster:       metadata.DefaultRasterConfig(),
		Multisample:  metadata.DefaultMultisampleConfig(),
		Blend:        metadata.DefaultBlendConfig(),
	}
}

// Key identifies a configuration. Equal keys build interchangeable pipelines.
func (c *PipelineConfig) Key() string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%+v|%+v|%+v|%+v|%v", c.RenderPass, c.VertexLayout, c.Raster, c.Multisample, c.Blend, c.SetLayouts)
	for _, s := range c.Stages {
		fmt.Fprintf(h, "|%s:%s:", s.Type, s.EntryPoint)
		h.Write(s.Code)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// PipelineBuilder creates graphics pipelines and caches them by configuration key for the
// lifetime of one swapchain generation.
type PipelineBuilder struct {
	phase  Phase
	device metadata.Handle
	cache  map[string]PipelineState
}

func NewPipelineBuilder(phase Phase, device metadata.Handle) *PipelineBuilder {
	return &PipelineBuilder{phase: phase, device: device, cache: make(map[string]PipelineState)}
}

// Reset forgets cached pipelines. Called when the generation that owns them is unwound.
func (b *PipelineBuilder) Reset() {
	clear(b.cache)
}

func (b *PipelineBuilder) Cached() int {
	return len(b.cache)
}

// Build returns the cached pipeline for cfg or builds a new one. On failure nothing the
// build created stays alive and the error is a *PipelineStageError.
func (b *PipelineBuilder) Build(cfg PipelineConfig) (PipelineState, error) {
	key := cfg.Key()
	if ps, ok := b.cache[key]; ok {
		core.LogDebug("Reusing cached pipeline %s.", key)
		return ps, nil
	}
	ps, err := b.phase.BuildPipeline(b.device, cfg)
	if err != nil {
		return ps, err
	}
	ps.Key = key
	b.cache[key] = ps
	return ps, nil
}

// BuildPipeline creates the transient shader modules, the pipeline layout and the
// pipeline. The modules are destroyed before returning, on success and on failure.
func (p Phase) BuildPipeline(device metadata.Handle, cfg PipelineConfig) (state PipelineState, err error) {
	defer p.Registry.Scope(&err)()
	state.RenderPass = cfg.RenderPass

	modules := make([]metadata.Handle, 0, len(cfg.Stages))
	defer func() {
		for i := len(modules) - 1; i >= 0; i-- {
			p.Driver.DestroyShaderModule(device, modules[i])
		}
	}()

	stages := make([]metadata.PipelineShaderStage, 0, len(cfg.Stages))
	for _, s := range cfg.Stages {
		module, err := p.Driver.CreateShaderModule(device, &metadata.ShaderModuleCreateInfo{
			SType: metadata.StructureTypeShaderModuleCreateInfo,
			Code:  s.Code,
		})
		if err != nil {
			return state, stageError(StageShaderModule, errors.Wrapf(err, "%s stage", s.Type))
		}
		modules = append(modules, module)
		entry := s.EntryPoint
		if entry == "" {
			entry = "main"
		}
		stages = append(stages, metadata.PipelineShaderStage{Stage: s.Type.Flags(), Module: module, EntryPoint: entry})
	}

	layout, err := p.Driver.CreatePipelineLayout(device, &metadata.PipelineLayoutCreateInfo{
		SType:      metadata.StructureTypePipelineLayoutCreateInfo,
		SetLayouts: cfg.SetLayouts,
	})
	if err != nil {
		return state, stageError(StagePipelineLayout, err)
	}
	p.Registry.Push(KindPipelineLayout, "main", func() { p.Driver.DestroyPipelineLayout(device, layout) })
	state.Layout = layout

	pipeline, err := p.Driver.CreateGraphicsPipeline(device, &metadata.GraphicsPipelineCreateInfo{
		SType:           metadata.StructureTypeGraphicsPipelineCreateInfo,
		Stages:          stages,
		VertexLayout:    cfg.VertexLayout,
		Raster:          cfg.Raster,
		Multisample:     cfg.Multisample,
		Blend:           cfg.Blend,
		Layout:          layout,
		RenderPass:      cfg.RenderPass,
		Subpass:         0,
		DynamicViewport: true,
		Extent:          cfg.Extent,
	})
	if err != nil {
		return state, stageError(StageGraphicsPipeline, err)
	}
	p.Registry.Push(KindPipeline, "main", func() { p.Driver.DestroyPipeline(device, pipeline) })
	state.Pipeline = pipeline

	core.LogDebug("Graphics pipeline created!")
	return state, nil
}
