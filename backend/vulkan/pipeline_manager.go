package vulkan

import (
	"log/slog"

	"github.com/pkg/errors"

	"dynamik/graphics"
)

// PipelineHandle refers to a pipeline stored in a PipelineManager. The zero
// handle is invalid.
type PipelineHandle struct {
	Spec graphics.PipelineSpecification
	Hash uint64
	Type graphics.PipelineType

	slot int
}

func (h PipelineHandle) IsValid() bool { return h.slot > 0 }
func (h PipelineHandle) Slot() int     { return h.slot }

// Deriver builds a pipeline from a cached parent whose specification hashes
// equal but differs in fixed function state. Returning a nil pipeline and a
// nil error declines, and a fresh pipeline is built instead.
type Deriver interface {
	Derive(parent *GraphicsPipeline, spec graphics.PipelineSpecification) (*GraphicsPipeline, error)
}

type PipelineStats struct {
	Hits      int
	Misses    int
	Pipelines int
}

// PipelineManager creates pipelines on one device and shares a native
// pipeline between equal specifications. It is owned by the renderer
// goroutine and is not safe for concurrent use.
type PipelineManager struct {
	device    *Device
	pipelines []*GraphicsPipeline
	cache     map[uint64][]int
	targets   []*RenderTarget
	deriver   Deriver
	stats     PipelineStats
}

func NewPipelineManager(device *Device) *PipelineManager {
	return &PipelineManager{device: device, cache: make(map[uint64][]int)}
}

// AttachRenderTarget registers rt for use by specifications. The first
// attached target is also used by specifications naming no target.
func (m *PipelineManager) AttachRenderTarget(rt *RenderTarget) graphics.RenderTargetHandle {
	m.targets = append(m.targets, rt)
	return graphics.RenderTargetHandle(len(m.targets))
}

func (m *PipelineManager) SetDeriver(d Deriver) { m.deriver = d }

func (m *PipelineManager) Stats() PipelineStats { return m.stats }

// CreatePipeline returns a handle to a pipeline matching spec, reusing a
// cached one when an equal specification was created before.
func (m *PipelineManager) CreatePipeline(spec graphics.PipelineSpecification) (PipelineHandle, error) {
	log := graphics.Logger().With(slog.String("type", spec.Type.String()))
	switch spec.Type {
	case graphics.PipelineTypeGraphics:
	case graphics.PipelineTypeCompute, graphics.PipelineTypeRayTracing:
		log.Error("pipeline type not implemented")
		return PipelineHandle{}, errors.Wrapf(graphics.ErrUnsupported, "%s pipeline", spec.Type)
	default:
		log.Error("invalid pipeline type")
		return PipelineHandle{}, errors.Wrapf(graphics.ErrInvalidPipelineType, "pipeline type %d", int(spec.Type))
	}

	hash := spec.Hash()
	var parent *GraphicsPipeline
	for _, slot := range m.cache[hash] {
		p := m.pipelines[slot-1]
		if p.spec.Equal(spec) {
			m.stats.Hits++
			log.Debug("pipeline cache hit", slog.Int("slot", slot))
			return PipelineHandle{Spec: spec, Hash: hash, Type: spec.Type, slot: slot}, nil
		}
		if parent == nil {
			parent = p
		}
	}
	m.stats.Misses++

	target, err := m.target(spec.RenderTarget)
	if err != nil {
		log.Error("pipeline has no render target", slog.Any("err", err))
		return PipelineHandle{}, err
	}
	var p *GraphicsPipeline
	derived := false
	if parent != nil && m.deriver != nil {
		if p, err = m.deriver.Derive(parent, spec); err != nil {
			log.Error("failed to derive pipeline", slog.Any("err", err))
			return PipelineHandle{}, err
		}
		derived = p != nil
	}
	if p == nil {
		if p, err = newGraphicsPipeline(m.device, target, spec); err != nil {
			return PipelineHandle{}, err
		}
	}

	m.pipelines = append(m.pipelines, p)
	slot := len(m.pipelines)
	m.cache[hash] = append(m.cache[hash], slot)
	m.stats.Pipelines = len(m.pipelines)
	log.Info("created pipeline", slog.Int("slot", slot), slog.Bool("derived", derived))
	return PipelineHandle{Spec: spec, Hash: hash, Type: spec.Type, slot: slot}, nil
}

// Pipeline resolves a handle returned by CreatePipeline.
func (m *PipelineManager) Pipeline(h PipelineHandle) (*GraphicsPipeline, bool) {
	if h.slot < 1 || h.slot > len(m.pipelines) {
		return nil, false
	}
	return m.pipelines[h.slot-1], true
}

func (m *PipelineManager) target(h graphics.RenderTargetHandle) (*RenderTarget, error) {
	if h == 0 && len(m.targets) > 0 {
		return m.targets[0], nil
	}
	if h == 0 || int(h) > len(m.targets) {
		return nil, errors.Errorf("render target %d not attached", h)
	}
	return m.targets[h-1], nil
}

// Destroy releases every pipeline. Attached render targets stay owned by
// their creator.
func (m *PipelineManager) Destroy() {
	for i := len(m.pipelines) - 1; i >= 0; i-- {
		m.pipelines[i].Destroy()
	}
	m.pipelines = nil
	m.cache = make(map[uint64][]int)
	m.targets = nil
	m.stats.Pipelines = 0
}
