// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// sort_dispatcher.go drives the splat ordering pipelines on the GPU. It
// compiles the distance, bitonic and radix shaders, records every stage of
// one sort into a single command buffer and reads the ordered records back
// through a staging buffer.

package gpu

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/splat/internal/kernels"
)

// DefaultRadixTile is the number of keys one histogram or scatter
// invocation walks on the GPU.
const DefaultRadixTile = 256

// Dispatcher errors.
var (
	// ErrNotInitialized is returned by Sort before Init succeeded.
	ErrNotInitialized = errors.New("gpu sort: dispatcher not initialized, call Init() first")

	// ErrShaderValidation wraps naga errors raised while Init validates
	// the embedded shaders.
	ErrShaderValidation = errors.New("gpu sort: shader validation failed")

	// ErrTooManySplats is returned when the splat count does not fit the
	// u32 indices of the shaders.
	ErrTooManySplats = errors.New("gpu sort: splat count exceeds u32 range")
)

// SortMethod selects the sort pipeline.
type SortMethod int

const (
	// SortBitonic runs the bitonic network, one pass per stage.
	SortBitonic SortMethod = iota

	// SortRadix runs four stable tiled radix passes.
	SortRadix
)

// String returns the method name.
func (m SortMethod) String() string {
	switch m {
	case SortBitonic:
		return "bitonic"
	case SortRadix:
		return "radix"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// SortInput is the data one sort uploads.
type SortInput struct {
	Positions []mgl32.Vec3
	Model     mgl32.Mat4
	Camera    mgl32.Vec3
}

// SortDispatcher owns the compute pipelines of the sort stages.
//
// Each Sort call encodes all passes into one command buffer and waits for
// the queue to go idle. Buffers are pooled between calls within a budget
// (see SetPoolBudget). Calls are serialized.
type SortDispatcher struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue

	pipelines       [StageCount]hal.ComputePipeline
	pipelineLayouts [StageCount]hal.PipelineLayout
	bgLayouts       [StageCount]hal.BindGroupLayout
	shaderModules   [StageCount]hal.ShaderModule

	initialized bool

	pool *bufferPool

	// tileSize is the radix tile in keys.
	tileSize uint32
}

// NewSortDispatcher creates a dispatcher on the given HAL device and queue.
// Init must be called before Sort.
func NewSortDispatcher(device hal.Device, queue hal.Queue) *SortDispatcher {
	return &SortDispatcher{
		device:   device,
		queue:    queue,
		pool:     newBufferPool(device, DefaultPoolBudgetMB),
		tileSize: DefaultRadixTile,
	}
}

// SetPoolBudget limits the memory of the buffers kept between sorts.
// Values below MinPoolBudgetMB are raised to it.
func (d *SortDispatcher) SetPoolBudget(megabytes int) {
	d.pool.setBudget(megabytes)
}

// PoolStats reports the buffers kept between sorts.
func (d *SortDispatcher) PoolStats() PoolStats {
	return d.pool.stats()
}

// SetRadixTile sets the number of keys per radix tile. Zero restores
// DefaultRadixTile.
func (d *SortDispatcher) SetRadixTile(keys uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if keys == 0 {
		keys = DefaultRadixTile
	}
	d.tileSize = keys
}

// stageLayoutEntries returns the bind group layout of a stage. The entries
// match the @group(0) @binding(N) declarations of its shader.
func stageLayoutEntries(stage SortStage) []gputypes.BindGroupLayoutEntry {
	uniform := gputypes.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}
	storageRO := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
		}
	}
	storageRW := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		}
	}

	switch stage {
	case StageDistance:
		// params, positions, records
		return []gputypes.BindGroupLayoutEntry{uniform, storageRO(1), storageRW(2)}
	case StageBitonic:
		// params, records
		return []gputypes.BindGroupLayoutEntry{uniform, storageRW(1)}
	case StageRadixKeys:
		// params, records, keys, values
		return []gputypes.BindGroupLayoutEntry{uniform, storageRO(1), storageRW(2), storageRW(3)}
	case StageRadixHistogram:
		// params, keys, hist
		return []gputypes.BindGroupLayoutEntry{uniform, storageRO(1), storageRW(2)}
	case StageRadixScan:
		// params, hist
		return []gputypes.BindGroupLayoutEntry{uniform, storageRW(1)}
	case StageRadixScatter:
		// params, keys, values, out_keys, out_values, offsets
		return []gputypes.BindGroupLayoutEntry{
			uniform, storageRO(1), storageRO(2), storageRW(3), storageRW(4), storageRW(5),
		}
	case StageRadixGather:
		// params, records, values, sorted
		return []gputypes.BindGroupLayoutEntry{uniform, storageRO(1), storageRO(2), storageRW(3)}
	default:
		return nil
	}
}

// Init validates and compiles every sort shader and creates its pipeline.
// Calling Init again after success is a no-op.
func (d *SortDispatcher) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initialized {
		return nil
	}

	for i := SortStage(0); i < StageCount; i++ {
		src := i.Source()
		if src == "" {
			d.destroyPartialInit(i)
			return fmt.Errorf("gpu sort: missing shader source for stage %s", i)
		}
		words, err := CompileSPIRV(src)
		if err != nil {
			d.destroyPartialInit(i)
			return fmt.Errorf("%w: %s: %w", ErrShaderValidation, i, err)
		}

		name := "splat_" + i.String()

		module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  name,
			Source: hal.ShaderSource{WGSL: src},
		})
		if err != nil {
			d.destroyPartialInit(i)
			return fmt.Errorf("gpu sort: create shader module for %s: %w", i, err)
		}
		d.shaderModules[i] = module

		entries := stageLayoutEntries(i)
		bgLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   name + "_bgl",
			Entries: entries,
		})
		if err != nil {
			d.destroyPartialInit(i + 1)
			return fmt.Errorf("gpu sort: create bind group layout for %s: %w", i, err)
		}
		d.bgLayouts[i] = bgLayout

		layout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
			Label:            name + "_pl",
			BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
		})
		if err != nil {
			d.destroyPartialInit(i + 1)
			return fmt.Errorf("gpu sort: create pipeline layout for %s: %w", i, err)
		}
		d.pipelineLayouts[i] = layout

		pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label:  name,
			Layout: layout,
			Compute: hal.ComputeState{
				Module:     module,
				EntryPoint: "main",
			},
		})
		if err != nil {
			d.destroyPartialInit(i + 1)
			return fmt.Errorf("gpu sort: create compute pipeline for %s: %w", i, err)
		}
		d.pipelines[i] = pipeline

		slogger().Debug("gpu sort: pipeline created",
			"stage", i.String(),
			"bindings", len(entries),
			"spirv_words", len(words))
	}

	slogger().Info("gpu sort: pipelines initialized", "stages", int(StageCount))
	d.initialized = true
	return nil
}

// destroyPartialInit releases the resources of stages [0, upTo).
func (d *SortDispatcher) destroyPartialInit(upTo SortStage) {
	for j := SortStage(0); j < upTo; j++ {
		d.destroyStage(j)
	}
}

func (d *SortDispatcher) destroyStage(s SortStage) {
	if d.pipelines[s] != nil {
		d.device.DestroyComputePipeline(d.pipelines[s])
		d.pipelines[s] = nil
	}
	if d.pipelineLayouts[s] != nil {
		d.device.DestroyPipelineLayout(d.pipelineLayouts[s])
		d.pipelineLayouts[s] = nil
	}
	if d.bgLayouts[s] != nil {
		d.device.DestroyBindGroupLayout(d.bgLayouts[s])
		d.bgLayouts[s] = nil
	}
	if d.shaderModules[s] != nil {
		d.device.DestroyShaderModule(d.shaderModules[s])
		d.shaderModules[s] = nil
	}
}

// Close releases every pipeline and pooled buffer. The dispatcher may be
// initialized again.
func (d *SortDispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.destroyPartialInit(StageCount)
	d.pool.reset()
	d.initialized = false
}

// WorkgroupCount returns the number of workgroups a stage needs for the
// given number of invocations.
func WorkgroupCount(stage SortStage, invocations uint32) uint32 {
	if invocations == 0 {
		return 0
	}
	if stage == StageRadixScan {
		return 1
	}
	wg := stage.workgroupSize()
	return (invocations + wg - 1) / wg
}

// passPlan is one compute pass of a sort.
type passPlan struct {
	stage       SortStage
	invocations uint32

	// uniformOff and uniformSize locate the pass's block in the params
	// buffer bound at binding 0.
	uniformOff  uint64
	uniformSize uint64

	// bindings are bound at 1, 2, ... in order.
	bindings []hal.Buffer

	// written are the storage buffers the pass writes; they get a barrier
	// before the next pass reads them.
	written []hal.Buffer
}

func (p *passPlan) entries(params hal.Buffer) []gputypes.BindGroupEntry {
	entries := make([]gputypes.BindGroupEntry, 0, len(p.bindings)+1)
	entries = append(entries, gputypes.BindGroupEntry{
		Binding: 0,
		Resource: gputypes.BufferBinding{
			Buffer: params.NativeHandle(),
			Offset: p.uniformOff,
			Size:   p.uniformSize,
		},
	})
	for i, b := range p.bindings {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  uint32(i + 1),
			Resource: gputypes.BufferBinding{Buffer: b.NativeHandle()},
		})
	}
	return entries
}

// sortResources tracks the per-sort GPU objects for cleanup. Buffers come
// from the pool and outlive the sort.
type sortResources struct {
	device     hal.Device
	pool       *bufferPool
	bindGroups []hal.BindGroup
	encoder    hal.CommandEncoder
	cmdBuf     hal.CommandBuffer
}

func (r *sortResources) cleanup() {
	if r.cmdBuf != nil {
		r.device.FreeCommandBuffer(r.cmdBuf)
	}
	if r.encoder != nil {
		r.encoder.Destroy()
	}
	for _, g := range r.bindGroups {
		r.device.DestroyBindGroup(g)
	}
}

func (r *sortResources) buffer(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
	return r.pool.acquire(label, size, usage)
}

// Sort orders the splats by descending squared camera distance and returns
// one record per splat. An empty input returns nil without touching the
// device.
func (d *SortDispatcher) Sort(ctx context.Context, method SortMethod, in SortInput) ([]kernels.IndexedDistance, error) {
	if len(in.Positions) == 0 {
		return nil, nil
	}
	if uint64(len(in.Positions)) > math.MaxUint32 {
		return nil, ErrTooManySplats
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return nil, ErrNotInitialized
	}

	n := uint32(len(in.Positions))
	recordBytes := uint64(n) * kernels.IndexedDistanceSize

	res := &sortResources{device: d.device, pool: d.pool}
	defer res.cleanup()

	positions, err := res.buffer("splat_positions", uint64(n)*12,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}
	records, err := res.buffer("splat_records", recordBytes,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopySrc)
	if err != nil {
		return nil, err
	}

	var arena uniformArena
	plans := []passPlan{{
		stage:       StageDistance,
		invocations: n,
		uniformOff:  arena.push(AppendDistanceParams(nil, in.Model, in.Camera, n)),
		uniformSize: DistanceParamsSize,
		bindings:    []hal.Buffer{positions, records},
		written:     []hal.Buffer{records},
	}}

	result := records
	switch method {
	case SortRadix:
		var radix []passPlan
		result, radix, err = d.planRadix(res, &arena, n, records)
		if err != nil {
			return nil, err
		}
		plans = append(plans, radix...)
	default:
		plans = append(plans, planBitonic(&arena, n, records)...)
	}

	params, err := res.buffer("splat_sort_params", uint64(len(arena.data)),
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}

	staging, err := res.buffer("splat_records_staging", recordBytes,
		gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}

	if err := d.queue.WriteBuffer(positions, 0, AppendPositions(nil, in.Positions)); err != nil {
		return nil, fmt.Errorf("gpu sort: upload positions: %w", err)
	}
	if err := d.queue.WriteBuffer(params, 0, arena.data); err != nil {
		return nil, fmt.Errorf("gpu sort: upload params: %w", err)
	}

	if err := d.encode(res, plans, params, result, staging, recordBytes); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := d.queue.Submit([]hal.CommandBuffer{res.cmdBuf}); err != nil {
		return nil, fmt.Errorf("gpu sort: submit: %w", err)
	}
	if err := d.device.WaitIdle(); err != nil {
		return nil, fmt.Errorf("gpu sort: wait for GPU: %w", err)
	}

	out, err := d.readRecords(staging, recordBytes)
	if err != nil {
		return nil, err
	}
	d.pool.trim()

	slogger().Debug("gpu sort: done",
		"method", method.String(),
		"splats", n,
		"passes", len(plans),
		"uniform_bytes", len(arena.data),
		"pool", d.pool.stats().String())
	return out, nil
}

// planBitonic returns one pass per stage of the bitonic network.
func planBitonic(arena *uniformArena, n uint32, records hal.Buffer) []passPlan {
	threads := kernels.BitonicThreads(n)
	schedule := kernels.BitonicSchedule(n)
	plans := make([]passPlan, 0, len(schedule))
	for _, sp := range schedule {
		plans = append(plans, passPlan{
			stage:       StageBitonic,
			invocations: threads,
			uniformOff:  arena.push(sp.Append(nil)),
			uniformSize: kernels.SortParamsSize,
			bindings:    []hal.Buffer{records},
			written:     []hal.Buffer{records},
		})
	}
	return plans
}

// planRadix returns the key build, four histogram/scan/scatter passes and
// the final gather, along with the buffer holding the sorted records.
func (d *SortDispatcher) planRadix(
	res *sortResources,
	arena *uniformArena,
	n uint32,
	records hal.Buffer,
) (hal.Buffer, []passPlan, error) {
	tile := d.tileSize
	tiles := kernels.RadixTiles(n, tile)
	words := uint64(n) * 4
	storage := gputypes.BufferUsageStorage

	var keys, values [2]hal.Buffer
	var err error
	for i := range 2 {
		if keys[i], err = res.buffer(fmt.Sprintf("splat_radix_keys_%d", i), words, storage); err != nil {
			return nil, nil, err
		}
		if values[i], err = res.buffer(fmt.Sprintf("splat_radix_values_%d", i), words, storage); err != nil {
			return nil, nil, err
		}
	}
	hist, err := res.buffer("splat_radix_hist", uint64(tiles)*kernels.RadixBuckets*4, storage)
	if err != nil {
		return nil, nil, err
	}
	sorted, err := res.buffer("splat_records_sorted", uint64(n)*kernels.IndexedDistanceSize,
		storage|gputypes.BufferUsageCopySrc)
	if err != nil {
		return nil, nil, err
	}

	base := RadixParams{Count: n, TileSize: tile, Tiles: tiles}
	baseOff := arena.push(base.Append(nil))

	plans := []passPlan{{
		stage:       StageRadixKeys,
		invocations: n,
		uniformOff:  baseOff,
		uniformSize: RadixParamsSize,
		bindings:    []hal.Buffer{records, keys[0], values[0]},
		written:     []hal.Buffer{keys[0], values[0]},
	}}

	for pass := range uint32(kernels.RadixPasses) {
		src, dst := pass%2, (pass+1)%2
		p := base
		p.Shift = pass * 8
		off := arena.push(p.Append(nil))

		plans = append(plans,
			passPlan{
				stage:       StageRadixHistogram,
				invocations: tiles,
				uniformOff:  off,
				uniformSize: RadixParamsSize,
				bindings:    []hal.Buffer{keys[src], hist},
				written:     []hal.Buffer{hist},
			},
			passPlan{
				stage:       StageRadixScan,
				invocations: 1,
				uniformOff:  off,
				uniformSize: RadixParamsSize,
				bindings:    []hal.Buffer{hist},
				written:     []hal.Buffer{hist},
			},
			passPlan{
				stage:       StageRadixScatter,
				invocations: tiles,
				uniformOff:  off,
				uniformSize: RadixParamsSize,
				bindings:    []hal.Buffer{keys[src], values[src], keys[dst], values[dst], hist},
				written:     []hal.Buffer{keys[dst], values[dst], hist},
			},
		)
	}

	// An even number of passes leaves the sorted values in values[0].
	plans = append(plans, passPlan{
		stage:       StageRadixGather,
		invocations: n,
		uniformOff:  baseOff,
		uniformSize: RadixParamsSize,
		bindings:    []hal.Buffer{records, values[0], sorted},
		written:     []hal.Buffer{sorted},
	})

	slogger().Debug("gpu sort: radix plan",
		"splats", n,
		"tile", tile,
		"tiles", tiles)
	return sorted, plans, nil
}

// encode records every pass and the copy of result into staging.
func (d *SortDispatcher) encode(
	res *sortResources,
	plans []passPlan,
	params, result, staging hal.Buffer,
	size uint64,
) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "splat_sort",
	})
	if err != nil {
		return fmt.Errorf("gpu sort: create command encoder: %w", err)
	}
	res.encoder = encoder

	if err := encoder.BeginEncoding("splat_sort"); err != nil {
		return fmt.Errorf("gpu sort: begin encoding: %w", err)
	}

	storageToStorage := hal.BufferUsageTransition{
		OldUsage: gputypes.BufferUsageStorage,
		NewUsage: gputypes.BufferUsageStorage,
	}

	for i := range plans {
		p := &plans[i]
		wg := WorkgroupCount(p.stage, p.invocations)
		if wg == 0 {
			continue
		}

		bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   fmt.Sprintf("splat_%s_bg_%d", p.stage, i),
			Layout:  d.bgLayouts[p.stage],
			Entries: p.entries(params),
		})
		if err != nil {
			encoder.DiscardEncoding()
			return fmt.Errorf("gpu sort: create bind group for %s: %w", p.stage, err)
		}
		res.bindGroups = append(res.bindGroups, bg)

		pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{
			Label: fmt.Sprintf("splat_%s", p.stage),
		})
		pass.SetPipeline(d.pipelines[p.stage])
		pass.SetBindGroup(0, bg, nil)
		pass.Dispatch(wg, 1, 1)
		pass.End()

		barriers := make([]hal.BufferBarrier, len(p.written))
		for j, b := range p.written {
			barriers[j] = hal.BufferBarrier{Buffer: b, Usage: storageToStorage}
		}
		encoder.TransitionBuffers(barriers)
	}

	encoder.TransitionBuffers([]hal.BufferBarrier{{
		Buffer: result,
		Usage: hal.BufferUsageTransition{
			OldUsage: gputypes.BufferUsageStorage,
			NewUsage: gputypes.BufferUsageCopySrc,
		},
	}})
	encoder.CopyBufferToBuffer(result, staging, []hal.BufferCopy{{Size: size}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu sort: end encoding: %w", err)
	}
	res.cmdBuf = cmdBuf
	return nil
}

// readRecords maps staging and decodes its records.
func (d *SortDispatcher) readRecords(staging hal.Buffer, size uint64) ([]kernels.IndexedDistance, error) {
	mapping, err := d.device.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("gpu sort: map staging buffer: %w", err)
	}
	raw := unsafe.Slice((*byte)(mapping.Ptr), size) //nolint:gosec // mapped range of size bytes
	out := kernels.DecodeIndexedDistances(raw)
	if err := d.device.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("gpu sort: unmap staging buffer: %w", err)
	}
	return out, nil
}
