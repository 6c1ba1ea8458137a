// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"context"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/splat/internal/kernels"
)

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// newInitializedDispatcher returns an initialized dispatcher on a noop
// device. It skips when naga cannot validate the shaders yet.
func newInitializedDispatcher(t *testing.T) *SortDispatcher {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)

	d := NewSortDispatcher(device, queue)
	if err := d.Init(); err != nil {
		if errors.Is(err, ErrShaderValidation) {
			t.Skipf("Skipping: %v", err)
		}
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func testInput(n int) SortInput {
	in := SortInput{
		Positions: make([]mgl32.Vec3, n),
		Model:     mgl32.Ident4(),
		Camera:    mgl32.Vec3{0, 0, 10},
	}
	for i := range in.Positions {
		in.Positions[i] = mgl32.Vec3{float32(i), 0, 0}
	}
	return in
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestSortDispatcher_SortBeforeInit(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d := NewSortDispatcher(device, queue)
	_, err := d.Sort(context.Background(), SortBitonic, testInput(4))
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("err = %v, want ErrNotInitialized", err)
	}
}

func TestSortDispatcher_InitTwice(t *testing.T) {
	d := newInitializedDispatcher(t)
	if err := d.Init(); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	for s := SortStage(0); s < StageCount; s++ {
		if d.pipelines[s] == nil {
			t.Errorf("pipeline %s not created", s)
		}
	}
}

func TestSortDispatcher_Close(t *testing.T) {
	d := newInitializedDispatcher(t)
	d.Close()
	d.Close()

	for s := SortStage(0); s < StageCount; s++ {
		if d.pipelines[s] != nil || d.shaderModules[s] != nil {
			t.Errorf("stage %s not released", s)
		}
	}
	_, err := d.Sort(context.Background(), SortRadix, testInput(4))
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("err = %v, want ErrNotInitialized", err)
	}
}

// =============================================================================
// Sort Tests
// =============================================================================

func TestSortDispatcher_Empty(t *testing.T) {
	d := newInitializedDispatcher(t)
	for _, m := range []SortMethod{SortBitonic, SortRadix} {
		got, err := d.Sort(context.Background(), m, SortInput{})
		if err != nil || got != nil {
			t.Errorf("%s: got (%v, %v), want (nil, nil)", m, got, err)
		}
	}
}

// The noop backend runs no shaders, so only the record count of the
// readback is meaningful here.
func TestSortDispatcher_ReadsBackEveryRecord(t *testing.T) {
	d := newInitializedDispatcher(t)
	d.SetRadixTile(2)

	for _, m := range []SortMethod{SortBitonic, SortRadix} {
		t.Run(m.String(), func(t *testing.T) {
			got, err := d.Sort(context.Background(), m, testInput(5))
			if err != nil {
				t.Fatalf("Sort: %v", err)
			}
			if len(got) != 5 {
				t.Errorf("len = %d, want 5", len(got))
			}
		})
	}
}

func TestSortDispatcher_ReusesBuffers(t *testing.T) {
	d := newInitializedDispatcher(t)

	for range 2 {
		if _, err := d.Sort(context.Background(), SortRadix, testInput(6)); err != nil {
			t.Fatalf("Sort: %v", err)
		}
	}
	s := d.PoolStats()
	if s.Misses == 0 || s.Hits < s.Misses {
		t.Errorf("second sort did not reuse buffers: %s", s)
	}

	d.Close()
	if s := d.PoolStats(); s.BufferCount != 0 {
		t.Errorf("Close kept %d pooled buffers", s.BufferCount)
	}
}

func TestSortDispatcher_Canceled(t *testing.T) {
	d := newInitializedDispatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Sort(ctx, SortBitonic, testInput(3))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// =============================================================================
// Plan Tests
// =============================================================================

func TestPlanBitonic(t *testing.T) {
	tests := []struct {
		n          uint32
		wantPasses int
	}{
		{1, 0},
		{2, 1},
		{4, 3},
		{5, 6},
		{1000, 55},
	}
	for _, tt := range tests {
		var arena uniformArena
		plans := planBitonic(&arena, tt.n, &noop.Buffer{})
		if len(plans) != tt.wantPasses {
			t.Errorf("n=%d: passes = %d, want %d", tt.n, len(plans), tt.wantPasses)
			continue
		}
		for i, p := range plans {
			if p.uniformOff != uint64(i)*uniformAlign {
				t.Errorf("n=%d pass %d: offset = %d, want %d", tt.n, i, p.uniformOff, uint64(i)*uniformAlign)
			}
			if p.invocations != kernels.BitonicThreads(tt.n) {
				t.Errorf("n=%d pass %d: invocations = %d, want %d",
					tt.n, i, p.invocations, kernels.BitonicThreads(tt.n))
			}
		}
	}
}

func TestPlanRadix(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	d := NewSortDispatcher(device, queue)
	defer d.Close()
	d.SetRadixTile(4)
	res := &sortResources{device: device, pool: d.pool}
	defer res.cleanup()

	var arena uniformArena
	records := &noop.Buffer{}
	result, plans, err := d.planRadix(res, &arena, 10, records)
	if err != nil {
		t.Fatalf("planRadix: %v", err)
	}
	if result == nil {
		t.Fatal("result buffer is nil")
	}

	// keys, 4 x (histogram, scan, scatter), gather
	if len(plans) != 14 {
		t.Fatalf("passes = %d, want 14", len(plans))
	}
	if plans[0].stage != StageRadixKeys || plans[13].stage != StageRadixGather {
		t.Errorf("first/last = %s/%s, want radix_keys/radix_gather", plans[0].stage, plans[13].stage)
	}
	for pass := range 4 {
		h, s, sc := plans[1+3*pass], plans[2+3*pass], plans[3+3*pass]
		if h.stage != StageRadixHistogram || s.stage != StageRadixScan || sc.stage != StageRadixScatter {
			t.Errorf("pass %d: stages %s %s %s", pass, h.stage, s.stage, sc.stage)
		}
		if h.invocations != 3 {
			t.Errorf("pass %d: histogram invocations = %d, want 3 tiles", pass, h.invocations)
		}
		// Scatter reads the buffers the previous pass wrote.
		if pass > 0 {
			prev := plans[3*pass]
			if sc.bindings[0] != prev.bindings[2] || sc.bindings[1] != prev.bindings[3] {
				t.Errorf("pass %d: scatter does not read the previous output", pass)
			}
		}
		if len(sc.entries(&noop.Buffer{})) != 6 {
			t.Errorf("pass %d: scatter entries = %d, want 6", pass, len(sc.entries(&noop.Buffer{})))
		}
	}
	// Four passes ping-pong back to the first value buffer.
	if plans[13].bindings[1] != plans[0].bindings[2] {
		t.Error("gather does not read the buffer the key pass wrote")
	}

	// base block plus one block per pass
	if want := 4*uniformAlign + RadixParamsSize; len(arena.data) != want {
		t.Errorf("uniform bytes = %d, want %d", len(arena.data), want)
	}
}
