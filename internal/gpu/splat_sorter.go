// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // register the Vulkan backend

	"github.com/gogpu/splat"
)

// SplatSorter implements splat.Sorter on the GPU.
//
// Without a device provider it opens a standalone Vulkan device on the
// first Sort. When no GPU is available it logs a warning once and sorts on
// the CPU with the matching splat sorter from then on.
type SplatSorter struct {
	mu sync.Mutex

	method SortMethod
	tile   uint32

	instance   hal.Instance
	device     hal.Device
	queue      hal.Queue
	dispatcher *SortDispatcher

	// externalDevice is true when device and queue belong to a provider.
	externalDevice bool

	// gpuReady is true once initGPU ran, whether or not it succeeded.
	gpuReady bool

	// fallback sorts on the CPU when the GPU is unavailable.
	fallback splat.Sorter

	closed bool
}

// NewSplatSorter returns a sorter using the given method. No GPU work
// happens until the first Sort.
func NewSplatSorter(method SortMethod) *SplatSorter {
	return &SplatSorter{method: method}
}

// Method returns the sort pipeline in use.
func (s *SplatSorter) Method() SortMethod {
	return s.method
}

// SetRadixTile sets the number of keys per radix tile.
func (s *SplatSorter) SetRadixTile(keys uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tile = keys
	if s.dispatcher != nil {
		s.dispatcher.SetRadixTile(keys)
	}
}

// SetLogger routes the GPU logs to l. It is called by splat.SetLogger once
// the sorter is registered.
func (s *SplatSorter) SetLogger(l *slog.Logger) {
	SetLogger(l)
}

// Sort implements splat.Sorter.
func (s *SplatSorter) Sort(ctx context.Context, req splat.SortRequest) ([]splat.IndexedDistance, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, splat.ErrClosed
	}
	if !s.gpuReady {
		if err := s.initGPU(); err != nil {
			slogger().Warn("gpu sort: GPU not available, sorting on CPU", "err", err)
			s.releaseLocked()
			s.fallback = cpuSorter(s.method)
			s.gpuReady = true
		}
	}
	dispatcher, fallback := s.dispatcher, s.fallback
	s.mu.Unlock()

	if dispatcher == nil {
		return fallback.Sort(ctx, req)
	}
	out, err := dispatcher.Sort(ctx, s.method, SortInput{
		Positions: req.Positions,
		Model:     req.Model,
		Camera:    req.Camera,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu sort: %w", err)
	}
	return out, nil
}

// SetDeviceProvider switches the sorter to a device owned by provider.
//
// The provider's Device and Queue must be hal.Device and hal.Queue, or it
// must expose them through HalDevice and HalQueue methods.
func (s *SplatSorter) SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	device, queue, err := halFromProvider(provider)
	if err != nil {
		return err
	}

	dispatcher := NewSortDispatcher(device, queue)
	if err := dispatcher.Init(); err != nil {
		return fmt.Errorf("gpu sort: init pipelines on shared device: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		dispatcher.Close()
		return splat.ErrClosed
	}
	s.releaseLocked()
	if s.tile != 0 {
		dispatcher.SetRadixTile(s.tile)
	}
	s.device = device
	s.queue = queue
	s.dispatcher = dispatcher
	s.externalDevice = true
	s.gpuReady = true
	s.fallback = nil

	info := provider.AdapterInfo()
	slogger().Debug("gpu sort: switched to shared GPU device",
		"adapter", info.Name,
		"type", info.Type.String())
	if info.Type == gpucontext.AdapterTypeSoftware {
		slogger().Warn("gpu sort: shared device is a software adapter, CPU sorting is usually faster")
	}
	return nil
}

func cpuSorter(m SortMethod) splat.Sorter {
	if m == SortRadix {
		return splat.NewRadixSorter(0)
	}
	return splat.NewBitonicSorter(0)
}

// halFromProvider extracts the HAL device and queue behind provider.
func halFromProvider(provider gpucontext.DeviceProvider) (hal.Device, hal.Queue, error) {
	if provider == nil {
		return nil, nil, fmt.Errorf("gpu sort: nil device provider")
	}

	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	var dev, q any
	if hp, ok := provider.(halProvider); ok {
		dev, q = hp.HalDevice(), hp.HalQueue()
	} else {
		dev, q = provider.Device(), provider.Queue()
	}

	device, ok := dev.(hal.Device)
	if !ok || device == nil {
		return nil, nil, fmt.Errorf("gpu sort: provider device %T is not hal.Device", dev)
	}
	queue, ok := q.(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, fmt.Errorf("gpu sort: provider queue %T is not hal.Queue", q)
	}
	return device, queue, nil
}

// initGPU opens a standalone Vulkan device and builds the pipelines.
func (s *SplatSorter) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	s.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	s.device = openDev.Device
	s.queue = openDev.Queue

	dispatcher := NewSortDispatcher(s.device, s.queue)
	if s.tile != 0 {
		dispatcher.SetRadixTile(s.tile)
	}
	if err := dispatcher.Init(); err != nil {
		return fmt.Errorf("init pipelines: %w", err)
	}
	s.dispatcher = dispatcher
	s.gpuReady = true

	slogger().Info("gpu sort: GPU initialized (standalone)",
		"adapter", selected.Info.Name,
		"method", s.method.String())
	return nil
}

// releaseLocked drops the dispatcher and any device the sorter owns.
func (s *SplatSorter) releaseLocked() {
	if s.dispatcher != nil {
		s.dispatcher.Close()
		s.dispatcher = nil
	}
	if !s.externalDevice {
		if s.device != nil {
			s.device.Destroy()
		}
		if s.instance != nil {
			s.instance.Destroy()
		}
	}
	s.device = nil
	s.queue = nil
	s.instance = nil
	s.externalDevice = false
}

// Close releases the GPU resources. Sort returns splat.ErrClosed afterwards.
func (s *SplatSorter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.releaseLocked()
	if c, ok := s.fallback.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
