//go:build !nogpu

// Package gpu registers a GPU splat sorter for splat.SortGPU.
//
// The sorter computes view distances and orders them with compute shaders
// running on wgpu/hal. It opens a standalone Vulkan device on the first
// sort unless SetDeviceProvider hands it a shared one. If no GPU is
// available it logs a warning and sorts on the CPU.
//
// Usage:
//
//	import _ "github.com/gogpu/splat/gpu" // enable GPU sorting
//
//	r, err := splat.NewRenderer(w, h, splat.WithSortMethod(splat.SortGPU))
package gpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/splat"
	gpuimpl "github.com/gogpu/splat/internal/gpu"
)

// Sorter is a GPU implementation of splat.Sorter.
type Sorter = gpuimpl.SplatSorter

// Method selects the GPU sort pipeline.
type Method = gpuimpl.SortMethod

const (
	// Bitonic runs one compute pass per stage of a bitonic network.
	Bitonic = gpuimpl.SortBitonic

	// Radix runs a stable 4-pass LSD radix sort over 8-bit digits.
	Radix = gpuimpl.SortRadix
)

func init() {
	if err := splat.RegisterSorter(gpuimpl.NewSplatSorter(Bitonic)); err != nil {
		splat.Logger().Warn("GPU sorter not available", "err", err)
	}
}

// NewStandaloneSorter returns a sorter that opens its own GPU device on
// first use.
func NewStandaloneSorter(method Method) *Sorter {
	return gpuimpl.NewSplatSorter(method)
}

// NewSorter returns a sorter running on the device of provider.
func NewSorter(provider gpucontext.DeviceProvider, method Method) (*Sorter, error) {
	s := gpuimpl.NewSplatSorter(method)
	if err := s.SetDeviceProvider(provider); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// SetDeviceProvider moves the registered GPU sorter to the device of
// provider (for example a gogpu window), avoiding a second GPU instance.
//
// It fails when the registered sorter is not a GPU sorter.
func SetDeviceProvider(provider gpucontext.DeviceProvider) error {
	s, ok := splat.RegisteredSorter().(*Sorter)
	if !ok {
		return fmt.Errorf("gpu: registered sorter %T is not a GPU sorter", splat.RegisteredSorter())
	}
	return s.SetDeviceProvider(provider)
}
