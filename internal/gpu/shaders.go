// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
)

// Embedded WGSL shader sources.

//go:embed shaders/distance.wgsl
var shaderDistance string

//go:embed shaders/bitonic.wgsl
var shaderBitonic string

//go:embed shaders/radix_keys.wgsl
var shaderRadixKeys string

//go:embed shaders/radix_histogram.wgsl
var shaderRadixHistogram string

//go:embed shaders/radix_scan.wgsl
var shaderRadixScan string

//go:embed shaders/radix_scatter.wgsl
var shaderRadixScatter string

//go:embed shaders/radix_gather.wgsl
var shaderRadixGather string

//go:embed shaders/splat.wgsl
var shaderSplat string

// SortStage identifies one compute pipeline of the sort dispatcher.
type SortStage int

const (
	// StageDistance writes one IndexedDistance record per splat.
	StageDistance SortStage = iota

	// StageBitonic runs one compare-exchange stage of the bitonic network.
	StageBitonic

	// StageRadixKeys builds descending radix keys and index values.
	StageRadixKeys

	// StageRadixHistogram counts digits per tile.
	StageRadixHistogram

	// StageRadixScan turns the tile histograms into scatter offsets.
	StageRadixScan

	// StageRadixScatter moves keys and values to their sorted slots.
	StageRadixScatter

	// StageRadixGather writes the sorted records.
	StageRadixGather

	// StageCount is the number of sort stages.
	StageCount
)

// String returns the shader name of the stage.
func (s SortStage) String() string {
	switch s {
	case StageDistance:
		return "distance"
	case StageBitonic:
		return "bitonic"
	case StageRadixKeys:
		return "radix_keys"
	case StageRadixHistogram:
		return "radix_histogram"
	case StageRadixScan:
		return "radix_scan"
	case StageRadixScatter:
		return "radix_scatter"
	case StageRadixGather:
		return "radix_gather"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// workgroupSize returns the @workgroup_size declared by the stage's shader.
func (s SortStage) workgroupSize() uint32 {
	switch s {
	case StageRadixHistogram, StageRadixScatter:
		return 64
	case StageRadixScan:
		return 1
	default:
		return 256
	}
}

// Source returns the embedded WGSL source of the stage.
func (s SortStage) Source() string {
	switch s {
	case StageDistance:
		return shaderDistance
	case StageBitonic:
		return shaderBitonic
	case StageRadixKeys:
		return shaderRadixKeys
	case StageRadixHistogram:
		return shaderRadixHistogram
	case StageRadixScan:
		return shaderRadixScan
	case StageRadixScatter:
		return shaderRadixScatter
	case StageRadixGather:
		return shaderRadixGather
	default:
		return ""
	}
}

// SplatShaderSource returns the WGSL source of the splat render pipeline.
// Its vertex entry points are vs_classic and vs_compact, its fragment entry
// points fs_classic, fs_compact and fs_debug.
func SplatShaderSource() string {
	return shaderSplat
}

// CompileSPIRV translates WGSL source to SPIR-V words with naga.
func CompileSPIRV(src string) ([]uint32, error) {
	spv, err := naga.Compile(src)
	if err != nil {
		return nil, err
	}
	if len(spv)%4 != 0 {
		return nil, fmt.Errorf("spirv length %d is not a multiple of 4", len(spv))
	}
	words := make([]uint32, len(spv)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spv[4*i:])
	}
	return words, nil
}
