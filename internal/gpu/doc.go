// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Package gpu runs the splat ordering pipelines on a wgpu HAL device.
//
// This is an internal package used by the public splat/gpu sorter. The
// compute shaders under shaders/ mirror the CPU kernels of
// internal/kernels one to one:
//
//	distance.wgsl        DistancePreCalcIndexed
//	bitonic.wgsl         BitonicStageIndexed
//	radix_keys.wgsl      ^FloatKey per record
//	radix_histogram.wgsl RadixHistogram
//	radix_scan.wgsl      RadixScan
//	radix_scatter.wgsl   RadixScatter
//	radix_gather.wgsl    records[values[i]]
//
// SortDispatcher records the distance pass followed by either the full
// bitonic schedule or the radix passes into one command buffer, submits
// it, and maps a staging copy of the ordered records. Its buffers persist
// between sorts in an LRU pool bounded by SetPoolBudget.
//
// splat.wgsl holds the vertex and fragment stages for hosts that draw the
// sorted splats with their own render pipeline. AppendVertexUniforms,
// AppendSplats and AppendCompactSplats produce its buffer contents.
package gpu
