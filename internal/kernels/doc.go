// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package kernels contains CPU versions of the splat compute and shading
// entry points.
//
// Each exported function corresponds to one shader entry point and takes the
// same inputs, including the global thread index for compute kernels. The
// functions are invoked through internal/parallel, which provides the grid
// and the completion barrier between dispatches. The WGSL sources in
// internal/gpu/shaders implement identical arithmetic.
//
// Matrices are mgl32 values and therefore column-major, matching the GPU
// memory layout: element (row r, col c) of a Mat3 is m[c*3+r].
package kernels
