// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import (
	"encoding/binary"

	"github.com/chewxy/math32"
)

// Buffer record sizes in bytes.
const (
	IndexedDistanceSize = 8
	SortParamsSize      = 16
)

// AppendIndexedDistances appends the little-endian {u32, f32} layout of
// each record to b.
func AppendIndexedDistances(b []byte, records []IndexedDistance) []byte {
	for _, r := range records {
		b = binary.LittleEndian.AppendUint32(b, r.Index)
		b = binary.LittleEndian.AppendUint32(b, math32.Float32bits(r.Distance))
	}
	return b
}

// DecodeIndexedDistances decodes len(b)/8 records. Trailing bytes are
// ignored.
func DecodeIndexedDistances(b []byte) []IndexedDistance {
	out := make([]IndexedDistance, len(b)/IndexedDistanceSize)
	for i := range out {
		rec := b[i*IndexedDistanceSize:]
		out[i] = IndexedDistance{
			Index:    binary.LittleEndian.Uint32(rec),
			Distance: math32.Float32frombits(binary.LittleEndian.Uint32(rec[4:])),
		}
	}
	return out
}

// Append appends the four u32 fields in declaration order.
func (p SortParams) Append(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, p.SplatCount)
	b = binary.LittleEndian.AppendUint32(b, p.GroupWidth)
	b = binary.LittleEndian.AppendUint32(b, p.GroupHeight)
	return binary.LittleEndian.AppendUint32(b, p.StepIndex)
}
