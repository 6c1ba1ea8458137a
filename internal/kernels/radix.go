// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/splat/internal/parallel"
)

const (
	// RadixBuckets is the number of buckets per pass (8 bits).
	RadixBuckets = 256

	// RadixPasses is the number of passes needed for 32-bit keys.
	RadixPasses = 4

	// DefaultRadixTile is the number of keys one histogram/scatter
	// invocation walks.
	DefaultRadixTile = 4096
)

// RadixTiles returns the number of tiles covering n keys.
func RadixTiles(n, tileSize uint32) uint32 {
	return (n + tileSize - 1) / tileSize
}

func radixBucket(key, pass uint32) uint32 {
	return (key >> (pass * 8)) & 0xFF
}

func tileRange(tile, tileSize, n uint32) (start, end uint32, ok bool) {
	start = tile * tileSize
	if start >= n {
		return 0, 0, false
	}
	return start, min(start+tileSize, n), true
}

// RadixHistogram counts the keys of one tile into its own 256-entry row
// hist[tile*256 : (tile+1)*256]. The row is reset before counting.
func RadixHistogram(tile uint32, keys []uint32, pass, tileSize uint32, hist []uint32) {
	start, end, ok := tileRange(tile, tileSize, uint32(len(keys)))
	if !ok {
		return
	}
	row := hist[tile*RadixBuckets : (tile+1)*RadixBuckets]
	clear(row)
	for _, k := range keys[start:end] {
		row[radixBucket(k, pass)]++
	}
}

// RadixScan converts per-tile counts into exclusive start offsets. Offsets
// run bucket-major then tile-minor, so lower tiles write first within a
// bucket. It is a single invocation and must run after every histogram
// invocation finished.
func RadixScan(hist []uint32, tiles uint32) {
	var sum uint32
	for b := range uint32(RadixBuckets) {
		for t := range tiles {
			i := t*RadixBuckets + b
			count := hist[i]
			hist[i] = sum
			sum += count
		}
	}
}

// RadixScatter moves the keys of one tile, and the values paired with them
// when values is non-nil, to the positions given by offsets. Keys are
// visited in input order, which keeps the partition stable.
func RadixScatter(tile uint32, keys, values, outKeys, outValues []uint32, pass, tileSize uint32, offsets []uint32) {
	start, end, ok := tileRange(tile, tileSize, uint32(len(keys)))
	if !ok {
		return
	}
	row := offsets[tile*RadixBuckets : (tile+1)*RadixBuckets]
	for i := start; i < end; i++ {
		k := keys[i]
		b := radixBucket(k, pass)
		dst := row[b]
		row[b]++
		outKeys[dst] = k
		if values != nil {
			outValues[dst] = values[i]
		}
	}
}

// RadixSort sorts keys ascending in place, permuting values alongside
// when values is non-nil. It runs histogram, scan and scatter for each of
// the four byte passes, least significant first, ping-ponging between the
// input and a scratch buffer.
func RadixSort(pool *parallel.WorkerPool, keys, values []uint32) {
	RadixSortTiled(pool, keys, values, DefaultRadixTile)
}

// RadixSortTiled is RadixSort with an explicit tile size.
func RadixSortTiled(pool *parallel.WorkerPool, keys, values []uint32, tileSize uint32) {
	n := uint32(len(keys))
	if n < 2 {
		return
	}
	if tileSize == 0 {
		tileSize = DefaultRadixTile
	}
	tiles := RadixTiles(n, tileSize)
	hist := make([]uint32, tiles*RadixBuckets)

	srcK, dstK := keys, make([]uint32, n)
	var srcV, dstV []uint32
	if values != nil {
		srcV, dstV = values, make([]uint32, n)
	}

	for pass := range uint32(RadixPasses) {
		parallel.Dispatch(pool, tiles, 1, func(tile uint32) {
			RadixHistogram(tile, srcK, pass, tileSize, hist)
		})
		RadixScan(hist, tiles)
		parallel.Dispatch(pool, tiles, 1, func(tile uint32) {
			RadixScatter(tile, srcK, srcV, dstK, dstV, pass, tileSize, hist)
		})
		srcK, dstK = dstK, srcK
		srcV, dstV = dstV, srcV
	}
	// An even number of passes leaves the result in the caller's buffers.
}

// FloatKey maps a float32 to a uint32 whose unsigned order matches the
// float order. Negative values have every bit flipped and non-negative
// values have the sign bit set.
func FloatKey(f float32) uint32 {
	b := math32.Float32bits(f)
	if b&0x80000000 != 0 {
		return ^b
	}
	return b | 0x80000000
}
