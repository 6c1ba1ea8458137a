package splat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/splat/internal/kernels"
	"github.com/gogpu/splat/internal/parallel"
)

// SortRequest is the input of one sort: the splat centers, the model
// matrix placing them in the world, and the camera position.
type SortRequest struct {
	Positions []mgl32.Vec3
	Model     mgl32.Mat4
	Camera    mgl32.Vec3
}

// Sorter orders splats back-to-front.
//
// Sort returns one IndexedDistance per position, ordered by decreasing
// squared distance between the model-space position and the camera. The
// result is a permutation of [0, len(Positions)). An empty request returns
// an empty result.
type Sorter interface {
	Sort(ctx context.Context, req SortRequest) ([]IndexedDistance, error)
}

// =============================================================================
// Bitonic
// =============================================================================

// BitonicSorter runs distance precompute and the bitonic network on a
// worker pool, one dispatch per network stage.
type BitonicSorter struct {
	pool     *parallel.WorkerPool
	ownsPool bool
}

// NewBitonicSorter creates a bitonic sorter with its own pool of n workers
// (n ≤ 0 means GOMAXPROCS). Call Close when done.
func NewBitonicSorter(workers int) *BitonicSorter {
	return &BitonicSorter{pool: parallel.NewWorkerPool(workers), ownsPool: true}
}

// Sort implements Sorter.
func (s *BitonicSorter) Sort(ctx context.Context, req SortRequest) ([]IndexedDistance, error) {
	n := uint32(len(req.Positions))
	if n == 0 {
		return nil, nil
	}

	records := make([]IndexedDistance, n)
	parallel.DispatchN(s.pool, n, func(gid uint32) {
		kernels.DistancePreCalcIndexed(gid, req.Positions, req.Model, req.Camera, records)
	})

	schedule := kernels.BitonicSchedule(n)
	threads := kernels.BitonicThreads(n)
	for _, p := range schedule {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parallel.DispatchN(s.pool, threads, func(gid uint32) {
			kernels.BitonicStageIndexed(gid, p, records)
		})
	}

	Logger().Debug("splat: bitonic sort", "splats", n, "stages", len(schedule))
	return records, nil
}

// Close releases the worker pool.
func (s *BitonicSorter) Close() error {
	if s.ownsPool {
		s.pool.Close()
	}
	return nil
}

// =============================================================================
// Radix
// =============================================================================

// RadixSorter sorts by the order-preserving bit pattern of the distance,
// inverted for descending order, with the four-pass LSB radix sort. Equal
// distances keep increasing index order.
type RadixSorter struct {
	pool     *parallel.WorkerPool
	ownsPool bool
	tileSize uint32
}

// NewRadixSorter creates a radix sorter with its own pool of n workers
// (n ≤ 0 means GOMAXPROCS). Call Close when done.
func NewRadixSorter(workers int) *RadixSorter {
	return &RadixSorter{
		pool:     parallel.NewWorkerPool(workers),
		ownsPool: true,
		tileSize: kernels.DefaultRadixTile,
	}
}

// Sort implements Sorter.
func (s *RadixSorter) Sort(ctx context.Context, req SortRequest) ([]IndexedDistance, error) {
	n := uint32(len(req.Positions))
	if n == 0 {
		return nil, nil
	}

	distances := make([]float32, n)
	parallel.DispatchN(s.pool, n, func(gid uint32) {
		kernels.DistancePreCalc(gid, req.Positions, req.Model, req.Camera, distances)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := make([]uint32, n)
	values := make([]uint32, n)
	for i, d := range distances {
		keys[i] = ^kernels.FloatKey(d)
		values[i] = uint32(i)
	}
	kernels.RadixSortTiled(s.pool, keys, values, s.tileSize)

	records := make([]IndexedDistance, n)
	for i, idx := range values {
		records[i] = IndexedDistance{Index: idx, Distance: distances[idx]}
	}

	Logger().Debug("splat: radix sort", "splats", n, "tiles", kernels.RadixTiles(n, s.tileSize))
	return records, nil
}

// Close releases the worker pool.
func (s *RadixSorter) Close() error {
	if s.ownsPool {
		s.pool.Close()
	}
	return nil
}

// =============================================================================
// Registration
// =============================================================================

var (
	sorterMu   sync.RWMutex
	registered Sorter
)

// RegisterSorter installs the sorter used by SortGPU. Subsequent calls
// replace the previous one and close it if it implements io.Closer.
//
// Importing the gpu package registers a GPU bitonic sorter. To use the
// GPU radix pipeline instead:
//
//	_ = splat.RegisterSorter(gpu.NewStandaloneSorter(gpu.Radix))
func RegisterSorter(s Sorter) error {
	if s == nil {
		return errors.New("splat: sorter must not be nil")
	}
	propagateLogger(s, Logger())

	sorterMu.Lock()
	old := registered
	registered = s
	sorterMu.Unlock()

	if old != nil && old != s {
		if c, ok := old.(io.Closer); ok {
			if err := c.Close(); err != nil {
				Logger().Warn("splat: closing replaced sorter", "err", err)
			}
		}
	}
	Logger().Info("splat: sorter registered", "type", fmt.Sprintf("%T", s))
	return nil
}

// RegisteredSorter returns the sorter installed by RegisterSorter, or nil.
func RegisteredSorter() Sorter {
	sorterMu.RLock()
	defer sorterMu.RUnlock()
	return registered
}

// newSorter resolves the configured sorter. Built-in sorters borrow pool.
func newSorter(cfg Config, pool *parallel.WorkerPool) Sorter {
	if cfg.Sorter != nil {
		return cfg.Sorter
	}
	switch cfg.SortMethod {
	case SortRadix:
		return &RadixSorter{pool: pool, tileSize: kernels.DefaultRadixTile}
	case SortGPU:
		if r := RegisteredSorter(); r != nil {
			return r
		}
		Logger().Warn("splat: no GPU sorter registered, falling back to CPU bitonic sort")
	}
	return &BitonicSorter{pool: pool}
}
