package splat

import (
	"context"
	"fmt"
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/splat/internal/kernels"
	"github.com/gogpu/splat/internal/parallel"
)

// Renderer draws splat clouds on the CPU. Each frame runs the same stages
// a GPU frame would: distance precompute and sort, vertex projection of
// one quad per splat, then rasterization and back-to-front premultiplied
// source-over compositing.
//
// A Renderer may be used from one goroutine at a time.
type Renderer struct {
	cfg    Config
	width  int
	height int

	pool   *parallel.WorkerPool
	sorter Sorter

	mu     sync.Mutex
	closed bool
}

// NewRenderer creates a renderer producing width×height pixmaps.
func NewRenderer(width, height int, opts ...Option) (*Renderer, error) {
	cfg := NewConfig(opts...)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("splat: renderer %dx%d: %w", width, height, ErrInvalidSize)
	}
	if !(cfg.RenderScale > 0) {
		return nil, fmt.Errorf("splat: render scale %v: %w", cfg.RenderScale, ErrInvalidSize)
	}

	pool := parallel.NewWorkerPool(cfg.Workers)
	r := &Renderer{
		cfg:    cfg,
		width:  width,
		height: height,
		pool:   pool,
		sorter: newSorter(cfg, pool),
	}
	Logger().Debug("splat: renderer created",
		"width", width, "height", height,
		"variant", cfg.Variant, "sort", cfg.SortMethod, "workers", pool.Workers())
	return r, nil
}

// Config returns the renderer configuration.
func (r *Renderer) Config() Config {
	return r.cfg
}

// Sorter returns the sorter used for back-to-front ordering.
func (r *Renderer) Sorter() Sorter {
	return r.sorter
}

// Close releases the worker pool. Sorters passed with WithSorter are not
// closed.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.pool.Close()
	return nil
}

// drawSize is the internal resolution after applying the render scale.
func (r *Renderer) drawSize() (int, int) {
	if r.cfg.RenderScale == 1 {
		return r.width, r.height
	}
	w := int(math32.Ceil(float32(r.width) / r.cfg.RenderScale))
	h := int(math32.Ceil(float32(r.height) / r.cfg.RenderScale))
	return max(w, 1), max(h, 1)
}

// Render draws cloud as seen from cam. An empty cloud yields a transparent
// pixmap without sorting. ctx is checked between stages.
func (r *Renderer) Render(ctx context.Context, cloud *Cloud, cam Camera) (*Pixmap, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	w, h := r.drawSize()
	pm := NewPixmap(w, h)

	n := cloud.Len()
	if n == 0 {
		return r.finish(pm), nil
	}
	if !cloud.Supports(r.cfg.Variant) {
		return nil, fmt.Errorf("splat: %v: %w", r.cfg.Variant, ErrVariantUnavailable)
	}

	order, err := r.sorter.Sort(ctx, SortRequest{
		Positions: cloud.PositionsFor(r.cfg.Variant),
		Model:     cloud.Model,
		Camera:    cam.Position,
	})
	if err != nil {
		return nil, fmt.Errorf("splat: sort: %w", err)
	}
	if len(order) != n {
		return nil, fmt.Errorf("splat: sorter returned %d of %d splats", len(order), n)
	}
	for i, o := range order {
		if int(o.Index) >= n {
			return nil, fmt.Errorf("splat: sorter returned index %d at %d, cloud has %d splats", o.Index, i, n)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u := cam.Uniforms(w, h, cloud.Model, r.cfg)
	quads := r.project(cloud, order, &u)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.composite(pm, quads)

	Logger().Debug("splat: frame rendered", "splats", n, "width", w, "height", h)
	return r.finish(pm), nil
}

// project runs the vertex stage for the four corners of every splat, in
// sorted order.
func (r *Renderer) project(cloud *Cloud, order []IndexedDistance, u *Uniforms) [][4]kernels.VertexOut {
	n := uint32(len(order))
	quads := make([][4]kernels.VertexOut, n)
	counters := r.cfg.Counters

	switch r.cfg.Variant {
	case VariantCompact:
		parallel.DispatchN(r.pool, n, func(gid uint32) {
			if gid >= n {
				return
			}
			s := &cloud.compact[order[gid].Index]
			for i, c := range kernels.QuadCorners {
				quads[gid][i] = kernels.ProjectVertexCompact(c.Mul(kernels.BoundsRadius), s, u, counters)
			}
		})
	default:
		parallel.DispatchN(r.pool, n, func(gid uint32) {
			if gid >= n {
				return
			}
			s := &cloud.classic[order[gid].Index]
			for i, c := range kernels.QuadCorners {
				quads[gid][i] = kernels.ProjectVertex(c, s, u, counters)
			}
		})
	}
	return quads
}

// composite rasterizes quads in order, farthest first.
func (r *Renderer) composite(pm *Pixmap, quads [][4]kernels.VertexOut) {
	w, h := pm.Width(), pm.Height()
	for qi := range quads {
		q := &quads[qi]
		color := q[0].Color
		kernels.RasterizeQuad(q, w, h, func(x, y int, rel mgl32.Vec2, primitive uint32) {
			var (
				out mgl32.Vec4
				ok  bool
			)
			switch {
			case r.cfg.Debug:
				out, ok = kernels.DebugFragment(primitive), true
			case r.cfg.Variant == VariantCompact:
				out, ok = kernels.ShadeFragmentCompact(rel, color)
			default:
				out, ok = kernels.ShadeFragment(rel, color, r.cfg.DiscardRate)
			}
			if ok {
				pm.Blend(x, y, out)
			}
		})
	}
}

func (r *Renderer) finish(pm *Pixmap) *Pixmap {
	if pm.Width() == r.width && pm.Height() == r.height {
		return pm
	}
	return pm.Scale(r.width, r.height)
}
