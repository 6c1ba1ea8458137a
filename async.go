package splat

import (
	"context"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// SortResult is the outcome of one asynchronous sort.
type SortResult struct {
	Request SortRequest
	Order   []IndexedDistance
	Err     error
}

// sortKey identifies a request for duplicate suppression. Two requests with
// the same camera, model and splat count produce the same order.
type sortKey struct {
	camera mgl32.Vec3
	model  mgl32.Mat4
	count  int
}

func keyOf(req SortRequest) sortKey {
	return sortKey{camera: req.Camera, model: req.Model, count: len(req.Positions)}
}

// AsyncSorter sorts on a background goroutine so that a render loop can
// keep drawing with the previous order while the next one is computed.
//
// Requests that arrive while a sort is running are coalesced: only the
// newest pending request is sorted. A request identical to the last
// sorted one, or with no positions, is dropped without producing a result.
type AsyncSorter struct {
	sorter  Sorter
	results chan SortResult
	wake    chan struct{}

	mu      sync.Mutex
	pending *SortRequest
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAsyncSorter starts a background goroutine sorting with s.
func NewAsyncSorter(s Sorter) *AsyncSorter {
	ctx, cancel := context.WithCancel(context.Background())
	a := &AsyncSorter{
		sorter:  s,
		results: make(chan SortResult, 1),
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// Request schedules a sort, replacing any request not yet started.
func (a *AsyncSorter) Request(req SortRequest) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	a.pending = &req
	a.mu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
	return nil
}

// Results delivers completed sorts. It is closed by Close.
func (a *AsyncSorter) Results() <-chan SortResult {
	return a.results
}

// Close cancels a running sort, stops the goroutine and closes Results.
// It does not close the wrapped sorter.
func (a *AsyncSorter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.cancel()
	a.wg.Wait()
	close(a.results)
	return nil
}

func (a *AsyncSorter) run() {
	defer a.wg.Done()

	var (
		last    sortKey
		hasLast bool
	)
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.wake:
		}

		a.mu.Lock()
		req := a.pending
		a.pending = nil
		a.mu.Unlock()
		if req == nil || len(req.Positions) == 0 {
			continue
		}

		key := keyOf(*req)
		if hasLast && key == last {
			Logger().Debug("splat: duplicate sort request skipped", "splats", key.count)
			continue
		}

		order, err := a.sorter.Sort(a.ctx, *req)
		if a.ctx.Err() != nil {
			return
		}
		if err == nil {
			last, hasLast = key, true
		} else {
			Logger().Warn("splat: async sort failed", "err", err)
		}

		select {
		case a.results <- SortResult{Request: *req, Order: order, Err: err}:
		case <-a.ctx.Done():
			return
		}
	}
}
