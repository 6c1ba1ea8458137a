// Package parallel runs compute kernels on the CPU.
//
// A kernel is a function of a single global thread index, the same shape as
// a GPU compute entry point. Dispatch spreads a grid of thread indices across
// a work-stealing WorkerPool and returns once every invocation has finished,
// which gives callers the full completion barrier that GPU hosts place
// between successive dispatches.
//
// Thread safety: WorkerPool is safe for concurrent use. Kernels dispatched
// through it must only write to disjoint memory or use atomics.
package parallel
