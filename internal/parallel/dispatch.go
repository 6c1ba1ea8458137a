package parallel

// Kernel is one compute invocation, identified by its global thread index.
type Kernel func(gid uint32)

// DefaultGroupSize is the number of invocations batched into one work item.
const DefaultGroupSize = 256

// Groups returns the number of workgroups of size groupSize needed to
// cover n invocations.
func Groups(n, groupSize uint32) uint32 {
	if groupSize == 0 {
		groupSize = DefaultGroupSize
	}
	return (n + groupSize - 1) / groupSize
}

// Dispatch runs kernel for every gid in [0, groups*groupSize) and returns
// after all invocations completed. Like a GPU grid, the total may exceed
// the logical element count; kernels must guard their own bounds.
//
// A nil pool runs the grid on the calling goroutine.
func Dispatch(p *WorkerPool, groups, groupSize uint32, kernel Kernel) {
	if groups == 0 || groupSize == 0 {
		return
	}
	if p == nil {
		total := groups * groupSize
		for gid := range total {
			kernel(gid)
		}
		return
	}

	work := make([]func(), groups)
	for g := range groups {
		base := g * groupSize
		work[g] = func() {
			for local := range groupSize {
				kernel(base + local)
			}
		}
	}
	p.ExecuteAll(work)
}

// DispatchN covers n invocations with DefaultGroupSize workgroups.
func DispatchN(p *WorkerPool, n uint32, kernel Kernel) {
	Dispatch(p, Groups(n, DefaultGroupSize), DefaultGroupSize, kernel)
}
