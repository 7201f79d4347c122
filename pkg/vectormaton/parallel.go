package vectormaton

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BuildParallel produces the same index as BuildSmart but spreads the
// per-state work across a worker pool, per spec's parallel build
// strategy. States never have a transition to another state of equal
// Len (an automaton transition always strictly increases Len), so
// grouping states into batches by descending Len and building a batch
// concurrently respects every inherit dependency: by the time batch L
// runs, every state reachable from it via a transition (strictly
// greater Len) is already in a previous, completed batch.
func (vm *VectorMaton) BuildParallel(ctx context.Context) error {
	vm.buildGSA()
	vm.initAux()

	n := vm.gsa.Size()
	largestState := make([]int32, n)
	for i := range largestState {
		largestState[i] = -1
	}

	batches := vm.batchesByDescendingLen()
	width := vm.cfg.NumThreads

	for _, batch := range batches {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(width)
		for _, s := range batch {
			s := s
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				vm.buildSmartState(s, largestState)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return wrapError("build_parallel", err)
		}
	}

	vm.gsa.DropIDs()
	vm.built = true
	return nil
}

// batchesByDescendingLen groups state indices by their Len value,
// ordered from the largest Len down to the smallest.
func (vm *VectorMaton) batchesByDescendingLen() [][]int32 {
	order := vm.gsa.TopoSort() // ascending Len

	byLen := map[int][]int32{}
	lens := make([]int, 0)
	for _, s := range order {
		l := vm.gsa.States[s].Len
		if _, ok := byLen[l]; !ok {
			lens = append(lens, l)
		}
		byLen[l] = append(byLen[l], s)
	}

	batches := make([][]int32, 0, len(lens))
	for i := len(lens) - 1; i >= 0; i-- {
		batches = append(batches, byLen[lens[i]])
	}
	return batches
}
