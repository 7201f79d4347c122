// Package vectormaton implements the hybrid vector+substring nearest
// neighbor engine: a Generalized Suffix Automaton narrows every query
// to the states matching its substring, and a per-state HNSW graph (or,
// for small states, brute force) ranks the candidates by vector
// distance. Grounded on original_source/source/vectormaton.cpp.
package vectormaton

import (
	"sort"
	"time"

	"github.com/liliang-cn/vectormaton/internal/automaton"
	"github.com/liliang-cn/vectormaton/internal/vmlog"
	"github.com/liliang-cn/vectormaton/pkg/dataset"
	"github.com/liliang-cn/vectormaton/pkg/index"
)

// VectorMaton is the engine described by the package doc comment. It is
// built once (via BuildFull, BuildSmart or BuildParallel) and is safe
// for concurrent queries afterward; Build* methods are not concurrency
// safe with each other or with Query.
type VectorMaton struct {
	cfg Config
	ds  *dataset.Dataset
	gsa *automaton.GSA
	log vmlog.Logger

	graphs       []*index.HNSW // per-state HNSW, nil if below threshold
	inheritState []int32       // per-state inherited state, -1 if none
	sizeIDs      []int         // per-state count of locally-held candidate ids
	candidateIDs [][]uint32    // per-state locally-held candidate ids

	built bool
}

// New creates an unbuilt VectorMaton over ds with the given
// configuration. Zero fields of cfg take spec defaults.
func New(ds *dataset.Dataset, cfg Config, log vmlog.Logger) (*VectorMaton, error) {
	if ds.N() == 0 {
		return nil, wrapError("new", ErrEmptyDataset)
	}
	if cfg.Dim != 0 && cfg.Dim != ds.Dim {
		return nil, wrapError("new", ErrDimensionMismatch)
	}
	if log == nil {
		log = vmlog.Nop()
	}
	cfg = cfg.withDefaults()
	cfg.Dim = ds.Dim
	return &VectorMaton{cfg: cfg, ds: ds, log: log}, nil
}

func (vm *VectorMaton) buildGSA() {
	start := time.Now()
	vm.gsa = automaton.New()
	for i := 0; i < vm.ds.N(); i++ {
		vm.gsa.AddString(uint32(i), vm.ds.Strings[i])
	}
	vm.log.Debug("GSA built", "elapsed", time.Since(start),
		"states", vm.gsa.Size(), "total_ids", vm.gsa.SizeTot())

	for _, b := range vm.gsa.GetStatistics() {
		vm.log.Debug("GSA depth bucket",
			"depth", b.Depth, "states", b.NumStates, "median_ids", b.MedianIDs, "mean_ids", b.MeanIDs)
	}
}

func (vm *VectorMaton) initAux() {
	n := vm.gsa.Size()
	vm.graphs = make([]*index.HNSW, n)
	vm.inheritState = make([]int32, n)
	vm.sizeIDs = make([]int, n)
	vm.candidateIDs = make([][]uint32, n)
	for i := range vm.inheritState {
		vm.inheritState[i] = -1
	}
}

// BuildFull builds an independent HNSW graph for every GSA state whose
// id set meets MinBuildThreshold, per spec §4.4 / vectormaton.cpp's
// build_full. Smaller states are answered by brute force over their
// full candidate set.
func (vm *VectorMaton) BuildFull() error {
	vm.buildGSA()
	vm.initAux()

	order := vm.gsa.TopoSort()
	total := len(order)
	for i := total - 1; i >= 0; i-- {
		s := order[i]
		st := vm.gsa.States[s]
		ids := st.IDs

		vm.sizeIDs[s] = len(ids)
		vm.candidateIDs[s] = append([]uint32(nil), ids...)

		if len(ids) < vm.cfg.MinBuildThreshold {
			continue
		}

		g := index.New(vm.cfg.Dim, len(ids), vm.cfg.M, vm.cfg.EfConstruction)
		for _, id := range ids {
			g.AddPoint(id, vm.ds.Vectors[id])
		}
		vm.graphs[s] = g
	}

	vm.gsa.DropIDs()
	vm.built = true
	return nil
}

// BuildSmart builds graphs only where no already-built descendant graph
// can be reused, inheriting the rest via the subset invariant between a
// state and the states reachable from it (spec §4.4 / build_smart).
// Each state stores only the candidate ids NOT already covered by its
// inherited state, so a query merges the local graph's results with the
// inherited graph's results instead of rebuilding a graph covering the
// same ids twice.
func (vm *VectorMaton) BuildSmart() error {
	vm.buildGSA()
	vm.initAux()

	n := vm.gsa.Size()
	largestState := make([]int32, n)
	for i := range largestState {
		largestState[i] = -1
	}

	order := vm.gsa.TopoSort()
	for i := len(order) - 1; i >= 0; i-- {
		s := order[i]
		vm.buildSmartState(s, largestState)
	}

	vm.gsa.DropIDs()
	vm.built = true
	return nil
}

func (vm *VectorMaton) buildSmartState(s int32, largestState []int32) {
	st := vm.gsa.States[s]
	ids := st.IDs

	if len(ids) < vm.cfg.MinBuildThreshold {
		vm.sizeIDs[s] = len(ids)
		vm.candidateIDs[s] = append([]uint32(nil), ids...)
		return
	}

	targetSC := int32(-1)
	for _, ch := range st.Transitions() {
		if largestState[ch] != -1 && (targetSC == -1 || vm.sizeIDs[largestState[ch]] > vm.sizeIDs[targetSC]) {
			targetSC = largestState[ch]
		}
	}
	vm.inheritState[s] = targetSC

	if targetSC == -1 {
		g := index.New(vm.cfg.Dim, len(ids), vm.cfg.M, vm.cfg.EfConstruction)
		for _, id := range ids {
			g.AddPoint(id, vm.ds.Vectors[id])
		}
		vm.graphs[s] = g
		vm.sizeIDs[s] = len(ids)
		vm.candidateIDs[s] = append([]uint32(nil), ids...)
		largestState[s] = s
		return
	}

	largestState[s] = targetSC
	delta := diffSorted(ids, vm.candidateIDs[targetSC])
	vm.sizeIDs[s] = len(delta)
	vm.candidateIDs[s] = delta

	if len(delta) >= vm.cfg.MinBuildThreshold {
		g := index.New(vm.cfg.Dim, len(delta), vm.cfg.M, vm.cfg.EfConstruction)
		for _, id := range delta {
			g.AddPoint(id, vm.ds.Vectors[id])
		}
		vm.graphs[s] = g
		if vm.sizeIDs[s] > vm.sizeIDs[targetSC] {
			largestState[s] = s
		}
	}
}

// diffSorted returns the elements of full that are not present in sub,
// assuming sub is a sorted subset of the sorted slice full (guaranteed
// by the GSA's subset invariant between a state and its descendants).
func diffSorted(full, sub []uint32) []uint32 {
	out := make([]uint32, 0, len(full)-len(sub))
	l, r := 0, 0
	for l < len(full) || r < len(sub) {
		if r == len(sub) {
			out = append(out, full[l])
			l++
			continue
		}
		if full[l] == sub[r] {
			l++
			r++
			continue
		}
		out = append(out, full[l])
		l++
	}
	return out
}

// Query finds the GSA state matching substr, then merges the state's
// local result set with its inherited state's result set (if any) in
// ascending distance order, returning up to k ids. Per spec §4.7.
func (vm *VectorMaton) Query(vec []float32, substr string, k int) []uint32 {
	if k <= 0 || !vm.built {
		return nil
	}
	s := vm.gsa.Query(substr)
	if s == -1 {
		return nil
	}

	local := vm.searchState(s, vec, k)
	var inherited []scored
	if t := vm.inheritState[s]; t != -1 {
		if vm.graphs[t] == nil {
			vm.log.Error("inherited state has no built graph; returning local-only results",
				"state", s, "inherit", t)
		} else {
			inherited = vm.searchState(t, vec, k)
		}
	}

	// Both pools are, by the subset invariant, already restricted to ids
	// whose string contains substr. The membership check below is a
	// defensive backstop against a future pool that searches a shared
	// graph rather than a per-state one (spec §9's "inherited searches
	// may return ids not in ids[s]" warning), not load-bearing today.
	results := make([]uint32, 0, k)
	li, ri := 0, 0
	for (li < len(local) || ri < len(inherited)) && len(results) < k {
		switch {
		case li >= len(local):
			if vm.ds.Contains(inherited[ri].id, substr) {
				results = append(results, inherited[ri].id)
			}
			ri++
		case ri >= len(inherited):
			if vm.ds.Contains(local[li].id, substr) {
				results = append(results, local[li].id)
			}
			li++
		case local[li].dist < inherited[ri].dist:
			if vm.ds.Contains(local[li].id, substr) {
				results = append(results, local[li].id)
			}
			li++
		default:
			if vm.ds.Contains(inherited[ri].id, substr) {
				results = append(results, inherited[ri].id)
			}
			ri++
		}
	}
	return results
}

type scored struct {
	id   uint32
	dist float32
}

func (vm *VectorMaton) searchState(s int32, vec []float32, k int) []scored {
	if g := vm.graphs[s]; g != nil {
		ids, dists := g.SearchKNN(vec, k, vm.cfg.EfSearch)
		out := make([]scored, len(ids))
		for i := range ids {
			out[i] = scored{id: ids[i], dist: dists[i]}
		}
		return out
	}

	ids := vm.candidateIDs[s]
	out := make([]scored, len(ids))
	for i, id := range ids {
		out[i] = scored{id: id, dist: index.EuclideanDistance(vm.ds.Vectors[id], vec)}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].dist < out[j].dist })
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// SetEf updates the query-time candidate pool size on every built
// graph.
func (vm *VectorMaton) SetEf(ef int) {
	vm.cfg.EfSearch = ef
	for _, g := range vm.graphs {
		if g != nil {
			g.SetEf(ef)
		}
	}
}

// Size approximates the engine's memory footprint: built graphs plus
// GSA structural arrays plus raw dataset storage, mirroring
// vectormaton.cpp's size().
func (vm *VectorMaton) Size() int {
	total := 0
	for _, g := range vm.graphs {
		if g != nil {
			total += g.Size() * vm.cfg.Dim * 4
		}
	}
	for _, st := range vm.gsa.States {
		total += len(st.Transitions())*5 + 12
	}
	for _, s := range vm.ds.Strings {
		total += len(s)
	}
	total += vm.ds.N() * vm.ds.Dim * 4
	return total
}

// VertexCount returns the total number of vectors held across every
// built graph, mirroring vectormaton.cpp's vertex_num().
func (vm *VectorMaton) VertexCount() int {
	total := 0
	for s, g := range vm.graphs {
		if g != nil {
			total += vm.sizeIDs[s]
		}
	}
	return total
}
