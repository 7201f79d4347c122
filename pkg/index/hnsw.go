// Package index provides the per-state Hierarchical Navigable Small
// World (HNSW) graph used by every proximity-search component of the
// engine: the VectorMaton builds one instance per Generalized Suffix
// Automaton state, and the brute-force baselines reuse its distance
// kernel directly.
package index

import (
	"container/heap"
	"encoding/gob"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sync"
)

// HNSWNode is a single indexed point. IDs are dataset record ids
// (§3 of the spec: records are addressed by a dense id in [0,N)), not
// arbitrary strings, since every HNSW instance in this engine indexes a
// subset of the same fixed record population.
type HNSWNode struct {
	ID        uint32
	Vector    []float32
	Level     int
	Neighbors [][]uint32 // neighbor ids at each level
}

// HNSW implements a layered proximity graph over a fixed-dimension
// vector space, addressed by 32-bit record id, per spec §4.2.
type HNSW struct {
	Dim            int
	M              int     // max bi-directional links per node above layer 0
	MaxM0          int     // max links at layer 0 (2*M)
	EfConstruction int     // candidate list size used while building
	Mult           float64 // level-assignment parameter, 1/ln(M)

	Nodes      map[uint32]*HNSWNode
	EntryPoint uint32
	hasEntry   bool

	ef       int // default per-query candidate pool size (set_ef)
	DistFunc func(a, b []float32) float32

	mu  sync.RWMutex
	rng *rand.Rand
}

// New creates an empty HNSW graph over dim-dimensional vectors. capacity
// is a sizing hint for the backing node map; M defaults to 16 and
// efConstruction to 200 when zero is passed, matching the spec's
// defaults for new(dim, capacity, M=16, ef_construction=200).
func New(dim, capacity, m, efConstruction int) *HNSW {
	if m <= 0 {
		m = 16
	}
	if efConstruction <= 0 {
		efConstruction = 200
	}
	if capacity < 0 {
		capacity = 0
	}
	return &HNSW{
		Dim:            dim,
		M:              m,
		MaxM0:          m * 2,
		EfConstruction: efConstruction,
		Mult:           1.0 / math.Log(float64(m)),
		Nodes:          make(map[uint32]*HNSWNode, capacity),
		ef:             efConstruction,
		DistFunc:       EuclideanDistance,
		rng:            rand.New(rand.NewSource(1)),
	}
}

// SetEf sets the per-query candidate pool size used by SearchKNN; larger
// values trade query latency for recall.
func (h *HNSW) SetEf(ef int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ef = ef
}

// selectLevel draws a level from the standard HNSW geometric
// distribution: level = floor(-ln(U) * mult), mult = 1/ln(M).
func (h *HNSW) selectLevel() int {
	u := h.rng.Float64()
	for u == 0 {
		u = h.rng.Float64()
	}
	level := int(math.Floor(-math.Log(u) * h.Mult))
	if level > 32 {
		level = 32
	}
	return level
}

// AddPoint inserts a new vector under id. Building connections follows
// the ef_construction-candidate heuristic from top level down, enforcing
// maxM (M above layer 0, MaxM0 = 2*M at layer 0).
func (h *HNSW) AddPoint(id uint32, vector []float32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.Nodes[id]; exists {
		return fmt.Errorf("index: point %d already exists", id)
	}

	level := h.selectLevel()
	node := &HNSWNode{ID: id, Vector: vector, Level: level, Neighbors: make([][]uint32, level+1)}
	for i := 0; i <= level; i++ {
		node.Neighbors[i] = make([]uint32, 0)
	}
	h.Nodes[id] = node

	if !h.hasEntry {
		h.EntryPoint = id
		h.hasEntry = true
		return nil
	}

	entry := h.Nodes[h.EntryPoint]
	currNearest := []uint32{h.EntryPoint}
	for lc := entry.Level; lc > level; lc-- {
		currNearest = h.searchLayerClosest(vector, currNearest, 1, lc)
	}

	for lc := level; lc >= 0; lc-- {
		maxConn := h.M
		if lc == 0 {
			maxConn = h.MaxM0
		}

		candidates := h.searchLayer(vector, currNearest, h.EfConstruction, lc)
		neighbors := h.selectNeighbors(vector, candidates, maxConn)

		node.Neighbors[lc] = neighbors
		for _, nb := range neighbors {
			h.addConnection(nb, id, lc)

			nbNode := h.Nodes[nb]
			nbMax := h.M
			if lc == 0 {
				nbMax = h.MaxM0
			}
			if lc < len(nbNode.Neighbors) && len(nbNode.Neighbors[lc]) > nbMax {
				nbNode.Neighbors[lc] = h.selectNeighbors(nbNode.Vector, nbNode.Neighbors[lc], nbMax)
			}
		}
		currNearest = neighbors
	}

	if level > h.Nodes[h.EntryPoint].Level {
		h.EntryPoint = id
	}
	return nil
}

func (h *HNSW) searchLayerClosest(query []float32, entryPoints []uint32, num, layer int) []uint32 {
	candidates := h.searchLayer(query, entryPoints, num, layer)
	if len(candidates) > num {
		return candidates[:num]
	}
	return candidates
}

// searchLayer performs the best-first search within a single level using
// a bounded candidate heap of size ef.
func (h *HNSW) searchLayer(query []float32, entryPoints []uint32, ef, layer int) []uint32 {
	visited := make(map[uint32]bool, ef*2)
	candidates := &minHeap{}
	furthest := &maxHeap{}

	for _, p := range entryPoints {
		dist := h.DistFunc(query, h.Nodes[p].Vector)
		heap.Push(candidates, heapItem{id: p, dist: dist})
		heap.Push(furthest, heapItem{id: p, dist: dist})
		visited[p] = true
	}

	for candidates.Len() > 0 {
		if furthest.Len() > 0 && (*candidates)[0].dist > (*furthest)[0].dist {
			break
		}

		current := heap.Pop(candidates).(heapItem)
		currentNode := h.Nodes[current.id]
		if layer >= len(currentNode.Neighbors) {
			continue
		}

		for _, nb := range currentNode.Neighbors[layer] {
			if visited[nb] {
				continue
			}
			visited[nb] = true

			dist := h.DistFunc(query, h.Nodes[nb].Vector)
			if furthest.Len() < ef || dist < (*furthest)[0].dist {
				heap.Push(candidates, heapItem{id: nb, dist: dist})
				heap.Push(furthest, heapItem{id: nb, dist: dist})
				if furthest.Len() > ef {
					heap.Pop(furthest)
				}
			}
		}
	}

	result := make([]uint32, furthest.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(furthest).(heapItem).id
	}
	return result
}

// selectNeighbors keeps the m closest candidates to query.
func (h *HNSW) selectNeighbors(query []float32, candidates []uint32, m int) []uint32 {
	if len(candidates) <= m {
		out := make([]uint32, len(candidates))
		copy(out, candidates)
		return out
	}

	type pair struct {
		id   uint32
		dist float32
	}
	pairs := make([]pair, len(candidates))
	for i, c := range candidates {
		pairs[i] = pair{id: c, dist: h.DistFunc(query, h.Nodes[c].Vector)}
	}
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j].dist < pairs[j-1].dist; j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}

	out := make([]uint32, m)
	for i := 0; i < m; i++ {
		out[i] = pairs[i].id
	}
	return out
}

func (h *HNSW) addConnection(from, to uint32, layer int) {
	node, ok := h.Nodes[from]
	if !ok || layer >= len(node.Neighbors) {
		return
	}
	for _, nb := range node.Neighbors[layer] {
		if nb == to {
			return
		}
	}
	node.Neighbors[layer] = append(node.Neighbors[layer], to)
}

// SearchKNN performs a greedy descent from the entry point through the
// upper levels, then a best-first search at level 0 with candidate pool
// ef, returning up to k ids in ascending distance order.
func (h *HNSW) SearchKNN(query []float32, k, ef int) ([]uint32, []float32) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.hasEntry {
		return []uint32{}, []float32{}
	}
	if ef <= 0 {
		ef = h.ef
	}
	if ef < k {
		ef = k
	}

	entry := h.Nodes[h.EntryPoint]
	currNearest := []uint32{h.EntryPoint}
	for layer := entry.Level; layer > 0; layer-- {
		currNearest = h.searchLayerClosest(query, currNearest, 1, layer)
	}

	candidates := h.searchLayer(query, currNearest, ef, 0)

	type result struct {
		id   uint32
		dist float32
	}
	results := make([]result, len(candidates))
	for i, c := range candidates {
		results[i] = result{id: c, dist: h.DistFunc(query, h.Nodes[c].Vector)}
	}
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].dist < results[j-1].dist; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}

	if k > len(results) {
		k = len(results)
	}
	ids := make([]uint32, k)
	dists := make([]float32, k)
	for i := 0; i < k; i++ {
		ids[i] = results[i].id
		dists[i] = results[i].dist
	}
	return ids, dists
}

// Size returns the number of indexed points.
func (h *HNSW) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.Nodes)
}

// Stats returns observational counters used for statistics output.
func (h *HNSW) Stats() map[string]any {
	h.mu.RLock()
	defer h.mu.RUnlock()

	totalEdges, maxLevel := 0, 0
	for _, node := range h.Nodes {
		if node.Level > maxLevel {
			maxLevel = node.Level
		}
		for _, neighbors := range node.Neighbors {
			totalEdges += len(neighbors)
		}
	}
	avg := float64(0)
	if len(h.Nodes) > 0 {
		avg = float64(totalEdges) / float64(len(h.Nodes))
	}
	return map[string]any{
		"nodes":              len(h.Nodes),
		"edges":              totalEdges,
		"avg_edges_per_node": avg,
		"max_level":          maxLevel,
		"entry_point":        h.EntryPoint,
		"M":                  h.M,
		"ef_construction":    h.EfConstruction,
	}
}

// Save serializes the graph with gob. The format is opaque but
// byte-compatible with itself across runs, as required by §4.2.
func (h *HNSW) Save(w io.Writer) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	enc := gob.NewEncoder(w)
	if err := enc.Encode(h.Dim); err != nil {
		return err
	}
	if err := enc.Encode(h.M); err != nil {
		return err
	}
	if err := enc.Encode(h.EfConstruction); err != nil {
		return err
	}
	if err := enc.Encode(h.EntryPoint); err != nil {
		return err
	}
	if err := enc.Encode(h.hasEntry); err != nil {
		return err
	}
	if err := enc.Encode(len(h.Nodes)); err != nil {
		return err
	}
	for _, node := range h.Nodes {
		if err := enc.Encode(node); err != nil {
			return err
		}
	}
	return nil
}

// Load reconstructs a graph previously written by Save. It fails on
// truncated or corrupt data.
func Load(r io.Reader) (*HNSW, error) {
	dec := gob.NewDecoder(r)
	h := &HNSW{rng: rand.New(rand.NewSource(1))}

	if err := dec.Decode(&h.Dim); err != nil {
		return nil, fmt.Errorf("index: load dim: %w", err)
	}
	if err := dec.Decode(&h.M); err != nil {
		return nil, fmt.Errorf("index: load M: %w", err)
	}
	h.MaxM0 = h.M * 2
	h.Mult = 1.0 / math.Log(float64(h.M))
	if err := dec.Decode(&h.EfConstruction); err != nil {
		return nil, fmt.Errorf("index: load efConstruction: %w", err)
	}
	h.ef = h.EfConstruction
	h.DistFunc = EuclideanDistance
	if err := dec.Decode(&h.EntryPoint); err != nil {
		return nil, fmt.Errorf("index: load entry point: %w", err)
	}
	if err := dec.Decode(&h.hasEntry); err != nil {
		return nil, fmt.Errorf("index: load entry flag: %w", err)
	}

	var count int
	if err := dec.Decode(&count); err != nil {
		return nil, fmt.Errorf("index: load node count: %w", err)
	}
	h.Nodes = make(map[uint32]*HNSWNode, count)
	for i := 0; i < count; i++ {
		var node HNSWNode
		if err := dec.Decode(&node); err != nil {
			return nil, fmt.Errorf("index: load node %d: %w", i, err)
		}
		h.Nodes[node.ID] = &node
	}
	return h, nil
}

type heapItem struct {
	id   uint32
	dist float32
}

type minHeap []heapItem

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return h[i].dist < h[j].dist }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(heapItem)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// maxHeap keeps the ef furthest-removed candidates at the root so the
// heuristic can discard the single worst element in O(log ef).
type maxHeap []heapItem

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return h[i].dist > h[j].dist }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)        { *h = append(*h, x.(heapItem)) }
func (h *maxHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
