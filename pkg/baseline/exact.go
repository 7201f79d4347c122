// Package baseline implements the reference collaborators the core
// VectorMaton is measured against: brute-force exact search and a
// single global HNSW with post-filtering, grounded on
// original_source/source/exact.cpp and post_filtering.cpp.
package baseline

import (
	"sort"

	"github.com/liliang-cn/vectormaton/pkg/dataset"
	"github.com/liliang-cn/vectormaton/pkg/index"
)

// ExactSearch is the linear filter+sort ground-truth baseline (spec
// §4.5 / component e).
type ExactSearch struct {
	ds *dataset.Dataset
}

// NewExactSearch builds an ExactSearch over ds. There is no build step:
// exact search scans the dataset directly.
func NewExactSearch(ds *dataset.Dataset) *ExactSearch {
	return &ExactSearch{ds: ds}
}

// Query returns up to k ids whose string contains p, ordered by
// ascending Euclidean distance to vec.
func (e *ExactSearch) Query(vec []float32, p string, k int) []uint32 {
	if k <= 0 {
		return nil
	}

	type cand struct {
		id   uint32
		dist float32
	}
	var matches []cand
	for id := 0; id < e.ds.N(); id++ {
		if e.ds.Contains(uint32(id), p) {
			matches = append(matches, cand{
				id:   uint32(id),
				dist: index.EuclideanDistance(e.ds.Vectors[id], vec),
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].dist < matches[j].dist })

	if len(matches) > k {
		matches = matches[:k]
	}
	out := make([]uint32, len(matches))
	for i, m := range matches {
		out[i] = m.id
	}
	return out
}

// Size returns an approximate in-memory footprint, mirroring the
// original's ExactSearch::size() accounting method.
func (e *ExactSearch) Size() int {
	total := 0
	for _, s := range e.ds.Strings {
		total += len(s)
	}
	total += e.ds.N() * e.ds.Dim * 4
	return total
}
