package baseline

import (
	"github.com/liliang-cn/vectormaton/pkg/dataset"
	"github.com/liliang-cn/vectormaton/pkg/index"
)

// Baseline is a single global pkg/index.HNSW with post-filtering and no
// persistence, grounded directly on original_source/source/baseline.cpp.
// It differs from PostFiltering only in which HNSW implementation backs
// it: Baseline uses the in-repo pkg/index graph the same way
// baseline.cpp's USE_HNSW branch wraps hnswlib, while PostFiltering
// exercises the real github.com/fogfish/hnsw module. Keeping both gives
// every graph implementation in the module a runnable baseline.
type Baseline struct {
	ds        *dataset.Dataset
	graph     *index.HNSW
	ampThresh int
}

// NewBaseline builds the global graph immediately, as baseline.cpp's
// build() does at construction time. ampThreshold caps the
// amplification-doubling query loop; a value <= 0 falls back to
// DefaultAmplificationThreshold.
func NewBaseline(ds *dataset.Dataset, m, efConstruction, ampThreshold int) *Baseline {
	if ampThreshold <= 0 {
		ampThreshold = DefaultAmplificationThreshold
	}
	g := index.New(ds.Dim, ds.N(), m, efConstruction)
	for id := 0; id < ds.N(); id++ {
		g.AddPoint(uint32(id), ds.Vectors[id])
	}
	return &Baseline{ds: ds, graph: g, ampThresh: ampThreshold}
}

// SetEf sets the search-time candidate pool size.
func (b *Baseline) SetEf(ef int) { b.graph.SetEf(ef) }

// Query reproduces baseline.cpp's query(): amplification doubles until
// k filtered matches are found or the threshold is exceeded, clearing
// partial results each iteration.
func (b *Baseline) Query(vec []float32, s string, k int) []uint32 {
	if k <= 0 {
		return nil
	}

	var results []uint32
	amplification := 2
	for len(results) < k {
		results = results[:0]

		ids, _ := b.graph.SearchKNN(vec, k*amplification, 0)
		for _, id := range ids {
			if b.ds.Contains(id, s) {
				results = append(results, id)
			}
			if len(results) >= k {
				break
			}
		}

		amplification *= 2
		if amplification > b.ampThresh {
			break
		}
	}
	return results
}

// Size mirrors baseline.cpp's size(): graph footprint plus raw string
// and vector storage.
func (b *Baseline) Size() int {
	sz := b.graph.Size() * b.ds.Dim * 4
	for _, s := range b.ds.Strings {
		sz += len(s)
	}
	sz += b.ds.N() * b.ds.Dim * 4
	return sz
}
