package baseline

import (
	"github.com/fogfish/hnsw"
	hnswvec "github.com/fogfish/hnsw/vector"
	"github.com/kshard/vector"

	"github.com/liliang-cn/vectormaton/internal/vmlog"
	"github.com/liliang-cn/vectormaton/pkg/dataset"
)

// DefaultAmplificationThreshold caps the PostFiltering amplification
// loop, per spec §4.5.
const DefaultAmplificationThreshold = 2048

// PostFiltering builds one global HNSW over every record's vector and
// filters by substring after retrieval (spec §4.5 / component f). The
// graph itself is the real third-party github.com/fogfish/hnsw index,
// the same way the teacher's root package wires its single global
// index, rather than the per-state pkg/index.HNSW the VectorMaton uses.
type PostFiltering struct {
	ds     *dataset.Dataset
	graph  *hnsw.HNSW[hnswvec.VF32]
	ef     int
	ampMax int
	log    vmlog.Logger
}

// NewPostFiltering creates an unbuilt PostFiltering baseline.
// ampThreshold caps the amplification-doubling query loop; a value <= 0
// falls back to DefaultAmplificationThreshold.
func NewPostFiltering(ds *dataset.Dataset, m, efConstruction, ampThreshold int, log vmlog.Logger) *PostFiltering {
	if log == nil {
		log = vmlog.Nop()
	}
	if ampThreshold <= 0 {
		ampThreshold = DefaultAmplificationThreshold
	}
	return &PostFiltering{
		ds:     ds,
		graph:  hnsw.New(hnswvec.SurfaceVF32(vector.Euclidean()), hnsw.WithM(m), hnsw.WithEfConstruction(efConstruction)),
		ef:     efConstruction,
		ampMax: ampThreshold,
		log:    log,
	}
}

// Build inserts every record's vector into the global graph, keyed by
// record id.
func (p *PostFiltering) Build() {
	p.log.Debug("building global HNSW for post-filtering", "records", p.ds.N())
	for id := 0; id < p.ds.N(); id++ {
		p.graph.Insert(hnswvec.VF32{Key: uint32(id), Vec: p.ds.Vectors[id]})
	}
}

// SetEf sets the per-query candidate pool size.
func (p *PostFiltering) SetEf(ef int) { p.ef = ef }

// Query runs the amplification loop of spec §4.5: repeatedly search for
// alpha*k candidates with ef = max(ef_search, alpha*k), filtering to
// those whose string contains p, doubling alpha until k results are
// collected or alpha exceeds the threshold. Each iteration clears prior
// partial results before refilling, so the returned list always comes
// from a single oversized search (its first k matches) — reproducing the
// original's observable recall-vs-ef behavior (spec §9).
func (p *PostFiltering) Query(vec []float32, substr string, k int) []uint32 {
	if k <= 0 {
		return nil
	}

	var results []uint32
	alpha := 2
	for len(results) < k {
		results = results[:0]

		ef := p.ef
		if alpha*k > ef {
			ef = alpha * k
		}

		neighbors := p.graph.Search(hnswvec.VF32{Vec: vec}, alpha*k, ef)
		for _, n := range neighbors {
			id := n.Key
			if p.ds.Contains(id, substr) {
				results = append(results, id)
			}
			if len(results) >= k {
				break
			}
		}

		alpha *= 2
		if alpha > p.ampMax {
			break
		}
	}
	return results
}

// Size approximates the index's memory footprint.
func (p *PostFiltering) Size() int {
	return p.ds.N() * p.ds.Dim * 4
}
