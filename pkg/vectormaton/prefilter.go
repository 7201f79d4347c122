package vectormaton

import (
	"sort"

	"github.com/liliang-cn/vectormaton/internal/automaton"
	"github.com/liliang-cn/vectormaton/internal/vmlog"
	"github.com/liliang-cn/vectormaton/pkg/dataset"
	"github.com/liliang-cn/vectormaton/pkg/index"
)

// PreFiltering narrows to a GSA state's id set first, then sorts the
// matches by distance with no graph index at all (spec §4.5 / component
// g), grounded on original_source/source/pre_filtering.cpp.
type PreFiltering struct {
	ds  *dataset.Dataset
	gsa *automaton.GSA
	log vmlog.Logger
}

// NewPreFiltering builds the GSA over ds and returns a ready-to-query
// PreFiltering baseline.
func NewPreFiltering(ds *dataset.Dataset, log vmlog.Logger) *PreFiltering {
	if log == nil {
		log = vmlog.Nop()
	}
	g := automaton.New()
	for i := 0; i < ds.N(); i++ {
		g.AddString(uint32(i), ds.Strings[i])
	}
	log.Debug("GSA built", "states", g.Size(), "total_ids", g.SizeTot())
	return &PreFiltering{ds: ds, gsa: g, log: log}
}

// Query finds the GSA state for p, then sorts its ids by ascending
// distance to vec and returns up to k.
func (p *PreFiltering) Query(vec []float32, s string, k int) []uint32 {
	if k <= 0 {
		return nil
	}
	state := p.gsa.Query(s)
	if state == -1 {
		return nil
	}
	ids := p.gsa.States[state].IDs
	if len(ids) == 0 {
		return nil
	}

	type cand struct {
		id   uint32
		dist float32
	}
	cands := make([]cand, len(ids))
	for i, id := range ids {
		cands[i] = cand{id: id, dist: index.EuclideanDistance(p.ds.Vectors[id], vec)}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })

	if k > len(cands) {
		k = len(cands)
	}
	out := make([]uint32, k)
	for i := 0; i < k; i++ {
		out[i] = cands[i].id
	}
	return out
}

// Size approximates memory usage the way pre_filtering.cpp's size()
// does: dataset storage plus each GSA state's id slice capacity.
func (p *PreFiltering) Size() int {
	total := 0
	for _, s := range p.ds.Strings {
		total += len(s)
	}
	total += p.ds.N() * p.ds.Dim * 4
	for _, st := range p.gsa.States {
		total += len(st.IDs) * 4
	}
	return total
}
