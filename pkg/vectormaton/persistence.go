package vectormaton

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/liliang-cn/vectormaton/internal/automaton"
	"github.com/liliang-cn/vectormaton/internal/vmlog"
	"github.com/liliang-cn/vectormaton/pkg/dataset"
	"github.com/liliang-cn/vectormaton/pkg/index"
)

// meta is the gob-encoded auxiliary state saved alongside the GSA and
// per-state graphs: everything SaveIndex/LoadIndex need besides the
// graphs themselves.
type meta struct {
	Cfg          Config
	InheritState []int32
	SizeIDs      []int
	CandidateIDs [][]uint32
	BuiltStates  []bool // which states have a saved graph file
}

// SaveIndex writes the engine to folder: the GSA structure, the
// per-state auxiliary arrays, and one gob file per built graph. The
// original C++ engine never implemented its declared save_index; this
// layout is this module's own, modeled on pkg/index.HNSW's gob framing.
func (vm *VectorMaton) SaveIndex(folder string) error {
	if !vm.built {
		return wrapError("save_index", ErrIndexNotBuilt)
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return wrapError("save_index", err)
	}

	gsaFile, err := os.Create(filepath.Join(folder, "gsa.bin"))
	if err != nil {
		return wrapError("save_index", err)
	}
	defer gsaFile.Close()
	if err := vm.gsa.Save(gsaFile); err != nil {
		return wrapError("save_index", err)
	}

	m := meta{
		Cfg:          vm.cfg,
		InheritState: vm.inheritState,
		SizeIDs:      vm.sizeIDs,
		CandidateIDs: vm.candidateIDs,
		BuiltStates:  make([]bool, len(vm.graphs)),
	}
	for i, g := range vm.graphs {
		if g == nil {
			continue
		}
		m.BuiltStates[i] = true
		gf, err := os.Create(filepath.Join(folder, fmt.Sprintf("graph_%d.bin", i)))
		if err != nil {
			return wrapError("save_index", err)
		}
		err = g.Save(gf)
		gf.Close()
		if err != nil {
			return wrapError("save_index", err)
		}
	}

	metaFile, err := os.Create(filepath.Join(folder, "meta.gob"))
	if err != nil {
		return wrapError("save_index", err)
	}
	defer metaFile.Close()
	if err := gob.NewEncoder(metaFile).Encode(m); err != nil {
		return wrapError("save_index", err)
	}
	return nil
}

// LoadIndex reconstructs an engine previously written by SaveIndex.
// ds must be the same dataset the index was built from; it is used for
// brute-force fallback search on states below MinBuildThreshold.
func LoadIndex(folder string, ds *dataset.Dataset, log vmlog.Logger) (*VectorMaton, error) {
	if log == nil {
		log = vmlog.Nop()
	}
	gsaFile, err := os.Open(filepath.Join(folder, "gsa.bin"))
	if err != nil {
		return nil, wrapError("load_index", err)
	}
	defer gsaFile.Close()
	gsa, err := automaton.Load(gsaFile)
	if err != nil {
		return nil, wrapError("load_index", fmt.Errorf("%w: %v", ErrCorruptIndex, err))
	}

	metaFile, err := os.Open(filepath.Join(folder, "meta.gob"))
	if err != nil {
		return nil, wrapError("load_index", err)
	}
	defer metaFile.Close()
	var m meta
	if err := gob.NewDecoder(metaFile).Decode(&m); err != nil {
		return nil, wrapError("load_index", fmt.Errorf("%w: %v", ErrCorruptIndex, err))
	}

	vm := &VectorMaton{
		cfg:          m.Cfg,
		ds:           ds,
		gsa:          gsa,
		log:          log,
		inheritState: m.InheritState,
		sizeIDs:      m.SizeIDs,
		candidateIDs: m.CandidateIDs,
		graphs:       make([]*index.HNSW, len(m.BuiltStates)),
		built:        true,
	}

	for i, has := range m.BuiltStates {
		if !has {
			continue
		}
		gf, err := os.Open(filepath.Join(folder, fmt.Sprintf("graph_%d.bin", i)))
		if err != nil {
			return nil, wrapError("load_index", err)
		}
		g, err := index.Load(gf)
		gf.Close()
		if err != nil {
			return nil, wrapError("load_index", fmt.Errorf("%w: %v", ErrCorruptIndex, err))
		}
		vm.graphs[i] = g
	}

	return vm, nil
}
