package vectormaton

import (
	"context"
	"math/rand"
	"testing"

	"github.com/liliang-cn/vectormaton/pkg/baseline"
	"github.com/liliang-cn/vectormaton/pkg/dataset"
)

func scenarioDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	strs := []string{"banana", "anana", "nana", "ana", "na"}
	vecs := [][]float32{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
		{10, 11, 12},
		{13, 14, 15},
	}
	ds, err := dataset.New(strs, vecs)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func assertIDs(t *testing.T, got []uint32, want []uint32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func buildScenario(t *testing.T, build func(*VectorMaton) error) *VectorMaton {
	t.Helper()
	ds := scenarioDataset(t)
	cfg := DefaultConfig()
	cfg.MinBuildThreshold = 200 // forces brute-force path on this tiny dataset
	vm, err := New(ds, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := build(vm); err != nil {
		t.Fatal(err)
	}
	return vm
}

func TestScenarioFull(t *testing.T) {
	vm := buildScenario(t, (*VectorMaton).BuildFull)
	q := []float32{9, 10, 11}

	assertIDs(t, vm.Query(q, "ana", 2), []uint32{3, 2})
	assertIDs(t, vm.Query(q, "nana", 2), []uint32{2, 1})
	assertIDs(t, vm.Query(q, "anana", 2), []uint32{1, 0})
	assertIDs(t, vm.Query(q, "banana", 2), []uint32{0})
	assertIDs(t, vm.Query(q, "xyz", 2), nil)
	assertIDs(t, vm.Query(q, "", 3), []uint32{3, 2, 4})
}

func TestScenarioSmart(t *testing.T) {
	vm := buildScenario(t, (*VectorMaton).BuildSmart)
	q := []float32{9, 10, 11}

	assertIDs(t, vm.Query(q, "ana", 2), []uint32{3, 2})
	assertIDs(t, vm.Query(q, "nana", 2), []uint32{2, 1})
	assertIDs(t, vm.Query(q, "anana", 2), []uint32{1, 0})
	assertIDs(t, vm.Query(q, "banana", 2), []uint32{0})
	assertIDs(t, vm.Query(q, "xyz", 2), nil)
	assertIDs(t, vm.Query(q, "", 3), []uint32{3, 2, 4})
}

func TestScenarioParallel(t *testing.T) {
	ds := scenarioDataset(t)
	cfg := DefaultConfig()
	cfg.MinBuildThreshold = 200
	cfg.NumThreads = 4
	vm, err := New(ds, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := vm.BuildParallel(context.Background()); err != nil {
		t.Fatal(err)
	}

	q := []float32{9, 10, 11}
	assertIDs(t, vm.Query(q, "ana", 2), []uint32{3, 2})
	assertIDs(t, vm.Query(q, "", 3), []uint32{3, 2, 4})
}

func TestQueryZeroK(t *testing.T) {
	vm := buildScenario(t, (*VectorMaton).BuildFull)
	if got := vm.Query([]float32{0, 0, 0}, "ana", 0); got != nil {
		t.Errorf("expected nil for k=0, got %v", got)
	}
}

func TestQueryKGreaterThanMatches(t *testing.T) {
	vm := buildScenario(t, (*VectorMaton).BuildFull)
	got := vm.Query([]float32{9, 10, 11}, "banana", 100)
	assertIDs(t, got, []uint32{0})
}

func TestQueryBeforeBuild(t *testing.T) {
	ds := scenarioDataset(t)
	vm, err := New(ds, DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := vm.Query([]float32{0, 0, 0}, "ana", 2); got != nil {
		t.Errorf("expected nil before build, got %v", got)
	}
}

func TestFullAndSmartBuildsAgree(t *testing.T) {
	qs := []struct {
		substr string
		k      int
	}{
		{"ana", 2}, {"nana", 2}, {"anana", 2}, {"banana", 2}, {"xyz", 2}, {"", 3},
	}
	full := buildScenario(t, (*VectorMaton).BuildFull)
	smart := buildScenario(t, (*VectorMaton).BuildSmart)
	q := []float32{9, 10, 11}
	for _, tc := range qs {
		a := full.Query(q, tc.substr, tc.k)
		b := smart.Query(q, tc.substr, tc.k)
		assertIDs(t, b, a)
	}
}

// largeRandomDataset generates n records over a small alphabet (so
// substrings are shared across many records, forcing states well above
// a MinBuildThreshold of 1) with dim-dimensional random vectors.
func largeRandomDataset(t *testing.T, n, dim int) *dataset.Dataset {
	t.Helper()
	rng := rand.New(rand.NewSource(7))
	const alphabet = "abcde"
	strs := make([]string, n)
	vecs := make([][]float32, n)
	for i := range strs {
		b := make([]byte, 8)
		for j := range b {
			b[j] = alphabet[rng.Intn(len(alphabet))]
		}
		strs[i] = string(b)

		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = rng.Float32() * 100
		}
		vecs[i] = vec
	}
	ds, err := dataset.New(strs, vecs)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

// TestFullBuildGraphPathMatchesExactRecall exercises the HNSW
// searchState path (not the brute-force candidateIDs fallback) by
// setting MinBuildThreshold to 1, per spec §8's "for the 'full' build
// with tau = 0, recall vs exact search is 100% ... where HNSW is tuned
// to ef_search >= |ids[s]|" testable property.
func TestFullBuildGraphPathMatchesExactRecall(t *testing.T) {
	ds := largeRandomDataset(t, 80, 8)

	cfg := DefaultConfig()
	cfg.MinBuildThreshold = 1
	cfg.EfConstruction = 200
	cfg.EfSearch = 200
	vm, err := New(ds, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := vm.BuildFull(); err != nil {
		t.Fatal(err)
	}

	builtGraph := false
	for _, g := range vm.graphs {
		if g != nil {
			builtGraph = true
			break
		}
	}
	if !builtGraph {
		t.Fatal("expected at least one built HNSW graph with MinBuildThreshold=1")
	}

	exact := baseline.NewExactSearch(ds)
	rng := rand.New(rand.NewSource(99))
	substrings := []string{"ab", "bc", "a", "e", "cd"}

	var retrieved, groundTruth [][]uint32
	for _, substr := range substrings {
		vec := make([]float32, ds.Dim)
		for j := range vec {
			vec[j] = rng.Float32() * 100
		}
		const k = 5
		retrieved = append(retrieved, vm.Query(vec, substr, k))
		groundTruth = append(groundTruth, exact.Query(vec, substr, k))
	}

	if recall := dataset.AverageRecall(retrieved, groundTruth); recall < 0.99 {
		t.Fatalf("expected ~100%% recall with MinBuildThreshold=1 and high ef_search, got %f", recall)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	vm := buildScenario(t, (*VectorMaton).BuildSmart)

	if err := vm.SaveIndex(dir); err != nil {
		t.Fatal(err)
	}
	ds := scenarioDataset(t)
	loaded, err := LoadIndex(dir, ds, nil)
	if err != nil {
		t.Fatal(err)
	}

	q := []float32{9, 10, 11}
	want := vm.Query(q, "ana", 2)
	got := loaded.Query(q, "ana", 2)
	assertIDs(t, got, want)
}

func TestNewRejectsEmptyDataset(t *testing.T) {
	ds, err := dataset.New(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(ds, DefaultConfig(), nil); err == nil {
		t.Fatal("expected error for empty dataset")
	}
}

func TestNewRejectsDimensionMismatch(t *testing.T) {
	ds := scenarioDataset(t)
	cfg := DefaultConfig()
	cfg.Dim = 99
	if _, err := New(ds, cfg, nil); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}
