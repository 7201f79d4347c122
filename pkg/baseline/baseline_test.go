package baseline

import (
	"testing"

	"github.com/liliang-cn/vectormaton/pkg/dataset"
)

func sampleDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	strs := []string{"banana", "anana", "nana", "ana", "na"}
	vecs := [][]float32{
		{0, 0},
		{1, 0},
		{2, 0},
		{3, 0},
		{4, 0},
	}
	ds, err := dataset.New(strs, vecs)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestExactSearchOrdering(t *testing.T) {
	ds := sampleDataset(t)
	e := NewExactSearch(ds)
	got := e.Query([]float32{3, 0}, "ana", 2)
	want := []uint32{3, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestExactSearchZeroK(t *testing.T) {
	ds := sampleDataset(t)
	e := NewExactSearch(ds)
	if got := e.Query([]float32{0, 0}, "ana", 0); got != nil {
		t.Errorf("expected nil for k=0, got %v", got)
	}
}

func TestBaselineFindsMatches(t *testing.T) {
	ds := sampleDataset(t)
	b := NewBaseline(ds, 4, 50, 0)
	got := b.Query([]float32{3, 0}, "ana", 2)
	if len(got) == 0 {
		t.Fatal("expected at least one match")
	}
	for _, id := range got {
		if !ds.Contains(id, "ana") {
			t.Errorf("result %d does not contain substring", id)
		}
	}
}

func TestBaselineNoMatchStopsAtThreshold(t *testing.T) {
	ds := sampleDataset(t)
	b := NewBaseline(ds, 4, 50, 0)
	b.ampThresh = 4
	got := b.Query([]float32{0, 0}, "zzz", 3)
	if len(got) != 0 {
		t.Errorf("expected no matches for absent substring, got %v", got)
	}
}

func TestPostFilteringFindsMatches(t *testing.T) {
	ds := sampleDataset(t)
	p := NewPostFiltering(ds, 4, 50, 0, nil)
	p.Build()
	got := p.Query([]float32{3, 0}, "ana", 2)
	for _, id := range got {
		if !ds.Contains(id, "ana") {
			t.Errorf("result %d does not contain substring", id)
		}
	}
}

func TestBaselineHonorsAmplificationThreshold(t *testing.T) {
	ds := sampleDataset(t)
	b := NewBaseline(ds, 4, 50, 2)
	if b.ampThresh != 2 {
		t.Fatalf("ampThresh = %d, want 2", b.ampThresh)
	}
	got := b.Query([]float32{0, 0}, "zzz", 3)
	if len(got) != 0 {
		t.Errorf("expected no matches for absent substring, got %v", got)
	}
}

func TestNewBaselineDefaultsAmplificationThreshold(t *testing.T) {
	ds := sampleDataset(t)
	b := NewBaseline(ds, 4, 50, 0)
	if b.ampThresh != DefaultAmplificationThreshold {
		t.Fatalf("ampThresh = %d, want default %d", b.ampThresh, DefaultAmplificationThreshold)
	}
}

func TestPostFilteringZeroK(t *testing.T) {
	ds := sampleDataset(t)
	p := NewPostFiltering(ds, 4, 50, 0, nil)
	p.Build()
	if got := p.Query([]float32{0, 0}, "ana", 0); got != nil {
		t.Errorf("expected nil for k=0, got %v", got)
	}
}
