package automaton

import (
	"bytes"
	"testing"
)

func scenarioGSA() *GSA {
	g := New()
	strs := []string{"banana", "anana", "nana", "ana", "na"}
	for i, s := range strs {
		g.AddString(uint32(i), s)
	}
	return g
}

func TestQueryMatchesSubstrings(t *testing.T) {
	g := scenarioGSA()

	cases := []struct {
		substr string
		want   []uint32
	}{
		{"ana", []uint32{0, 1, 2, 3}},
		{"nana", []uint32{0, 1, 2}},
		{"anana", []uint32{0, 1}},
		{"banana", []uint32{0}},
		{"na", []uint32{0, 1, 2, 3, 4}},
		{"xyz", nil},
	}
	for _, tc := range cases {
		s := g.Query(tc.substr)
		if tc.want == nil {
			if s != -1 {
				t.Errorf("Query(%q) = %d, want -1 (no match)", tc.substr, s)
			}
			continue
		}
		if s == -1 {
			t.Fatalf("Query(%q) = -1, want a state with ids %v", tc.substr, tc.want)
		}
		got := g.States[s].IDs
		if len(got) != len(tc.want) {
			t.Fatalf("Query(%q) ids = %v, want %v", tc.substr, got, tc.want)
		}
		for i := range tc.want {
			if got[i] != tc.want[i] {
				t.Fatalf("Query(%q) ids = %v, want %v", tc.substr, got, tc.want)
			}
		}
	}
}

func TestQueryEmptyStringMatchesAll(t *testing.T) {
	g := scenarioGSA()
	s := g.Query("")
	if s != 0 {
		t.Fatalf("Query(\"\") = %d, want 0", s)
	}
	want := []uint32{0, 1, 2, 3, 4}
	got := g.States[0].IDs
	if len(got) != len(want) {
		t.Fatalf("state 0 ids = %v, want %v", got, want)
	}
}

func TestIDsSortedAndDeduped(t *testing.T) {
	g := New()
	g.AddString(0, "aaa")
	g.AddString(1, "aaa")
	for _, st := range g.States {
		for i := 1; i < len(st.IDs); i++ {
			if st.IDs[i] <= st.IDs[i-1] {
				t.Fatalf("ids not strictly increasing: %v", st.IDs)
			}
		}
	}
}

func TestSubsetInvariantHolds(t *testing.T) {
	g := scenarioGSA()
	if err := g.CheckSubsetInvariant(); err != nil {
		t.Fatal(err)
	}
}

func TestSubsetInvariantOnLargerAlphabet(t *testing.T) {
	g := New()
	strs := []string{"mississippi", "ississippi", "sissy", "ississippi", "banana"}
	for i, s := range strs {
		g.AddString(uint32(i), s)
	}
	if err := g.CheckSubsetInvariant(); err != nil {
		t.Fatal(err)
	}
}

func TestTopoSortAscendingLen(t *testing.T) {
	g := scenarioGSA()
	order := g.TopoSort()
	for i := 1; i < len(order); i++ {
		if g.States[order[i]].Len < g.States[order[i-1]].Len {
			t.Fatalf("TopoSort not ascending at %d: %d < %d", i, g.States[order[i]].Len, g.States[order[i-1]].Len)
		}
	}
}

func TestSizeAndSizeTot(t *testing.T) {
	g := scenarioGSA()
	if g.Size() != len(g.States) {
		t.Errorf("Size() = %d, want %d", g.Size(), len(g.States))
	}
	if g.SizeTot() <= 0 {
		t.Error("SizeTot() should be positive for a non-empty automaton")
	}
}

func TestDropIDsClearsEveryState(t *testing.T) {
	g := scenarioGSA()
	g.DropIDs()
	for _, st := range g.States {
		if len(st.IDs) != 0 {
			t.Fatalf("expected empty ids after DropIDs, got %v", st.IDs)
		}
	}
}

func TestGetStatisticsBucketsByDepth(t *testing.T) {
	g := scenarioGSA()
	stats := g.GetStatistics()
	if len(stats) == 0 {
		t.Fatal("expected at least one depth bucket")
	}
	if stats[0].Depth != 0 || stats[0].NumStates != 1 {
		t.Errorf("expected bucket 0 to be the initial state alone, got %+v", stats[0])
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	g := scenarioGSA()
	var buf bytes.Buffer
	if err := g.Save(&buf); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != g.Size() {
		t.Fatalf("loaded size = %d, want %d", loaded.Size(), g.Size())
	}
	for _, substr := range []string{"ana", "nana", "banana", "xyz", ""} {
		if loaded.Query(substr) != g.Query(substr) {
			t.Errorf("Query(%q) mismatch after round-trip", substr)
		}
	}
}
