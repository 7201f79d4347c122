package vectormaton

import "testing"

func TestBatchesByDescendingLenRespectsDependencies(t *testing.T) {
	ds := scenarioDataset(t)
	vm, err := New(ds, DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	vm.buildGSA()

	batches := vm.batchesByDescendingLen()

	seen := map[int32]bool{}
	for _, batch := range batches {
		lens := map[int]bool{}
		for _, s := range batch {
			lens[vm.gsa.States[s].Len] = true
			for _, to := range vm.gsa.States[s].Transitions() {
				if !seen[to] {
					t.Fatalf("state %d transitions to %d, which has not been processed in an earlier batch", s, to)
				}
			}
		}
		if len(lens) != 1 {
			t.Fatalf("batch mixes Len values: %v", lens)
		}
		for _, s := range batch {
			seen[s] = true
		}
	}
}
