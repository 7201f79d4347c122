package vectormaton

import "testing"

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.M != 16 || c.EfConstruction != 200 || c.MinBuildThreshold != 200 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestWithDefaultsPreservesExplicitFields(t *testing.T) {
	c := Config{M: 32}.withDefaults()
	if c.M != 32 {
		t.Errorf("M = %d, want 32 (explicit)", c.M)
	}
	if c.EfConstruction != 200 {
		t.Errorf("EfConstruction = %d, want default 200", c.EfConstruction)
	}
}
