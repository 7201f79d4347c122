package sethash

import "testing"

func TestSHA256Deterministic(t *testing.T) {
	a := SHA256([]uint32{1, 2, 3})
	b := SHA256([]uint32{1, 2, 3})
	if a != b {
		t.Errorf("SHA256 not deterministic: %s != %s", a, b)
	}
}

func TestSHA256DistinguishesSets(t *testing.T) {
	a := SHA256([]uint32{1, 2, 3})
	b := SHA256([]uint32{1, 2, 4})
	if a == b {
		t.Error("distinct id sets hashed to the same value")
	}
}

func TestSHA256EmptySet(t *testing.T) {
	if SHA256(nil) == "" {
		t.Error("expected non-empty hash for empty set")
	}
}

func TestPoly64Deterministic(t *testing.T) {
	a := Poly64([]uint32{10, 20, 30})
	b := Poly64([]uint32{10, 20, 30})
	if a != b {
		t.Errorf("Poly64 not deterministic: %d != %d", a, b)
	}
}

func TestPoly64DistinguishesSets(t *testing.T) {
	a := Poly64([]uint32{1, 2, 3})
	b := Poly64([]uint32{3, 2, 1})
	if a == b {
		t.Error("order-dependent sets collided; GSA ids are always sorted so this shouldn't matter in practice, but the hash itself is order-sensitive")
	}
}
