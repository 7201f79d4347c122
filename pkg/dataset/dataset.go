// Package dataset holds the fixed, in-memory (string, vector) record
// collection the engine is built over, plus the file-based readers and
// writers around it (§3 and §6 of the spec). These are the external
// collaborators the core index components are built against.
package dataset

import (
	"fmt"
	"strings"
)

// Dataset is the immutable backing storage for all records: a flat
// array of strings and a flat array of same-dimension vectors, addressed
// by record id in [0, N). Records are immutable after ingestion.
type Dataset struct {
	Strings []string
	Vectors [][]float32
	Dim     int
}

// New validates that strings and vectors are equal length and that every
// vector shares the same dimension, then returns a Dataset. Dimension
// mismatch is a Shape error per §7: fatal at ingestion.
func New(strings []string, vectors [][]float32) (*Dataset, error) {
	if len(strings) != len(vectors) {
		return nil, fmt.Errorf("dataset: %d strings but %d vectors", len(strings), len(vectors))
	}
	if len(vectors) == 0 {
		return &Dataset{}, nil
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("dataset: vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}
	return &Dataset{Strings: strings, Vectors: vectors, Dim: dim}, nil
}

// N returns the number of records.
func (d *Dataset) N() int { return len(d.Strings) }

// Truncate keeps only the first n records, implementing --data-size=N.
func (d *Dataset) Truncate(n int) {
	if n >= 0 && n < len(d.Strings) {
		d.Strings = d.Strings[:n]
		d.Vectors = d.Vectors[:n]
	}
}

// Contains reports whether record id's string contains p as a
// contiguous substring.
func (d *Dataset) Contains(id uint32, p string) bool {
	return strings.Contains(d.Strings[id], p)
}
