package vectormaton

// Config holds the tunables for building and querying a VectorMaton
// engine, per spec §4.2 and §4.7. New fills zero-value fields with
// DefaultConfig's values.
type Config struct {
	Dim int // vector dimensionality; validated against the dataset by New

	M              int // HNSW max bi-directional links per node
	EfConstruction int // HNSW candidate pool size at build time
	EfSearch       int // HNSW candidate pool size at query time

	// MinBuildThreshold is the minimum number of ids a GSA state must
	// carry before it gets its own graph; smaller states fall back to
	// brute-force search over their candidate ids.
	MinBuildThreshold int

	// NumThreads bounds the worker pool width used by BuildParallel.
	NumThreads int

	// AmplificationThreshold caps the baselines' amplification-doubling
	// query loop (spec §4.5).
	AmplificationThreshold int
}

// DefaultConfig returns the defaults named in spec §4.2/§4.7.
func DefaultConfig() Config {
	return Config{
		M:                      16,
		EfConstruction:         200,
		EfSearch:               200,
		MinBuildThreshold:      200,
		NumThreads:             8,
		AmplificationThreshold: 2048,
	}
}

// withDefaults fills in zero fields of c with DefaultConfig's values,
// leaving any field the caller explicitly set untouched.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.M == 0 {
		c.M = d.M
	}
	if c.EfConstruction == 0 {
		c.EfConstruction = d.EfConstruction
	}
	if c.EfSearch == 0 {
		c.EfSearch = d.EfSearch
	}
	if c.MinBuildThreshold == 0 {
		c.MinBuildThreshold = d.MinBuildThreshold
	}
	if c.NumThreads == 0 {
		c.NumThreads = d.NumThreads
	}
	if c.AmplificationThreshold == 0 {
		c.AmplificationThreshold = d.AmplificationThreshold
	}
	return c
}
