package vectormaton

import (
	"errors"
	"fmt"
)

// Sentinel errors, mirroring the root-level StoreError convention of
// the package this module descends from: a small set of comparable
// sentinels plus an operation-wrapping type.
var (
	ErrInvalidDimension  = errors.New("vectormaton: invalid vector dimension")
	ErrEmptyDataset      = errors.New("vectormaton: empty dataset")
	ErrIndexNotBuilt     = errors.New("vectormaton: index not built")
	ErrCorruptIndex      = errors.New("vectormaton: corrupt index file")
	ErrDimensionMismatch = errors.New("vectormaton: dimension mismatch")
)

// EngineError wraps an error with the operation that produced it.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("vectormaton: %v", e.Err)
	}
	return fmt.Sprintf("vectormaton: %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

func (e *EngineError) Is(target error) bool { return errors.Is(e.Err, target) }

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Op: op, Err: err}
}
