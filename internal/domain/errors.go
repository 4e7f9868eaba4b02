package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFilter marks a malformed or contradictory filter, such as
	// an inverted time range.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrInvalidPage marks a non-positive limit or negative offset.
	ErrInvalidPage = errors.New("invalid page request")

	// ErrDuplicateKey is returned when an insert hits an existing primary
	// key. Sync redelivery is expected, so callers treat it as a no-op.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrLookupMiss is returned when a single enrichment lookup has no
	// data. Recovered locally; the row keeps its defaults.
	ErrLookupMiss = errors.New("lookup miss")

	// ErrStoreUnavailable marks a failure of the underlying store. Fatal
	// to the in-flight operation, surfaced to the caller.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// StoreError wraps a low-level database failure so that
// errors.Is(err, ErrStoreUnavailable) holds while the cause stays visible.
func StoreError(op string, err error) error {
	return &storeError{op: op, err: err}
}

type storeError struct {
	op  string
	err error
}

func (e *storeError) Error() string {
	return fmt.Sprintf("%s: store unavailable: %v", e.op, e.err)
}

func (e *storeError) Is(target error) bool { return target == ErrStoreUnavailable }

func (e *storeError) Unwrap() error { return e.err }

// PartialBatchError reports a bulk mutation that stopped early. Chunks
// committed before the failure stay applied.
type PartialBatchError struct {
	Processed int
	Total     int
	Err       error
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("batch stopped after %d/%d ids: %v", e.Processed, e.Total, e.Err)
}

func (e *PartialBatchError) Unwrap() error { return e.Err }
