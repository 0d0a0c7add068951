package stategen

import "github.com/pkg/errors"

var (
	// ErrMissingAncestor is returned when the parent of a block has no state
	// of the required status.
	ErrMissingAncestor = errors.New("missing ancestor state")
	// ErrStateMismatch is returned when a state built from a full block
	// differs from the state built earlier from the block's commits.
	ErrStateMismatch = errors.New("finalization state mismatch")
	errNilIndex      = errors.New("nil block index")
)

// StoreError is a failed read or write of the state or vote store. The
// processor cannot continue after one.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the store failure.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err was caused by a store failure.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
