package score

import "errors"

var (
	// ErrStoreUnavailable matches every backend connectivity or query failure.
	// Use errors.Is; the concrete value is a *StoreUnavailableError.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrUnknownItem is returned for an item kind outside {hotel, country}.
	ErrUnknownItem = errors.New("unknown rule item")
	// ErrMissingParameters is returned by Configure when neither turn nor value is given.
	ErrMissingParameters = errors.New("missing required parameters")
	// ErrInvalidValue is returned by Configure for a negative or non-finite value.
	ErrInvalidValue = errors.New("invalid rule value")
)

// StoreUnavailableError wraps a backend failure together with the store
// operation that produced it.
type StoreUnavailableError struct {
	// Op — store operation name, e.g. "rules.active".
	Op string
	// Err — error reported by the backend driver.
	Err error
}

// Error returns the text description of the failure.
func (e *StoreUnavailableError) Error() string {
	return "store unavailable: " + e.Op + ": " + e.Err.Error()
}

// Unwrap exposes the driver error.
func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStoreUnavailable) hold for every StoreUnavailableError.
func (e *StoreUnavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// NewStoreUnavailableError creates a StoreUnavailableError for operation op.
// Store implementations return it for every failure of the underlying backend.
func NewStoreUnavailableError(op string, err error) *StoreUnavailableError {
	return &StoreUnavailableError{Op: op, Err: err}
}
