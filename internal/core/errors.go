package core

import "errors"

// Error taxonomy shared by storage, services and the HTTP layer. Each
// layer wraps these with fmt.Errorf("...: %w", err) so callers can test
// with errors.Is.
var (
	// ErrNotFound: a referenced entity id did not resolve.
	ErrNotFound = errors.New("not found")

	// ErrConflict: the requested combination is invalid, e.g. merging
	// budgets that belong to different datasets.
	ErrConflict = errors.New("conflict")

	// ErrMappingNotFound: a CSV import was requested but no column
	// mapping is stored for the owner.
	ErrMappingNotFound = errors.New("import mapping not found")

	// ErrInvalidMapping: a stored mapping lacks the required item-name
	// or amount column, or is not valid JSON.
	ErrInvalidMapping = errors.New("invalid import mapping")
)
