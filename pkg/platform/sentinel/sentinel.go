package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into coded domain errors:
//   - ErrNotFound: no row for the requested key
//   - ErrAlreadyUsed: a unique key (subscriber email) is already taken
//   - ErrUnavailable: backing service cannot be reached
//
// Validation failures never use these; see pkg/domain.ValidationError.
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")
)
