package storage

import "errors"

// Sentinel errors returned by every Store implementation. Callers translate
// these into apierrors.Kind at the API/realtime boundary.
var (
	ErrNotFound        = errors.New("storage: not found")
	ErrUniqueViolation = errors.New("storage: unique index violation")
	ErrTransient       = errors.New("storage: transient failure, retry")
)
