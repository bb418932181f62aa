package artifact

import "errors"

var (
	// ErrNotFound is returned when an artifact for the given session / id pair
	// does not exist in the underlying store.
	ErrNotFound = errors.New("artifact not found")

	// ErrInvalidURI is returned by ParseURI for malformed references.
	ErrInvalidURI = errors.New("invalid artifact uri")
)
