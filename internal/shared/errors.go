package shared

import "errors"

// Error taxonomy for the whole service. Services return these sentinels
// (usually wrapped) and the HTTP layer maps them to status codes.
var (
	// ErrUnauthenticated indicates missing or unverifiable credentials.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates a policy denial despite a valid identity.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates a resource or a referenced parent is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness or state-consistency violation.
	ErrConflict = errors.New("conflict")
	// ErrBadRequest indicates a malformed or structurally invalid request.
	ErrBadRequest = errors.New("bad request")
)
