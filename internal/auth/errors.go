package auth

import "errors"

var (
	// ErrTokenMissing indicates no credential was supplied with the request.
	ErrTokenMissing = errors.New("auth: missing credential")
	// ErrTokenExpired indicates the credential was valid but its expiry has
	// passed. Kept distinct from ErrTokenInvalid so the frontend can trigger
	// a refresh flow instead of a hard logout.
	ErrTokenExpired = errors.New("auth: credential expired")
	// ErrTokenInvalid covers every other verification failure: bad signature,
	// malformed payload, wrong signing method.
	ErrTokenInvalid = errors.New("auth: invalid credential")

	// ErrUnauthenticated indicates no principal is attached to the context.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	// ErrNoTenant indicates the principal carries no tenant identifier.
	ErrNoTenant = errors.New("auth: no tenant assigned")

	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrNotFound           = errors.New("auth: not found")
)
