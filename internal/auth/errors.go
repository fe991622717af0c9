package auth

import "errors"

var (
	// ErrUnauthenticated means no usable session or token was presented.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	// ErrTokenExpired means the token signature was valid but its expiry is in the past.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid means the token signature failed or the structure was malformed.
	ErrTokenInvalid = errors.New("auth: invalid token")
	// ErrSessionExpired means the session idle timeout was exceeded; the session is destroyed.
	ErrSessionExpired = errors.New("auth: session expired")
	// ErrForbidden means the principal is authenticated but lacks a required role or permission.
	ErrForbidden = errors.New("auth: forbidden")
	// ErrOrganizationMismatch means the resource belongs to a different tenant.
	ErrOrganizationMismatch = errors.New("auth: organization mismatch")
	// ErrInvalidCredentials covers every login failure without distinguishing the cause.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	ErrInvalidInput = errors.New("auth: invalid input")
	ErrNotFound     = errors.New("auth: not found")
	ErrConflict     = errors.New("auth: resource conflict")
)
