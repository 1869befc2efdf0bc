package auth

import "errors" // Sentinel errors

// Errors reported by the session gate
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("no valid session")
)
