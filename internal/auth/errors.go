package auth

import "errors"

var (
	ErrTokenMissing = errors.New("auth: bearer token missing")
	ErrTokenInvalid = errors.New("auth: invalid token")
	ErrForbidden    = errors.New("auth: insufficient permissions")
)
