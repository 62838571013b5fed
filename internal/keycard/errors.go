package keycard

import "errors"

var (
	ErrKeycardNotFound = errors.New("keycard: not found")
	ErrTagExists       = errors.New("keycard: rfid tag already in use")
	ErrStatusNotFound  = errors.New("keycard: unknown status")
	ErrInvalidTag      = errors.New("keycard: invalid rfid tag")
	ErrInvalidUser     = errors.New("keycard: user id is required")
	ErrInvalidExpiry   = errors.New("keycard: expiry precedes issue date")
)
