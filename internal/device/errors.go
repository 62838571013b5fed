package device

import "errors"

var (
	ErrDeviceNotFound  = errors.New("device: not found")
	ErrDeviceExists    = errors.New("device: already exists")
	ErrInvalidKind     = errors.New("device: invalid kind")
	ErrInvalidID       = errors.New("device: invalid id")
	ErrInvalidFanMode  = errors.New("device: invalid fan mode")
	ErrInvalidFanSpeed = errors.New("device: invalid fan speed")
	ErrInvalidSettings = errors.New("device: invalid temperature settings")
)
