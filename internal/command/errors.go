package command

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTarget = errors.New("command: invalid target")
	ErrEncode        = errors.New("command: encoding settings")
	ErrUnsupported   = errors.New("command: device kind has no settings topic")
)

// DualWriteError reports which side of a publish-and-store pair failed.
// A nil field means that side succeeded.
type DualWriteError struct {
	Publish error
	Store   error
}

func (e *DualWriteError) Error() string {
	switch {
	case e.Publish != nil && e.Store != nil:
		return fmt.Sprintf("publish failed: %v; store failed: %v", e.Publish, e.Store)
	case e.Publish != nil:
		return fmt.Sprintf("publish failed (stored): %v", e.Publish)
	default:
		return fmt.Sprintf("store failed (published): %v", e.Store)
	}
}

// Unwrap exposes both causes to errors.Is and errors.As.
func (e *DualWriteError) Unwrap() []error {
	var errs []error
	if e.Publish != nil {
		errs = append(errs, e.Publish)
	}
	if e.Store != nil {
		errs = append(errs, e.Store)
	}
	return errs
}
