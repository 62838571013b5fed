package telemetry

import (
	"fmt"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/topic"
)

// All of these wrap topic.ErrRejected.
var (
	ErrMalformedPayload = fmt.Errorf("telemetry: malformed payload: %w", topic.ErrRejected)
	ErrMissingField     = fmt.Errorf("telemetry: missing required field: %w", topic.ErrRejected)
	ErrInvalidFanMode   = fmt.Errorf("telemetry: invalid fan mode: %w", topic.ErrRejected)
	ErrInvalidTopic     = fmt.Errorf("telemetry: unexpected topic shape: %w", topic.ErrRejected)
)
