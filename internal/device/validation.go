package device

import (
	"fmt"
	"strings"
)

// maxIDLength bounds device ids, which double as topic levels.
const maxIDLength = 64

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(s))
	for _, known := range AllKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// ValidateID checks that id can be stored and used as a topic level.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidID)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidID, maxIDLength)
	}
	if strings.ContainsAny(id, "/+#") {
		return fmt.Errorf("%w: %q contains a topic separator or wildcard", ErrInvalidID, id)
	}
	return nil
}

// Validate checks that min <= normal <= max.
func (s TemperatureSettings) Validate() error {
	if s.Min > s.Normal || s.Normal > s.Max {
		return fmt.Errorf("%w: want min <= normal <= max, got %.1f/%.1f/%.1f",
			ErrInvalidSettings, s.Min, s.Normal, s.Max)
	}
	return nil
}
