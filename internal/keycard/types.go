package keycard

import (
	"fmt"
	"strings"
	"time"
)

// StatusActive is the only status that grants access.
const StatusActive = "active"

const maxTagLength = 64

// Keycard maps a physical RFID tag to its owner.
type Keycard struct {
	ID        int64      `json:"id"`
	RFIDTag   string     `json:"rfid_tag"`
	UserID    string     `json:"user_id"`
	StatusID  *int64     `json:"status_id,omitempty"`
	Status    string     `json:"status,omitempty"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Status is one entry of the status enumeration.
type Status struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AccessLogEntry records one authorization decision. KeycardID is nil when
// the tag matched no card.
type AccessLogEntry struct {
	ID         int64     `json:"id"`
	AccessedAt time.Time `json:"accessed_at"`
	RFIDTag    string    `json:"rfid_tag"`
	KeycardID  *int64    `json:"keycard_id,omitempty"`
	UserID     string    `json:"user_id"`
	Location   string    `json:"location"`
	DeviceID   string    `json:"device_id"`
	Granted    bool      `json:"granted"`
}

// Authorises reports whether k opens a door at now.
func (k *Keycard) Authorises(now time.Time) bool {
	if k == nil {
		return false
	}
	if k.Status != "" && k.Status != StatusActive {
		return false
	}
	if k.ExpiresAt != nil && !now.Before(*k.ExpiresAt) {
		return false
	}
	return true
}

// ValidateTag checks that tag can be stored and used as a topic level.
func ValidateTag(tag string) error {
	switch {
	case tag == "":
		return fmt.Errorf("%w: empty", ErrInvalidTag)
	case len(tag) > maxTagLength:
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidTag, maxTagLength)
	case strings.ContainsAny(tag, "/+#"):
		return fmt.Errorf("%w: %q contains a topic separator or wildcard", ErrInvalidTag, tag)
	}
	return nil
}

// normalize trims the fields scanners and clients may pad. Scan handlers
// trim the card UID the same way, so a stored tag is always matchable.
func (k *Keycard) normalize() {
	k.RFIDTag = strings.TrimSpace(k.RFIDTag)
	k.UserID = strings.TrimSpace(k.UserID)
	k.Status = strings.TrimSpace(k.Status)
}

// Validate checks the fields a caller supplies on create and update.
func (k *Keycard) Validate() error {
	if err := ValidateTag(k.RFIDTag); err != nil {
		return err
	}
	if strings.TrimSpace(k.UserID) == "" {
		return ErrInvalidUser
	}
	if k.ExpiresAt != nil && !k.IssuedAt.IsZero() && k.ExpiresAt.Before(k.IssuedAt) {
		return ErrInvalidExpiry
	}
	return nil
}
