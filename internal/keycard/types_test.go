package keycard

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestKeycard_Authorises(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		card *Keycard
		want bool
	}{
		{"no card", nil, false},
		{"active", &Keycard{Status: StatusActive}, true},
		{"status unset", &Keycard{}, true},
		{"lost", &Keycard{Status: "lost"}, false},
		{"expired status", &Keycard{Status: "expired"}, false},
		{"expires later", &Keycard{Status: StatusActive, ExpiresAt: &future}, true},
		{"expired date", &Keycard{Status: StatusActive, ExpiresAt: &past}, false},
		{"expires exactly now", &Keycard{ExpiresAt: &now}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.card.Authorises(now); got != tt.want {
				t.Errorf("Authorises() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateTag(t *testing.T) {
	for _, tag := range []string{"ABC123", "04:A2:1F:9C", strings.Repeat("F", maxTagLength)} {
		if err := ValidateTag(tag); err != nil {
			t.Errorf("ValidateTag(%q) = %v", tag, err)
		}
	}
	for _, tag := range []string{"", "AB/12", "AB+", "#", strings.Repeat("F", maxTagLength+1)} {
		if err := ValidateTag(tag); !errors.Is(err, ErrInvalidTag) {
			t.Errorf("ValidateTag(%q) = %v, want ErrInvalidTag", tag, err)
		}
	}
}

func TestKeycard_Validate(t *testing.T) {
	issued := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	before := issued.Add(-24 * time.Hour)

	tests := []struct {
		name string
		card Keycard
		want error
	}{
		{"ok", Keycard{RFIDTag: "ABC", UserID: "7", IssuedAt: issued}, nil},
		{"bad tag", Keycard{RFIDTag: "", UserID: "7"}, ErrInvalidTag},
		{"no user", Keycard{RFIDTag: "ABC", UserID: "  "}, ErrInvalidUser},
		{"expiry before issue", Keycard{RFIDTag: "ABC", UserID: "7", IssuedAt: issued, ExpiresAt: &before}, ErrInvalidExpiry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.card.Validate()
			if tt.want == nil && err != nil {
				t.Fatalf("Validate() = %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}
