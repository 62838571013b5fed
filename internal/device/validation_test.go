package device

import (
	"errors"
	"strings"
	"testing"
)

func TestParseKind(t *testing.T) {
	for _, k := range AllKinds {
		if got, err := ParseKind(strings.ToUpper(string(k))); err != nil || got != k {
			t.Errorf("ParseKind(%q) = %q, %v", k, got, err)
		}
	}
	if _, err := ParseKind("toaster"); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("ParseKind(toaster) error = %v", err)
	}
}

func TestValidateID(t *testing.T) {
	valid := []string{"1", "X", "scanner-frontdoor", strings.Repeat("a", maxIDLength)}
	for _, id := range valid {
		if err := ValidateID(id); err != nil {
			t.Errorf("ValidateID(%q) = %v", id, err)
		}
	}

	invalid := []string{"", "a/b", "+", "#", strings.Repeat("a", maxIDLength+1)}
	for _, id := range invalid {
		if err := ValidateID(id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("ValidateID(%q) = %v, want ErrInvalidID", id, err)
		}
	}
}

func TestTemperatureSettings_Validate(t *testing.T) {
	if err := (TemperatureSettings{Max: 25, Normal: 21, Min: 18}).Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	if err := (TemperatureSettings{Max: 25, Normal: 25, Min: 25}).Validate(); err != nil {
		t.Errorf("equal thresholds rejected: %v", err)
	}
	if err := (TemperatureSettings{Max: 18, Normal: 21, Min: 25}).Validate(); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("inverted thresholds error = %v", err)
	}
}

func TestDevice_Assigned(t *testing.T) {
	user, loc, empty := "7", "frontdoor", ""
	tests := []struct {
		name string
		d    Device
		want bool
	}{
		{"unassigned", Device{}, false},
		{"owner only", Device{UserID: &user}, false},
		{"empty location", Device{UserID: &user, Location: &empty}, false},
		{"assigned", Device{UserID: &user, Location: &loc}, true},
	}
	for _, tt := range tests {
		if got := tt.d.Assigned(); got != tt.want {
			t.Errorf("%s: Assigned() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
