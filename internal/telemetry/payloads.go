package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// scanPayload arrives on {userId}/rfid/{location}/{deviceId}/scan.
type scanPayload struct {
	CardUID *flexString `json:"cardUID"`
	// Status optionally carries a lock directive: "locked" or "unlocked".
	Status *string `json:"status"`
}

// assignPayload arrives on rfid/assign.
type assignPayload struct {
	DeviceID *flexString `json:"DeviceID"`
	Status   string      `json:"status"`
}

// temperaturePayload arrives on {userId}/temperatur/{location}/{deviceId}.
type temperaturePayload struct {
	Temperature *float64 `json:"temperatur"`
}

// fanPayload arrives on {userId}/temperatur/{location}/{deviceId}/fanState.
// FanOn is accepted but the mode decides the stored on-flag.
type fanPayload struct {
	FanOn    *bool   `json:"fanOn"`
	FanSpeed *int    `json:"fanSpeed"`
	FanMode  *string `json:"fanMode"`
}

// cameraPayload arrives on {userId}/camera/{location}/{deviceId}/alert.
type cameraPayload struct {
	Image     *string `json:"image"`
	Timestamp *string `json:"timestamp"`
}

// flexString accepts a JSON string or number. Scanner firmware sends ids
// and card UIDs either way.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("want string or number, got %s", b)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("want string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

func (f *flexString) value() string {
	if f == nil {
		return ""
	}
	return string(*f)
}

// decode unmarshals payload into v, mapping any failure to
// ErrMalformedPayload.
func decode(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}
