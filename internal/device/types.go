package device

import "time"

// Kind is the class of a physical device.
type Kind string

const (
	KindTemperature Kind = "temperature"
	KindFan         Kind = "fan"
	KindCamera      Kind = "camera"
	KindRFID        Kind = "rfid"
)

// AllKinds lists every supported kind.
var AllKinds = []Kind{KindTemperature, KindFan, KindCamera, KindRFID}

// Device is one provisioned unit. The (Kind, ID) pair is unique; the same
// ID may be reused across kinds.
type Device struct {
	Kind      Kind      `json:"kind"`
	ID        string    `json:"id"`
	Active    bool      `json:"active"`
	UserID    *string   `json:"user_id,omitempty"`
	Location  *string   `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Fan is the last recorded fan state (fan devices only).
	Fan *FanState `json:"fan,omitempty"`

	// IsLocked is the door lock flag (RFID scanners only).
	IsLocked *bool `json:"is_locked,omitempty"`
}

// Assigned reports whether the device has both an owner and a location.
func (d *Device) Assigned() bool {
	return d.UserID != nil && *d.UserID != "" && d.Location != nil && *d.Location != ""
}

// TemperatureReading is one reported temperature.
type TemperatureReading struct {
	ID         int64     `json:"id"`
	DeviceID   string    `json:"device_id"`
	Celsius    float64   `json:"celsius"`
	RecordedAt time.Time `json:"recorded_at"`
}

// FanReading is one reported fan state.
type FanReading struct {
	ID         int64     `json:"id"`
	DeviceID   string    `json:"device_id"`
	State      FanState  `json:"state"`
	RecordedAt time.Time `json:"recorded_at"`
}

// CameraCapture is one image sent by a camera on motion.
type CameraCapture struct {
	ID         int64     `json:"id"`
	DeviceID   string    `json:"device_id"`
	Image      []byte    `json:"image"`
	CapturedAt time.Time `json:"captured_at"`
}

// TemperatureSettings are the thresholds a temperature sensor drives its
// fan from.
type TemperatureSettings struct {
	DeviceID  string    `json:"device_id"`
	Max       float64   `json:"max_temperature"`
	Normal    float64   `json:"normal_temperature"`
	Min       float64   `json:"min_temperature"`
	CreatedAt time.Time `json:"created_at"`
}
