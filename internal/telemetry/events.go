package telemetry

import (
	"time"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/device"
)

// Channels on which accepted telemetry is broadcast to live clients.
const (
	ChannelTemperature = "temperature.reading"
	ChannelFan         = "fan.state"
	ChannelAccess      = "access.decision"
	ChannelProvisioned = "device.provisioned"
	ChannelCapture     = "camera.capture"
)

// Channels lists every broadcast channel.
var Channels = []string{ChannelTemperature, ChannelFan, ChannelAccess, ChannelProvisioned, ChannelCapture}

// TemperatureEvent is broadcast on ChannelTemperature.
type TemperatureEvent struct {
	UserID     string    `json:"user_id"`
	Location   string    `json:"location"`
	DeviceID   string    `json:"device_id"`
	Celsius    float64   `json:"celsius"`
	RecordedAt time.Time `json:"recorded_at"`
}

// FanEvent is broadcast on ChannelFan.
type FanEvent struct {
	UserID     string          `json:"user_id"`
	Location   string          `json:"location"`
	DeviceID   string          `json:"device_id"`
	State      device.FanState `json:"state"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// AccessEvent is broadcast on ChannelAccess.
type AccessEvent struct {
	UserID   string    `json:"user_id"`
	Location string    `json:"location"`
	DeviceID string    `json:"device_id"`
	RFIDTag  string    `json:"rfid_tag"`
	Granted  bool      `json:"granted"`
	At       time.Time `json:"at"`
}

// ProvisionedEvent is broadcast on ChannelProvisioned.
type ProvisionedEvent struct {
	Kind     device.Kind `json:"kind"`
	DeviceID string      `json:"device_id"`
}

// CaptureEvent is broadcast on ChannelCapture. The image itself is fetched
// over REST.
type CaptureEvent struct {
	UserID     string    `json:"user_id"`
	Location   string    `json:"location"`
	DeviceID   string    `json:"device_id"`
	CaptureID  int64     `json:"capture_id"`
	Bytes      int       `json:"bytes"`
	CapturedAt time.Time `json:"captured_at"`
}
