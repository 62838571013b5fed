package mqtt

import (
	"fmt"
	"strings"
)

// Device classes as they appear in the second topic level. The temperature
// class keeps the firmware's spelling.
const (
	ClassRFID        = "rfid"
	ClassTemperature = "temperatur"
	ClassFan         = "fan"
	ClassCamera      = "camera"
)

const (
	// TopicRFIDAssign is where unassigned scanners announce themselves.
	TopicRFIDAssign = "rfid/assign"

	// TopicSystemStatus carries the backend's retained online/offline state.
	TopicSystemStatus = "safehouse/status"
)

// Topics builds Safehouse topic strings. Device topics follow
// {userId}/{class}/{location}/{deviceId}[/...].
//
//	topics := mqtt.Topics{}
//	t := topics.DeviceSettings("7", mqtt.ClassFan, "kitchen", "3")
//	// "7/fan/kitchen/3/settings"
type Topics struct{}

// DeviceSettings returns the settings topic for one device.
//
// Example: 7/temperatur/livingroom/2/settings
func (Topics) DeviceSettings(userID, class, location, deviceID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/settings", userID, class, location, deviceID)
}

// RFIDScanResponse returns the per-scan authorization reply topic.
//
// Example: 7/rfid/frontdoor/1/scan/ABC123
func (Topics) RFIDScanResponse(userID, location, deviceID, cardUID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/scan/%s", userID, ClassRFID, location, deviceID, cardUID)
}

// RFIDAssignment returns the topic that tells a scanner its owner and location.
//
// Example: rfid/assign/12
func (Topics) RFIDAssignment(deviceID string) string {
	return TopicRFIDAssign + "/" + deviceID
}

// SystemStatus returns the backend status topic.
func (Topics) SystemStatus() string {
	return TopicSystemStatus
}

// AllRFIDScans matches card scans from every scanner.
func (Topics) AllRFIDScans() string {
	return "+/" + ClassRFID + "/+/+/scan"
}

// RFIDAssignRequests matches scanner provisioning announcements.
func (Topics) RFIDAssignRequests() string {
	return TopicRFIDAssign
}

// AllTemperatureReadings matches temperature reports from every sensor.
func (Topics) AllTemperatureReadings() string {
	return "+/" + ClassTemperature + "/+/+"
}

// AllFanStates matches fan state reports, which share the temperature branch.
func (Topics) AllFanStates() string {
	return "+/" + ClassTemperature + "/+/+/fanState"
}

// AllCameraAlerts matches motion captures from every camera.
func (Topics) AllCameraAlerts() string {
	return "+/" + ClassCamera + "/+/+/alert"
}

// DeviceTopic is a parsed device topic.
type DeviceTopic struct {
	UserID   string
	Class    string
	Location string
	DeviceID string
	// Rest holds any levels after the device id, e.g. ["scan"].
	Rest []string
}

// ParseDeviceTopic splits a device topic into its addressed parts. The
// first four levels must be present and non-empty.
func ParseDeviceTopic(topic string) (DeviceTopic, error) {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 {
		return DeviceTopic{}, fmt.Errorf("%w: %q has fewer than 4 levels", ErrInvalidTopic, topic)
	}
	for _, p := range parts[:4] {
		if p == "" {
			return DeviceTopic{}, fmt.Errorf("%w: %q has an empty level", ErrInvalidTopic, topic)
		}
	}
	return DeviceTopic{
		UserID:   parts[0],
		Class:    parts[1],
		Location: parts[2],
		DeviceID: parts[3],
		Rest:     parts[4:],
	}, nil
}

// ValidateLevel checks that s can be used as one literal topic level.
func ValidateLevel(s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty level", ErrInvalidTopic)
	}
	if strings.ContainsAny(s, "/+#") {
		return fmt.Errorf("%w: level %q contains a separator or wildcard", ErrInvalidTopic, s)
	}
	return nil
}
