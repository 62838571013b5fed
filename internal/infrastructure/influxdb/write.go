package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/SDE-CIS/SafehouseSolutionsApi/internal/device"
)

// Measurement names in the telemetry bucket.
const (
	MeasurementTemperature = "temperature"
	MeasurementFan         = "fan_state"
	MeasurementAccess      = "access_decision"
)

// WriteTemperature records one temperature reading.
//
//	client.WriteTemperature("2", "livingroom", 21.5, time.Now())
func (c *Client) WriteTemperature(deviceID, location string, celsius float64, at time.Time) {
	c.write(temperaturePoint(deviceID, location, celsius, at))
}

// WriteFanState records one fan report. In auto mode the on-flag is
// unknown and the "on" field is omitted.
func (c *Client) WriteFanState(deviceID, location string, state device.FanState, at time.Time) {
	c.write(fanPoint(deviceID, location, state, at))
}

// WriteAccessDecision records one RFID authorization decision. The tag is a
// field, not a tag, to keep series cardinality bounded by scanners.
func (c *Client) WriteAccessDecision(deviceID, location, rfidTag string, granted bool, at time.Time) {
	c.write(accessPoint(deviceID, location, rfidTag, granted, at))
}

func (c *Client) write(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}

func temperaturePoint(deviceID, location string, celsius float64, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementTemperature,
		map[string]string{"device_id": deviceID, "location": location},
		map[string]interface{}{"celsius": celsius},
		at,
	)
}

func fanPoint(deviceID, location string, state device.FanState, at time.Time) *write.Point {
	fields := map[string]interface{}{"speed": state.Speed}
	if state.On != nil {
		fields["on"] = *state.On
	}
	return write.NewPoint(
		MeasurementFan,
		map[string]string{"device_id": deviceID, "location": location, "mode": string(state.Mode)},
		fields,
		at,
	)
}

func accessPoint(deviceID, location, rfidTag string, granted bool, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementAccess,
		map[string]string{"device_id": deviceID, "location": location},
		map[string]interface{}{"granted": granted, "rfid_tag": rfidTag},
		at,
	)
}
