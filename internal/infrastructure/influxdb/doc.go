// Package influxdb mirrors Safehouse telemetry into InfluxDB for
// dashboards and long-range queries.
//
// SQLite stays the system of record; the mirror is optional and lossy.
// Points are written through the client library's non-blocking batched
// write API, so a slow or absent InfluxDB never holds up a telemetry
// handler.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without the mirror
//	}
//	defer client.Close()
//
//	client.WriteTemperature("2", "livingroom", 21.5, time.Now())
//
// # Measurements
//
//	temperature      tags device_id, location        fields celsius
//	fan_state        tags device_id, location, mode  fields speed, on (absent in auto)
//	access_decision  tags device_id, location        fields granted, rfid_tag
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
package influxdb
