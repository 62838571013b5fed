// Package telemetry handles device-originated MQTT messages: RFID scans,
// scanner provisioning announcements, temperature readings, fan state
// reports and camera motion captures.
//
// Each handler decodes its payload into a typed struct before touching
// storage. Malformed messages (bad JSON, missing fields, unknown fan modes)
// are returned as errors wrapping topic.ErrRejected; the router logs them
// and moves on. Once a message is accepted, its storage, publish and
// notification steps are attempted independently and their failures are
// joined into the returned error.
//
// # Architecture
//
//	devices ──MQTT──▶ mqtt.Client ──Deliver──▶ topic.Router ──▶ Handlers
//	                                                          │
//	          ┌──────────────┬───────────────┬────────────────┤
//	          ▼              ▼               ▼                ▼
//	    SQLite (device,  command.Publisher  Recorder        Notifier
//	    keycard repos)   (scan replies,     (InfluxDB,      (websocket
//	                      assignments)       optional)       hub)
//
// SQLite is the record; the InfluxDB mirror and the websocket stream are
// best-effort copies and never fail a handler.
//
// Telemetry appends are never deduplicated. A redelivered QoS 1 message
// becomes a second row and, for scans, a second authorization reply.
package telemetry
