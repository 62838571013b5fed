// Package api implements the HTTP REST API and WebSocket server for the
// Safehouse backend.
//
// This package provides:
//   - command endpoints that publish device settings and store them
//   - keycard, device and telemetry read endpoints
//   - a WebSocket hub relaying accepted telemetry to live clients
//   - bearer token authentication with role permissions
//
// # Commands
//
// Each command endpoint validates its body, resolves the device's owner and
// location, then publishes to the broker and writes the database
// concurrently. It answers 200 only when both sides succeeded; a 500 names the
// side that failed. The side that succeeded is not rolled back.
//
// # WebSocket
//
// Clients connect to /api/v1/ws?token=<jwt> and send
//
//	{"type":"subscribe","payload":{"channels":["temperature.reading"]}}
//
// Events arrive as {"type":"event","event_type":<channel>,"payload":...}.
package api
