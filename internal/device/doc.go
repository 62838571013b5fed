// Package device holds the Safehouse device model: provisioned devices of
// four kinds (temperature sensors, fans, cameras, RFID scanners), their
// kind-specific state, and the append-only telemetry they report.
//
// Fan state normalisation lives here because both device reports and
// operator commands must agree on it. See NormalizeFanState.
//
// Persistence goes through database.Executor; nothing in this package
// touches database/sql directly.
package device
