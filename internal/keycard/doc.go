// Package keycard manages RFID keycards, their status enumeration and the
// append-only access log written by the scan handler.
//
// A tag is authorised when a keycard with that tag exists, its status is
// active (or unset) and it has not expired. Tags double as MQTT topic
// levels in scan replies, so they may not contain '/', '+' or '#'.
package keycard
