// Package persistence keeps device state across restarts.
//
// DeviceStateStore saves a DeviceState, the device object's writable
// properties plus a snapshot of every commandable object, as a JSON file.
// Capture and Apply move state between a running device and that file.
//
// HistoryStore is a SQLite log of present value changes, fed by the COV
// manager and queried by the HTTP API.
package persistence
