// Package timeouts defines shared timeout constants used across the engine.
// Centralizing these values prevents drift between boundaries and makes the
// durations discoverable.
package timeouts

import "time"

// NarratorRequest caps a single call to the turn-resolution boundary.
const NarratorRequest = 30 * time.Second

// StorageOpen caps the wait for the storage file lock on startup.
const StorageOpen = time.Second

// Shutdown limits how long the process waits for the final snapshot and
// telemetry flush during graceful shutdown.
const Shutdown = 5 * time.Second
