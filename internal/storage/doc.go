// Package storage defines the persistence interfaces for game state.
//
// Stores are keyed by communication group: a group holds at most one
// live session, each participant in the group owns at most one
// character, and a small fixed number of save slots hold full
// snapshots for later restore. Backends live in subpackages and are
// selected at startup.
//
// # Error Types
//
// The package defines common errors shared across implementations:
//   - ErrNotFound: a requested record is missing.
//   - ErrSlotOccupied: a save slot already holds a snapshot.
//   - ErrSlotEmpty: a load targeted an empty save slot.
package storage
