// Package session defines the entities and lifecycle state for game
// sessions.
//
// A Session is one ongoing game scoped to a communication group. It tracks
// the world descriptor, the ordered turn history, NPC state, the member
// players, and the narrative story context.
//
// # Session Lifecycle
//
// Sessions move through several statuses:
//   - Active: the session accepts player actions.
//   - Paused: play is temporarily suspended; Active and Paused convert
//     freely into each other.
//   - Ended: terminal. An ended session rejects all mutation and a new game
//     for the same group allocates a fresh Session.
package session
