// Package server implements the ChatConnect relay: a WebSocket server that
// groups connections into named rooms and fans out messages, presence, and
// typing events to room members with bounded per-room history.
//
// The implementation is organized into specialized files: the passive shared
// structures (registry, rooms, history), the session state machine that
// mutates them atomically (state), the hub that routes serialized events to
// connection sets, per-connection pumps (client), and the HTTP surface
// (handlers, routes). All chat state is in-memory and lost on restart.
package server
