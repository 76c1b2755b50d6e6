// Package realtime runs the live websocket channel of a room: it keeps each
// connection alive with heartbeats, decodes inbound envelopes and hands them
// to the edit operations, and registers connections so edits can be fanned
// out to every viewer.
package realtime
