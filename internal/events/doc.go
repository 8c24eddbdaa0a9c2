// Package events pushes library changes to connected clients.
//
// Services depend only on the Emitter interface. The websocket Hub is the
// production implementation: every connected socket receives each event as
// one JSON text frame. Nop discards events and Recorder keeps them for tests.
package events
