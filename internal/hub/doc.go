// Package hub is the WebSocket transport.
//
// Each connection gets a uuid, a buffered send queue drained by its own
// write pump, and ping/pong keep-alive. Connections join rooms so that one
// Broadcast reaches both players. Frames in both directions use the
// envelope {"type": <event>, "data": <payload>}.
//
// Sends never block: a connection whose queue is full is closed, and its
// read loop ending runs the normal disconnect path.
package hub
