// Package transport implements the framed, ping-checked WebSocket Socket
// of spec.md §4.1 on top of gorilla/websocket, following the connection
// and write-pump idioms of the viewer/session-host pattern this codebase
// was grounded on (see DESIGN.md).
package transport
