package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteEvent sends an event with its data payload.
func WriteEvent(conn *websocket.Conn, event Event, data interface{}) error {
	return WriteTyped(conn, Response{Event: event, Data: data})
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, code, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Code:  code,
		Error: errMsg,
	})
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(readWait))
	return conn.ReadJSON(v)
}
