package websocket

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// ReadWait is how long a connection may stay silent before it is dropped.
	ReadWait = 5 * time.Minute
	// MaxMessageSize bounds a single client frame.
	MaxMessageSize = 64 << 10

	pingPeriod = ReadWait * 9 / 10
)

// WriteTyped sends one event frame with a write deadline.
func WriteTyped(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends an ErrorResponse frame.
func WriteError(conn *websocket.Conn, code, errMsg string, fields map[string]string) error {
	return WriteTyped(conn, ErrorResponse{
		Event:  EventError,
		Code:   code,
		Error:  errMsg,
		Fields: fields,
	})
}

// ReadJSON decodes the next client frame, refreshing the read deadline first.
func ReadJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetReadDeadline(time.Now().Add(ReadWait))
	return conn.ReadJSON(v)
}

// StartHeartbeat installs a pong handler that extends the read deadline and
// pings the peer in the background until ctx is done or a ping fails. Call it
// before the read loop starts.
func StartHeartbeat(ctx context.Context, conn *websocket.Conn) {
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ReadWait))
	})
	go ping(ctx, conn)
}

func ping(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// WriteControl may run concurrently with the reader's writes.
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
