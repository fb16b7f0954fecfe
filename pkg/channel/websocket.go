package channel

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// WebsocketChannel adapts a websocket connection to the Channel interface.
// Reads are pumped into a single ordered stream; writes are serialized with a
// mutex because gorilla connections allow one concurrent writer.
type WebsocketChannel struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	frames  chan Frame

	closeOnce sync.Once
	closed    chan struct{}
}

// NewWebsocket wraps an established connection and starts the read pump.
// The pump emits a connected lifecycle frame first and a disconnected frame
// before closing the stream.
func NewWebsocket(conn *websocket.Conn) *WebsocketChannel {
	c := &WebsocketChannel{
		conn:   conn,
		frames: make(chan Frame, 128),
		closed: make(chan struct{}),
	}
	go c.readPump()
	return c
}

func (c *WebsocketChannel) readPump() {
	defer close(c.frames)

	c.frames <- Lifecycle(LifecycleConnected)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("Websocket read failed", "error", err)
			}
			c.frames <- Lifecycle(LifecycleDisconnected)
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			// One malformed frame must not halt the stream.
			slog.Warn("Dropping malformed frame", "error", err)
			continue
		}

		select {
		case c.frames <- frame:
		case <-c.closed:
			return
		}
	}
}

func (c *WebsocketChannel) Send(ctx context.Context, frame Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-c.closed:
		return errors.New("channel closed")
	default:
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *WebsocketChannel) Recv() <-chan Frame { return c.frames }

func (c *WebsocketChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}
