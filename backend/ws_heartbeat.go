package main

import (
	"time"

	"github.com/gorilla/websocket"
)

// wsHeartbeat keeps an analysis socket alive. Every interval the writer
// sends a protocol ping; a connection that goes a whole interval without any
// write also gets an application level "ping" message. The reader gives up
// once two intervals pass without a pong.
type wsHeartbeat struct {
	interval  time.Duration
	writeWait time.Duration
}

var defaultHeartbeat = wsHeartbeat{
	interval:  30 * time.Second,
	writeWait: 10 * time.Second,
}

func (hb wsHeartbeat) pongWait() time.Duration {
	return 2 * hb.interval
}

// watchPongs arms the read deadline and pushes it forward on every pong.
func (hb wsHeartbeat) watchPongs(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(hb.pongWait()))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(hb.pongWait()))
	})
}

func (hb wsHeartbeat) write(conn *websocket.Conn, msg []byte) error {
	_ = conn.SetWriteDeadline(time.Now().Add(hb.writeWait))
	return conn.WriteMessage(websocket.TextMessage, msg)
}

// pump writes send to conn until send is closed or a write fails.
func (hb wsHeartbeat) pump(conn *websocket.Conn, send <-chan []byte) error {
	ticker := time.NewTicker(hb.interval)
	defer ticker.Stop()
	lastWrite := time.Now()

	for {
		select {
		case msg, ok := <-send:
			if !ok {
				closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(hb.writeWait))
				return nil
			}
			if err := hb.write(conn, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case now := <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, now.Add(hb.writeWait)); err != nil {
				return err
			}
			if now.Sub(lastWrite) < hb.interval {
				continue
			}
			ping := wsMessage{Type: "ping", Payload: mustMarshal(map[string]int64{"at_ms": now.UnixMilli()})}
			if err := hb.write(conn, mustMarshal(ping)); err != nil {
				return err
			}
			lastWrite = now
		}
	}
}
