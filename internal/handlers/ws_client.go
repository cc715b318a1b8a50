package handlers

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsMaxInbound  = 4 << 10
	wsSendBacklog = 32
)

// wsPingPeriod must stay below wsPongWait so a live viewer always answers
// before its read deadline passes.
var wsPingPeriod = wsPongWait * 9 / 10

// WSClient is one live-feed viewer. EventID 0 follows every event.
type WSClient struct {
	EventID int64
	Conn    *websocket.Conn
	SendCh  chan []byte
	dropped atomic.Int64
}

func NewWSClient(eventID int64, conn *websocket.Conn) *WSClient {
	return &WSClient{
		EventID: eventID,
		Conn:    conn,
		SendCh:  make(chan []byte, wsSendBacklog),
	}
}

// Send never blocks the hub. A viewer that falls a full backlog behind loses
// updates and catches up on the next standings fetch.
func (c *WSClient) Send(payload []byte) {
	select {
	case c.SendCh <- payload:
	default:
		c.dropped.Add(1)
	}
}

func (c *WSClient) Dropped() int64 { return c.dropped.Load() }

// WritePump is the only writer on Conn. It pings on wsPingPeriod and sends a
// close frame once SendCh is closed.
func (c *WSClient) WritePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-c.SendCh:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// keepAlive arms the read side: inbound size cap, and a deadline pushed
// forward by every pong.
func (c *WSClient) keepAlive() {
	c.Conn.SetReadLimit(wsMaxInbound)
	_ = c.Conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
}
