package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSMessage struct {
	Type    string      `json:"type"`
	EventID int64       `json:"event_id,omitempty"`
	Data    interface{} `json:"data"`
}

// HandleWS streams live updates for ?event_id= (omit for all events). The
// feed is read-only; inbound messages other than ping are ignored.
func (s *Server) HandleWS(c *gin.Context) {
	var eventID int64
	if raw := c.Query("event_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			badRequest(c, "invalid event_id")
			return
		}
		eventID = id
	}
	var snapshot interface{}
	if eventID > 0 {
		rows, err := s.Svc.GetStandings(c.Request.Context(), eventID)
		if err != nil {
			s.writeError(c, err)
			return
		}
		snapshot = rows
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	client := NewWSClient(eventID, conn)
	client.keepAlive()
	s.Hub.Register(client)
	done := make(chan struct{})
	defer func() {
		s.Hub.Unregister(client)
		close(client.SendCh)
		<-done
		_ = conn.Close()
		if n := client.Dropped(); n > 0 {
			s.Log.Info("slow websocket viewer", zap.Int64("event_id", eventID), zap.Int64("dropped", n))
		}
	}()

	go func() {
		defer close(done)
		client.WritePump()
	}()

	client.Send(mustJSON(WSMessage{
		Type:    "hello",
		EventID: eventID,
		Data: map[string]interface{}{
			"server_time": time.Now().UnixMilli(),
			"standings":   snapshot,
		},
	}))

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var inbound struct {
			Type string `json:"type"`
			Ts   int64  `json:"ts"`
		}
		if err := json.Unmarshal(msg, &inbound); err != nil {
			continue
		}
		if inbound.Type == "ping" {
			client.Send(mustJSON(WSMessage{
				Type: "pong",
				Data: map[string]interface{}{
					"ts":          inbound.Ts,
					"server_time": time.Now().UnixMilli(),
				},
			}))
		}
	}
}
