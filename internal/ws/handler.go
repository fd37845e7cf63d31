package ws

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Head unit clients connect from arbitrary local origins
	},
}

// inbound is a client to server frame
type inbound struct {
	Type string `json:"type"`
}

// HandleConnection upgrades the request and streams events until either side
// closes. The client_id query parameter selects which client's focus events
// the subscriber receives.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	sub := h.subscribe(c.Query("client_id"))
	defer h.unsubscribe(sub)

	h.sendDirect(sub, Message{
		Type:       TypeWelcome,
		Subscriber: sub.id,
		ClientID:   sub.clientID,
		Timestamp:  time.Now().UnixMilli(),
	})

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		h.readPump(conn, sub)
	}()

	h.writePump(conn, sub)
	conn.Close()
	<-readDone
}

// readPump answers pings and notices disconnects
func (h *Hub) readPump(conn *websocket.Conn, sub *subscriber) {
	defer sub.close()

	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", zap.String("subscriber", sub.id), zap.Error(err))
			}
			return
		}

		var msg inbound
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.sendDirect(sub, Message{Type: TypeError, Message: "malformed message", Timestamp: time.Now().UnixMilli()})
			continue
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", msg.Type)
		}

		switch msg.Type {
		case "ping":
			h.sendDirect(sub, Message{Type: TypePong, Timestamp: time.Now().UnixMilli()})
		default:
			h.sendDirect(sub, Message{Type: TypeError, Message: "unknown message type", Timestamp: time.Now().UnixMilli()})
		}
	}
}

// writePump is the only writer on conn
func (h *Hub) writePump(conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-sub.done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case data := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("WebSocket write failed", zap.String("subscriber", sub.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) sendDirect(sub *subscriber, msg Message) {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case sub.send <- data:
	default:
	}
}
