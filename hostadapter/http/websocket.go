package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/infimum-network/infimum/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // public poll events carry no secrets; any origin may subscribe
	},
}

// hub maintains the set of subscribed event-stream clients and fans every
// engine.Event out to them as JSON, grounded on leanlp-BTC-coinjoin's
// websocket Hub.
type hub struct {
	mu        sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	logger    *zap.Logger
}

func newHub(logger *zap.Logger) *hub {
	return &hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 256),
		logger:    logger,
	}
}

func (h *hub) run() {
	for message := range h.broadcast {
		h.mu.Lock()
		for client := range h.clients {
			_ = client.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Warn("websocket write failed", zap.Error(err))
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mu.Unlock()
	}
}

type eventEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// observe subscribes the hub to e, translating every engine.Event into a
// JSON envelope pushed to all connected clients.
func (h *hub) observe(e *engine.Engine) {
	e.Subscribe(func(ev engine.Event) {
		payload, err := json.Marshal(eventEnvelope{Type: ev.EventName(), Data: ev})
		if err != nil {
			h.logger.Warn("failed to marshal event for broadcast", zap.Error(err))
			return
		}
		select {
		case h.broadcast <- payload:
		default:
			h.logger.Warn("websocket broadcast channel full, dropping event", zap.String("event", ev.EventName()))
		}
	})
}

// subscribe upgrades the connection and registers it with the hub.
func (h *hub) subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}
