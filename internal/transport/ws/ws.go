package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/alanyang/prompt-manager/internal/domain/event"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Frame is what a client receives for each event: the event plus its channel,
// so one socket can tell prompt changes from notification toggles.
type Frame struct {
	Channel event.Channel `json:"channel"`
	event.Event
}

// channels is a client's subscription set. Empty means every channel.
type channels map[event.Channel]bool

func (cs channels) wants(ch event.Channel) bool {
	return len(cs) == 0 || cs[ch]
}

// Hub pushes bus events to every connected browser. Clients pick channels with
// repeated ?channel= query parameters and otherwise only listen; anything they
// send is discarded.
type Hub struct {
	clients map[*websocket.Conn]channels
	mu      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]channels),
	}
}

func (h *Hub) Register(rg *gin.RouterGroup) {
	rg.GET("", h.handleWS)
}

func (h *Hub) handleWS(c *gin.Context) {
	subs := channels{}
	for _, name := range c.QueryArray("channel") {
		ch := event.Channel(name)
		if !known(ch) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown channel: " + name})
			return
		}
		subs[ch] = true
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = subs
	h.mu.Unlock()

	defer h.drop(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func known(ch event.Channel) bool {
	for _, c := range event.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Clients reports how many connections are open.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends e to every client subscribed to its channel. The hub lock is
// held for the whole fan-out since a connection allows one writer at a time.
// A client whose write fails is disconnected.
func (h *Hub) Broadcast(e event.Event) {
	ch := event.ChannelFor(e.Type)
	data, err := json.Marshal(Frame{Channel: ch, Event: e})
	if err != nil {
		slog.Error("websocket broadcast marshal failed", "type", e.Type, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, subs := range h.clients {
		if !subs.wants(ch) {
			continue
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Warn("websocket write failed, dropping client", "type", e.Type, "error", err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}
