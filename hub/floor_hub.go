package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

// Event types
const (
	EventTableCreate       = "table_create"
	EventTableUpdate       = "table_update"
	EventTableDelete       = "table_delete"
	EventReservationUpdate = "reservation_update"
	EventWaitingUpdate     = "waiting_update"
	EventDashboardUpdate   = "dashboard_update"
)

const writeWait = 5 * time.Second

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Mirror receives a copy of every published message, e.g. an external event stream.
type Mirror interface {
	Mirror(ctx context.Context, msg Message) error
}

// Hub fans floor events out to connected staff dashboards. Publish never blocks;
// Run owns every websocket write.
type Hub struct {
	clients  map[*websocket.Conn]models.Role
	mutex    sync.Mutex
	outbound chan Message
	mirror   Mirror
}

func New(buffer int, mirror Mirror) *Hub {
	if buffer <= 0 {
		buffer = 256
	}
	return &Hub{
		clients:  make(map[*websocket.Conn]models.Role),
		outbound: make(chan Message, buffer),
		mirror:   mirror,
	}
}

func (h *Hub) RegisterClient(conn *websocket.Conn, role models.Role) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = role
}

func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Publish queues msg for delivery. A full queue drops the message.
func (h *Hub) Publish(msg Message) {
	select {
	case h.outbound <- msg:
	default:
		utils.ErrorLogger.WithField("event", msg.Event).Warn("floor hub queue full, event dropped")
	}
}

// Run delivers queued messages until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.outbound:
			h.broadcast(msg)
			if h.mirror != nil {
				if err := h.mirror.Mirror(ctx, msg); err != nil {
					utils.ErrorLogger.WithError(err).WithField("event", msg.Event).Warn("floor event mirror failed")
				}
			}
		}
	}
}

func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("marshal floor event")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, role := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.WithError(err).WithField("role", role).Warn("dropping floor client")
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

// Discard is a publisher that drops everything.
type Discard struct{}

func (Discard) Publish(Message) {}
