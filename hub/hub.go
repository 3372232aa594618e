// Package hub pushes live floor events to connected staff screens over
// websockets.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/restaurant-floor/floor"
	"github.com/yeremiapane/restaurant-floor/models"
	"github.com/yeremiapane/restaurant-floor/utils"
)

// Event types
const (
	EventTableCreate  = "table_create"
	EventTableUpdate  = "table_update"
	EventTableDelete  = "table_delete"
	EventQueueUpdate  = "queue_update"
	EventNotification = "notification"
	EventFloorCycle   = "floor_cycle"
	EventCycleFailed  = "floor_cycle_failed"
)

const writeWait = 5 * time.Second

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub holds the connected clients and their roles.
type Hub struct {
	clients map[*websocket.Conn]string
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]string)}
}

var (
	_ floor.Sink          = (*Hub)(nil)
	_ floor.CycleObserver = (*Hub)(nil)
)

func (h *Hub) RegisterClient(conn *websocket.Conn, role string) {
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

// Close disconnects every client.
func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *Hub) BroadcastTableCreate(table models.Table) {
	h.Broadcast(Message{Event: EventTableCreate, Data: table})
}

func (h *Hub) BroadcastTableUpdate(table models.Table) {
	h.Broadcast(Message{Event: EventTableUpdate, Data: table})
}

func (h *Hub) BroadcastTableDelete(tableID uint) {
	h.Broadcast(Message{Event: EventTableDelete, Data: map[string]interface{}{"table_id": tableID}})
}

func (h *Hub) BroadcastQueueUpdate(queue []models.QueueEntry) {
	h.Broadcast(Message{Event: EventQueueUpdate, Data: queue})
}

// Deliver sends committed notifications to the floor screens.
func (h *Hub) Deliver(notifications []models.Notification) {
	for _, n := range notifications {
		utils.InfoLogger.Printf("[NOTIFICATION SENT] To: %s | Msg: %s", n.Recipient, n.Message)
	}
	h.Broadcast(Message{Event: EventNotification, Data: notifications})
}

// ObserveCycle publishes the summary of every finished cycle.
func (h *Hub) ObserveCycle(result *floor.CycleResult, err error) {
	if err != nil {
		h.Broadcast(Message{Event: EventCycleFailed, Data: map[string]interface{}{"error": err.Error()}})
		return
	}
	h.Broadcast(Message{Event: EventFloorCycle, Data: map[string]interface{}{
		"cycle_id":  result.CycleID,
		"timestamp": result.Timestamp,
		"summary":   result.Summary,
	}})
}

// Broadcast writes msg to every client. Clients that fail the write are
// dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling message: %v", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for conn, role := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Printf("Error sending %s to %s client: %v", msg.Event, role, err)
			delete(h.clients, conn)
			conn.Close()
		}
	}
}
