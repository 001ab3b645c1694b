package socket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is the broadcast envelope every observer receives.
type Event struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub is the process-wide realtime coordinator: connected observers plus the
// advisory table locks. Delivery is best-effort, at-most-once; clients
// reconcile through the polling endpoints when an event is missed. Nothing
// here participates in any transaction and nothing here is consulted for
// authorization or stock decisions.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]bool
	locks   *TableLockManager
	closed  bool
}

type client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	userID   string
	userName string
	role     string
}

var defaultHub *Hub

// Init creates the hub owned by the process runtime. Call once from main.
func Init() *Hub {
	h := &Hub{clients: make(map[*client]bool)}
	h.locks = NewTableLockManager(DefaultLockTTL, func(lock *TableLock) {
		h.Broadcast("table_unlocked", gin.H{"tableId": lock.TableID, "reason": "timeout"})
		log.Printf("table lock expired: %s (held by %s)", lock.TableID, lock.WaiterName)
	})
	defaultHub = h
	return h
}

// Shutdown closes every connection and stops pending lock timers.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	h.locks.Shutdown()
}

// Locks exposes the lock manager to the table controller's REST endpoints.
func (h *Hub) Locks() *TableLockManager {
	return h.locks
}

// Locks returns the process hub's lock manager, or nil before Init.
func Locks() *TableLockManager {
	if defaultHub == nil {
		return nil
	}
	return defaultHub.locks
}

// Broadcast fans an event out to every connected observer. Slow consumers
// get the message dropped rather than blocking the caller.
func (h *Hub) Broadcast(event string, data interface{}) {
	payload, err := json.Marshal(Event{Event: event, Data: data, Timestamp: time.Now()})
	if err != nil {
		log.Printf("socket marshal %s: %v", event, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
		}
	}
}

// Emit broadcasts on the process hub. Safe to call before Init (no-op), so
// controllers never need a nil check.
func Emit(event string, data interface{}) {
	if defaultHub != nil {
		defaultHub.Broadcast(event, data)
	}
}

// ReleaseTableLock force-releases a soft lock once the table's state has
// been decided elsewhere (order committed, table freed) and notifies
// observers. No-op before Init.
func ReleaseTableLock(tableID, reason string) {
	if defaultHub == nil {
		return
	}
	if defaultHub.locks.ForceRelease(tableID) {
		defaultHub.Broadcast("table_unlocked", gin.H{"tableId": tableID, "reason": reason})
	}
}

// Handle upgrades the request and runs the connection pumps.
func (h *Hub) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}

	cl := &client{hub: h, conn: conn, send: make(chan []byte, 256)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[cl] = true
	h.mu.Unlock()

	go cl.writePump()
	go cl.readPump()
}

type inboundMessage struct {
	Event     string `json:"event"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Role      string `json:"role"`
	TableID   string `json:"tableId"`
	TableName string `json:"tableName"`
}

func (c *client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read: %v", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) handleMessage(raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("websocket message: %v", err)
		return
	}

	switch msg.Event {
	case "user_connected":
		c.userID = msg.UserID
		c.userName = msg.UserName
		c.role = msg.Role
		c.sendEvent("initial_state", gin.H{"lockedTables": c.hub.locks.Snapshot()})

	case "table_lock":
		if c.userID == "" || msg.TableID == "" {
			return
		}
		lock, conflict := c.hub.locks.Acquire(msg.TableID, msg.TableName, c.userID, c.userName)
		if conflict != nil {
			c.sendEvent("table_conflict", gin.H{"tableId": msg.TableID, "currentOccupier": conflict})
			return
		}
		c.hub.Broadcast("table_locked", lock)

	case "table_unlock":
		if c.hub.locks.Release(msg.TableID, c.userID) {
			c.hub.Broadcast("table_unlocked", gin.H{"tableId": msg.TableID, "reason": "manual"})
		}
	}
}

func (c *client) sendEvent(event string, data interface{}) {
	payload, err := json.Marshal(Event{Event: event, Data: data, Timestamp: time.Now()})
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// drop removes the client and frees its table locks, telling everyone else.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()

	if c.userID != "" {
		for _, tableID := range h.locks.ReleaseByHolder(c.userID) {
			h.Broadcast("table_unlocked", gin.H{"tableId": tableID, "reason": "user_disconnected"})
		}
	}
}
