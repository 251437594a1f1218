package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/domain"
	"github.com/sm8ta/safaride_ride_microservice/internal/core/ports"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

// Hub fans ride events out to the websocket clients watching each ride.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[uuid.UUID]map[*client]struct{}
	upgrader websocket.Upgrader
	logger   ports.LoggerPort
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	rideID uuid.UUID
	userID uuid.UUID
	send   chan []byte
}

// NewHub accepts connections from the given origins; an empty list or "*"
// accepts any origin.
func NewHub(allowedOrigins []string, logger ports.LoggerPort) *Hub {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return &Hub{
		rooms:  make(map[uuid.UUID]map[*client]struct{}),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || allowed[origin]
			},
		},
	}
}

// Serve upgrades the request and subscribes the connection to rideID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, rideID, userID uuid.UUID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{
		hub:    h,
		conn:   conn,
		rideID: rideID,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
	}
	h.register(c)

	go c.writePump()
	go c.readPump()
	return nil
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	room, ok := h.rooms[c.rideID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[c.rideID] = room
	}
	room[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("Alert subscriber connected", map[string]interface{}{
		"ride_id": c.rideID.String(),
		"user_id": c.userID.String(),
	})
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.rideID]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, c.rideID)
	}
}

// Subscribers returns how many clients watch rideID.
func (h *Hub) Subscribers(rideID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[rideID])
}

// Broadcast queues event for every subscriber of rideID and returns how many
// received it. Clients whose buffer is full are dropped.
func (h *Hub) Broadcast(rideID uuid.UUID, event domain.Event) int {
	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal ride event", map[string]interface{}{
			"error":   err.Error(),
			"ride_id": rideID.String(),
		})
		return 0
	}

	h.mu.RLock()
	var slow []*client
	sent := 0
	for c := range h.rooms[rideID] {
		select {
		case c.send <- msg:
			sent++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow alert subscriber", map[string]interface{}{
			"ride_id": rideID.String(),
			"user_id": c.userID.String(),
		})
		h.unregister(c)
	}
	return sent
}

// readPump only watches for close and pong frames; clients never send data.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
