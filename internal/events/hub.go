// Package events broadcasts change notifications to WebSocket clients.
//
// A Hub is mounted at /ws by the API server and handed to the service layer
// as its Notifier, so every points, record, execution, catalog or import
// change reaches connected clients as a JSON Message.
package events

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/studyreward/rewardbook/internal/telemetry"
)

// TypeConnected is sent to each client right after it connects.
const TypeConnected = "connected"

// Message is one broadcast frame.
type Message struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Hub tracks WebSocket clients and fans messages out to them.
type Hub struct {
	clients   map[*websocket.Conn]struct{}
	clientsMu sync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// NewHub creates a Hub and starts its broadcast loop. Close stops it.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(os.Stderr, "[events] ", log.LstdFlags)
	}
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}
	h.wg.Add(1)
	go h.broadcastLoop()
	return h
}

// Publish queues an event for every client. It never blocks; when the queue
// is full the event is dropped.
func (h *Hub) Publish(eventType string, data any) {
	msg := Message{Type: eventType, Timestamp: time.Now()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			h.logger.Printf("Failed to marshal %s event: %v", eventType, err)
			return
		}
		msg.Data = raw
	}

	select {
	case h.broadcast <- msg:
	case <-h.ctx.Done():
	default:
		h.logger.Printf("Warning: broadcast queue full, dropping %s event", eventType)
	}
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.clientsMu.Lock()
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.clientsMu.Unlock()
	telemetry.WebsocketClients.Set(float64(count))
	h.logger.Printf("Client connected (total: %d)", count)

	hello, _ := json.Marshal(Message{Type: TypeConnected, Timestamp: time.Now()})
	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	_ = conn.Write(ctx, websocket.MessageText, hello)
	cancel()

	h.readLoop(conn)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and stops the broadcast loop.
func (h *Hub) Close() error {
	h.cancel()

	h.clientsMu.Lock()
	for conn := range h.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		delete(h.clients, conn)
	}
	h.clientsMu.Unlock()
	telemetry.WebsocketClients.Set(0)

	h.wg.Wait()
	return nil
}

func (h *Hub) broadcastLoop() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return
		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			h.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(h.clients))
			for conn := range h.clients {
				clients = append(clients, conn)
			}
			h.clientsMu.RUnlock()

			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					h.logger.Printf("Failed to send to client: %v", err)
					h.remove(conn)
				}
			}
		}
	}
}

// readLoop blocks until the client goes away. Client frames are ignored.
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.remove(conn)
	for {
		if _, _, err := conn.Read(h.ctx); err != nil {
			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.clientsMu.Lock()
	if _, ok := h.clients[conn]; !ok {
		h.clientsMu.Unlock()
		return
	}
	delete(h.clients, conn)
	count := len(h.clients)
	h.clientsMu.Unlock()

	_ = conn.Close(websocket.StatusNormalClosure, "")
	telemetry.WebsocketClients.Set(float64(count))
	h.logger.Printf("Client disconnected (total: %d)", count)
}
