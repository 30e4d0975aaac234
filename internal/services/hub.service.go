package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"nigran/internal/models"
)

// HubMessage is a message sent to a dashboard socket.
type HubMessage struct {
	Type      string          `json:"type"` // "view", "pong", "error"
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// DashboardConn is one connected dashboard socket.
type DashboardConn struct {
	ID    string
	Conn  *websocket.Conn
	Send  chan HubMessage
	Close chan bool
}

// DashboardHub fans reconciled views out to every connected dashboard.
// A fresh view is pushed whenever the upstream live feed produces one.
type DashboardHub struct {
	clients    map[string]*DashboardConn
	broadcast  chan HubMessage
	register   chan *DashboardConn
	unregister chan string
	mu         sync.RWMutex
	done       chan bool
}

var dashboardHub *DashboardHub

// InitDashboardHub initializes the hub and starts its event loop.
func InitDashboardHub() *DashboardHub {
	dashboardHub = &DashboardHub{
		clients:    make(map[string]*DashboardConn),
		broadcast:  make(chan HubMessage, 256),
		register:   make(chan *DashboardConn),
		unregister: make(chan string),
		done:       make(chan bool),
	}
	go dashboardHub.run()
	return dashboardHub
}

// GetDashboardHub returns the hub.
func GetDashboardHub() *DashboardHub {
	return dashboardHub
}

func (h *DashboardHub) run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("[WS] Dashboard connected: %s (total: %d)", client.ID, total)

		case clientID := <-h.unregister:
			h.mu.Lock()
			if client, exists := h.clients[clientID]; exists {
				delete(h.clients, clientID)
				close(client.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("[WS] Dashboard disconnected: %s (total: %d)", clientID, total)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.Send <- msg:
				default:
					// Client's send channel is full, skip this message
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a dashboard socket to the hub.
func (h *DashboardHub) Register(client *DashboardConn) {
	h.register <- client
}

// Unregister removes a dashboard socket from the hub.
func (h *DashboardHub) Unregister(clientID string) {
	h.unregister <- clientID
}

// PushView broadcasts a reconciled view to every dashboard.
func (h *DashboardHub) PushView(view models.LiveView) {
	data, err := json.Marshal(view)
	if err != nil {
		log.Printf("[WS] Error marshaling view: %v", err)
		return
	}
	msg := HubMessage{
		Type:      "view",
		Timestamp: time.Now(),
		Data:      data,
	}
	select {
	case h.broadcast <- msg:
	default:
		// Channel full, skip this broadcast
	}
}

// StopDashboardHub gracefully stops the hub.
func StopDashboardHub() {
	if dashboardHub != nil {
		dashboardHub.done <- true
	}
}
