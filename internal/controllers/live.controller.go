package controllers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"nigran/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The gateway fronts a single dashboard origin; restrict via
		// config when exposed further.
		return true
	},
}

// dashboardMessage is what a dashboard socket may send us.
type dashboardMessage struct {
	Type string `json:"type"` // "ping", "subscribe", "unsubscribe"
}

// HandleLiveSocket upgrades a dashboard connection and subscribes it to
// reconciled view pushes.
func HandleLiveSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	claims, err := services.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token: " + err.Error()})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	clientID := c.ClientIP() + "-" + claims.Client
	client := &services.DashboardConn{
		ID:    clientID,
		Conn:  ws,
		Send:  make(chan services.HubMessage, 256),
		Close: make(chan bool),
	}

	hub := services.GetDashboardHub()
	hub.Register(client)

	go readPump(client, hub)
	go writePump(client)
}

// readPump consumes control messages from the dashboard socket.
func readPump(client *services.DashboardConn, hub *services.DashboardHub) {
	defer func() {
		hub.Unregister(client.ID)
		client.Conn.Close()
	}()

	client.Conn.SetPongHandler(func(string) error {
		return nil
	})

	for {
		var msg dashboardMessage
		err := client.Conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] WebSocket error: %v", err)
			}
			return
		}

		switch msg.Type {
		case "ping":
			pong := services.HubMessage{Type: "pong"}
			select {
			case client.Send <- pong:
			case <-client.Close:
				return
			default:
				return
			}

		case "subscribe":
			// Already subscribed on register.

		case "unsubscribe":
			return

		default:
			log.Printf("[WS] Unknown message type: %s", msg.Type)
		}
	}
}

// writePump delivers hub messages to the dashboard socket.
func writePump(client *services.DashboardConn) {
	defer func() {
		client.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[WS] Write error: %v", err)
				}
				return
			}

		case <-client.Close:
			client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// HandleGetToken issues a dashboard token and the socket URL to use it
// with.
func HandleGetToken(c *gin.Context) {
	client := c.DefaultQuery("client", "dashboard")

	token, err := services.GenerateToken(client)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	protocol := "ws"
	if strings.HasPrefix(c.Request.Host, "https") || c.Request.TLS != nil {
		protocol = "wss"
	}

	c.JSON(http.StatusOK, gin.H{
		"token":  token,
		"url":    protocol + "://" + c.Request.Host + "/ws?token=" + token,
		"expiry": services.GetTokenExpiry(),
		"client": client,
	})
}
