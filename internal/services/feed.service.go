package services

import (
	"encoding/json"
	"log"

	"nigran/internal/models"
)

// The backend pushes live status as a notification carrying the full
// entity-key to payload mapping.
const methodLiveStatus = "common:liveStatus"

// BindLiveFeed wires the transport client's server pushes into
// reconciliation and dashboard fan-out. Call before Connect.
func BindLiveFeed(c *RPCClient, roster *RosterService, hub *DashboardHub) {
	c.Events.OnMessage = func(raw []byte) {
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			log.Printf("[FEED] unreadable push: %v", err)
			return
		}
		if req.Method != methodLiveStatus {
			return
		}
		feed, err := models.ParseStatusFeed(req.Params)
		if err != nil {
			log.Printf("[FEED] %v", err)
			return
		}
		view := roster.Reconcile(feed)
		hub.PushView(view)
	}
}
