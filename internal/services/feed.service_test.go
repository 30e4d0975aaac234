package services

import (
	"encoding/json"
	"testing"
	"time"

	"nigran/internal/models"
)

func TestLiveFeedPushesReconciledView(t *testing.T) {
	c, err := NewRPCClient("http://localhost:1/rpc", RPCOptions{})
	if err != nil {
		t.Fatal(err)
	}
	roster := staticRoster([]models.RosterEntry{
		{UUID: "a", Name: "alpha", Weight: 5},
		{UUID: "b", Name: "beta", Weight: 1},
	})
	hub := InitDashboardHub()
	defer StopDashboardHub()

	conn := &DashboardConn{
		ID:    "test-dashboard",
		Send:  make(chan HubMessage, 4),
		Close: make(chan bool),
	}
	hub.Register(conn)
	BindLiveFeed(c, roster, hub)

	push := []byte(`{"jsonrpc":"2.0","method":"common:liveStatus","params":{"a":{"cpu":10},"c":{"cpu":99}}}`)
	c.Events.OnMessage(push)

	select {
	case msg := <-conn.Send:
		if msg.Type != "view" {
			t.Fatalf("message type = %q", msg.Type)
		}
		var view models.LiveView
		if err := json.Unmarshal(msg.Data, &view); err != nil {
			t.Fatalf("decode view: %v", err)
		}
		if len(view.Servers) != 3 {
			t.Fatalf("got %d servers, want 3", len(view.Servers))
		}
		names := []string{view.Servers[0].Name, view.Servers[1].Name, view.Servers[2].Name}
		if names[0] != "alpha" || names[1] != "beta" || names[2] != "c" {
			t.Fatalf("order = %v", names)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no view pushed to the dashboard")
	}

	// Pushes for other methods must not produce a view.
	c.Events.OnMessage([]byte(`{"jsonrpc":"2.0","method":"common:somethingElse","params":{}}`))
	select {
	case msg := <-conn.Send:
		t.Fatalf("unexpected message: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}
