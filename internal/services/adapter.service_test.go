package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nigran/internal/models"
	"nigran/internal/protocol"
)

// backendStub answers JSON-RPC over the discrete carrier with canned
// results per method.
func backendStub(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req protocol.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		resp := protocol.Response{JSONRPC: protocol.Version, ID: req.ID}
		if result, ok := results[req.Method]; ok {
			resp.Result = json.RawMessage(result)
		} else {
			resp.Error = &protocol.Error{Code: protocol.CodeMethodNotFound, Message: "unknown method " + req.Method}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGetGroupListReshapesRoster(t *testing.T) {
	srv := backendStub(t, map[string]string{
		methodGetNodes: `[
			{"uuid":"a","name":"alpha","group":"eu","weight":5},
			{"uuid":"b","name":"beta","group":"us","weight":3},
			{"uuid":"c","name":"gamma","group":"eu","weight":1},
			{"uuid":"d","name":"delta","weight":0}
		]`,
	})
	c := newTestClient(t, srv.URL, RPCOptions{})

	resp, err := GetGroupList(context.Background(), c)
	if err != nil {
		t.Fatalf("GetGroupList: %v", err)
	}
	if resp.Code != 0 || resp.Message != "success" {
		t.Fatalf("envelope = %+v", resp)
	}
	groups, ok := resp.Data.([]models.GroupView)
	if !ok {
		t.Fatalf("data type %T", resp.Data)
	}
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}
	if groups[0].Name != "eu" || len(groups[0].Servers) != 2 {
		t.Errorf("groups[0] = %+v", groups[0])
	}
	if groups[0].Servers[0] != models.HashID("a") || groups[0].Servers[1] != models.HashID("c") {
		t.Errorf("eu members out of roster order: %v", groups[0].Servers)
	}
	if groups[2].Name != "default" {
		t.Errorf("ungrouped entry landed in %q", groups[2].Name)
	}
}

func TestGetCurrentUser(t *testing.T) {
	srv := backendStub(t, map[string]string{
		methodGetMe: `{"uuid":"u-1","username":"admin","logged_in":true}`,
	})
	c := newTestClient(t, srv.URL, RPCOptions{})

	resp, err := GetCurrentUser(context.Background(), c)
	if err != nil {
		t.Fatalf("GetCurrentUser: %v", err)
	}
	user, ok := resp.Data.(models.UserView)
	if !ok {
		t.Fatalf("data type %T", resp.Data)
	}
	if user.Username != "admin" || !user.LoggedIn || user.ID != models.HashID("u-1") {
		t.Fatalf("user = %+v", user)
	}
}

func TestGetSettings(t *testing.T) {
	srv := backendStub(t, map[string]string{
		methodGetPublicSettings: `{"sitename":"ops","description":"fleet","version":"1.4.2"}`,
	})
	c := newTestClient(t, srv.URL, RPCOptions{})

	resp, err := GetSettings(context.Background(), c)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	settings, ok := resp.Data.(models.SettingsView)
	if !ok {
		t.Fatalf("data type %T", resp.Data)
	}
	if settings.SiteName != "ops" || settings.Version != "1.4.2" {
		t.Fatalf("settings = %+v", settings)
	}
}

func TestAdapterPropagatesBackendErrorUnchanged(t *testing.T) {
	srv := backendStub(t, nil)
	c := newTestClient(t, srv.URL, RPCOptions{})

	_, err := GetCurrentUser(context.Background(), c)
	if err == nil || !strings.Contains(err.Error(), "unknown method") {
		t.Fatalf("err = %v, want the backend message unchanged", err)
	}
}

func TestGetMonitorIsStubbed(t *testing.T) {
	resp := GetMonitor("42")
	if resp.Code != 0 {
		t.Fatalf("envelope = %+v", resp)
	}
	list, ok := resp.Data.([]interface{})
	if !ok || len(list) != 0 {
		t.Fatalf("data = %#v, want empty list", resp.Data)
	}
}
