package services

import (
	"context"
	"encoding/json"
	"fmt"

	"nigran/internal/models"
)

// Backend method names. These are an external contract: opaque
// strings, not interpreted here.
const (
	methodGetNodes          = "common:getNodes"
	methodGetMe             = "common:getMe"
	methodGetPublicSettings = "common:getPublicSettings"
)

// nodePayload is a roster entry as the backend sends it.
type nodePayload struct {
	UUID            string `json:"uuid"`
	Name            string `json:"name"`
	Group           string `json:"group"`
	Weight          int    `json:"weight"`
	Note            string `json:"note"`
	Region          string `json:"region"`
	OS              string `json:"os"`
	OSVersion       string `json:"os_version"`
	KernelVersion   string `json:"kernel_version"`
	Arch            string `json:"arch"`
	Virtualization  string `json:"virtualization"`
	MemTotal        uint64 `json:"mem_total"`
	SwapTotal       uint64 `json:"swap_total"`
	DiskTotal       uint64 `json:"disk_total"`
}

type userPayload struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	LoggedIn bool   `json:"logged_in"`
}

type settingsPayload struct {
	SiteName    string `json:"sitename"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// FetchRoster retrieves the authoritative entity list. It is the
// fetcher behind the roster cache.
func FetchRoster(ctx context.Context, c *RPCClient) ([]models.RosterEntry, error) {
	raw, err := c.Call(ctx, methodGetNodes, nil)
	if err != nil {
		return nil, err
	}
	var nodes []nodePayload
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	entries := make([]models.RosterEntry, 0, len(nodes))
	for _, n := range nodes {
		entries = append(entries, models.RosterEntry{
			UUID:   n.UUID,
			Name:   n.Name,
			Group:  n.Group,
			Weight: n.Weight,
			Note:   n.Note,
			Region: n.Region,
			Host: models.Host{
				Platform:        n.OS,
				PlatformVersion: n.OSVersion,
				KernelVersion:   n.KernelVersion,
				Arch:            n.Arch,
				Virtualization:  n.Virtualization,
				MemTotal:        n.MemTotal,
				SwapTotal:       n.SwapTotal,
				DiskTotal:       n.DiskTotal,
			},
		})
	}
	return entries, nil
}

// GetGroupList reshapes the roster into the dashboard's group
// envelope: one entry per group, members as derived numeric ids in
// roster order.
func GetGroupList(ctx context.Context, c *RPCClient) (*models.APIResponse, error) {
	entries, err := FetchRoster(ctx, c)
	if err != nil {
		return nil, err
	}
	var order []string
	byName := make(map[string]*models.GroupView)
	for _, e := range entries {
		name := e.Group
		if name == "" {
			name = "default"
		}
		g, ok := byName[name]
		if !ok {
			g = &models.GroupView{Name: name}
			byName[name] = g
			order = append(order, name)
		}
		g.Servers = append(g.Servers, models.HashID(e.UUID))
	}
	groups := make([]models.GroupView, 0, len(order))
	for _, name := range order {
		groups = append(groups, *byName[name])
	}
	return models.OK(groups), nil
}

// GetCurrentUser reshapes the backend's current-user result into the
// dashboard's login envelope.
func GetCurrentUser(ctx context.Context, c *RPCClient) (*models.APIResponse, error) {
	raw, err := c.Call(ctx, methodGetMe, nil)
	if err != nil {
		return nil, err
	}
	var u userPayload
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return models.OK(models.UserView{
		ID:       models.HashID(u.UUID),
		Username: u.Username,
		LoggedIn: u.LoggedIn,
	}), nil
}

// GetSettings reshapes the backend's public settings into the
// dashboard's settings envelope.
func GetSettings(ctx context.Context, c *RPCClient) (*models.APIResponse, error) {
	raw, err := c.Call(ctx, methodGetPublicSettings, nil)
	if err != nil {
		return nil, err
	}
	var s settingsPayload
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return models.OK(models.SettingsView{
		SiteName:    s.SiteName,
		Description: s.Description,
		Version:     s.Version,
	}), nil
}

// GetMonitor serves the per-entity service/monitor endpoint. The
// backend side of this contract is provisional, so the envelope is
// returned empty without a call upstream.
func GetMonitor(id string) *models.APIResponse {
	return models.OK([]interface{}{})
}
