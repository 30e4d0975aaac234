package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Temperature is a single sensor reading from the live feed.
type Temperature struct {
	Name        string  `json:"name"`
	Temperature float64 `json:"temperature"`
}

// Status is one point-in-time measurement for an entity. An offline
// entity is rendered with the zero value.
type Status struct {
	CPU            float64       `json:"cpu"`
	MemUsed        uint64        `json:"mem_used"`
	SwapUsed       uint64        `json:"swap_used"`
	DiskUsed       uint64        `json:"disk_used"`
	NetInSpeed     uint64        `json:"net_in_speed"`
	NetOutSpeed    uint64        `json:"net_out_speed"`
	NetInTransfer  uint64        `json:"net_in_transfer"`
	NetOutTransfer uint64        `json:"net_out_transfer"`
	Uptime         uint64        `json:"uptime"`
	Load1          float64       `json:"load1"`
	Load5          float64       `json:"load5"`
	Load15         float64       `json:"load15"`
	TCPCount       int           `json:"tcp_count"`
	UDPCount       int           `json:"udp_count"`
	ProcessCount   int           `json:"process_count"`
	Temperatures   []Temperature `json:"temperatures,omitempty"`
	GPU            []float64     `json:"gpu,omitempty"`
}

// StatusPayload is one raw entry of the live feed as sent by the
// backend. Every field is optional on the wire; absent fields decode to
// their zero value. The static fields are only trusted when the entity
// is missing from the roster and a placeholder has to be synthesized.
type StatusPayload struct {
	Name            string `json:"name,omitempty"`
	Platform        string `json:"platform,omitempty"`
	PlatformVersion string `json:"platform_version,omitempty"`
	KernelVersion   string `json:"kernel_version,omitempty"`
	Arch            string `json:"arch,omitempty"`
	Virtualization  string `json:"virtualization,omitempty"`
	MemTotal        uint64 `json:"mem_total,omitempty"`
	SwapTotal       uint64 `json:"swap_total,omitempty"`
	DiskTotal       uint64 `json:"disk_total,omitempty"`

	CPU            float64         `json:"cpu"`
	MemUsed        uint64          `json:"mem_used"`
	SwapUsed       uint64          `json:"swap_used"`
	DiskUsed       uint64          `json:"disk_used"`
	NetInSpeed     uint64          `json:"net_in_speed"`
	NetOutSpeed    uint64          `json:"net_out_speed"`
	NetInTransfer  uint64          `json:"net_in_transfer"`
	NetOutTransfer uint64          `json:"net_out_transfer"`
	Uptime         uint64          `json:"uptime"`
	Load1          float64         `json:"load1"`
	Load5          float64         `json:"load5"`
	Load15         float64         `json:"load15"`
	TCPCount       int             `json:"tcp_count"`
	UDPCount       int             `json:"udp_count"`
	ProcessCount   int             `json:"process_count"`
	Temperatures   []Temperature   `json:"temperatures,omitempty"`
	GPU            json.RawMessage `json:"gpu,omitempty"`
	Region         string          `json:"region,omitempty"`
	UpdatedAt      string          `json:"updated_at,omitempty"`
}

// Measurements extracts the dynamic fields into a clean Status.
// Zero-valued temperature readings are dropped rather than shown as a
// 0° sensor, and a bare numeric GPU field is wrapped into a one-element
// list.
func (p *StatusPayload) Measurements() Status {
	s := Status{
		CPU:            p.CPU,
		MemUsed:        p.MemUsed,
		SwapUsed:       p.SwapUsed,
		DiskUsed:       p.DiskUsed,
		NetInSpeed:     p.NetInSpeed,
		NetOutSpeed:    p.NetOutSpeed,
		NetInTransfer:  p.NetInTransfer,
		NetOutTransfer: p.NetOutTransfer,
		Uptime:         p.Uptime,
		Load1:          p.Load1,
		Load5:          p.Load5,
		Load15:         p.Load15,
		TCPCount:       p.TCPCount,
		UDPCount:       p.UDPCount,
		ProcessCount:   p.ProcessCount,
	}
	for _, t := range p.Temperatures {
		if t.Temperature != 0 {
			s.Temperatures = append(s.Temperatures, t)
		}
	}
	s.GPU = decodeGPU(p.GPU)
	return s
}

// Hostish infers static host facts from the payload's own fields, for
// entities the roster does not know about.
func (p *StatusPayload) Hostish() Host {
	return Host{
		Platform:        p.Platform,
		PlatformVersion: p.PlatformVersion,
		KernelVersion:   p.KernelVersion,
		Arch:            p.Arch,
		Virtualization:  p.Virtualization,
		MemTotal:        p.MemTotal,
		SwapTotal:       p.SwapTotal,
		DiskTotal:       p.DiskTotal,
	}
}

func decodeGPU(raw json.RawMessage) []float64 {
	if len(raw) == 0 {
		return nil
	}
	var list []float64
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single float64
	if err := json.Unmarshal(raw, &single); err == nil {
		return []float64{single}
	}
	return nil
}

// StatusFeed is a decoded live-status push: entity key to payload, with
// the wire's key order preserved for the degraded no-roster path.
type StatusFeed struct {
	Keys    []string
	Entries map[string]*StatusPayload
}

// ParseStatusFeed decodes a raw feed object keeping the order keys
// appeared in.
func ParseStatusFeed(raw []byte) (*StatusFeed, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("status feed: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("status feed: expected object, got %v", tok)
	}
	feed := &StatusFeed{Entries: make(map[string]*StatusPayload)}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("status feed: %w", err)
		}
		key, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("status feed: non-string key %v", kt)
		}
		var p StatusPayload
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("status feed entry %q: %w", key, err)
		}
		if _, dup := feed.Entries[key]; !dup {
			feed.Keys = append(feed.Keys, key)
		}
		feed.Entries[key] = &p
	}
	return feed, nil
}
