package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "localhost:8080" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if !cfg.Backend.AutoConnect || !cfg.Backend.AutoReconnect {
		t.Errorf("auto connect/reconnect defaults lost: %+v", cfg.Backend)
	}
	if cfg.Backend.RequestTimeout() != 10*time.Second {
		t.Errorf("request timeout = %s", cfg.Backend.RequestTimeout())
	}
	if cfg.Backend.HeartbeatInterval() != 15*time.Second {
		t.Errorf("heartbeat interval = %s", cfg.Backend.HeartbeatInterval())
	}
	if cfg.Agent.Enabled {
		t.Error("agent enabled by default")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nigran.yaml")
	body := `
listen: ":9100"
backend:
  endpoint: https://monitor.example.com/rpc
  max_reconnect_attempts: 3
  enable_heartbeat: false
  headers:
    X-Api-Key: sesame
agent:
  enabled: true
  interval_ms: 5000
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":9100" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.Backend.Endpoint != "https://monitor.example.com/rpc" {
		t.Errorf("endpoint = %q", cfg.Backend.Endpoint)
	}
	if cfg.Backend.MaxReconnectAttempts != 3 {
		t.Errorf("max attempts = %d", cfg.Backend.MaxReconnectAttempts)
	}
	if cfg.Backend.EnableHeartbeat {
		t.Error("heartbeat should be disabled")
	}
	if cfg.Backend.Headers["X-Api-Key"] != "sesame" {
		t.Errorf("headers = %v", cfg.Backend.Headers)
	}
	// Untouched keys keep their defaults.
	if cfg.Backend.ReconnectInterval() != 3*time.Second {
		t.Errorf("reconnect interval = %s", cfg.Backend.ReconnectInterval())
	}
	if !cfg.Agent.Enabled || cfg.Agent.Interval() != 5*time.Second {
		t.Errorf("agent = %+v", cfg.Agent)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("listen: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("malformed yaml accepted")
	}
}
