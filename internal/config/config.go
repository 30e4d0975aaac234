package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the gateway configuration file.
type Config struct {
	Listen  string        `yaml:"listen"`
	Backend BackendConfig `yaml:"backend"`
	Auth    AuthConfig    `yaml:"auth"`
	Agent   AgentConfig   `yaml:"agent"`
}

// BackendConfig configures the transport client. Intervals are
// milliseconds, matching the upstream contract.
type BackendConfig struct {
	Endpoint             string            `yaml:"endpoint"`
	AutoConnect          bool              `yaml:"auto_connect"`
	AutoReconnect        bool              `yaml:"auto_reconnect"`
	ReconnectIntervalMS  int               `yaml:"reconnect_interval_ms"`
	MaxReconnectAttempts int               `yaml:"max_reconnect_attempts"`
	RequestTimeoutMS     int               `yaml:"request_timeout_ms"`
	EnableHeartbeat      bool              `yaml:"enable_heartbeat"`
	HeartbeatIntervalMS  int               `yaml:"heartbeat_interval_ms"`
	// Headers go on the discrete-exchange carrier only.
	Headers map[string]string `yaml:"headers"`
}

// AuthConfig configures dashboard token issuance.
type AuthConfig struct {
	Secret           string `yaml:"secret"`
	TokenExpiryHours int    `yaml:"token_expiry_hours"`
}

// AgentConfig configures the optional self-report loop.
type AgentConfig struct {
	Enabled    bool `yaml:"enabled"`
	IntervalMS int  `yaml:"interval_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen: "localhost:8080",
		Backend: BackendConfig{
			Endpoint:             "http://localhost:25774/rpc",
			AutoConnect:          true,
			AutoReconnect:        true,
			ReconnectIntervalMS:  3000,
			MaxReconnectAttempts: 10,
			RequestTimeoutMS:     10000,
			EnableHeartbeat:      true,
			HeartbeatIntervalMS:  15000,
		},
		Agent: AgentConfig{
			IntervalMS: 2000,
		},
	}
}

// Load reads the file at path over the defaults. A missing file is not
// an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ReconnectInterval returns the reconnect delay as a duration.
func (b BackendConfig) ReconnectInterval() time.Duration {
	return time.Duration(b.ReconnectIntervalMS) * time.Millisecond
}

// RequestTimeout returns the default call timeout as a duration.
func (b BackendConfig) RequestTimeout() time.Duration {
	return time.Duration(b.RequestTimeoutMS) * time.Millisecond
}

// HeartbeatInterval returns the heartbeat period as a duration.
func (b BackendConfig) HeartbeatInterval() time.Duration {
	return time.Duration(b.HeartbeatIntervalMS) * time.Millisecond
}

// Interval returns the agent report period as a duration.
func (a AgentConfig) Interval() time.Duration {
	return time.Duration(a.IntervalMS) * time.Millisecond
}

// TokenExpiry returns the token lifetime as a duration.
func (a AuthConfig) TokenExpiry() time.Duration {
	return time.Duration(a.TokenExpiryHours) * time.Hour
}
