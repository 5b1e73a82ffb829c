// Package config loads the agent's TOML configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Device roles. The agent enforces policy only on a child device; a
// guardian device carries the config for the companion tooling.
const (
	RoleChild    = "child"
	RoleGuardian = "guardian"
)

// Config is the agent's on-disk configuration. Durations use Go syntax
// ("5m", "30s").
type Config struct {
	ChildID  string `toml:"child_id"`
	DeviceID string `toml:"device_id"`
	Role     string `toml:"role"`

	DataDir string `toml:"data_dir"`

	Remote  RemoteConfig  `toml:"remote"`
	Helper  HelperConfig  `toml:"helper"`
	Sync    SyncConfig    `toml:"sync"`
	Metrics MetricsConfig `toml:"metrics"`
	Log     LogConfig     `toml:"log"`
}

type RemoteConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

type HelperConfig struct {
	URL string `toml:"url"`
}

type SyncConfig struct {
	Interval       duration `toml:"interval"`
	PolicyInterval duration `toml:"policy_interval"`
	RetryDelay     duration `toml:"retry_delay"`
	MaxRetries     int      `toml:"max_retries"`
}

type MetricsConfig struct {
	Enabled    bool   `toml:"enabled"`
	ListenAddr string `toml:"listen_addr"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// duration wraps time.Duration for TOML string decoding.
type duration struct{ time.Duration }

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the built-in configuration. The child and device ids have
// no sensible defaults and must come from the file or flags.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		Role:    RoleChild,
		DataDir: filepath.Join(home, ".shieldagent"),
		Remote: RemoteConfig{
			BaseURL: "https://api.shieldtechhub.com/v1",
		},
		Helper: HelperConfig{
			URL: "ws://127.0.0.1:8974/events",
		},
		Sync: SyncConfig{
			Interval:       duration{5 * time.Minute},
			PolicyInterval: duration{time.Minute},
			RetryDelay:     duration{30 * time.Second},
			MaxRetries:     3,
		},
		Metrics: MetricsConfig{
			Enabled:    true,
			ListenAddr: "127.0.0.1:9464",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// IsChildDevice reports whether this config belongs to a managed device.
func (c Config) IsChildDevice() bool { return c.Role == RoleChild }

// Load reads the config file, layered over the defaults. A missing file
// just yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.ChildID == "" {
		return fmt.Errorf("child_id is required")
	}
	if c.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}
	if c.Role != RoleChild && c.Role != RoleGuardian {
		return fmt.Errorf("role must be %q or %q", RoleChild, RoleGuardian)
	}
	if c.Sync.MaxRetries < 0 {
		return fmt.Errorf("sync.max_retries must not be negative")
	}
	return nil
}
