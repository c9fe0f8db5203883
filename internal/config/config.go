package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration. Durations are YAML strings ("5s").
type Config struct {
	Plugin    PluginConfig    `yaml:"plugin"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// PluginConfig names the plugin towards hosts and front ends.
type PluginConfig struct {
	Name       string `yaml:"name"`        // Host registration name
	Identifier string `yaml:"identifier"`  // Foreign runtime plugin identifier
	EventName  string `yaml:"event_name"`  // Front-end event name
	SyncNotify string `yaml:"sync_notify"` // Deliver to subscribers on the publishing goroutine
}

// BroadcastConfig bounds subscriber delivery.
type BroadcastConfig struct {
	BufferSize      int           `yaml:"buffer_size"`      // Per-subscriber queue length
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"` // Max wait on a full queue before dropping
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`  // Context deadline given to each handler call
}

// BridgeConfig locates the foreign mobile runtime.
type BridgeConfig struct {
	URL         string        `yaml:"url"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// ServerConfig is the headless HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Plugin: PluginConfig{
			Name:       "deep-link",
			Identifier: "app.nebo.deep_link",
			EventName:  "deep-link://new-url",
			SyncNotify: "false",
		},
		Broadcast: BroadcastConfig{
			BufferSize:      64,
			DispatchTimeout: 5 * time.Second,
			HandlerTimeout:  10 * time.Second,
		},
		Bridge: BridgeConfig{
			DialTimeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:27460",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFromBytes loads configuration from YAML bytes with environment variable
// expansion. Keys absent from data keep their defaults.
func LoadFromBytes(data []byte) (Config, error) {
	return merge(Defaults(), data)
}

// LoadFile overlays the YAML file at path on base.
func LoadFile(base Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config %s: %w", path, err)
	}
	c, err := merge(base, data)
	if err != nil {
		return base, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

func merge(base Config, data []byte) (Config, error) {
	c := base
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &c); err != nil {
		return base, fmt.Errorf("parse yaml: %w", err)
	}
	if err := c.Validate(); err != nil {
		return base, err
	}
	return c, nil
}

// Validate rejects settings the runtime cannot work with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Plugin.EventName) == "" {
		errs = append(errs, errors.New("plugin.event_name is empty"))
	}
	if strings.TrimSpace(c.Plugin.Identifier) == "" {
		errs = append(errs, errors.New("plugin.identifier is empty"))
	}
	if c.Broadcast.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("broadcast.buffer_size must be positive, got %d", c.Broadcast.BufferSize))
	}
	if c.Broadcast.DispatchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("broadcast.dispatch_timeout must be positive, got %s", c.Broadcast.DispatchTimeout))
	}
	if c.Broadcast.HandlerTimeout <= 0 {
		errs = append(errs, fmt.Errorf("broadcast.handler_timeout must be positive, got %s", c.Broadcast.HandlerTimeout))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// parseBool parses a string as boolean with a default value.
// Accepts: "true", "1", "yes" as true; empty or other values return default.
func parseBool(s string, defaultVal bool) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return defaultVal
	}
	return s == "true" || s == "1" || s == "yes"
}

func (c Config) IsSyncNotify() bool {
	return parseBool(c.Plugin.SyncNotify, false)
}
