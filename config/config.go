package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTelemetryCommand = "sigrok-cli --driver=uni-t-ut61e:conn=1a86.e008 --continuous"
	DefaultDMMDevice        = "/dev/video104"
	DefaultScopeDevice      = "/dev/video103"
	DefaultScopeSource      = "/dev/dso728705"
)

// Config represents the complete bridge configuration
type Config struct {
	Telemetry TelemetryConfig `yaml:"telemetry"`
	DMM       DMMConfig       `yaml:"dmm"`
	Scope     ScopeConfig     `yaml:"scope"`
	Relay     RelayConfig     `yaml:"relay"`
	Stats     StatsConfig     `yaml:"stats"`
	UI        UIConfig        `yaml:"ui"`
	Logging   LoggingConfig   `yaml:"logging"`

	// LoadedFrom records the file the configuration came from ("defaults" when none).
	LoadedFrom string `yaml:"-"`
}

// TelemetryConfig describes where measurement lines come from.
type TelemetryConfig struct {
	// Transport is "command" (spawned process, default) or "telnet".
	Transport             string `yaml:"transport"`
	Command               string `yaml:"command"`
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	MaxLineBytes          int    `yaml:"max_line_bytes"`
	PollWaitMicros        int    `yaml:"poll_wait_micros"`
	RespawnCooldownMicros int    `yaml:"respawn_cooldown_micros"`
	SpawnRetryBaseSeconds int    `yaml:"spawn_retry_base_seconds"`
	SpawnRetryMaxSeconds  int    `yaml:"spawn_retry_max_seconds"`
}

// DMMConfig contains the multimeter panel sink settings
type DMMConfig struct {
	Device string `yaml:"device"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// ScopeConfig contains the oscilloscope acquisition settings
type ScopeConfig struct {
	Device       string `yaml:"device"`
	Source       string `yaml:"source"`
	SourceWidth  int    `yaml:"source_width"`
	SourceHeight int    `yaml:"source_height"`
}

// RelayConfig contains optional MQTT relay settings for published readings.
type RelayConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

// StatsConfig controls the periodic stats line.
type StatsConfig struct {
	DisplayIntervalSeconds int `yaml:"display_interval_seconds"`
}

// UIConfig selects the console surface ("headless" or "tview").
type UIConfig struct {
	Mode string `yaml:"mode"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
}

// Default returns a configuration populated only with built-in defaults.
func Default() *Config {
	cfg := &Config{LoadedFrom: "defaults"}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a YAML file
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	cfg.LoadedFrom = filename

	return &cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	t := &c.Telemetry
	t.Transport = strings.ToLower(strings.TrimSpace(t.Transport))
	if t.Transport == "" {
		t.Transport = "command"
	}
	if strings.TrimSpace(t.Command) == "" {
		t.Command = DefaultTelemetryCommand
	}
	if t.Port <= 0 {
		t.Port = 23
	}
	if t.MaxLineBytes <= 0 {
		t.MaxLineBytes = 100
	}
	if t.PollWaitMicros <= 0 {
		t.PollWaitMicros = 10
	}
	if t.RespawnCooldownMicros <= 0 {
		t.RespawnCooldownMicros = 10
	}
	if t.SpawnRetryBaseSeconds <= 0 {
		t.SpawnRetryBaseSeconds = 1
	}
	if t.SpawnRetryMaxSeconds < t.SpawnRetryBaseSeconds {
		t.SpawnRetryMaxSeconds = 30
	}

	if strings.TrimSpace(c.DMM.Device) == "" {
		c.DMM.Device = DefaultDMMDevice
	}
	if c.DMM.Width <= 0 {
		c.DMM.Width = 512
	}
	if c.DMM.Height <= 0 {
		c.DMM.Height = 256
	}

	if strings.TrimSpace(c.Scope.Device) == "" {
		c.Scope.Device = DefaultScopeDevice
	}
	if strings.TrimSpace(c.Scope.Source) == "" {
		c.Scope.Source = DefaultScopeSource
	}
	if c.Scope.SourceWidth <= 0 {
		c.Scope.SourceWidth = 400
	}
	if c.Scope.SourceHeight <= 0 {
		c.Scope.SourceHeight = 240
	}

	if c.Relay.Port <= 0 {
		c.Relay.Port = 1883
	}
	if strings.TrimSpace(c.Relay.Topic) == "" {
		c.Relay.Topic = "instrumentvideo/dmm"
	}
	if c.Stats.DisplayIntervalSeconds <= 0 {
		c.Stats.DisplayIntervalSeconds = 30
	}
	c.UI.Mode = strings.ToLower(strings.TrimSpace(c.UI.Mode))
	if c.UI.Mode == "" {
		c.UI.Mode = "headless"
	}
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = "data/logs"
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = 7
	}
}

func (c *Config) validate() error {
	switch c.Telemetry.Transport {
	case "command":
	case "telnet":
		if strings.TrimSpace(c.Telemetry.Host) == "" {
			return errors.New("telemetry.host is required for the telnet transport")
		}
	default:
		return fmt.Errorf("unknown telemetry.transport %q", c.Telemetry.Transport)
	}
	if c.Relay.Enabled && strings.TrimSpace(c.Relay.Broker) == "" {
		return errors.New("relay.broker is required when the relay is enabled")
	}
	return nil
}

// PollWait returns the bounded wait used when polling the telemetry source.
func (t TelemetryConfig) PollWait() time.Duration {
	return time.Duration(t.PollWaitMicros) * time.Microsecond
}

// RespawnCooldown returns the pause between an end-of-stream and the respawn.
func (t TelemetryConfig) RespawnCooldown() time.Duration {
	return time.Duration(t.RespawnCooldownMicros) * time.Microsecond
}

// Print displays the configuration
func (c *Config) Print() {
	fmt.Printf("Config: %s\n", c.LoadedFrom)
	switch c.Telemetry.Transport {
	case "telnet":
		fmt.Printf("Telemetry: telnet %s:%d\n", c.Telemetry.Host, c.Telemetry.Port)
	default:
		fmt.Printf("Telemetry: %s\n", c.Telemetry.Command)
	}
	fmt.Printf("DMM sink: %s (%dx%d)\n", c.DMM.Device, c.DMM.Width, c.DMM.Height)
	fmt.Printf("Scope sink: %s (source %s, %dx%d upscaled 2x)\n", c.Scope.Device, c.Scope.Source, c.Scope.SourceWidth, c.Scope.SourceHeight)
	if c.Relay.Enabled {
		fmt.Printf("Relay: %s:%d (topic: %s)\n", c.Relay.Broker, c.Relay.Port, c.Relay.Topic)
	}
	if c.Logging.Enabled {
		fmt.Printf("Logging: %s (retention %d days)\n", c.Logging.Dir, c.Logging.RetentionDays)
	}
}
