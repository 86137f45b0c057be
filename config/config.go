package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDevice      = "/dev/rs485"
	DefaultBaudRate    = 9600
	DefaultSlaveID     = 255
	DefaultRelay       = 0
	DefaultHoldSeconds = 10

	// DeviceEnv overrides the serial device path.
	DeviceEnv = "TTY_PATH"

	// TCPScheme prefixes devices reached through a serial to Ethernet
	// gateway speaking RTU over TCP.
	TCPScheme = "tcp://"
)

// Config represents the relay configuration
type Config struct {
	Link  Link   `toml:"link" yaml:"link"`
	Relay Relay  `toml:"relay" yaml:"relay"`
	Rules []Rule `toml:"rule" yaml:"rules"` // simulator only
}

// Link describes the serial line to the relay board and the board's address
// on it.
type Link struct {
	Device    string `toml:"device" yaml:"device"`       // e.g. "/dev/rs485", "/tmp/virtualcom0" or "tcp://10.0.0.7:4196"
	BaudRate  int    `toml:"baud_rate" yaml:"baud_rate"` // bits per second
	DataBits  int    `toml:"data_bits" yaml:"data_bits"`
	Parity    string `toml:"parity" yaml:"parity"` // "N", "E" or "O"
	StopBits  int    `toml:"stop_bits" yaml:"stop_bits"`
	TimeoutMs int    `toml:"timeout_ms" yaml:"timeout_ms"`
	SlaveID   uint8  `toml:"slave_id" yaml:"slave_id"`
}

// Relay holds the defaults for the positional arguments.
type Relay struct {
	Index       uint8  `toml:"index" yaml:"index"`
	HoldSeconds uint16 `toml:"hold_seconds" yaml:"hold_seconds"`
}

// Rule changes how the simulated board reacts when a relay is accessed.
type Rule struct {
	Relay   uint16  `toml:"relay" yaml:"relay"`
	Trigger string  `toml:"trigger" yaml:"trigger"` // "on_read", "on_write" or "on_read_write"
	Action  string  `toml:"action" yaml:"action"`   // "stick", "invert" or "link"
	Value   *bool   `toml:"value" yaml:"value"`     // fire only when this state is written
	Target  *uint16 `toml:"target" yaml:"target"`   // relay switched along by "link"
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Link: Link{
			Device:    DefaultDevice,
			BaudRate:  DefaultBaudRate,
			DataBits:  8,
			Parity:    "N",
			StopBits:  1,
			TimeoutMs: 5000,
			SlaveID:   DefaultSlaveID,
		},
		Relay: Relay{
			Index:       DefaultRelay,
			HoldSeconds: DefaultHoldSeconds,
		},
	}
}

// TCPAddress returns host:port if the device is an RTU over TCP gateway.
func (l Link) TCPAddress() (string, bool) {
	return strings.CutPrefix(l.Device, TCPScheme)
}

// Timeout returns the per-transaction timeout of the link.
func (l Link) Timeout() time.Duration {
	return time.Duration(l.TimeoutMs) * time.Millisecond
}

// Load reads a TOML or YAML configuration file on top of the defaults. The
// format is chosen by file extension, TOML unless it is .yaml or .yml.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnv applies environment overrides. Only the device path can be
// overridden.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(DeviceEnv); v != "" {
		c.Link.Device = v
	}
}
