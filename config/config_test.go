package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rwirdemann/modbusrelay"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.Link.Device != "/dev/rs485" || cfg.Link.BaudRate != 9600 || cfg.Link.SlaveID != 255 {
		t.Fatalf("unexpected link defaults: %+v", cfg.Link)
	}
	if cfg.Relay.Index != 0 || cfg.Relay.HoldSeconds != 10 {
		t.Fatalf("unexpected relay defaults: %+v", cfg.Relay)
	}
	if cfg.Link.Timeout() != 5*time.Second {
		t.Fatalf("timeout = %s", cfg.Link.Timeout())
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(func(key string) string {
		if key == DeviceEnv {
			return "/tmp/virtualcom0"
		}
		return ""
	})
	if cfg.Link.Device != "/tmp/virtualcom0" {
		t.Fatalf("device = %q", cfg.Link.Device)
	}

	cfg = Default()
	cfg.ApplyEnv(func(string) string { return "" })
	if cfg.Link.Device != DefaultDevice {
		t.Fatalf("empty env changed device to %q", cfg.Link.Device)
	}
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "relay.toml", `
[link]
device = "/dev/ttyUSB0"
baud_rate = 19200
slave_id = 1

[relay]
index = 7
hold_seconds = 3
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	if cfg.Link.Device != "/dev/ttyUSB0" || cfg.Link.BaudRate != 19200 || cfg.Link.SlaveID != 1 {
		t.Fatalf("unexpected link: %+v", cfg.Link)
	}
	// untouched keys keep their defaults
	if cfg.Link.Parity != "N" || cfg.Link.DataBits != 8 || cfg.Link.StopBits != 1 {
		t.Fatalf("defaults lost: %+v", cfg.Link)
	}
	if cfg.Relay.Index != 7 || cfg.Relay.HoldSeconds != 3 {
		t.Fatalf("unexpected relay: %+v", cfg.Relay)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "relay.yaml", `
link:
  device: /tmp/virtualcom1
  parity: E
  timeout_ms: 250
relay:
  hold_seconds: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	if cfg.Link.Device != "/tmp/virtualcom1" || cfg.Link.Parity != "E" || cfg.Link.Timeout() != 250*time.Millisecond {
		t.Fatalf("unexpected link: %+v", cfg.Link)
	}
	if cfg.Relay.HoldSeconds != 0 {
		t.Fatalf("hold = %d, want 0", cfg.Relay.HoldSeconds)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := Load(writeFile(t, "broken.toml", "[link\n")); err == nil {
		t.Fatalf("expected parse error")
	}
	_, err := Load(writeFile(t, "range.toml", "[relay]\nindex = 8\n"))
	if !errors.Is(err, modbusrelay.ErrRelayOutOfRange) {
		t.Fatalf("err = %v, want ErrRelayOutOfRange", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"empty device", func(c *Config) { c.Link.Device = "" }},
		{"zero baud", func(c *Config) { c.Link.BaudRate = 0 }},
		{"data bits", func(c *Config) { c.Link.DataBits = 9 }},
		{"parity", func(c *Config) { c.Link.Parity = "X" }},
		{"stop bits", func(c *Config) { c.Link.StopBits = 3 }},
		{"timeout", func(c *Config) { c.Link.TimeoutMs = 0 }},
		{"relay", func(c *Config) { c.Relay.Index = 200 }},
		{"tcp without address", func(c *Config) { c.Link.Device = TCPScheme }},
		{"rule trigger", func(c *Config) { c.Rules = []Rule{{Trigger: "sometimes", Action: "stick"}} }},
		{"rule action", func(c *Config) { c.Rules = []Rule{{Trigger: "on_write", Action: "explode"}} }},
		{"link without target", func(c *Config) { c.Rules = []Rule{{Trigger: "on_write", Action: "link"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoad_Rules(t *testing.T) {
	path := writeFile(t, "sim.toml", `
[link]
device = "tcp://localhost:5020"

[[rule]]
relay = 2
trigger = "on_write"
action = "stick"

[[rule]]
relay = 0
trigger = "on_write"
action = "link"
value = true
target = 5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() err=%v", err)
	}
	if addr, ok := cfg.Link.TCPAddress(); !ok || addr != "localhost:5020" {
		t.Fatalf("TCPAddress() = %q, %t", addr, ok)
	}
	if len(cfg.Rules) != 2 {
		t.Fatalf("rules = %+v", cfg.Rules)
	}
	link := cfg.Rules[1]
	if link.Action != "link" || link.Value == nil || !*link.Value || link.Target == nil || *link.Target != 5 {
		t.Fatalf("unexpected link rule %+v", link)
	}
	if _, ok := Default().Link.TCPAddress(); ok {
		t.Fatalf("serial default reported as tcp")
	}
}
