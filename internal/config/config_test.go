package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewManagerCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotshot", "config.yaml")

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	cfg := m.Get()
	if cfg.ServerPort != 8080 || cfg.Capture.Format != "png" || cfg.Overlay.DimAlpha != 0x8000 || cfg.Overlay.BorderWidth != 2 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestNewManagerReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `log_level: debug
server_port: 9090
capture:
  format: jpeg
  jpeg_quality: 75
overlay:
  border_width: 3
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	cfg := m.Get()
	if cfg.LogLevel != "debug" || cfg.ServerPort != 9090 {
		t.Fatalf("top-level values not read: %+v", cfg)
	}
	if cfg.Capture.Format != "jpeg" || cfg.Capture.JPEGQuality != 75 {
		t.Fatalf("capture values not read: %+v", cfg.Capture)
	}
	if cfg.Overlay.BorderWidth != 3 {
		t.Fatalf("border_width = %d, want 3", cfg.Overlay.BorderWidth)
	}
	// Keys missing from the file fall back to defaults.
	if cfg.Overlay.DimAlpha != 0x8000 || cfg.Capture.PortalTimeout != 120 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestNewManagerRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("overlay:\n  dim_alpha: 70000\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := NewManager(path)
	if err == nil || !strings.Contains(err.Error(), "dim_alpha") {
		t.Fatalf("NewManager() error = %v, want dim_alpha error", err)
	}
}

func TestSetPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	sets := map[string]string{
		"server_port":          "9191",
		"capture.format":       "tiff",
		"capture.display":      "HDMI-1",
		"overlay.dim_alpha":    "0xc000",
		"overlay.border_width": "4",
	}
	for k, v := range sets {
		if err := m.Set(k, v); err != nil {
			t.Fatalf("Set(%s, %s) error = %v", k, v, err)
		}
	}

	if got := m.GetViper().GetInt("server_port"); got != 9191 {
		t.Fatalf("viper server_port = %d, want 9191", got)
	}

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	cfg := reloaded.Get()
	if cfg.ServerPort != 9191 || cfg.Capture.Format != "tiff" || cfg.Capture.Display != "HDMI-1" {
		t.Fatalf("reloaded = %+v", cfg)
	}
	if cfg.Overlay.DimAlpha != 0xc000 || cfg.Overlay.BorderWidth != 4 {
		t.Fatalf("reloaded overlay = %+v", cfg.Overlay)
	}
}

func TestSetRejects(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	tests := []struct{ key, value string }{
		{"server_port", "http"},
		{"server_port", "70000"},
		{"log_level", "loud"},
		{"capture.format", "gif"},
		{"capture.jpeg_quality", "0"},
		{"overlay.border_width", "0"},
		{"no.such.key", "1"},
	}
	for _, tt := range tests {
		if err := m.Set(tt.key, tt.value); err == nil {
			t.Fatalf("Set(%s, %s) succeeded, want error", tt.key, tt.value)
		}
	}

	if m.Get().ServerPort != 8080 {
		t.Fatalf("rejected value was stored: %d", m.Get().ServerPort)
	}
}

func TestEffectiveAppliesOverrides(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	m.GetViper().Set("log_level", "debug")

	cfg, err := m.Effective()
	if err != nil {
		t.Fatalf("Effective() error = %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log_level = %q, want debug", cfg.LogLevel)
	}
	if m.Get().LogLevel != "info" {
		t.Fatal("override leaked into stored config")
	}
}

func TestKeysAreSettable(t *testing.T) {
	for _, key := range Keys() {
		if _, err := parseValue(key, "1"); err != nil && strings.Contains(err.Error(), "unknown") {
			t.Fatalf("key %q listed but not settable", key)
		}
	}
}

func TestPortalTimeoutDuration(t *testing.T) {
	c := CaptureConfig{PortalTimeout: 30}
	if c.PortalTimeoutDuration() != 30*time.Second {
		t.Fatalf("PortalTimeoutDuration() = %v", c.PortalTimeoutDuration())
	}
}
