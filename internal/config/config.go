package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bryanchriswhite/hotshot/internal/logger"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	LogLevel   string        `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	ServerPort int           `json:"server_port" yaml:"server_port" mapstructure:"server_port"`
	Capture    CaptureConfig `json:"capture" yaml:"capture" mapstructure:"capture"`
	Overlay    OverlayConfig `json:"overlay" yaml:"overlay" mapstructure:"overlay"`
}

// CaptureConfig holds capture and output settings
type CaptureConfig struct {
	Format      string `json:"format" yaml:"format" mapstructure:"format"`
	JPEGQuality int    `json:"jpeg_quality" yaml:"jpeg_quality" mapstructure:"jpeg_quality"`
	OutputDir   string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
	// Display is the default monitor (index or name); empty means all
	Display string `json:"display" yaml:"display" mapstructure:"display"`
	// PortalTimeout is in seconds
	PortalTimeout int `json:"portal_timeout" yaml:"portal_timeout" mapstructure:"portal_timeout"`
}

// OverlayConfig represents interactive selection overlay configuration
type OverlayConfig struct {
	DimAlpha    int `json:"dim_alpha" yaml:"dim_alpha" mapstructure:"dim_alpha"`
	BorderWidth int `json:"border_width" yaml:"border_width" mapstructure:"border_width"`
}

// PortalTimeoutDuration returns the portal timeout as a duration.
func (c CaptureConfig) PortalTimeoutDuration() time.Duration {
	return time.Duration(c.PortalTimeout) * time.Second
}

var validFormats = map[string]bool{"png": true, "jpeg": true, "jpg": true, "bmp": true, "tiff": true, "tif": true}

var validLevels = map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "off": true}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if !validLevels[c.LogLevel] {
		errs = append(errs, fmt.Errorf("invalid log_level %q (use: trace, debug, info, warn, error, off)", c.LogLevel))
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid server_port %d", c.ServerPort))
	}
	if !validFormats[strings.ToLower(c.Capture.Format)] {
		errs = append(errs, fmt.Errorf("invalid capture.format %q (use: png, jpeg, bmp, tiff)", c.Capture.Format))
	}
	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("invalid capture.jpeg_quality %d (1-100)", c.Capture.JPEGQuality))
	}
	if c.Capture.PortalTimeout < 0 {
		errs = append(errs, fmt.Errorf("invalid capture.portal_timeout %d", c.Capture.PortalTimeout))
	}
	if c.Overlay.DimAlpha < 0 || c.Overlay.DimAlpha > 0xffff {
		errs = append(errs, fmt.Errorf("invalid overlay.dim_alpha %d (0-65535)", c.Overlay.DimAlpha))
	}
	if c.Overlay.BorderWidth < 1 || c.Overlay.BorderWidth > 64 {
		errs = append(errs, fmt.Errorf("invalid overlay.border_width %d (1-64)", c.Overlay.BorderWidth))
	}
	return errors.Join(errs...)
}

// Defaults returns the default configuration.
func Defaults() *Config {
	outputDir := "Screenshots"
	if home, err := os.UserHomeDir(); err == nil {
		outputDir = filepath.Join(home, "Screenshots")
	}

	return &Config{
		LogLevel:   "info",
		ServerPort: 8080,
		Capture: CaptureConfig{
			Format:        "png",
			JPEGQuality:   90,
			OutputDir:     outputDir,
			PortalTimeout: 120,
		},
		Overlay: OverlayConfig{
			DimAlpha:    0x8000,
			BorderWidth: 2,
		},
	}
}

// Manager handles configuration
type Manager struct {
	configPath string
	v          *viper.Viper
	config     *Config
	mu         sync.RWMutex
}

// DefaultPath returns $HOME/.config/hotshot/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "hotshot", "config.yaml"), nil
}

// NewManager loads configFile, or the default path when empty. A missing
// file is created with defaults.
func NewManager(configFile string) (*Manager, error) {
	path := configFile
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	m := &Manager{
		configPath: path,
		v:          newViper(path),
	}

	if err := m.load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		logger.WithComponent("config").Info().
			Str("path", m.configPath).
			Msg("Config file not found, creating new config")
		m.config = Defaults()
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config loaded")

	return m, nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	d := Defaults()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("server_port", d.ServerPort)
	v.SetDefault("capture.format", d.Capture.Format)
	v.SetDefault("capture.jpeg_quality", d.Capture.JPEGQuality)
	v.SetDefault("capture.output_dir", d.Capture.OutputDir)
	v.SetDefault("capture.display", d.Capture.Display)
	v.SetDefault("capture.portal_timeout", d.Capture.PortalTimeout)
	v.SetDefault("overlay.dim_alpha", d.Overlay.DimAlpha)
	v.SetDefault("overlay.border_width", d.Overlay.BorderWidth)
	return v
}

// load reads the configuration from disk
func (m *Manager) load() error {
	if _, err := os.Stat(m.configPath); err != nil {
		return err
	}
	if err := m.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the stored configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg := *m.config
	return &cfg
}

// Effective returns the configuration with bound command-line flags
// applied on top of the stored values.
func (m *Manager) Effective() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetViper exposes the viper instance for flag binding and key lookup
func (m *Manager) GetViper() *viper.Viper {
	return m.v
}

// Save writes the stored configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := yaml.Marshal(m.config)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// Set parses value for key, validates the result, and saves it.
func (m *Manager) Set(key, value string) error {
	typed, err := parseValue(key, value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	cfg := *m.config
	if err := assign(&cfg, key, typed); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := cfg.Validate(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.config = &cfg
	m.mu.Unlock()

	m.v.Set(key, typed)
	return m.Save()
}

// Keys lists every configuration key accepted by Set.
func Keys() []string {
	return []string{
		"log_level",
		"server_port",
		"capture.format",
		"capture.jpeg_quality",
		"capture.output_dir",
		"capture.display",
		"capture.portal_timeout",
		"overlay.dim_alpha",
		"overlay.border_width",
	}
}

func parseValue(key, value string) (interface{}, error) {
	switch key {
	case "server_port", "capture.jpeg_quality", "capture.portal_timeout", "overlay.border_width":
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid number for %s: %s", key, value)
		}
		return n, nil
	case "overlay.dim_alpha":
		// Accept 0x8000 as well as 32768.
		n, err := strconv.ParseInt(value, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid number for %s: %s", key, value)
		}
		return int(n), nil
	case "log_level", "capture.format", "capture.output_dir", "capture.display":
		return value, nil
	default:
		return nil, fmt.Errorf("unknown configuration key: %s", key)
	}
}

func assign(cfg *Config, key string, value interface{}) error {
	switch key {
	case "log_level":
		cfg.LogLevel = value.(string)
	case "server_port":
		cfg.ServerPort = value.(int)
	case "capture.format":
		cfg.Capture.Format = value.(string)
	case "capture.jpeg_quality":
		cfg.Capture.JPEGQuality = value.(int)
	case "capture.output_dir":
		cfg.Capture.OutputDir = value.(string)
	case "capture.display":
		cfg.Capture.Display = value.(string)
	case "capture.portal_timeout":
		cfg.Capture.PortalTimeout = value.(int)
	case "overlay.dim_alpha":
		cfg.Overlay.DimAlpha = value.(int)
	case "overlay.border_width":
		cfg.Overlay.BorderWidth = value.(int)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// GetConfigPath returns the configuration file path
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
