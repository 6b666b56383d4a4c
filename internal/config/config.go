package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything Gantry needs to reach a Repetier-Server
// instance and one printer on it.
type Config struct {
	Host       string
	Port       int
	Path       string
	Slug       string
	APIKey     string
	CameraPort int

	PollInterval   time.Duration
	CameraInterval time.Duration
	TimeoutWindow  time.Duration

	AutoPrint     bool
	CameraEnabled bool
}

const (
	defaultConfigPath = "~/.config/gantry/config.toml"
	defaultHost       = "localhost"
	defaultPort       = 3344
	defaultPath       = "/"
)

const (
	defaultPollIntervalMS   = 2000
	defaultCameraIntervalMS = 500
	defaultTimeoutWindowS   = 5
)

// Load locates and parses the Gantry config, falling back to defaults when
// missing. A missing file is not an error; a present but malformed one is.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	raw := rawConfig{
		Host:             defaultHost,
		Port:             defaultPort,
		Path:             defaultPath,
		PollIntervalMS:   defaultPollIntervalMS,
		CameraIntervalMS: defaultCameraIntervalMS,
		TimeoutWindowS:   defaultTimeoutWindowS,
		AutoPrint:        true,
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return raw.config(), nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	return raw.config(), nil
}

type rawConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	Path       string `toml:"path"`
	Slug       string `toml:"slug"`
	APIKey     string `toml:"api_key"`
	CameraPort int    `toml:"camera_port"`

	PollIntervalMS   int `toml:"poll_interval_ms"`
	CameraIntervalMS int `toml:"camera_interval_ms"`
	TimeoutWindowS   int `toml:"timeout_window_s"`

	AutoPrint     bool `toml:"auto_print"`
	CameraEnabled bool `toml:"camera_enabled"`
}

func (r rawConfig) config() Config {
	cfg := Config{
		Host:          strings.TrimSpace(r.Host),
		Port:          r.Port,
		Path:          strings.TrimSpace(r.Path),
		Slug:          strings.TrimSpace(r.Slug),
		APIKey:        strings.TrimSpace(r.APIKey),
		CameraPort:    r.CameraPort,
		AutoPrint:     r.AutoPrint,
		CameraEnabled: r.CameraEnabled,
	}
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if cfg.Path == "" {
		cfg.Path = defaultPath
	}
	cfg.PollInterval = positiveMS(r.PollIntervalMS, defaultPollIntervalMS)
	cfg.CameraInterval = positiveMS(r.CameraIntervalMS, defaultCameraIntervalMS)
	if r.TimeoutWindowS > 0 {
		cfg.TimeoutWindow = time.Duration(r.TimeoutWindowS) * time.Second
	} else {
		cfg.TimeoutWindow = defaultTimeoutWindowS * time.Second
	}
	return cfg
}

func positiveMS(ms, fallback int) time.Duration {
	if ms <= 0 {
		ms = fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// Validate reports whether the config identifies a printer. Host and port
// have usable defaults; the printer slug does not.
func (c Config) Validate() error {
	if c.Slug == "" {
		return errors.New("config: printer slug is required (set slug in config.toml)")
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
