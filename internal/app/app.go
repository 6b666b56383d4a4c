package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/kdore/gantry/internal/config"
	"github.com/kdore/gantry/internal/prefs"
	"github.com/kdore/gantry/internal/repetier"
	"github.com/kdore/gantry/internal/state"
	"github.com/kdore/gantry/internal/ui"
)

// Options configure the Gantry application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/gantry/prefs.toml
	SendPath   string // G-code file queued for the Upload key (optional)
	PollEvery  int    // seconds; zero uses the config value
	DebugLog   string // when set, debug logging goes to this file
}

// Run boots the Gantry TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	closeLog, err := setupLogging(opts.DebugLog)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load gantry config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		return fmt.Errorf("load prefs: %w", err)
	}

	store := &state.Store{}
	conn := repetier.NewConnection(repetier.Config{
		Endpoint:       endpointFromConfig(cfg),
		Publisher:      store,
		PollInterval:   cfg.PollInterval,
		CameraInterval: cfg.CameraInterval,
		TimeoutWindow:  cfg.TimeoutWindow,
		CameraEnabled:  cfg.CameraEnabled,
		AutoPrint:      cfg.AutoPrint,
	})

	conn.Connect(ctx)
	defer conn.Disconnect()

	return ui.Run(ui.Options{
		Context:     ctx,
		Conn:        conn,
		Store:       store,
		JobPath:     opts.SendPath,
		RefreshTick: 500 * time.Millisecond,
		ThemeName:   userPrefs.Theme,
		PrefsPath:   opts.PrefsPath,
	})
}

// endpointFromConfig maps the loaded config onto a printer endpoint.
func endpointFromConfig(cfg config.Config) repetier.Endpoint {
	return repetier.NewEndpoint(cfg.Host, cfg.Port, cfg.Path, cfg.Slug, cfg.APIKey, cfg.CameraPort)
}

// setupLogging silences the standard logger unless a debug log file is
// requested. The TUI owns the terminal; stray log lines would corrupt it.
func setupLogging(path string) (func(), error) {
	if path == "" {
		log.SetOutput(io.Discard)
		return func() {}, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}
	log.SetOutput(file)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return func() { _ = file.Close() }, nil
}
