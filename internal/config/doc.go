// Package config handles loading and parsing Gantry configuration files.
//
// # Overview
//
// This package reads Gantry's TOML configuration to discover the
// Repetier-Server endpoint, the printer to monitor, and the tuning knobs for
// polling and timeouts.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/gantry/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Config file: ~/.config/gantry/config.toml
//   - Server: localhost:3344 at path /
//   - Poll interval: 2000ms, camera interval: 500ms
//   - Timeout window: 5s
//   - auto_print: true, camera_enabled: false
//
// The printer slug has no default; Validate rejects a config without one.
//
// # TOML Format
//
// Example config.toml:
//
//	host = "printer.local"
//	port = 3344
//	slug = "fanera1"
//	api_key = "0123abcd"
//	camera_port = 8080
//	poll_interval_ms = 2000
//	camera_interval_ms = 500
//	timeout_window_s = 5
//	auto_print = true
//	camera_enabled = false
//
// All fields except slug are optional. Tilde expansion is performed on the
// config path automatically.
//
// # Error Handling
//
// Load returns errors for path expansion failures, file read errors (except
// os.ErrNotExist, which triggers defaults), and TOML parsing errors. Missing
// config files are NOT an error, so Gantry pointed at a local server works
// with nothing but a slug on the command line.
package config
