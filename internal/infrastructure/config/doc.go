// Package config loads service configuration.
//
// Values come from environment variables (kelseyhightower/envconfig tags
// with defaults). LoadFile additionally reads a YAML or TOML file first and
// lets explicitly set environment variables override it.
//
// Environment Variables:
//   - PORT, HOST: HTTP API bind address
//   - REMOTE_WS_URL: WebSocket endpoint of the remote browser session
//   - PROJECT, SPIDER: identity scoping cookies and interactions
//   - LOAD_WATCHDOG_TIMEOUT: stall timeout for an in-flight load (60s)
//   - LOAD_FAILURE_WINDOW: rolling window for failure counting (1h)
//   - STORAGE_DRIVER, STORAGE_PATH: sqlite or memory key-value store
//   - LOG_LEVEL, LOG_DEV: logging
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
