// Package main is the entry point for the BrowserSync backend.
//
// The server keeps a local mirror of a remote browser session in sync: it
// connects to the remote session over WebSocket, replays DOM mutations into
// a headless document, forwards input events and throttles URLs that keep
// failing to load.
//
// Configuration:
//   - Environment variables (12-factor)
//   - A YAML or TOML file given with -config (environment still wins)
//   - CLI flags (override both)
//
// Usage:
//
//	./server -config browsersync.yaml -port 8000
//	./server -remote ws://localhost:9001/ws -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
