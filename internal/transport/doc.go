// Package transport connects to the remote browser session over a
// WebSocket and routes inbound frames to registered command handlers.
//
// Handlers are bound through a Registry. A Scope groups bindings so that
// everything registered on attach is released together on detach:
//
//	scope := client.Registry().Scope()
//	scope.Register(protocol.CommandLoadStarted, onLoadStarted)
//	defer scope.Release()
//
// Inbound frames and connection state changes are delivered through the
// Executor given in Options, typically a run loop's Post, so handlers never
// run on the reader goroutine.
package transport
