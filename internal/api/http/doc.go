// Package http exposes the live session over a small JSON API: status,
// navigation controls, the mirrored document and synthetic input events.
package http
