// Package failures tracks per-URL load failures in a rolling window and
// decides whether another automatic load attempt may proceed.
package failures
