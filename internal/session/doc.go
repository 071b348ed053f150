// Package session coordinates one attached view with the remote browser
// session.
//
// A Manager hands out at most one live Session. The session owns a run loop
// on which every transport handler, timer and navigation evaluation runs, a
// transport connection whose handlers are bound through a single scope, the
// mutation mirror, and the input capture bound to the current surface
// document.
//
// Navigation follows a small state machine:
//
//	Idle -> Requesting -> InFlight -> Finished | Failed | TimedOut -> Idle
//
// Evaluations are triggered by url, baseurl and connection changes and
// coalesced to one per loop tick. Failures are recorded in the failure
// tracker; repeatedly failing URLs are refused and surfaced through the
// reconnect indicator rather than returned to callers.
package session
