package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/browser"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/cookies"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/extraction"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/failures"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/netstatus"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/surface"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/transport"
)

// TransportFactory builds the transport of a new session. exec runs work
// on the session loop and should be used as the transport executor.
type TransportFactory func(exec func(fn func())) transport.Transport

// Deps are the collaborators shared by every session.
type Deps struct {
	Transport  TransportFactory
	Tracker    *failures.Tracker
	Cookies    *cookies.Sync
	State      *browser.State
	Extraction *extraction.Service
	Network    netstatus.Checker
	Metrics    *monitoring.Metrics
	// ClickHandler receives clicks made outside navigation mode.
	ClickHandler ClickHandler
}

// Options tunes sessions.
type Options struct {
	UserAgent       string
	WatchdogTimeout time.Duration
	ReadyTimeout    time.Duration
	ScrollThrottle  time.Duration
	// RedialMin and RedialMax bound the delay between reconnect attempts.
	RedialMin time.Duration
	RedialMax time.Duration
}

// DefaultOptions returns the production timings.
func DefaultOptions() Options {
	return Options{
		UserAgent:       "Mozilla/5.0 (BrowserSync)",
		WatchdogTimeout: 60 * time.Second,
		ReadyTimeout:    30 * time.Second,
		ScrollThrottle:  200 * time.Millisecond,
		RedialMin:       time.Second,
		RedialMax:       30 * time.Second,
	}
}

// Manager creates sessions and guarantees at most one is live.
type Manager struct {
	deps   Deps
	opts   Options
	logger *logging.Logger

	mu   sync.Mutex
	live *Session
}

// NewManager creates a manager.
func NewManager(deps Deps, opts Options, logger *logging.Logger) *Manager {
	def := DefaultOptions()
	if opts.WatchdogTimeout <= 0 {
		opts.WatchdogTimeout = def.WatchdogTimeout
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = def.ReadyTimeout
	}
	if opts.ScrollThrottle <= 0 {
		opts.ScrollThrottle = def.ScrollThrottle
	}
	if opts.RedialMin <= 0 {
		opts.RedialMin = def.RedialMin
	}
	if opts.RedialMax < opts.RedialMin {
		opts.RedialMax = max(def.RedialMax, opts.RedialMin)
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if deps.Network == nil {
		deps.Network = netstatus.Static(true)
	}
	if deps.Extraction == nil {
		deps.Extraction = extraction.NewService(logger)
	}
	return &Manager{deps: deps, opts: opts, logger: logging.OrNop(logger).Named("session")}
}

// Attach starts a session rendering into s. It fails with
// ErrDuplicateSession while another session is live. A failed connection
// is retried in the background; the session stays attached and loads once
// the transport reports connected.
func (m *Manager) Attach(ctx context.Context, s surface.Surface) (*Session, error) {
	m.mu.Lock()
	if m.live != nil {
		m.mu.Unlock()
		return nil, ErrDuplicateSession
	}
	sess := newSession(m, s)
	m.live = sess
	m.mu.Unlock()

	sess.start(ctx)
	m.deps.Metrics.IncSessions()
	m.logger.Info("session attached", zap.String("session_id", sess.ID().String()))
	return sess, nil
}

// Current returns the live session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live
}

func (m *Manager) release(s *Session) {
	m.mu.Lock()
	if m.live == s {
		m.live = nil
	}
	m.mu.Unlock()
	m.deps.Metrics.DecSessions()
}
