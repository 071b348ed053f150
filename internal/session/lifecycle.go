package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/browser"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/cookies"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/extraction"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/failures"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/netstatus"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/protocol"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/runloop"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/surface"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/transport"
)

// Phase is the position of the load lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseRequesting
	PhaseInFlight
	PhaseFinished
	PhaseFailed
	PhaseTimedOut
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRequesting:
		return "requesting"
	case PhaseInFlight:
		return "in_flight"
	case PhaseFinished:
		return "finished"
	case PhaseFailed:
		return "failed"
	case PhaseTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText renders the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Attempt is the load the remote session reported as started.
type Attempt struct {
	ID      string    `json:"id"`
	URL     string    `json:"url"`
	BaseURL string    `json:"baseurl"`
	Issued  time.Time `json:"issued"`

	watchdog *runloop.Timer
}

const failedLoadingPage = "Failed Loading Page"

// lifecycle drives navigation. Every method runs on the session loop.
type lifecycle struct {
	loop       *runloop.Loop
	transport  transport.Transport
	tracker    *failures.Tracker
	cookies    *cookies.Sync
	state      *browser.State
	extraction *extraction.Service
	network    netstatus.Checker
	surface    surface.Surface
	metrics    *monitoring.Metrics
	logger     *logging.Logger

	userAgent string
	watchdog  time.Duration

	phase     Phase
	splashURL string
	attempt   *Attempt
	issued    time.Time
	lastErr   error
}

// evaluate decides whether the current navigation target should be
// loaded and sends the load command when it should.
func (l *lifecycle) evaluate(ctx context.Context) error {
	url, baseURL := l.state.URL(), l.state.BaseURL()
	if !ValidURL(url) {
		return nil
	}

	if !l.transport.Connected() {
		l.splashURL = ""
		if l.attempt != nil {
			l.dropAttempt()
			reason := failures.ReasonUserDisconnect
			if l.network.Online() {
				reason = failures.ReasonServerDisconnect
			}
			l.fail(ctx, PhaseFailed, reason)
		}
		return nil
	}

	if url == l.splashURL {
		return nil
	}

	project := l.state.Identity().Project
	decision, err := l.tracker.Evaluate(ctx, url, l.network.Online(), l.state.Indicator() != "")
	if err != nil {
		l.logger.Error("failure history unavailable", zap.String("url", url), zap.Error(err))
	}
	switch decision {
	case failures.HardBlock:
		l.state.SetIndicator(browser.IndicatorBlocked)
		l.state.SetLoading(false)
		l.metrics.RecordBlock("hard")
		return l.refuse(&BlockedError{URL: url, Project: project})
	case failures.SoftBlock:
		l.state.SetIndicator(browser.IndicatorFailing)
		l.state.SetLoading(false)
		l.metrics.RecordBlock("soft")
		return l.refuse(&FailingError{URL: url, Project: project})
	}

	l.state.SetIndicator("")
	return l.visit(ctx, url, baseURL)
}

func (l *lifecycle) refuse(err error) error {
	l.lastErr = err
	l.phase = PhaseIdle
	l.logger.Warn("load refused", zap.Error(err))
	return err
}

func (l *lifecycle) visit(ctx context.Context, url, baseURL string) error {
	l.phase = PhaseRequesting
	l.state.SetLoading(true)

	jar, err := l.cookies.Load(ctx, l.state.Identity())
	if err != nil {
		l.logger.Warn("cookies unavailable", zap.Error(err))
	}
	identity := l.state.Identity()
	cmd := protocol.LoadCommand{
		Meta: protocol.LoadMeta{
			Viewport:  viewport(l.surface.Size()),
			UserAgent: l.userAgent,
			Cookies:   jar,
			Project:   identity.Project,
			Spider:    identity.Spider,
		},
		URL:     url,
		BaseURL: baseURL,
	}
	if err := l.transport.Send(protocol.CommandLoad, cmd); err != nil {
		l.phase = PhaseIdle
		l.logger.Warn("load not sent", zap.String("url", url), zap.Error(err))
		return nil
	}

	l.lastErr = nil
	l.issued = time.Now()
	l.metrics.RecordLoad("requested")
	l.logger.Info("load requested", zap.String("url", url), zap.String("baseurl", baseURL))
	return nil
}

func viewport(size surface.Size) string {
	height := size.Height
	if height < 10 {
		height = 10
	}
	return fmt.Sprintf("%dx%d", size.Width, height)
}

func (l *lifecycle) loadStarted(msg protocol.LoadStarted) {
	l.state.SetLoading(true)
	l.phase = PhaseInFlight

	id := msg.AttemptID()
	if id == "" {
		return
	}
	l.dropAttempt()

	attempt := &Attempt{ID: id, URL: msg.URL, BaseURL: l.state.BaseURL(), Issued: l.issued}
	if attempt.Issued.IsZero() {
		attempt.Issued = time.Now()
	}
	attempt.watchdog = l.loop.AfterFunc(l.watchdog, func() { l.watchdogExpired(attempt) })
	l.attempt = attempt
}

func (l *lifecycle) watchdogExpired(attempt *Attempt) {
	if l.attempt != attempt {
		return
	}
	l.attempt = nil
	l.metrics.IncWatchdogExpired()
	l.logger.Warn("load stalled", zap.String("id", attempt.ID), zap.String("url", attempt.URL))
	l.fail(context.Background(), PhaseTimedOut, failures.ReasonSlow)
}

func (l *lifecycle) loadFinished(ctx context.Context, msg protocol.Metadata) {
	l.dropAttempt()
	if url := l.state.URL(); url != "" {
		if err := l.tracker.Clear(ctx, url); err != nil {
			l.logger.Warn("failure history not cleared", zap.String("url", url), zap.Error(err))
		}
	}
	l.phase = PhaseFinished
	l.extraction.Reset()
	l.metrics.RecordLoad("finished")
	l.metadata(ctx, msg)
}

func (l *lifecycle) metadata(ctx context.Context, msg protocol.Metadata) {
	if msg.Loaded {
		l.state.SetLoading(false)
	}
	if msg.URL != "" {
		l.splashURL = msg.URL
		l.state.SetURL(msg.URL)
	}
	if msg.HasError() {
		l.loadError(ctx, msg.ErrorText())
	}
}

func (l *lifecycle) loadError(ctx context.Context, detail string) {
	l.state.SetLoading(false)
	l.splashURL = ""
	l.extraction.Fail(failedLoadingPage)
	l.state.InvalidateURL()

	identity := l.state.Identity()
	ping := protocol.InteractCommand{Meta: protocol.InteractMeta{Spider: identity.Spider, Project: identity.Project}}
	if err := l.transport.Send(protocol.CommandInteract, ping); err != nil {
		l.logger.Warn("resync ping not sent", zap.Error(err))
	}

	l.logger.Warn("remote load error", zap.String("error", detail))
	l.fail(ctx, PhaseFailed, failures.ReasonLoadError)
}

// fail records a failure for the current navigation target.
func (l *lifecycle) fail(ctx context.Context, phase Phase, reason string) {
	l.phase = phase
	l.metrics.RecordLoad(phase.String())
	l.metrics.RecordFailure(reason)

	url := l.state.URL()
	if url == "" {
		return
	}
	if _, err := l.tracker.RecordFailure(ctx, url, reason); err != nil {
		l.logger.Error("failure not recorded", zap.String("url", url), zap.Error(err))
	}
}

func (l *lifecycle) dropAttempt() {
	if l.attempt == nil {
		return
	}
	l.attempt.watchdog.Stop()
	l.attempt = nil
}

// reload forgets the splash URL so the next evaluation loads again.
func (l *lifecycle) reload(ctx context.Context) error {
	l.splashURL = ""
	return l.evaluate(ctx)
}

func (l *lifecycle) stop() {
	l.dropAttempt()
}

// LoadStatus is a snapshot of the lifecycle.
type LoadStatus struct {
	Phase     Phase    `json:"phase"`
	SplashURL string   `json:"splash_url,omitempty"`
	Attempt   *Attempt `json:"attempt,omitempty"`
	LastError string   `json:"last_error,omitempty"`
}

func (l *lifecycle) status() LoadStatus {
	st := LoadStatus{Phase: l.phase, SplashURL: l.splashURL}
	if l.attempt != nil {
		a := *l.attempt
		a.watchdog = nil
		st.Attempt = &a
	}
	if l.lastErr != nil {
		st.LastError = l.lastErr.Error()
	}
	return st
}
