package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/browser"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/dom"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/failures"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/mirror"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/protocol"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/runloop"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/shared/id"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/surface"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/transport"
)

const evaluateKey = "session.evaluate"

// Session is one attached view synchronized with the remote browser.
type Session struct {
	id      id.SessionID
	manager *Manager
	deps    Deps
	surface surface.Surface
	logger  *logging.Logger

	loop      *runloop.Loop
	transport transport.Transport
	mirror    *mirror.Mirror
	scope     *transport.Scope
	lifecycle *lifecycle
	capture   *capture
	redialer  *redialer
	unsubs    []func()

	detachOnce sync.Once
	detached   chan struct{}
}

func newSession(m *Manager, s surface.Surface) *Session {
	sid := id.NewSessionID()
	logger := m.logger.With(zap.String("session_id", sid.String()))
	loop := runloop.New(logger)

	sess := &Session{
		id:       sid,
		manager:  m,
		deps:     m.deps,
		surface:  s,
		logger:   logger,
		loop:     loop,
		detached: make(chan struct{}),
	}
	sess.transport = m.deps.Transport(func(fn func()) { loop.Post(fn) })
	sess.redialer = newRedialer(sess.transport, m.opts.RedialMin, m.opts.RedialMax, logger.Named("redial"))
	sess.mirror = mirror.New(s, m.deps.State, mirror.Options{
		ReadyTimeout:     m.opts.ReadyTimeout,
		Metrics:          m.deps.Metrics,
		OnContentChanged: func() { loop.Post(m.deps.State.NotifyContentChanged) },
		OnDocumentReady: func(doc *dom.Document, target surface.Document) {
			loop.Post(func() { sess.documentReady(doc, target) })
		},
	}, logger)
	sess.lifecycle = &lifecycle{
		loop:       loop,
		transport:  sess.transport,
		tracker:    m.deps.Tracker,
		cookies:    m.deps.Cookies,
		state:      m.deps.State,
		extraction: m.deps.Extraction,
		network:    m.deps.Network,
		surface:    s,
		metrics:    m.deps.Metrics,
		logger:     logger.Named("lifecycle"),
		userAgent:  m.opts.UserAgent,
		watchdog:   m.opts.WatchdogTimeout,
	}
	sess.capture = newCapture(loop, m.deps.State, sess.sendInteraction, m.deps.ClickHandler, m.opts.ScrollThrottle)
	return sess
}

func (s *Session) start(ctx context.Context) {
	s.loop.Start()
	s.mirror.Start()

	s.scope = s.transport.Registry().Scope()
	s.scope.Register(protocol.CommandLoadStarted, s.onLoadStarted)
	s.scope.Register(protocol.CommandLoadFinished, s.onLoadFinished)
	s.scope.Register(protocol.CommandMetadata, s.onMetadata)
	s.scope.Register(protocol.CommandLoad, s.onMetadata)
	s.scope.Register(protocol.CommandCookies, s.onCookies)
	s.scope.Register(protocol.CommandMutation, s.onMutation)
	s.scope.Register(protocol.CommandSaveHTML, func([]byte) {})

	state := s.deps.State
	s.unsubs = append(s.unsubs,
		s.transport.OnStateChange(func(connected bool) {
			if !connected {
				s.redialer.kick()
			}
			s.scheduleEvaluate()
		}),
		state.On(browser.URLChanged, s.scheduleEvaluate),
		state.On(browser.BaseURLChanged, s.scheduleEvaluate),
	)

	state.SetDisabled(false)
	state.SetDocument(nil)

	if err := s.transport.Connect(ctx); err != nil {
		s.logger.Warn("transport not connected", zap.Error(err))
		s.redialer.kick()
	}
	s.scheduleEvaluate()
}

// ID returns the session id.
func (s *Session) ID() id.SessionID {
	return s.id
}

// Detach tears the session down. It is safe to call more than once and
// must not be called from a loop task.
func (s *Session) Detach() {
	s.detachOnce.Do(func() {
		s.scope.Release()
		for _, unsub := range s.unsubs {
			unsub()
		}

		s.redialer.stop()
		if err := s.transport.Close(); err != nil {
			s.logger.Debug("transport close", zap.Error(err))
		}
		s.mirror.Close()

		_ = s.loop.Call(context.Background(), func() {
			s.lifecycle.stop()
			s.capture.unbind()
		})
		s.loop.Stop()

		state := s.deps.State
		state.SetDisabled(true)
		state.SetDocument(nil)

		close(s.detached)
		s.manager.release(s)
		s.logger.Info("session detached")
	})
}

// Detached is closed once the session has been torn down.
func (s *Session) Detached() <-chan struct{} {
	return s.detached
}

func (s *Session) scheduleEvaluate() {
	s.loop.ScheduleOnce(evaluateKey, func() {
		// refusals are surfaced through the indicator
		_ = s.lifecycle.evaluate(context.Background())
	})
}

// Navigate points the view at url. Invalid URLs are dropped silently.
func (s *Session) Navigate(url, baseURL string) {
	if !ValidURL(url) {
		s.logger.Debug("navigation dropped", zap.String("url", url))
		return
	}
	state := s.deps.State
	state.SetBaseURL(baseURL)
	state.SetURL(url)
}

// Reload loads the current target again even if it is already displayed.
func (s *Session) Reload(ctx context.Context) error {
	var err error
	if callErr := s.loop.Call(ctx, func() { err = s.lifecycle.reload(ctx) }); callErr != nil {
		return loopErr(callErr)
	}
	return err
}

// Reconnect dials the remote session now instead of waiting for the next
// background attempt. It is a no-op while connected.
func (s *Session) Reconnect(ctx context.Context) error {
	select {
	case <-s.detached:
		return ErrDetached
	default:
	}
	err := s.transport.Connect(ctx)
	if errors.Is(err, transport.ErrClosed) {
		return ErrDetached
	}
	return err
}

// Flush waits until all work queued on the session has run.
func (s *Session) Flush(ctx context.Context) error {
	return loopErr(s.loop.Sync(ctx))
}

func loopErr(err error) error {
	if errors.Is(err, runloop.ErrStopped) {
		return ErrDetached
	}
	return err
}

// Document returns the current mirror document, or nil.
func (s *Session) Document() *dom.Document {
	return s.mirror.Document()
}

// Status is a snapshot of the session.
type Status struct {
	SessionID string            `json:"session_id"`
	Connected bool              `json:"connected"`
	Browser   browser.Snapshot  `json:"browser"`
	Load      LoadStatus        `json:"load"`
	Failures  *failures.Record  `json:"failures,omitempty"`
	Listeners int               `json:"listeners"`
	Pending   int               `json:"pending_mutations"`
	Cookies   []protocol.Cookie `json:"cookies"`
}

// Status reports the session state as seen from the loop.
func (s *Session) Status(ctx context.Context) (Status, error) {
	st := Status{SessionID: s.id.String()}
	err := s.loop.Call(ctx, func() {
		st.Connected = s.transport.Connected()
		st.Browser = s.deps.State.Snapshot()
		st.Load = s.lifecycle.status()
		st.Listeners = s.capture.bound()
	})
	if err != nil {
		return Status{}, loopErr(err)
	}
	st.Pending = s.mirror.Pending()

	if url := st.Browser.URL; url != "" {
		rec, found, err := s.deps.Tracker.Get(ctx, url)
		if err != nil {
			return Status{}, err
		}
		if found {
			st.Failures = &rec
		}
	}
	jar, err := s.deps.Cookies.Load(ctx, st.Browser.Identity)
	if err != nil {
		return Status{}, err
	}
	st.Cookies = jar
	return st, nil
}

func (s *Session) documentReady(doc *dom.Document, target surface.Document) {
	s.capture.bind(target)
	s.deps.State.SetDocument(doc)
}

func (s *Session) sendInteraction(in *protocol.Interaction) {
	identity := s.deps.State.Identity()
	cmd := protocol.InteractCommand{
		Meta:        protocol.InteractMeta{Spider: identity.Spider, Project: identity.Project},
		Interaction: in,
	}
	if err := s.transport.Send(protocol.CommandInteract, cmd); err != nil {
		s.logger.Debug("interaction not sent", zap.String("type", in.Type), zap.Error(err))
	}
}

func decode[T any](s *Session, command string, frame []byte) (T, bool) {
	var msg T
	if err := protocol.Unmarshal(frame, &msg); err != nil {
		s.logger.Warn("malformed frame", zap.String("command", command), zap.Error(err))
		return msg, false
	}
	return msg, true
}

func (s *Session) onLoadStarted(frame []byte) {
	if msg, ok := decode[protocol.LoadStarted](s, protocol.CommandLoadStarted, frame); ok {
		s.lifecycle.loadStarted(msg)
	}
}

func (s *Session) onLoadFinished(frame []byte) {
	if msg, ok := decode[protocol.Metadata](s, protocol.CommandLoadFinished, frame); ok {
		s.lifecycle.loadFinished(context.Background(), msg)
	}
}

func (s *Session) onMetadata(frame []byte) {
	if msg, ok := decode[protocol.Metadata](s, protocol.CommandMetadata, frame); ok {
		s.lifecycle.metadata(context.Background(), msg)
	}
}

func (s *Session) onCookies(frame []byte) {
	msg, ok := decode[protocol.CookiesMessage](s, protocol.CommandCookies, frame)
	if !ok {
		return
	}
	if err := s.deps.Cookies.Merge(context.Background(), s.deps.State.Identity(), msg.Cookies); err != nil {
		s.logger.Warn("cookies not stored", zap.Error(err))
	}
}

func (s *Session) onMutation(frame []byte) {
	msg, ok := decode[protocol.Mutation](s, protocol.CommandMutation, frame)
	if !ok {
		return
	}
	op, args, err := msg.Op()
	if err != nil {
		s.logger.Warn("malformed mutation", zap.Error(err))
		return
	}
	s.mirror.Apply(op, args)
}
