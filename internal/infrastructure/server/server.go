// Package server assembles the synchronizer: storage, failure tracking,
// cookie sync, the connectivity probe, the session manager and the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/BrowserSync/backend/internal/api/http"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/api/middleware"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/browser"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/cookies"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/extraction"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/failures"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/netstatus"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/session"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/store"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/surface"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/transport"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	httpSrv *http.Server
	config  *config.Config
	logger  *logging.Logger
	metrics *monitoring.Metrics

	buckets store.Buckets
	prober  *netstatus.Prober
	state   *browser.State
	surface *surface.Headless
	manager *session.Manager
	session *session.Session
}

// New creates a server from cfg. The session is attached by Start.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	logger = logging.OrNop(logger)
	logger.Info("Initializing BrowserSync server",
		zap.String("port", cfg.Server.Port),
		zap.String("remote", cfg.Remote.URL),
		zap.String("storage", cfg.Storage.Driver),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(reg)

	buckets, err := store.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	tracker := failures.NewTracker(buckets.Bucket(store.BucketFailures), failures.Options{
		Window:    cfg.Load.FailureWindow,
		SoftAfter: cfg.Load.SoftBlockAfter,
		HardAfter: cfg.Load.HardBlockAfter,
	}, logger)
	cookieSync := cookies.NewSync(buckets.Bucket(store.BucketCookies), logger)
	state := browser.NewState(cookies.Identity{Project: cfg.Identity.Project, Spider: cfg.Identity.Spider})
	headless := surface.NewHeadless(surface.Size{Width: cfg.Viewport.Width, Height: cfg.Viewport.Height}, logger)

	var (
		network netstatus.Checker = netstatus.Static(true)
		prober  *netstatus.Prober
	)
	if cfg.Connectivity.Enabled {
		prober = netstatus.NewProber(cfg.Connectivity, logger)
		network = prober
	}

	clickLog := logger.Named("annotation")
	manager := session.NewManager(session.Deps{
		Transport: func(exec func(fn func())) transport.Transport {
			return transport.NewClient(transport.Options{
				URL:              cfg.Remote.URL,
				HandshakeTimeout: cfg.Remote.HandshakeTimeout,
				Metrics:          metrics,
				Executor:         exec,
			}, logger)
		},
		Tracker:    tracker,
		Cookies:    cookieSync,
		State:      state,
		Extraction: extraction.NewService(logger),
		Network:    network,
		Metrics:    metrics,
		ClickHandler: func(ev *surface.Event) {
			clickLog.Info("annotation click", zap.Int("target", ev.TargetID), zap.String("tag", ev.TargetTag))
		},
	}, session.Options{
		UserAgent:       cfg.Remote.UserAgent,
		WatchdogTimeout: cfg.Load.WatchdogTimeout,
		ReadyTimeout:    cfg.Load.ReadyTimeout,
		ScrollThrottle:  cfg.Load.ScrollThrottle,
		RedialMin:       cfg.Remote.RedialMin,
		RedialMax:       cfg.Remote.RedialMax,
	}, logger)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(logger))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(manager, state, headless, logger)
	handlers.Register(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		httpSrv: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		buckets: buckets,
		prober:  prober,
		state:   state,
		surface: headless,
		manager: manager,
	}, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins probing connectivity and attaches the session. A remote
// that is not reachable yet is not an error.
func (s *Server) Start(ctx context.Context) error {
	if s.prober != nil {
		s.prober.Start()
	}
	sess, err := s.manager.Attach(ctx, s.surface)
	if err != nil {
		return fmt.Errorf("failed to attach session: %w", err)
	}
	s.session = sess
	return nil
}

// Run serves HTTP on the configured address until Shutdown.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server, detaches the session and closes storage.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if s.session != nil {
		s.session.Detach()
	}
	if s.prober != nil {
		s.prober.Stop()
	}
	if err := s.buckets.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}

	_ = s.logger.Sync()
	return errors.Join(errs...)
}
