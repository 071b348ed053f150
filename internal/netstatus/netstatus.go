// Package netstatus answers "is this client online?", which decides how a
// dropped connection is attributed and whether a hard block applies.
package netstatus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/logging"
)

// Checker reports connectivity.
type Checker interface {
	Online() bool
}

// Static is a fixed answer, used when probing is disabled.
type Static bool

// Online implements Checker.
func (s Static) Online() bool { return bool(s) }

// Prober periodically requests a probe URL and caches the outcome. It
// reports online until the first probe says otherwise.
type Prober struct {
	client   *resty.Client
	url      string
	interval time.Duration
	logger   *logging.Logger

	online atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewProber creates a prober from cfg.
func NewProber(cfg config.ConnectivityConfig, logger *logging.Logger) *Prober {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 1
	retryClient.RetryWaitMin = 50 * time.Millisecond
	retryClient.RetryWaitMax = 250 * time.Millisecond
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = cfg.Timeout

	client := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "BrowserSync-Probe/1.0")

	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}

	p := &Prober{
		client:   client,
		url:      cfg.ProbeURL,
		interval: interval,
		logger:   logging.OrNop(logger).Named("netstatus"),
	}
	p.online.Store(true)
	return p
}

// Online returns the cached result of the latest probe.
func (p *Prober) Online() bool {
	return p.online.Load()
}

// Probe requests the probe URL once and updates the cached result. Any
// HTTP response counts as online.
func (p *Prober) Probe(ctx context.Context) bool {
	_, err := p.client.R().SetContext(ctx).Get(p.url)
	online := err == nil

	if was := p.online.Swap(online); was != online {
		if online {
			p.logger.Info("connectivity restored")
		} else {
			p.logger.Warn("connectivity lost", zap.String("probe_url", p.url), zap.Error(err))
		}
	}
	return online
}

// Start probes immediately and then on every interval until Stop.
func (p *Prober) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

// Stop ends background probing and waits for the prober to exit.
func (p *Prober) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Prober) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Probe(ctx)
		}
	}
}
