package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/transport"
)

// redialer brings the transport back after a failed dial or a lost
// connection. At most one dial loop runs at a time and the delay between
// attempts grows exponentially from min to max.
type redialer struct {
	transport transport.Transport
	min, max  time.Duration
	logger    *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

func newRedialer(t transport.Transport, min, max time.Duration, logger *logging.Logger) *redialer {
	ctx, cancel := context.WithCancel(context.Background())
	return &redialer{
		transport: t,
		min:       min,
		max:       max,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// kick starts the dial loop unless one is already running.
func (r *redialer) kick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running || r.ctx.Err() != nil {
		return
	}
	r.running = true
	r.wg.Add(1)
	go r.run()
}

func (r *redialer) run() {
	defer r.wg.Done()

	attempt := 0
	for {
		wait := retryablehttp.DefaultBackoff(r.min, r.max, attempt, nil)
		timer := time.NewTimer(wait)
		select {
		case <-r.ctx.Done():
			timer.Stop()
			r.idle()
			return
		case <-timer.C:
		}

		err := r.transport.Connect(r.ctx)
		switch {
		case errors.Is(err, transport.ErrClosed) || r.ctx.Err() != nil:
			r.idle()
			return
		case err != nil:
			attempt++
			r.logger.Debug("redial failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		// a drop between Connect and here was skipped by kick
		r.mu.Lock()
		if r.transport.Connected() {
			r.running = false
			r.mu.Unlock()
			r.logger.Info("reconnected", zap.Int("attempts", attempt+1))
			return
		}
		r.mu.Unlock()
		attempt = 0
	}
}

func (r *redialer) idle() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

// stop cancels the dial loop and waits for it to exit.
func (r *redialer) stop() {
	r.mu.Lock()
	r.cancel()
	r.mu.Unlock()
	r.wg.Wait()
}
