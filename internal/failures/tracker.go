package failures

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/store"
)

// Failure reasons recorded by the load lifecycle.
const (
	ReasonSlow             = "slow"
	ReasonServerDisconnect = "server_disconnect"
	ReasonUserDisconnect   = "user_disconnect"
	ReasonLoadError        = "load_error"
)

// Decision is the outcome of evaluating a URL.
type Decision int

const (
	Allow Decision = iota
	SoftBlock
	HardBlock
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case SoftBlock:
		return "soft_block"
	case HardBlock:
		return "hard_block"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Record is the persisted failure history of one URL. Failed counts the
// failures after the first one in the current window.
type Record struct {
	Failed int       `json:"failed"`
	DT     time.Time `json:"dt"`
	URL    string    `json:"url"`
	Reason []string  `json:"reason"`
}

// Options tunes the tracker. Zero values select the defaults.
type Options struct {
	Window time.Duration
	// SoftAfter and HardAfter are compared against the stored count with
	// a strict greater-than.
	SoftAfter int
	HardAfter int
	Now       func() time.Time
}

// DefaultOptions returns a one-hour window with soft block above 2 and
// hard block above 3.
func DefaultOptions() Options {
	return Options{
		Window:    time.Hour,
		SoftAfter: 2,
		HardAfter: 3,
		Now:       time.Now,
	}
}

// Tracker records and evaluates load failures.
type Tracker struct {
	store  store.Store
	opts   Options
	logger *logging.Logger
}

// NewTracker creates a tracker persisting into s.
func NewTracker(s store.Store, opts Options, logger *logging.Logger) *Tracker {
	def := DefaultOptions()
	if opts.Window <= 0 {
		opts.Window = def.Window
	}
	if opts.SoftAfter <= 0 {
		opts.SoftAfter = def.SoftAfter
	}
	if opts.HardAfter <= 0 {
		opts.HardAfter = def.HardAfter
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	return &Tracker{
		store:  s,
		opts:   opts,
		logger: logging.OrNop(logger).Named("failures"),
	}
}

// Get returns the stored record for url regardless of its age.
func (t *Tracker) Get(ctx context.Context, url string) (Record, bool, error) {
	var rec Record
	found, err := store.GetJSON(ctx, t.store, Hash(url), &rec)
	if err != nil {
		return Record{}, false, err
	}
	return rec, found, nil
}

func (t *Tracker) fresh(rec Record) bool {
	return t.opts.Now().Sub(rec.DT) < t.opts.Window
}

// RecordFailure adds a failure for url. A record outside the window starts
// over at zero.
func (t *Tracker) RecordFailure(ctx context.Context, url, reason string) (Record, error) {
	if reason == "" {
		reason = ReasonSlow
	}

	rec, found, err := t.Get(ctx, url)
	if err != nil {
		return Record{}, err
	}
	if found && t.fresh(rec) {
		rec.Failed++
	} else {
		rec = Record{Failed: 0, Reason: []string{}}
	}
	rec.Reason = append(rec.Reason, reason)
	rec.DT = t.opts.Now().UTC()
	rec.URL = url

	if err := store.SetJSON(ctx, t.store, Hash(url), rec); err != nil {
		return Record{}, err
	}

	t.logger.Info("load failure recorded",
		zap.String("url", url),
		zap.String("reason", reason),
		zap.Int("failed", rec.Failed))
	return rec, nil
}

// Evaluate decides whether url may be loaded automatically. overrideActive
// is true while the user has an outstanding manual override.
func (t *Tracker) Evaluate(ctx context.Context, url string, online, overrideActive bool) (Decision, error) {
	rec, found, err := t.Get(ctx, url)
	if err != nil {
		return Allow, err
	}
	if !found || !t.fresh(rec) {
		return Allow, nil
	}

	switch {
	case rec.Failed > t.opts.HardAfter && online:
		return HardBlock, nil
	case rec.Failed > t.opts.SoftAfter && !overrideActive:
		return SoftBlock, nil
	default:
		return Allow, nil
	}
}

// Clear forgets the history of url after a successful load.
func (t *Tracker) Clear(ctx context.Context, url string) error {
	return t.store.Set(ctx, Hash(url), nil)
}
