package runloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/logging"
)

// ErrStopped is returned when work is submitted to a stopped loop.
var ErrStopped = errors.New("run loop is stopped")

type onceTask struct {
	key string
	fn  func()
}

// Loop executes tasks one at a time on a dedicated goroutine.
type Loop struct {
	logger *logging.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	tasks    []func()
	once     []onceTask
	onceKeys map[string]struct{}
	flushing int
	started  bool
	stopped  bool

	done    chan struct{}
	syncSeq atomic.Uint64
}

// New creates a loop. Call Start before posting work that must run.
func New(logger *logging.Logger) *Loop {
	l := &Loop{
		logger:   logging.OrNop(logger).Named("runloop"),
		onceKeys: make(map[string]struct{}),
		done:     make(chan struct{}),
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Start launches the loop goroutine. Calling Start twice is a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started || l.stopped {
		return
	}
	l.started = true
	go l.run()
}

// Stop halts the loop after the task in progress and waits for the
// goroutine to exit. Pending tasks are discarded.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		<-l.doneIfStarted()
		return
	}
	l.stopped = true
	l.tasks = nil
	l.once = nil
	l.cond.Broadcast()
	started := l.started
	l.mu.Unlock()

	if started {
		<-l.done
	}
}

func (l *Loop) doneIfStarted() <-chan struct{} {
	if l.started {
		return l.done
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// Post queues fn. It returns false when the loop is stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return false
	}
	l.tasks = append(l.tasks, fn)
	l.cond.Signal()
	return true
}

// ScheduleOnce queues fn under key unless a task with the same key is
// already waiting. Scheduled tasks run after the current batch of posted
// tasks.
func (l *Loop) ScheduleOnce(key string, fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return false
	}
	if _, pending := l.onceKeys[key]; pending {
		return true
	}
	l.onceKeys[key] = struct{}{}
	l.once = append(l.once, onceTask{key: key, fn: fn})
	l.cond.Signal()
	return true
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Sync waits until every task and scheduled task queued so far, and any
// work they queued in turn, has run.
func (l *Loop) Sync(ctx context.Context) error {
	for {
		idle := make(chan bool, 1)
		key := fmt.Sprintf("runloop.sync.%d", l.syncSeq.Add(1))
		if !l.ScheduleOnce(key, func() { idle <- l.idle() }) {
			return ErrStopped
		}

		select {
		case ok := <-idle:
			if ok {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return ErrStopped
		}
	}
}

func (l *Loop) idle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks) == 0 && len(l.once) == 0 && l.flushing == 0
}

func (l *Loop) run() {
	defer close(l.done)

	for {
		l.mu.Lock()
		for !l.stopped && len(l.tasks) == 0 && len(l.once) == 0 {
			l.cond.Wait()
		}
		if l.stopped {
			l.mu.Unlock()
			return
		}
		batch := l.tasks
		l.tasks = nil
		l.mu.Unlock()

		for _, fn := range batch {
			if l.isStopped() {
				return
			}
			l.exec(fn)
		}
		l.flushOnce()
	}
}

func (l *Loop) flushOnce() {
	l.mu.Lock()
	pending := l.once
	l.once = nil
	for _, task := range pending {
		delete(l.onceKeys, task.key)
	}
	l.flushing = len(pending)
	l.mu.Unlock()

	for _, task := range pending {
		l.mu.Lock()
		stopped := l.stopped
		l.flushing--
		l.mu.Unlock()
		if stopped {
			return
		}
		l.exec(task.fn)
	}
}

func (l *Loop) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("task panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	fn()
}

// Timer is a cancellable deferred callback that runs on its loop.
type Timer struct {
	t     *time.Timer
	mu    sync.Mutex
	state timerState
}

type timerState int

const (
	timerPending timerState = iota
	timerFired
	timerStopped
)

// AfterFunc runs fn on the loop once d has elapsed, unless the timer is
// stopped first. Stop wins even when the clock already expired but the
// callback has not yet been picked up by the loop.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	tm := &Timer{}
	tm.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if tm.fire() {
				fn()
			}
		})
	})
	return tm
}

func (t *Timer) fire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != timerPending {
		return false
	}
	t.state = timerFired
	return true
}

// Stop cancels the timer. It reports whether the callback was prevented;
// false means it already ran or the timer was stopped before.
func (t *Timer) Stop() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != timerPending {
		return false
	}
	t.state = timerStopped
	t.t.Stop()
	return true
}

// Fired reports whether the callback ran.
func (t *Timer) Fired() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == timerFired
}
