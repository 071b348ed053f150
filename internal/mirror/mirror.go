package mirror

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/dom"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/shared/id"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/surface"
)

var (
	// ErrSurfaceNotReady is returned when the surface does not signal ready
	// in time after being provisioned.
	ErrSurfaceNotReady = errors.New("surface did not become ready")
	// ErrClosed is returned when the mirror stops while waiting.
	ErrClosed = errors.New("mirror closed")

	errNoDocument = errors.New("no document")
)

// Styles reports whether page styles should be mirrored.
type Styles interface {
	CSSEnabled() bool
}

// Options configures a Mirror.
type Options struct {
	ReadyTimeout time.Duration
	Delegate     Delegate
	Metrics      *monitoring.Metrics
	// OnContentChanged runs on the worker after every applied operation.
	OnContentChanged func()
	// OnDocumentReady runs on the worker after initialize rebuilt the tree.
	OnDocumentReady func(doc *dom.Document, target surface.Document)
}

type task struct {
	op   string
	args []json.RawMessage
}

// Mirror owns the local tree and the apply queue.
type Mirror struct {
	surface  surface.Surface
	styles   Styles
	delegate Delegate
	opts     Options
	logger   *logging.Logger

	mu      sync.Mutex
	queue   []task
	wake    chan struct{}
	closing chan struct{}
	done    chan struct{}
	started bool
	closed  bool

	docMu sync.RWMutex
	doc   *dom.Document
	css   bool
}

// New creates a mirror writing into s. Call Start to begin applying.
func New(s surface.Surface, styles Styles, opts Options, logger *logging.Logger) *Mirror {
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 30 * time.Second
	}
	delegate := opts.Delegate
	if delegate == nil {
		delegate = DefaultDelegate{}
	}
	return &Mirror{
		surface:  s,
		styles:   styles,
		delegate: delegate,
		opts:     opts,
		logger:   logging.OrNop(logger).Named("mirror"),
		wake:     make(chan struct{}, 1),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
		css:      true,
	}
}

// Start launches the worker.
func (m *Mirror) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.closed {
		return
	}
	m.started = true
	go m.run()
}

// Close stops the worker, discarding queued operations, and waits for the
// operation in progress to finish.
func (m *Mirror) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.queue = nil
	started := m.started
	close(m.closing)
	m.mu.Unlock()

	if started {
		<-m.done
	}
}

// Apply queues an operation. It never blocks.
func (m *Mirror) Apply(op string, args []json.RawMessage) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.queue = append(m.queue, task{op: op, args: args})
	depth := len(m.queue)
	m.mu.Unlock()

	m.opts.Metrics.SetQueueDepth(depth)
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued operations.
func (m *Mirror) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Document returns the current mirror tree, or nil before the first
// initialize.
func (m *Mirror) Document() *dom.Document {
	m.docMu.RLock()
	defer m.docMu.RUnlock()
	return m.doc
}

func (m *Mirror) run() {
	defer close(m.done)
	for {
		t, ok := m.next()
		if !ok {
			select {
			case <-m.wake:
				continue
			case <-m.closing:
				return
			}
		}
		m.apply(t)
	}
}

func (m *Mirror) next() (task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || len(m.queue) == 0 {
		return task{}, false
	}
	t := m.queue[0]
	m.queue[0] = task{}
	m.queue = m.queue[1:]
	m.opts.Metrics.SetQueueDepth(len(m.queue))
	return t, true
}

func (m *Mirror) apply(t task) {
	if m.styles != nil {
		m.css = m.styles.CSSEnabled()
	}

	var err error
	switch t.op {
	case OpInitialize:
		err = m.initialize(t.args)
	case OpApplyChanged:
		err = m.applyChanged(t.args)
	default:
		m.logger.Warn("unknown mutation operation", zap.String("op", t.op))
		return
	}
	if errors.Is(err, errNoDocument) {
		m.logger.Warn("mutation before initialize dropped", zap.String("op", t.op))
		return
	}
	if err != nil {
		m.logger.Error("mutation failed", zap.String("op", t.op), zap.Error(err))
		return
	}

	m.opts.Metrics.RecordMutation(t.op)
	if m.opts.OnContentChanged != nil {
		m.opts.OnContentChanged()
	}
}

func (m *Mirror) initialize(args []json.RawMessage) error {
	rootID, children, err := decodeInitialize(args)
	if err != nil {
		return err
	}

	m.setDocument(nil)
	if err := m.provision(); err != nil {
		return err
	}

	doc := dom.NewDocument(rootID)
	if err := doc.Update(func(tree *dom.Tree) error {
		(&builder{m: m, tree: tree, css: m.css}).initialize(children)
		return nil
	}); err != nil {
		return err
	}
	m.setDocument(doc)

	m.logger.Debug("document initialized", zap.Int("root", rootID), zap.Int("nodes", doc.Len()))
	if m.opts.OnDocumentReady != nil {
		m.opts.OnDocumentReady(doc, m.surface.Document())
	}
	return nil
}

// provision asks the surface for an empty document and waits for the
// ready signal carrying the matching token.
func (m *Mirror) provision() error {
	token := id.NewFrameToken().String()
	ready := make(chan struct{})
	var once sync.Once

	m.surface.ProvisionEmpty(token, func(got string) {
		if got != token {
			m.logger.Debug("stale ready signal ignored", zap.String("token", got))
			return
		}
		once.Do(func() { close(ready) })
	})

	timer := time.NewTimer(m.opts.ReadyTimeout)
	defer timer.Stop()

	select {
	case <-ready:
		return nil
	case <-timer.C:
		return ErrSurfaceNotReady
	case <-m.closing:
		return ErrClosed
	}
}

func (m *Mirror) applyChanged(args []json.RawMessage) error {
	doc := m.Document()
	if doc == nil {
		return errNoDocument
	}
	cs, err := decodeChangeSet(args)
	if err != nil {
		return err
	}
	return doc.Update(func(tree *dom.Tree) error {
		(&builder{m: m, tree: tree, css: m.css}).applyChanged(cs)
		return nil
	})
}

func (m *Mirror) setDocument(doc *dom.Document) {
	m.docMu.Lock()
	defer m.docMu.Unlock()
	m.doc = doc
}
