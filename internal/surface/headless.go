package surface

import (
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/logging"
)

// ErrNoDocument is returned when dispatching before any document exists.
var ErrNoDocument = errors.New("surface has no document")

// Headless is an in-memory surface. Each provisioning creates a fresh
// EventTarget and signals readiness asynchronously.
type Headless struct {
	mu     sync.RWMutex
	size   Size
	doc    *EventTarget
	logger *logging.Logger
}

// NewHeadless creates a headless surface of the given size.
func NewHeadless(size Size, logger *logging.Logger) *Headless {
	return &Headless{size: size, logger: logging.OrNop(logger).Named("surface")}
}

// ProvisionEmpty installs a new document and reports ready on another
// goroutine.
func (h *Headless) ProvisionEmpty(token string, ready func(token string)) {
	h.mu.Lock()
	h.doc = NewEventTarget()
	h.mu.Unlock()

	h.logger.Debug("document provisioned", zap.String("token", token))
	go ready(token)
}

// Document returns the current document.
func (h *Headless) Document() Document {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.doc == nil {
		return nil
	}
	return h.doc
}

// Size returns the visible size.
func (h *Headless) Size() Size {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Resize changes the visible size.
func (h *Headless) Resize(size Size) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.size = size
}

// Dispatch delivers ev to the current document.
func (h *Headless) Dispatch(ev *Event) error {
	h.mu.RLock()
	doc := h.doc
	h.mu.RUnlock()
	if doc == nil {
		return ErrNoDocument
	}
	doc.Dispatch(ev)
	return nil
}

type binding struct {
	id        ListenerID
	eventType string
	capture   bool
	fn        Listener
}

// EventTarget is a Document that delivers events to its listeners,
// capture listeners first, each group in registration order.
type EventTarget struct {
	mu        sync.Mutex
	next      ListenerID
	listeners map[ListenerID]binding
}

// NewEventTarget creates a target without listeners.
func NewEventTarget() *EventTarget {
	return &EventTarget{listeners: make(map[ListenerID]binding)}
}

// AddEventListener binds fn to eventType.
func (t *EventTarget) AddEventListener(eventType string, capture bool, fn Listener) ListenerID {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.listeners[t.next] = binding{id: t.next, eventType: eventType, capture: capture, fn: fn}
	return t.next
}

// RemoveEventListener unbinds a listener. Unknown ids are ignored.
func (t *EventTarget) RemoveEventListener(id ListenerID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.listeners, id)
}

// Len returns the number of bound listeners.
func (t *EventTarget) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.listeners)
}

// Dispatch delivers ev and reports how many listeners ran.
func (t *EventTarget) Dispatch(ev *Event) int {
	t.mu.Lock()
	var matched []binding
	for _, b := range t.listeners {
		if b.eventType == ev.Type {
			matched = append(matched, b)
		}
	}
	t.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].capture != matched[j].capture {
			return matched[i].capture
		}
		return matched[i].id < matched[j].id
	})

	ran := 0
	for _, b := range matched {
		b.fn(ev)
		ran++
		if ev.PropagationStopped() {
			break
		}
	}
	return ran
}
