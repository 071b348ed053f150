package transport

import (
	"sort"
	"sync"
)

// Handler receives the raw frame of one inbound command.
type Handler func(frame []byte)

// Binding identifies one registered handler.
type Binding struct {
	command string
	id      uint64
}

// Command returns the bound command name.
func (b Binding) Command() string { return b.command }

// Registry maps command names to handlers.
type Registry struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[string]map[uint64]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]map[uint64]Handler)}
}

// Register binds h to command.
func (r *Registry) Register(command string, h Handler) Binding {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	set, ok := r.handlers[command]
	if !ok {
		set = make(map[uint64]Handler)
		r.handlers[command] = set
	}
	set[r.next] = h
	return Binding{command: command, id: r.next}
}

// Unregister removes a binding. Removing twice is a no-op.
func (r *Registry) Unregister(b Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.handlers[b.command]
	delete(set, b.id)
	if len(set) == 0 {
		delete(r.handlers, b.command)
	}
}

// Dispatch calls every handler bound to command in registration order and
// reports how many ran.
func (r *Registry) Dispatch(command string, frame []byte) int {
	r.mu.RLock()
	set := r.handlers[command]
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, set[id])
	}
	r.mu.RUnlock()

	for _, h := range handlers {
		h(frame)
	}
	return len(handlers)
}

// Commands lists the commands with at least one handler.
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for cmd := range r.handlers {
		out = append(out, cmd)
	}
	sort.Strings(out)
	return out
}

// Scope collects bindings for symmetric release.
type Scope struct {
	reg      *Registry
	mu       sync.Mutex
	bindings []Binding
	released bool
}

// Scope starts a new binding scope.
func (r *Registry) Scope() *Scope {
	return &Scope{reg: r}
}

// Register binds h to command within the scope. Registering on a released
// scope does nothing.
func (s *Scope) Register(command string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.bindings = append(s.bindings, s.reg.Register(command, h))
}

// Release unregisters every binding of the scope. It is idempotent.
func (s *Scope) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	for _, b := range s.bindings {
		s.reg.Unregister(b)
	}
	s.bindings = nil
}
