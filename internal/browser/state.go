// Package browser holds the externally observable browsing state: the
// navigation target, interaction mode, loading flag, current mirror
// document and the reconnect indicator.
package browser

import (
	"sort"
	"sync"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/cookies"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/dom"
)

// Mode is the interaction mode of the view.
type Mode string

const (
	// ModeNavigation forwards local input to the remote session.
	ModeNavigation Mode = "navigation"
	// ModeAnnotation consumes local clicks for annotation tooling.
	ModeAnnotation Mode = "annotation"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeNavigation || m == ModeAnnotation
}

// Event names emitted by State.
type Event string

const (
	URLChanged       Event = "url"
	BaseURLChanged   Event = "baseurl"
	ContentChanged   Event = "content"
	URLInvalidated   Event = "url_invalidated"
	IndicatorChanged Event = "indicator"
	ModeChanged      Event = "mode"
	DocumentChanged  Event = "document"
)

// Reconnect indicator values.
const (
	IndicatorBlocked = "browser-url-blocked"
	IndicatorFailing = "browser-url-failing"
)

// Snapshot is a consistent copy of the state.
type Snapshot struct {
	URL        string           `json:"url"`
	BaseURL    string           `json:"baseurl"`
	Mode       Mode             `json:"mode"`
	Loading    bool             `json:"loading"`
	Disabled   bool             `json:"disabled"`
	CSSEnabled bool             `json:"css_enabled"`
	Indicator  string           `json:"indicator,omitempty"`
	Identity   cookies.Identity `json:"identity"`
}

// State is safe for concurrent use. Observers run synchronously on the
// goroutine that made the change, after the lock is released.
type State struct {
	mu        sync.RWMutex
	url       string
	baseURL   string
	mode      Mode
	loading   bool
	disabled  bool
	css       bool
	indicator string
	identity  cookies.Identity
	document  *dom.Document

	obsMu     sync.Mutex
	obsSeq    uint64
	observers map[Event]map[uint64]func()
}

// NewState creates a state in navigation mode with styles enabled.
func NewState(identity cookies.Identity) *State {
	return &State{
		mode:      ModeNavigation,
		css:       true,
		disabled:  true,
		identity:  identity,
		observers: make(map[Event]map[uint64]func()),
	}
}

// On subscribes fn to ev and returns the unsubscribe function.
func (s *State) On(ev Event, fn func()) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.obsSeq++
	key := s.obsSeq
	set, ok := s.observers[ev]
	if !ok {
		set = make(map[uint64]func())
		s.observers[ev] = set
	}
	set[key] = fn
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers[ev], key)
	}
}

func (s *State) emit(ev Event) {
	s.obsMu.Lock()
	set := s.observers[ev]
	keys := make([]uint64, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	fns := make([]func(), 0, len(keys))
	for _, k := range keys {
		fns = append(fns, set[k])
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Snapshot returns a copy of the state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		URL:        s.url,
		BaseURL:    s.baseURL,
		Mode:       s.mode,
		Loading:    s.loading,
		Disabled:   s.disabled,
		CSSEnabled: s.css,
		Indicator:  s.indicator,
		Identity:   s.identity,
	}
}

// URL returns the navigation target.
func (s *State) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url
}

// BaseURL returns the base url of the navigation target.
func (s *State) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL
}

// SetURL updates the navigation target and notifies on change.
func (s *State) SetURL(url string) {
	s.mu.Lock()
	changed := s.url != url
	s.url = url
	s.mu.Unlock()
	if changed {
		s.emit(URLChanged)
	}
}

// SetBaseURL updates the base url and notifies on change.
func (s *State) SetBaseURL(baseURL string) {
	s.mu.Lock()
	changed := s.baseURL != baseURL
	s.baseURL = baseURL
	s.mu.Unlock()
	if changed {
		s.emit(BaseURLChanged)
	}
}

// InvalidateURL tells observers the current url did not load.
func (s *State) InvalidateURL() {
	s.emit(URLInvalidated)
}

// Mode returns the interaction mode.
func (s *State) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode switches the interaction mode.
func (s *State) SetMode(mode Mode) {
	s.mu.Lock()
	changed := s.mode != mode
	s.mode = mode
	s.mu.Unlock()
	if changed {
		s.emit(ModeChanged)
	}
}

// Loading reports whether a load is in progress.
func (s *State) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SetLoading sets the loading flag.
func (s *State) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

// Disabled reports whether the view is detached.
func (s *State) Disabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disabled
}

// SetDisabled sets the disabled flag.
func (s *State) SetDisabled(disabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = disabled
}

// CSSEnabled reports whether page styles are mirrored.
func (s *State) CSSEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.css
}

// SetCSSEnabled toggles mirrored page styles.
func (s *State) SetCSSEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.css = enabled
}

// Indicator returns the reconnect indicator, "" when none is shown.
func (s *State) Indicator() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indicator
}

// SetIndicator shows an indicator; "" clears it.
func (s *State) SetIndicator(indicator string) {
	s.mu.Lock()
	changed := s.indicator != indicator
	s.indicator = indicator
	s.mu.Unlock()
	if changed {
		s.emit(IndicatorChanged)
	}
}

// Identity returns the project/spider identity.
func (s *State) Identity() cookies.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// SetIdentity replaces the project/spider identity.
func (s *State) SetIdentity(identity cookies.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = identity
}

// Document returns the current mirror document, or nil.
func (s *State) Document() *dom.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.document
}

// SetDocument publishes the current mirror document.
func (s *State) SetDocument(doc *dom.Document) {
	s.mu.Lock()
	changed := s.document != doc
	s.document = doc
	s.mu.Unlock()
	if changed {
		s.emit(DocumentChanged)
	}
}

// NotifyContentChanged tells observers the mirror tree changed.
func (s *State) NotifyContentChanged() {
	s.emit(ContentChanged)
}
