// Package surface describes the rendering surface the mirror writes into and
// the session captures input from, and ships a headless implementation.
package surface

import (
	"strconv"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/protocol"
)

// Size is the visible size of a surface in CSS pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Surface is an embeddable browsing context.
type Surface interface {
	// ProvisionEmpty replaces the current document with a fresh empty one
	// and calls ready with token once it can be written to. ready may be
	// called from any goroutine.
	ProvisionEmpty(token string, ready func(token string))
	// Document returns the current document, or nil before the first
	// provisioning.
	Document() Document
	Size() Size
}

// ListenerID identifies a bound listener for removal.
type ListenerID uint64

// Listener receives events dispatched on a document.
type Listener func(ev *Event)

// Document is the event target of one provisioned document.
type Document interface {
	AddEventListener(eventType string, capture bool, fn Listener) ListenerID
	RemoveEventListener(id ListenerID)
}

// Event is a local input event.
type Event struct {
	Type      string  `json:"type"`
	Which     int     `json:"which,omitempty"`
	CtrlKey   bool    `json:"ctrlKey,omitempty"`
	ShiftKey  bool    `json:"shiftKey,omitempty"`
	AltKey    bool    `json:"altKey,omitempty"`
	MetaKey   bool    `json:"metaKey,omitempty"`
	TargetID  int     `json:"targetId,omitempty"`
	TargetTag string  `json:"targetTag,omitempty"`
	Key       string  `json:"key,omitempty"`
	KeyCode   int     `json:"keyCode,omitempty"`
	Value     string  `json:"value,omitempty"`
	ClientX   float64 `json:"clientX,omitempty"`
	ClientY   float64 `json:"clientY,omitempty"`
	ScrollX   float64 `json:"scrollX,omitempty"`
	ScrollY   float64 `json:"scrollY,omitempty"`

	defaultPrevented   bool
	propagationStopped bool
}

// PreventDefault suppresses the native action.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// StopPropagation stops delivery to later listeners.
func (e *Event) StopPropagation() { e.propagationStopped = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// PropagationStopped reports whether StopPropagation was called.
func (e *Event) PropagationStopped() bool { return e.propagationStopped }

// Interaction serializes the event for the remote session.
func (e *Event) Interaction() *protocol.Interaction {
	in := &protocol.Interaction{
		Type:     e.Type,
		Key:      e.Key,
		KeyCode:  e.KeyCode,
		Which:    e.Which,
		Value:    e.Value,
		ClientX:  e.ClientX,
		ClientY:  e.ClientY,
		ScrollX:  e.ScrollX,
		ScrollY:  e.ScrollY,
		CtrlKey:  e.CtrlKey,
		ShiftKey: e.ShiftKey,
		AltKey:   e.AltKey,
		MetaKey:  e.MetaKey,
	}
	if e.TargetID != 0 {
		in.Target = strconv.Itoa(e.TargetID)
	}
	return in
}
