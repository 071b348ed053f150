package session

import (
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/browser"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/protocol"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/runloop"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/surface"
)

var (
	forwardedEvents = []string{"keyup", "keydown", "keypress", "input", "mousedown", "mouseup"}
	capturedEvents  = []string{"focus", "blur", "change"}
)

// ClickHandler receives clicks made outside navigation mode.
type ClickHandler func(ev *surface.Event)

// capture binds input listeners to the surface document and forwards
// interactions to the remote session. Listeners run on the dispatching
// goroutine; sends are posted onto the loop to keep their order.
type capture struct {
	loop  *runloop.Loop
	state *browser.State
	send  func(in *protocol.Interaction)
	click ClickHandler

	scroll *rate.Sometimes

	doc       surface.Document
	listeners []surface.ListenerID
}

func newCapture(loop *runloop.Loop, state *browser.State, send func(*protocol.Interaction), click ClickHandler, throttle time.Duration) *capture {
	if throttle <= 0 {
		throttle = 200 * time.Millisecond
	}
	return &capture{
		loop:   loop,
		state:  state,
		send:   send,
		click:  click,
		scroll: &rate.Sometimes{Interval: throttle},
	}
}

// bind replaces every listener with a fresh set on doc.
func (c *capture) bind(doc surface.Document) {
	c.unbind()
	if doc == nil {
		return
	}
	c.doc = doc

	for _, typ := range forwardedEvents {
		c.add(typ, false, c.forward)
	}
	c.add("click", false, c.onClick)
	for _, typ := range capturedEvents {
		c.add(typ, true, c.forward)
	}
	c.add("scroll", true, c.onScroll)
}

func (c *capture) add(typ string, capture bool, fn surface.Listener) {
	c.listeners = append(c.listeners, c.doc.AddEventListener(typ, capture, fn))
}

// unbind removes every listener bound by the last bind.
func (c *capture) unbind() {
	if c.doc != nil {
		for _, id := range c.listeners {
			c.doc.RemoveEventListener(id)
		}
	}
	c.doc = nil
	c.listeners = nil
}

func (c *capture) bound() int {
	return len(c.listeners)
}

func (c *capture) navigating() bool {
	return c.state.Mode() == browser.ModeNavigation
}

func (c *capture) post(ev *surface.Event) {
	in := ev.Interaction()
	c.loop.Post(func() { c.send(in) })
}

func (c *capture) forward(ev *surface.Event) {
	if c.navigating() {
		c.post(ev)
	}
}

func (c *capture) onClick(ev *surface.Event) {
	if c.navigating() {
		// right, middle and ctrl clicks stay local
		if ev.Which <= 1 && !ev.CtrlKey {
			if !strings.EqualFold(ev.TargetTag, "INPUT") {
				ev.PreventDefault()
			}
			c.post(ev)
		}
		return
	}

	if c.click != nil {
		clicked := *ev
		c.loop.Post(func() { c.click(&clicked) })
	}
	ev.PreventDefault()
	ev.StopPropagation()
}

func (c *capture) onScroll(ev *surface.Event) {
	if !c.navigating() {
		return
	}
	c.scroll.Do(func() { c.post(ev) })
}
