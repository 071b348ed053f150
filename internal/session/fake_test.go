package session

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/protocol"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/transport"
)

// fakeTransport records sent frames and lets tests deliver inbound ones.
type fakeTransport struct {
	mu         sync.Mutex
	registry   *transport.Registry
	exec       func(fn func())
	connected  bool
	closed     bool
	connectErr error
	dials      int
	sent       [][]byte
	subSeq     int
	subs       map[int]func(bool)
}

var _ transport.Transport = (*fakeTransport)(nil)

func newFakeTransport() *fakeTransport {
	return &fakeTransport{registry: transport.NewRegistry(), subs: make(map[int]func(bool))}
}

func (f *fakeTransport) Connect(context.Context) error {
	f.mu.Lock()
	f.dials++
	if f.closed {
		f.mu.Unlock()
		return transport.ErrClosed
	}
	if f.connectErr != nil {
		err := f.connectErr
		f.mu.Unlock()
		return err
	}
	if f.connected {
		f.mu.Unlock()
		return nil
	}
	f.connected = true
	f.mu.Unlock()
	f.notify(true)
	return nil
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Send(command string, payload any) error {
	frame, err := protocol.Encode(command, payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return transport.ErrClosed
	}
	f.sent = append(f.sent, frame)
	return nil
}

func (f *fakeTransport) Registry() *transport.Registry {
	return f.registry
}

func (f *fakeTransport) OnStateChange(fn func(bool)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subSeq++
	key := f.subSeq
	f.subs[key] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, key)
	}
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	was := f.connected
	f.connected = false
	f.closed = true
	f.mu.Unlock()
	if was {
		f.notify(false)
	}
	return nil
}

func (f *fakeTransport) setConnectErr(err error) {
	f.mu.Lock()
	f.connectErr = err
	f.mu.Unlock()
}

func (f *fakeTransport) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

// drop simulates the remote side going away.
func (f *fakeTransport) drop() {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	f.notify(false)
}

func (f *fakeTransport) notify(connected bool) {
	f.exec(func() {
		f.mu.Lock()
		keys := make([]int, 0, len(f.subs))
		for k := range f.subs {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		fns := make([]func(bool), 0, len(keys))
		for _, k := range keys {
			fns = append(fns, f.subs[k])
		}
		f.mu.Unlock()
		for _, fn := range fns {
			fn(connected)
		}
	})
}

// deliver hands an inbound frame to the registered handlers on the loop.
func (f *fakeTransport) deliver(t *testing.T, frame string) {
	t.Helper()
	command, err := protocol.Command([]byte(frame))
	require.NoError(t, err)
	f.exec(func() { f.registry.Dispatch(command, []byte(frame)) })
}

// frames returns the decoded frames sent for command.
func (f *fakeTransport) frames(t *testing.T, command string) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []map[string]any
	for _, raw := range f.sent {
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		if m[protocol.CommandField] == command {
			out = append(out, m)
		}
	}
	return out
}
