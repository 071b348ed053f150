package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/config"
)

const initialize = `{"_command":"mutation","_data":["initialize",1,[
	{"id":2,"nodeType":1,"tagName":"HTML","childNodes":[
		{"id":3,"nodeType":1,"tagName":"BODY","attributes":{"onload":"x()"},"childNodes":[
			{"id":4,"nodeType":1,"tagName":"INPUT","attributes":{"name":"q"}},
			{"id":5,"nodeType":1,"tagName":"SCRIPT","childNodes":[{"id":6,"nodeType":3,"textContent":"evil()"}]}
		]}
	]}
]]}`

// remote accepts one session, sends the initial tree and collects frames.
type remote struct {
	server   *httptest.Server
	received chan map[string]any
	wg       sync.WaitGroup

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newRemote(t *testing.T) *remote {
	t.Helper()
	r := &remote{received: make(chan map[string]any, 64)}
	upgrader := websocket.Upgrader{}
	r.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		r.mu.Lock()
		r.conns = append(r.conns, conn)
		r.mu.Unlock()
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer conn.Close()
			if err := conn.WriteMessage(websocket.TextMessage, []byte(initialize)); err != nil {
				return
			}
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var frame map[string]any
				if json.Unmarshal(data, &frame) == nil {
					r.received <- frame
				}
			}
		}()
	}))
	t.Cleanup(func() {
		r.server.Close()
		r.wg.Wait()
	})
	return r
}

// drop closes every accepted connection from the remote side.
func (r *remote) drop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conn := range r.conns {
		conn.Close()
	}
	r.conns = nil
}

func (r *remote) next(t *testing.T, command string) map[string]any {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame := <-r.received:
			if frame["_command"] == command {
				return frame
			}
		case <-deadline:
			t.Fatalf("no %s frame", command)
			return nil
		}
	}
}

func newServer(t *testing.T, r *remote, tweaks ...func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Remote.URL = "ws" + strings.TrimPrefix(r.server.URL, "http")
	cfg.Storage.Driver = "memory"
	cfg.Connectivity.Enabled = false
	cfg.RateLimit.Enabled = false
	cfg.Identity = config.IdentityConfig{Project: "p1", Spider: "s1"}
	cfg.Viewport = config.ViewportConfig{Width: 800, Height: 600}
	for _, tweak := range tweaks {
		tweak(cfg)
	}

	s, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		assert.NoError(t, s.Shutdown(ctx))
	})
	return s
}

func do(t *testing.T, s *Server, method, path, body string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w.Code, w.Body.String()
}

func decode(t *testing.T, body string) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func waitForDocument(t *testing.T, s *Server) {
	t.Helper()
	require.Eventually(t, func() bool {
		code, _ := do(t, s, http.MethodGet, "/document", "")
		return code == http.StatusOK
	}, 3*time.Second, 10*time.Millisecond)
}

func TestServerEndToEnd(t *testing.T) {
	r := newRemote(t)
	s := newServer(t, r)
	waitForDocument(t, s)

	code, body := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, decode(t, body)["attached"])

	code, body = do(t, s, http.MethodGet, "/document", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `<input name="q"/>`)
	assert.NotContains(t, body, "onload")

	_, body = do(t, s, http.MethodGet, "/document?sanitize=true", "")
	assert.NotContains(t, body, "evil()")

	code, body = do(t, s, http.MethodGet, "/document/query?css=body+input", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), decode(t, body)["count"])

	code, body = do(t, s, http.MethodGet, "/document/query?xpath="+url.QueryEscape("//input[@name='q']"), "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), decode(t, body)["count"])

	code, _ = do(t, s, http.MethodPost, "/navigate", `{"url":"http://example.com","baseurl":"http://example.com/"}`)
	assert.Equal(t, http.StatusOK, code)
	load := r.next(t, "load")
	assert.Equal(t, "http://example.com", load["url"])
	assert.Equal(t, "800x600", load["_meta"].(map[string]any)["viewport"])

	code, body = do(t, s, http.MethodPost, "/events", `{"type":"keydown","key":"a","targetId":4}`)
	assert.Equal(t, http.StatusOK, code, body)
	interact := r.next(t, "interact")
	assert.Equal(t, "keydown", interact["interaction"].(map[string]any)["type"])

	code, _ = do(t, s, http.MethodPut, "/mode", `{"mode":"annotation"}`)
	assert.Equal(t, http.StatusOK, code)
	code, body = do(t, s, http.MethodPost, "/events", `{"type":"click","which":1,"targetTag":"A"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, decode(t, body)["default_prevented"])
	assert.Equal(t, true, decode(t, body)["propagation_stopped"])

	code, body = do(t, s, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusOK, code)
	status := decode(t, body)
	assert.Equal(t, true, status["connected"])
	assert.Equal(t, float64(11), status["listeners"])
	assert.Equal(t, "requesting", status["load"].(map[string]any)["phase"])
	assert.Equal(t, "annotation", status["browser"].(map[string]any)["mode"])

	code, body = do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "browsersync_http_requests_total")
	assert.Contains(t, body, "browsersync_sessions_active 1")
}

func TestServerStartsWithoutRemote(t *testing.T) {
	cfg := config.Default()
	cfg.Remote.URL = "ws://127.0.0.1:1/ws"
	cfg.Remote.HandshakeTimeout = 200 * time.Millisecond
	cfg.Storage.Driver = "memory"
	cfg.Connectivity.Enabled = false

	s, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer func() { assert.NoError(t, s.Shutdown(context.Background())) }()

	code, body := do(t, s, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, decode(t, body)["connected"])

	code, body = do(t, s, http.MethodPost, "/reconnect", "")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, false, decode(t, body)["success"])
}

func TestServerRedialsAfterRemoteDrop(t *testing.T) {
	r := newRemote(t)
	s := newServer(t, r, func(cfg *config.Config) {
		cfg.Remote.RedialMin = 10 * time.Millisecond
		cfg.Remote.RedialMax = 10 * time.Millisecond
	})
	waitForDocument(t, s)

	code, _ := do(t, s, http.MethodPost, "/navigate", `{"url":"http://example.com","baseurl":"http://example.com/"}`)
	require.Equal(t, http.StatusOK, code)
	r.next(t, "load")

	r.drop()
	load := r.next(t, "load")
	assert.Equal(t, "http://example.com", load["url"])

	quiet := time.After(200 * time.Millisecond)
	for {
		select {
		case frame := <-r.received:
			assert.NotEqual(t, "load", frame["_command"], "one load per reconnect")
		case <-quiet:
			code, body := do(t, s, http.MethodPost, "/reconnect", "")
			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, true, decode(t, body)["connected"])
			return
		}
	}
}

func TestNewRejectsUnknownStorage(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "etcd"
	_, err := New(cfg, nil)
	assert.Error(t, err)
}
