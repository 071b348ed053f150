// Package id provides ULID generation for session and surface identifiers.
//
// IDs are lexicographically sortable ULIDs with a short type prefix so they
// read well in logs:
//   - sess_*: an attached synchronizer session
//   - frame_*: a surface provisioning token echoed back by the ready signal
package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionID identifies an attached session.
type SessionID string

// FrameToken identifies one provisioning of the rendering surface.
type FrameToken string

const (
	SessionPrefix = "sess"
	FramePrefix   = "frame"
)

// Generator produces ULIDs that are strictly increasing within one process,
// even when several are minted in the same millisecond.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var shared = NewGenerator()

// NewGenerator creates a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return prefix + "_" + g.Generate().String()
}

// NewSessionID generates a new session ID.
func NewSessionID() SessionID {
	return SessionID(shared.GenerateWithPrefix(SessionPrefix))
}

// NewFrameToken generates a new surface provisioning token.
func NewFrameToken() FrameToken {
	return FrameToken(shared.GenerateWithPrefix(FramePrefix))
}

func (id SessionID) String() string { return string(id) }
func (t FrameToken) String() string { return string(t) }
