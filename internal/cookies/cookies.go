// Package cookies persists the remote session's cookie jar per
// project/spider identity.
package cookies

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/protocol"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/store"
)

// Identity scopes a cookie jar.
type Identity struct {
	Project string `json:"project"`
	Spider  string `json:"spider"`
}

// Key returns the storage key for the identity. It is only defined when
// both project and spider are set.
func Key(project, spider string) (string, bool) {
	if project == "" || spider == "" {
		return "", false
	}
	return strings.ReplaceAll("cookies:"+project+"/"+spider, ".", "_"), true
}

// Sync merges inbound cookie sets and supplies them to outbound loads.
type Sync struct {
	store  store.Store
	logger *logging.Logger
}

// NewSync creates a cookie sync backed by s.
func NewSync(s store.Store, logger *logging.Logger) *Sync {
	return &Sync{store: s, logger: logging.OrNop(logger).Named("cookies")}
}

// Merge replaces the stored jar when cookies is non-empty. An empty set
// leaves the stored jar untouched.
func (s *Sync) Merge(ctx context.Context, id Identity, cookies []protocol.Cookie) error {
	key, ok := Key(id.Project, id.Spider)
	if !ok || len(cookies) == 0 {
		return nil
	}
	if err := store.SetJSON(ctx, s.store, key, cookies); err != nil {
		return err
	}
	s.logger.Debug("cookies stored", zap.String("key", key), zap.Int("count", len(cookies)))
	return nil
}

// Load returns the stored jar, or an empty list.
func (s *Sync) Load(ctx context.Context, id Identity) ([]protocol.Cookie, error) {
	cookies := []protocol.Cookie{}
	key, ok := Key(id.Project, id.Spider)
	if !ok {
		return cookies, nil
	}
	if _, err := store.GetJSON(ctx, s.store, key, &cookies); err != nil {
		return []protocol.Cookie{}, err
	}
	if cookies == nil {
		cookies = []protocol.Cookie{}
	}
	return cookies, nil
}
