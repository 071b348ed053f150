package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/config"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("store: key not found")

// Store is a last-write-wins key-value store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A nil value deletes the key.
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Buckets hands out isolated stores by name.
type Buckets interface {
	Bucket(name string) Store
	Close() error
}

// Bucket names used by the session.
const (
	BucketCookies  = "cookies"
	BucketFailures = "failures"
)

// Open builds the backend selected by cfg.
func Open(cfg config.StorageConfig) (Buckets, error) {
	switch cfg.Driver {
	case "memory", "":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// GetJSON decodes the value under key into v. It reports false when the key
// is absent.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := sonic.ConfigStd.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
