// Package store provides durable storage of JSON values keyed by string.
package store

import (
	"context"
	"fmt"
)

// Well-known keys
const (
	KeyEntries    = "diary-entries"
	KeySyncConfig = "github-sync-config"
	KeyIdentity   = "auth-identity"
)

// KV is a durable store of JSON-serializable values
type KV interface {
	// Get decodes the value stored under key into dst and reports whether it existed.
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Set encodes value and stores it under key, replacing any previous value.
	Set(ctx context.Context, key string, value any) error
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}

// Load returns the value stored under key, or def when the key is absent.
func Load[T any](ctx context.Context, kv KV, key string, def T) (T, error) {
	var v T
	found, err := kv.Get(ctx, key, &v)
	if err != nil {
		return def, fmt.Errorf("load %s: %w", key, err)
	}
	if !found {
		return def, nil
	}
	return v, nil
}

// Save stores value under key.
func Save[T any](ctx context.Context, kv KV, key string, value T) error {
	if err := kv.Set(ctx, key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
