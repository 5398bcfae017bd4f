// Package broker implements the memory broker abstraction: a pluggable
// key/value substrate for node state, history, and codebooks (spec.md
// §4.C). Patterns are glob (*, ?); TTL is an absolute deadline enforced by
// both a background sweeper and lazy eviction on read.
package broker

import (
	"context"
	"time"
)

// SetOptions configures a Set call.
type SetOptions struct {
	// TTL is the time-to-live from now. Zero means no expiry.
	TTL time.Duration
}

// Broker is the collaborator interface every backend implements.
type Broker interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, opts SetOptions) error
	Delete(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) error
	Keys(ctx context.Context, pattern string) ([]string, error)

	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
	SetMany(ctx context.Context, values map[string][]byte, opts SetOptions) error
}
