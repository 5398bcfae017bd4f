package broker

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// InvalidationHook is called when the cache drops a key on Delete or on a
// Get that finds the cached entry expired, so callers can react (e.g. drop
// a derived index entry). It is not called when the LRU evicts an entry
// for capacity, nor for the keys purged by Clear.
type InvalidationHook func(key string)

// CachingBroker fronts an underlying Broker with a fixed-size LRU. Writes
// are write-through: Set/Delete/Clear always reach the underlying broker
// before the cache is updated, so the cache can never diverge from a
// committed value.
type CachingBroker struct {
	underlying Broker
	cache      *lru.Cache[string, cachedEntry]
	defaultTTL time.Duration
	hooks      []InvalidationHook
}

type cachedEntry struct {
	value    []byte
	deadline time.Time // zero means no TTL
}

// NewCachingBroker wraps underlying with an LRU of maxEntries, applying
// defaultTTL to cache entries written without an explicit TTL.
func NewCachingBroker(underlying Broker, maxEntries int, defaultTTL time.Duration) (*CachingBroker, error) {
	cache, err := lru.New[string, cachedEntry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &CachingBroker{underlying: underlying, cache: cache, defaultTTL: defaultTTL}, nil
}

// OnInvalidate registers hook to be called on every Delete and every
// expired-entry drop in Get (see InvalidationHook).
func (c *CachingBroker) OnInvalidate(hook InvalidationHook) {
	c.hooks = append(c.hooks, hook)
}

func (c *CachingBroker) invalidate(key string) {
	c.cache.Remove(key)
	for _, h := range c.hooks {
		h(key)
	}
}

func (c *CachingBroker) Connect(ctx context.Context) error    { return c.underlying.Connect(ctx) }
func (c *CachingBroker) Disconnect(ctx context.Context) error { return c.underlying.Disconnect(ctx) }

func (c *CachingBroker) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if e, ok := c.cache.Get(key); ok {
		if e.deadline.IsZero() || time.Now().Before(e.deadline) {
			return e.value, true, nil
		}
		c.invalidate(key)
	}
	v, ok, err := c.underlying.Get(ctx, key)
	if err != nil || !ok {
		return v, ok, err
	}
	c.cache.Add(key, cachedEntry{value: v, deadline: c.deadlineFor(SetOptions{TTL: c.defaultTTL})})
	return v, true, nil
}

func (c *CachingBroker) deadlineFor(opts SetOptions) time.Time {
	if opts.TTL <= 0 {
		return time.Time{}
	}
	return time.Now().Add(opts.TTL)
}

func (c *CachingBroker) Set(ctx context.Context, key string, value []byte, opts SetOptions) error {
	if err := c.underlying.Set(ctx, key, value, opts); err != nil {
		return err
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.cache.Add(key, cachedEntry{value: value, deadline: c.deadlineFor(SetOptions{TTL: ttl})})
	return nil
}

func (c *CachingBroker) Delete(ctx context.Context, key string) error {
	if err := c.underlying.Delete(ctx, key); err != nil {
		return err
	}
	c.invalidate(key)
	return nil
}

func (c *CachingBroker) Has(ctx context.Context, key string) (bool, error) {
	if _, ok, _ := c.Get(ctx, key); ok {
		return true, nil
	}
	return c.underlying.Has(ctx, key)
}

func (c *CachingBroker) Clear(ctx context.Context) error {
	if err := c.underlying.Clear(ctx); err != nil {
		return err
	}
	c.cache.Purge()
	return nil
}

func (c *CachingBroker) Keys(ctx context.Context, pattern string) ([]string, error) {
	return c.underlying.Keys(ctx, pattern)
}

func (c *CachingBroker) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		v, ok, err := c.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[k] = v
		}
	}
	return out, nil
}

func (c *CachingBroker) SetMany(ctx context.Context, values map[string][]byte, opts SetOptions) error {
	for k, v := range values {
		if err := c.Set(ctx, k, v, opts); err != nil {
			return err
		}
	}
	return nil
}
