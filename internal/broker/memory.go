package broker

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/dsnproject/dsn-core/internal/logging"
)

// MemoryBroker is the in-memory backend: a single value map and a parallel
// deadline map, swept by a background goroutine (spec.md §4.C).
type MemoryBroker struct {
	log      logging.Logger
	interval time.Duration

	mu        sync.RWMutex
	values    map[string][]byte
	deadlines map[string]time.Time
	connected bool

	stop chan struct{}
	done chan struct{}
}

// NewMemoryBroker constructs a MemoryBroker with the given sweep interval.
func NewMemoryBroker(sweepInterval time.Duration, log logging.Logger) *MemoryBroker {
	if log == nil {
		log = logging.NoOp()
	}
	return &MemoryBroker{
		log:       log,
		interval:  sweepInterval,
		values:    make(map[string][]byte),
		deadlines: make(map[string]time.Time),
	}
}

func (m *MemoryBroker) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected {
		return nil
	}
	m.connected = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.sweepLoop(m.stop, m.done)
	return nil
}

func (m *MemoryBroker) Disconnect(ctx context.Context) error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.connected = false
	stop := m.stop
	m.mu.Unlock()

	close(stop)
	<-m.done
	return nil
}

func (m *MemoryBroker) sweepLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *MemoryBroker) sweep() {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, deadline := range m.deadlines {
		if now.After(deadline) {
			delete(m.values, k)
			delete(m.deadlines, k)
		}
	}
}

// expiredLocked reports whether key has a deadline that has passed. Caller
// must hold at least a read lock; eviction itself requires the write lock.
func (m *MemoryBroker) expiredLocked(key string, now time.Time) bool {
	d, ok := m.deadlines[key]
	return ok && now.After(d)
}

func (m *MemoryBroker) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, false, ErrNotConnected
	}
	if m.expiredLocked(key, time.Now()) {
		delete(m.values, key)
		delete(m.deadlines, key)
		return nil, false, nil
	}
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryBroker) Set(ctx context.Context, key string, value []byte, opts SetOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	m.values[key] = cp
	if opts.TTL > 0 {
		m.deadlines[key] = time.Now().Add(opts.TTL)
	} else {
		delete(m.deadlines, key)
	}
	return nil
}

func (m *MemoryBroker) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	delete(m.values, key)
	delete(m.deadlines, key)
	return nil
}

func (m *MemoryBroker) Has(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return false, ErrNotConnected
	}
	if m.expiredLocked(key, time.Now()) {
		delete(m.values, key)
		delete(m.deadlines, key)
		return false, nil
	}
	_, ok := m.values[key]
	return ok, nil
}

func (m *MemoryBroker) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.values = make(map[string][]byte)
	m.deadlines = make(map[string]time.Time)
	return nil
}

func (m *MemoryBroker) Keys(ctx context.Context, pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return nil, ErrNotConnected
	}
	now := time.Now()
	var out []string
	for k := range m.values {
		if m.expiredLocked(k, now) {
			continue
		}
		matched, err := path.Match(pattern, k)
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *MemoryBroker) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		v, ok, err := m.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemoryBroker) SetMany(ctx context.Context, values map[string][]byte, opts SetOptions) error {
	for k, v := range values {
		if err := m.Set(ctx, k, v, opts); err != nil {
			return err
		}
	}
	return nil
}
