package dedup

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/c360/uistream/errors"
)

// Config holds deduplicator settings
type Config struct {
	Enabled    bool          // When false every call executes fresh
	MaxEntries int           // Bound on tracked in-flight entries
	Window     time.Duration // Age beyond which an entry no longer dedups
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		MaxEntries: 100,
		Window:     5 * time.Second,
	}
}

// entry tracks one in-flight execution and its settled outcome
type entry[T any] struct {
	done    chan struct{}
	val     T
	err     error
	created time.Time
	elem    *list.Element
}

// Deduplicator collapses concurrent calls that share a logical key onto a
// single execution. All callers observe the identical settled outcome. The
// tracked-entry set is insertion-ordered and bounded: oldest entries are
// evicted before admitting a new key, bounding memory regardless of call
// volume. Safe for concurrent use.
type Deduplicator[T any] struct {
	mu      sync.Mutex
	cfg     Config
	entries map[string]*entry[T]
	order   *list.List // element values are entry keys, oldest at back

	now        func() time.Time
	onCollapse func()
}

// Option configures a Deduplicator
type Option[T any] func(*Deduplicator[T])

// WithClock injects a clock for deterministic tests
func WithClock[T any](now func() time.Time) Option[T] {
	return func(d *Deduplicator[T]) { d.now = now }
}

// WithCollapseHook registers fn to run each time a caller joins an existing
// in-flight execution instead of starting its own. Used to count collapses.
func WithCollapseHook[T any](fn func()) Option[T] {
	return func(d *Deduplicator[T]) { d.onCollapse = fn }
}

// New creates a deduplicator
func New[T any](cfg Config, opts ...Option[T]) *Deduplicator[T] {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 100
	}
	d := &Deduplicator[T]{
		cfg:     cfg,
		entries: make(map[string]*entry[T]),
		order:   list.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Key derives a deterministic logical key from a request payload: the payload
// is serialized, canonicalized per RFC 8785, and hashed. Structurally
// identical payloads always map to the same key.
func Key(payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", errors.WrapInvalid(err, "dedup", "Key", "payload serialization")
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", errors.WrapInvalid(err, "dedup", "Key", "canonicalization")
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Execute runs op under the given key. If an in-flight execution already
// exists for key (and is younger than the dedup window), op is not invoked;
// the caller waits for and shares that execution's outcome. Entries are
// removed when the execution settles.
func (d *Deduplicator[T]) Execute(ctx context.Context, key string, op func(context.Context) (T, error)) (T, error) {
	if !d.cfg.Enabled {
		return op(ctx)
	}

	d.mu.Lock()
	if e, ok := d.entries[key]; ok {
		if d.cfg.Window <= 0 || d.now().Sub(e.created) < d.cfg.Window {
			d.mu.Unlock()
			if d.onCollapse != nil {
				d.onCollapse()
			}
			return d.wait(ctx, e)
		}
		// Stale entry: stop tracking it and execute fresh. The stale
		// execution keeps running for its own waiters.
		d.removeLocked(key, e)
	}

	e := &entry[T]{done: make(chan struct{}), created: d.now()}
	for len(d.entries) >= d.cfg.MaxEntries {
		d.evictOldestLocked()
	}
	e.elem = d.order.PushFront(key)
	d.entries[key] = e
	d.mu.Unlock()

	e.val, e.err = op(ctx)
	close(e.done)

	d.mu.Lock()
	// Only remove if this entry is still the tracked one for key.
	if cur, ok := d.entries[key]; ok && cur == e {
		d.removeLocked(key, e)
	}
	d.mu.Unlock()

	return e.val, e.err
}

// Len returns the number of tracked in-flight entries
func (d *Deduplicator[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// wait blocks until the shared execution settles or ctx is cancelled
func (d *Deduplicator[T]) wait(ctx context.Context, e *entry[T]) (T, error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-e.done:
		return e.val, e.err
	}
}

// removeLocked stops tracking an entry. Must be called with the lock held.
func (d *Deduplicator[T]) removeLocked(key string, e *entry[T]) {
	delete(d.entries, key)
	if e.elem != nil {
		d.order.Remove(e.elem)
		e.elem = nil
	}
}

// evictOldestLocked drops the oldest tracked entry. The evicted execution
// keeps running for callers already waiting on it; the key simply stops
// deduplicating new arrivals. Must be called with the lock held.
func (d *Deduplicator[T]) evictOldestLocked() {
	back := d.order.Back()
	if back == nil {
		return
	}
	key := back.Value.(string)
	if e, ok := d.entries[key]; ok {
		d.removeLocked(key, e)
	} else {
		d.order.Remove(back)
	}
}
