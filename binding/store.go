package binding

import (
	"log/slog"
	"sync"
)

// Store is the shared mutable data model backing all bindings. Each path
// owns one observable, created lazily on first Set or Subscribe.
type Store struct {
	mu     sync.Mutex
	values map[string]*Value
	logger *slog.Logger
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithStoreLogger sets the logger
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates an empty store
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		values: make(map[string]*Value),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value at path, false when the path was never written
func (s *Store) Get(path Path) (any, bool) {
	s.mu.Lock()
	v, ok := s.values[path.String()]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	return v.Get(), true
}

// Set writes path and notifies its subscribers
func (s *Store) Set(path Path, val any) {
	s.observable(path).Set(val)
}

// Subscribe registers fn for changes to path
func (s *Store) Subscribe(path Path, fn func(any)) *Subscription {
	return s.observable(path).Listen(fn)
}

// Apply writes a batch of path-string keyed updates, optionally prefixed by
// scope. Keys that fail to parse are skipped with a warning; one bad key
// must not reject the batch.
func (s *Store) Apply(updates map[string]any, scope *string) {
	var prefix Path
	if scope != nil {
		p, err := Parse(*scope)
		if err != nil {
			s.logger.Warn("ignoring unparseable update scope", "scope", *scope, "error", err)
		} else {
			prefix = p
		}
	}

	for key, val := range updates {
		path, err := Parse(key)
		if err != nil {
			s.logger.Warn("skipping unparseable update path", "path", key, "error", err)
			continue
		}
		if prefix.Len() > 0 {
			path = prefix.Join(path)
		}
		s.Set(path, val)
	}
}

// Len returns the number of paths ever written or subscribed
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

func (s *Store) observable(path Path) *Value {
	key := path.String()
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok {
		v = NewValue(nil)
		s.values[key] = v
	}
	return v
}
