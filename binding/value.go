package binding

import "sync"

// Value is an observable holding one mutable value. Listeners are explicit
// handles so teardown is deterministic; there is no weak-reference cleanup.
type Value struct {
	mu        sync.Mutex
	current   any
	nextID    int
	listeners map[int]func(any)
}

// NewValue creates an observable with an initial value
func NewValue(initial any) *Value {
	return &Value{
		current:   initial,
		listeners: make(map[int]func(any)),
	}
}

// Get returns the current value
func (v *Value) Get() any {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Set stores a new value and notifies every listener. Listeners run outside
// the lock and may themselves subscribe or unsubscribe.
func (v *Value) Set(val any) {
	v.mu.Lock()
	v.current = val
	fns := make([]func(any), 0, len(v.listeners))
	for _, fn := range v.listeners {
		fns = append(fns, fn)
	}
	v.mu.Unlock()

	for _, fn := range fns {
		fn(val)
	}
}

// Listen registers fn for future changes. It does not fire for the current
// value. Cancel the returned subscription to stop notifications.
func (v *Value) Listen(fn func(any)) *Subscription {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := v.nextID
	v.nextID++
	v.listeners[id] = fn
	return &Subscription{owner: v, id: id}
}

// ListenerCount returns the number of registered listeners
func (v *Value) ListenerCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.listeners)
}

// Subscription is a removable listener handle
type Subscription struct {
	owner *Value
	once  sync.Once
	id    int
}

// Cancel removes the listener. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil || s.owner == nil {
		return
	}
	s.once.Do(func() {
		s.owner.mu.Lock()
		delete(s.owner.listeners, s.id)
		s.owner.mu.Unlock()
	})
}
