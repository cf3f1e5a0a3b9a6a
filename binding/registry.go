package binding

import (
	"sync"
)

// WidgetBinding is one live binding between a store path and a widget
// property. It owns a listener on its derived observable; the controller
// owns the observable itself through the shared cache.
type WidgetBinding struct {
	WidgetID   string
	SurfaceID  string
	Definition Definition

	observable *Value
	listener   *Subscription
	cacheKey   string

	lastSent any
	hasLast  bool
}

// Observable returns the derived observable feeding this binding's widget
// property, nil for write-only bindings.
func (b *WidgetBinding) Observable() *Value {
	return b.observable
}

// Current returns the derived observable's present value
func (b *WidgetBinding) Current() any {
	if b.observable == nil {
		return nil
	}
	return b.observable.Get()
}

// Registry indexes live bindings by widget and by surface so teardown can
// run in bulk when a widget or a whole surface is removed.
type Registry struct {
	mu        sync.Mutex
	byWidget  map[string][]*WidgetBinding
	bySurface map[string][]*WidgetBinding
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byWidget:  make(map[string][]*WidgetBinding),
		bySurface: make(map[string][]*WidgetBinding),
	}
}

// Add registers a live binding under both indexes
func (r *Registry) Add(b *WidgetBinding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byWidget[b.WidgetID] = append(r.byWidget[b.WidgetID], b)
	r.bySurface[b.SurfaceID] = append(r.bySurface[b.SurfaceID], b)
}

// ForWidget returns the live bindings of one widget
func (r *Registry) ForWidget(widgetID string) []*WidgetBinding {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*WidgetBinding(nil), r.byWidget[widgetID]...)
}

// ForSurface returns the live bindings of one surface
func (r *Registry) ForSurface(surfaceID string) []*WidgetBinding {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*WidgetBinding(nil), r.bySurface[surfaceID]...)
}

// RemoveWidget drops a widget's bindings from both indexes and returns them
// for disposal.
func (r *Registry) RemoveWidget(widgetID string) []*WidgetBinding {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := r.byWidget[widgetID]
	delete(r.byWidget, widgetID)
	for _, b := range removed {
		r.bySurface[b.SurfaceID] = without(r.bySurface[b.SurfaceID], b)
		if len(r.bySurface[b.SurfaceID]) == 0 {
			delete(r.bySurface, b.SurfaceID)
		}
	}
	return removed
}

// RemoveSurface drops every binding owned by a surface and returns them
func (r *Registry) RemoveSurface(surfaceID string) []*WidgetBinding {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := r.bySurface[surfaceID]
	delete(r.bySurface, surfaceID)
	for _, b := range removed {
		r.byWidget[b.WidgetID] = without(r.byWidget[b.WidgetID], b)
		if len(r.byWidget[b.WidgetID]) == 0 {
			delete(r.byWidget, b.WidgetID)
		}
	}
	return removed
}

// Len returns the total number of live bindings
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, bs := range r.byWidget {
		n += len(bs)
	}
	return n
}

func without(bindings []*WidgetBinding, target *WidgetBinding) []*WidgetBinding {
	for i, b := range bindings {
		if b == target {
			return append(bindings[:i], bindings[i+1:]...)
		}
	}
	return bindings
}
