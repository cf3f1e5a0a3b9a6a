package binding

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/c360/uistream/errors"
	"github.com/c360/uistream/pkg/cache"
	"github.com/c360/uistream/protocol"
)

// DefaultCacheSize bounds the derived-observable cache
const DefaultCacheSize = 256

// derived is one cached transformed observable plus the store subscription
// feeding it. Refs counts the live bindings sharing it.
type derived struct {
	value    *Value
	storeSub *Subscription
	refs     int
}

// ChangeFunc receives model-driven updates for one widget property
type ChangeFunc func(property string, value any)

// Controller wires widget dataBinding specs to the shared store. Derived
// observables are shared between identical bindings and held in a bounded
// LRU; evicting an entry cancels its store subscription, so a binding whose
// entry was evicted under memory pressure stops receiving model updates.
type Controller struct {
	store    *Store
	registry *Registry
	cache    *cache.LRU[*derived]
	logger   *slog.Logger

	mu sync.Mutex // guards derived refcounts and per-binding lastSent
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithControllerLogger sets the logger
func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

// NewController creates a controller over store with a derived-observable
// cache bounded at maxCache entries.
func NewController(store *Store, maxCache int, opts ...ControllerOption) (*Controller, error) {
	c := &Controller{
		store:    store,
		registry: NewRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	lru, err := cache.NewLRU(maxCache, cache.WithEvictCallback(func(key string, d *derived) {
		if d.storeSub != nil {
			d.storeSub.Cancel()
		}
		c.logger.Debug("released derived observable", "key", key)
	}))
	if err != nil {
		return nil, errors.Wrap(err, "Controller", "NewController", "create observable cache")
	}
	c.cache = lru
	return c, nil
}

// Registry exposes the live-binding index
func (c *Controller) Registry() *Registry {
	return c.registry
}

// CachedObservables returns the number of derived observables held
func (c *Controller) CachedObservables() int {
	return c.cache.Len()
}

// BindWidget creates live bindings for a widget node's dataBinding spec.
// onChange, when non-nil, receives model-driven updates for each readable
// property. Nodes without a dataBinding yield no bindings.
func (c *Controller) BindWidget(surfaceID string, node protocol.WidgetNode, onChange ChangeFunc) ([]*WidgetBinding, error) {
	if node.DataBinding == nil {
		return nil, nil
	}
	if node.ID == "" {
		return nil, errors.NewMessageParseError("widget with dataBinding has no id", nil)
	}

	defs, err := ParseSpec(node.DataBinding)
	if err != nil {
		return nil, err
	}

	bindings := make([]*WidgetBinding, 0, len(defs))
	for _, def := range defs {
		b := &WidgetBinding{
			WidgetID:   node.ID,
			SurfaceID:  surfaceID,
			Definition: def,
		}

		if def.ReadsModel() {
			key := def.Path.String() + "#" + def.Property
			d := c.acquire(key, def)
			b.observable = d.value
			b.cacheKey = key
			if onChange != nil {
				prop := def.Property
				b.listener = d.value.Listen(func(v any) { onChange(prop, v) })
			}
		}

		c.registry.Add(b)
		bindings = append(bindings, b)
	}

	c.logger.Debug("bound widget",
		"widget_id", node.ID,
		"surface_id", surfaceID,
		"bindings", len(bindings))
	return bindings, nil
}

// UpdateFromWidget propagates a widget-side change into the store. The last
// value written through each binding is remembered and an identical
// consecutive write is suppressed, breaking model-widget feedback loops.
func (c *Controller) UpdateFromWidget(b *WidgetBinding, value any) error {
	if !b.Definition.WritesModel() {
		return errors.WrapInvalid(errors.ErrInvalidData, "Controller", "UpdateFromWidget",
			"write through a "+string(b.Definition.Mode)+" binding")
	}

	if b.Definition.ToModel != nil {
		value = b.Definition.ToModel(value)
	}

	c.mu.Lock()
	if b.hasLast && reflect.DeepEqual(b.lastSent, value) {
		c.mu.Unlock()
		c.logger.Debug("suppressed duplicate widget write",
			"widget_id", b.WidgetID, "path", b.Definition.Path.String())
		return nil
	}
	b.lastSent = value
	b.hasLast = true
	c.mu.Unlock()

	c.store.Set(b.Definition.Path, value)
	return nil
}

// ApplyDataModelUpdate writes a DataModelUpdate message into the store
func (c *Controller) ApplyDataModelUpdate(msg protocol.DataModelUpdate) {
	c.store.Apply(msg.Updates, msg.Scope)
}

// TeardownWidget disposes every binding of one widget
func (c *Controller) TeardownWidget(widgetID string) {
	c.dispose(c.registry.RemoveWidget(widgetID))
}

// TeardownSurface disposes every binding owned by one surface
func (c *Controller) TeardownSurface(surfaceID string) {
	c.dispose(c.registry.RemoveSurface(surfaceID))
}

func (c *Controller) dispose(bindings []*WidgetBinding) {
	for _, b := range bindings {
		if b.listener != nil {
			b.listener.Cancel()
		}
		if b.cacheKey != "" {
			c.release(b.cacheKey)
		}
	}
}

// acquire returns the shared derived observable for key, creating it and
// its store subscription on first use.
func (c *Controller) acquire(key string, def Definition) *derived {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d, ok := c.cache.Get(key); ok {
		d.refs++
		return d
	}

	initial, _ := c.store.Get(def.Path)
	if def.ToWidget != nil {
		initial = def.ToWidget(initial)
	}
	d := &derived{value: NewValue(initial), refs: 1}

	transform := def.ToWidget
	obs := d.value
	d.storeSub = c.store.Subscribe(def.Path, func(v any) {
		if transform != nil {
			v = transform(v)
		}
		obs.Set(v)
	})

	c.cache.Set(key, d)
	return d
}

// release drops one reference to a derived observable and deletes the cache
// entry once no binding uses it.
func (c *Controller) release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.cache.Get(key)
	if !ok {
		return
	}
	d.refs--
	if d.refs <= 0 {
		c.cache.Delete(key)
	}
}
