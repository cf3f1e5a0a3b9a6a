package binding

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/uistream/protocol"
)

func textWidget(id, path string) protocol.WidgetNode {
	return protocol.WidgetNode{
		Type:        "text",
		ID:          id,
		DataBinding: path,
	}
}

func twoWayWidget(id, path string) protocol.WidgetNode {
	return protocol.WidgetNode{
		Type: "input",
		ID:   id,
		DataBinding: map[string]any{
			"value": map[string]any{"path": path, "mode": "twoWay"},
		},
	}
}

func newTestController(t *testing.T, maxCache int) (*Store, *Controller) {
	t.Helper()
	store := NewStore()
	c, err := NewController(store, maxCache)
	require.NoError(t, err)
	return store, c
}

func TestBindWidget_ModelFlowsToWidget(t *testing.T) {
	store, c := newTestController(t, 8)

	var updates []any
	bindings, err := c.BindWidget("s1", textWidget("w1", "user.name"), func(property string, v any) {
		assert.Equal(t, "value", property)
		updates = append(updates, v)
	})
	require.NoError(t, err)
	require.Len(t, bindings, 1)

	store.Set(mustPath(t, "user.name"), "Ada")
	assert.Equal(t, []any{"Ada"}, updates)
	assert.Equal(t, "Ada", bindings[0].Current())
}

func TestBindWidget_NoDataBinding(t *testing.T) {
	_, c := newTestController(t, 8)

	bindings, err := c.BindWidget("s1", protocol.WidgetNode{Type: "text", ID: "w1"}, nil)
	require.NoError(t, err)
	assert.Empty(t, bindings)
	assert.Zero(t, c.Registry().Len())
}

func TestBindWidget_MissingIDFails(t *testing.T) {
	_, c := newTestController(t, 8)

	_, err := c.BindWidget("s1", protocol.WidgetNode{Type: "text", DataBinding: "a.b"}, nil)
	assert.Error(t, err)
}

func TestBindWidget_InitialValueFromStore(t *testing.T) {
	store, c := newTestController(t, 8)
	store.Set(mustPath(t, "greeting"), "hello")

	bindings, err := c.BindWidget("s1", textWidget("w1", "greeting"), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", bindings[0].Current())
}

func TestUpdateFromWidget_WritesStore(t *testing.T) {
	store, c := newTestController(t, 8)

	bindings, err := c.BindWidget("s1", twoWayWidget("w1", "form.email"), nil)
	require.NoError(t, err)
	require.Len(t, bindings, 1)

	require.NoError(t, c.UpdateFromWidget(bindings[0], "a@b.c"))
	got, ok := store.Get(mustPath(t, "form.email"))
	require.True(t, ok)
	assert.Equal(t, "a@b.c", got)
}

func TestUpdateFromWidget_SuppressesDuplicateWrite(t *testing.T) {
	store, c := newTestController(t, 8)

	var writes int
	store.Subscribe(mustPath(t, "form.email"), func(any) { writes++ })

	bindings, err := c.BindWidget("s1", twoWayWidget("w1", "form.email"), nil)
	require.NoError(t, err)

	require.NoError(t, c.UpdateFromWidget(bindings[0], "same"))
	require.NoError(t, c.UpdateFromWidget(bindings[0], "same"))
	assert.Equal(t, 1, writes, "identical consecutive write must be suppressed")

	require.NoError(t, c.UpdateFromWidget(bindings[0], "different"))
	assert.Equal(t, 2, writes)
}

func TestUpdateFromWidget_OneWayRejected(t *testing.T) {
	_, c := newTestController(t, 8)

	bindings, err := c.BindWidget("s1", textWidget("w1", "a.b"), nil)
	require.NoError(t, err)

	assert.Error(t, c.UpdateFromWidget(bindings[0], "x"))
}

func TestTeardownWidget_RemovesListeners(t *testing.T) {
	store, c := newTestController(t, 8)

	var updates int
	bindings, err := c.BindWidget("s1", textWidget("w1", "user.name"), func(string, any) { updates++ })
	require.NoError(t, err)
	obs := bindings[0].Observable()
	require.Equal(t, 1, obs.ListenerCount())

	c.TeardownWidget("w1")
	assert.Zero(t, obs.ListenerCount(), "teardown must remove the listener")
	assert.Zero(t, c.Registry().Len())
	assert.Zero(t, c.CachedObservables(), "sole reference released the cache entry")

	store.Set(mustPath(t, "user.name"), "Ada")
	assert.Zero(t, updates)
}

func TestTeardownSurface_RemovesAllWidgets(t *testing.T) {
	_, c := newTestController(t, 8)

	_, err := c.BindWidget("s1", textWidget("w1", "a"), nil)
	require.NoError(t, err)
	_, err = c.BindWidget("s1", textWidget("w2", "b"), nil)
	require.NoError(t, err)
	_, err = c.BindWidget("s2", textWidget("w3", "c"), nil)
	require.NoError(t, err)

	c.TeardownSurface("s1")
	assert.Empty(t, c.Registry().ForSurface("s1"))
	assert.Len(t, c.Registry().ForSurface("s2"), 1)
	assert.Equal(t, 1, c.Registry().Len())
}

func TestSharedDerivedObservable(t *testing.T) {
	_, c := newTestController(t, 8)

	b1, err := c.BindWidget("s1", textWidget("w1", "shared.path"), nil)
	require.NoError(t, err)
	b2, err := c.BindWidget("s1", textWidget("w2", "shared.path"), nil)
	require.NoError(t, err)

	assert.Same(t, b1[0].Observable(), b2[0].Observable())
	assert.Equal(t, 1, c.CachedObservables())

	// Entry survives while a second binding still references it.
	c.TeardownWidget("w1")
	assert.Equal(t, 1, c.CachedObservables())
	c.TeardownWidget("w2")
	assert.Zero(t, c.CachedObservables())
}

func TestDerivedCache_EvictsLeastRecentlyUsed(t *testing.T) {
	store, c := newTestController(t, 3)

	var bindings []*WidgetBinding
	for i := 0; i < 4; i++ {
		bs, err := c.BindWidget("s1", textWidget(
			fmt.Sprintf("w%d", i),
			fmt.Sprintf("path%d", i),
		), nil)
		require.NoError(t, err)
		bindings = append(bindings, bs[0])
	}

	assert.Equal(t, 3, c.CachedObservables())

	// The oldest entry was evicted: its store subscription is gone, so the
	// first binding no longer sees model updates.
	store.Set(mustPath(t, "path0"), "update")
	assert.Nil(t, bindings[0].Current())

	store.Set(mustPath(t, "path3"), "live")
	assert.Equal(t, "live", bindings[3].Current())
}

func TestApplyDataModelUpdate(t *testing.T) {
	store, c := newTestController(t, 8)

	c.ApplyDataModelUpdate(protocol.DataModelUpdate{
		Updates: map[string]any{"user.name": "Ada"},
	})
	got, ok := store.Get(mustPath(t, "user.name"))
	require.True(t, ok)
	assert.Equal(t, "Ada", got)
}

func TestDerivedObservable_TransformApplied(t *testing.T) {
	store, c := newTestController(t, 8)

	def := Definition{
		Property: "text",
		Path:     mustPath(t, "count"),
		Mode:     ModeOneWay,
		ToWidget: func(v any) any { return fmt.Sprintf("#%v", v) },
	}
	d := c.acquire("count#text", def)
	assert.Equal(t, "#<nil>", d.value.Get(), "initial value passes through the transform")

	store.Set(mustPath(t, "count"), 5)
	assert.Equal(t, "#5", d.value.Get())
}
