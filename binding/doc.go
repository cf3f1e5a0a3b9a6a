// Package binding implements the reactive data-binding engine linking the
// shared data model to widget properties.
//
// A widget's dataBinding spec parses into Definitions; the Controller turns
// those into live WidgetBindings subscribed to the Store. Model changes flow
// to widgets through shared derived observables held in a bounded LRU, and
// two-way bindings write widget changes back with duplicate suppression to
// break propagation cycles.
package binding
