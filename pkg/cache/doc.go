// Package cache provides a thread-safe bounded LRU cache with always-on
// statistics and an eviction callback hook.
//
// The binding engine uses it to cap the number of live derived observables:
// the eviction callback disposes the observable's subscription when its entry
// falls out of the cache. Callbacks run outside the cache lock, so a callback
// may safely call back into the cache.
package cache
