// Package reactive declares the host reactive-system capability the store
// projection binds to. Implementations own dependency tracking and memoization;
// callers only see tracked objects and computed values.
package reactive

// Object is a tracked key/value container. Reads performed while a Computed is
// evaluating register the key as a dependency of that computation; writes
// invalidate the computations that read the key.
type Object interface {
	Get(key string) any
	Set(key string, value any)
	Keys() []string
}

// Computed is a memoized value that re-evaluates lazily after one of the
// reads it performed was invalidated.
type Computed interface {
	Get() any
}

// Provider creates tracked objects and computed values bound to one reactive
// runtime.
type Provider interface {
	// Reactive returns a tracked object seeded with values. keys fixes the
	// iteration order reported by Object.Keys.
	Reactive(keys []string, values map[string]any) Object
	// Computed registers fn as a memoized computation.
	Computed(fn func() any) Computed
}
