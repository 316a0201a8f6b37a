// Package projection mirrors a store into a host reactive system.
//
// A Projection holds a tracked object with one entry per state key and one
// computed value per selector. Selectors evaluate against the mirror, so the
// provider records which keys each selector read. When the store is
// observable the projection subscribes to its cell and, on every emission,
// writes only the keys whose sub-state changed. Keys missing from an emission
// are kept in the mirror.
//
// Projections are not safe for concurrent use when backed by pkg/signal; drive
// patches and reads from one goroutine.
package projection
