// Package observable provides the single-slot cell a store wraps its state in
// when patching is enabled.
//
// A Cell holds the current value and notifies subscribers synchronously, in
// registration order, every time Next replaces it:
//
//	cell := observable.NewSubject(initial)
//	unsubscribe := cell.Subscribe(func(value T) { ... })
//	cell.Next(updated)
//	unsubscribe()
//
// Subjects are safe for concurrent use. Listeners run outside the internal lock
// so they may read the cell or subscribe further listeners; those listeners are
// first notified on the following emission.
package observable
