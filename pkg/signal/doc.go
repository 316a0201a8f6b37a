// Package signal is a small fine-grained reactive runtime implementing
// reactive.Provider.
//
// Signals hold values; memos are cached derived computations that record the
// signals (and other memos) they read and recompute lazily once one of them
// changes:
//
//	rt := signal.NewRuntime()
//	count := rt.Signal(0)
//	doubled := rt.Memo(func() any { return count.Get().(int) * 2 })
//	doubled.Get() // 0
//	count.Set(5)
//	doubled.Get() // 10, recomputed once
//
// A Runtime keeps a single tracking stack and must be driven from one
// goroutine at a time, the same way a UI event loop drives its reactive system.
package signal
