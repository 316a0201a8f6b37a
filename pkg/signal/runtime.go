package signal

import "github.com/goliatone/go-store/pkg/reactive"

var _ reactive.Provider = (*Runtime)(nil)

// source is anything a memo can depend on.
type source interface {
	observe(*Memo)
	unobserve(*Memo)
}

// Runtime owns the dependency tracking stack shared by its signals and memos.
type Runtime struct {
	stack []*Memo
}

// NewRuntime constructs an empty runtime.
func NewRuntime() *Runtime {
	return &Runtime{}
}

// Signal creates a writable reactive value.
func (rt *Runtime) Signal(initial any) *Signal {
	return &Signal{rt: rt, value: initial}
}

// Memo creates a lazily evaluated, cached computation.
func (rt *Runtime) Memo(fn func() any) *Memo {
	return &Memo{rt: rt, fn: fn, dirty: true}
}

// Computed implements reactive.Provider.
func (rt *Runtime) Computed(fn func() any) reactive.Computed {
	return rt.Memo(fn)
}

// Reactive implements reactive.Provider.
func (rt *Runtime) Reactive(keys []string, values map[string]any) reactive.Object {
	return rt.Object(keys, values)
}

// Untrack runs fn without registering reads against the evaluating memo.
func (rt *Runtime) Untrack(fn func()) {
	saved := rt.stack
	rt.stack = nil
	defer func() { rt.stack = saved }()
	fn()
}

func (rt *Runtime) track(src source) {
	if len(rt.stack) == 0 {
		return
	}
	current := rt.stack[len(rt.stack)-1]
	if _, ok := current.sources[src]; ok {
		return
	}
	current.sources[src] = struct{}{}
	src.observe(current)
}

func (rt *Runtime) push(m *Memo) {
	rt.stack = append(rt.stack, m)
}

func (rt *Runtime) pop() {
	rt.stack = rt.stack[:len(rt.stack)-1]
}

// Signal is a writable reactive value.
type Signal struct {
	rt        *Runtime
	value     any
	observers map[*Memo]struct{}
}

// Get returns the value and registers it as a dependency of the evaluating
// memo, if any.
func (s *Signal) Get() any {
	s.rt.track(s)
	return s.value
}

// Peek returns the value without tracking.
func (s *Signal) Peek() any {
	return s.value
}

// Set stores value and invalidates every memo that read the signal. No
// equality check is made; callers that want to skip redundant writes compare
// before calling Set.
func (s *Signal) Set(value any) {
	s.value = value
	observers := make([]*Memo, 0, len(s.observers))
	for m := range s.observers {
		observers = append(observers, m)
	}
	for _, m := range observers {
		m.invalidate()
	}
}

func (s *Signal) observe(m *Memo) {
	if s.observers == nil {
		s.observers = make(map[*Memo]struct{})
	}
	s.observers[m] = struct{}{}
}

func (s *Signal) unobserve(m *Memo) {
	delete(s.observers, m)
}

// Memo is a cached derived computation.
type Memo struct {
	rt        *Runtime
	fn        func() any
	value     any
	dirty     bool
	runs      int
	sources   map[source]struct{}
	observers map[*Memo]struct{}
}

// Get returns the cached value, recomputing first when a dependency changed
// since the last evaluation.
func (m *Memo) Get() any {
	m.rt.track(m)
	if m.dirty {
		m.recompute()
	}
	return m.value
}

// Runs reports how many times the computation has been evaluated.
func (m *Memo) Runs() int {
	return m.runs
}

// Dirty reports whether the next Get will recompute.
func (m *Memo) Dirty() bool {
	return m.dirty
}

func (m *Memo) recompute() {
	for src := range m.sources {
		src.unobserve(m)
	}
	m.sources = make(map[source]struct{})
	m.rt.push(m)
	defer m.rt.pop()
	m.value = m.fn()
	m.dirty = false
	m.runs++
}

func (m *Memo) invalidate() {
	if m.dirty {
		return
	}
	m.dirty = true
	for observer := range m.observers {
		observer.invalidate()
	}
}

func (m *Memo) observe(observer *Memo) {
	if m.observers == nil {
		m.observers = make(map[*Memo]struct{})
	}
	m.observers[observer] = struct{}{}
}

func (m *Memo) unobserve(observer *Memo) {
	delete(m.observers, observer)
}
