package observable

import "sync"

// Listener receives every value emitted after it subscribed.
type Listener[T any] func(T)

// Cell is the observable capability a store depends on.
type Cell[T any] interface {
	Current() T
	Subscribe(listener Listener[T]) (unsubscribe func())
	Next(value T)
}

// Updater is implemented by cells that can apply a read-modify-write
// atomically. Stores prefer it over Current followed by Next.
type Updater[T any] interface {
	Update(fn func(T) T) T
}

// Subject is the default in-process Cell implementation.
type Subject[T any] struct {
	mu          sync.RWMutex
	value       T
	nextID      uint64
	subscribers []subscription[T]
}

type subscription[T any] struct {
	id       uint64
	listener Listener[T]
}

// NewSubject constructs a Subject seeded with initial.
func NewSubject[T any](initial T) *Subject[T] {
	return &Subject[T]{value: initial}
}

// Current returns the last emitted (or initial) value.
func (s *Subject[T]) Current() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Subscribe registers listener. The returned function removes it and may be
// called more than once.
func (s *Subject[T]) Subscribe(listener Listener[T]) func() {
	if listener == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subscribers = append(s.subscribers, subscription[T]{id: id, listener: listener})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

// Next stores value and notifies subscribers in registration order before
// returning.
func (s *Subject[T]) Next(value T) {
	s.mu.Lock()
	s.value = value
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(value)
	}
}

// Update replaces the value with fn applied to the current one, then notifies
// subscribers outside the lock. The read and the write happen atomically, so
// concurrent updates never lose each other; listeners may call Update again.
func (s *Subject[T]) Update(fn func(T) T) T {
	s.mu.Lock()
	value := fn(s.value)
	s.value = value
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, listener := range listeners {
		listener(value)
	}
	return value
}

// Len returns the number of active subscribers.
func (s *Subject[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

func (s *Subject[T]) snapshotListeners() []Listener[T] {
	listeners := make([]Listener[T], len(s.subscribers))
	for i, sub := range s.subscribers {
		listeners[i] = sub.listener
	}
	return listeners
}

func (s *Subject[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subscribers {
		if sub.id == id {
			s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
			return
		}
	}
}
