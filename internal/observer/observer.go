// Package observer provides typed events with an ordered list of handlers.
//
// A Subject is owned by a single execution context. Publish invokes every
// handler synchronously, in subscription order, on the caller's goroutine.
package observer

import "sync"

// Handler receives published values.
type Handler[T any] func(T)

// Subject is a typed event source.
type Subject[T any] struct {
	mu       sync.Mutex
	nextID   int
	handlers []subscription[T]
}

type subscription[T any] struct {
	id int
	fn Handler[T]
}

// Subscribe registers fn and returns a function that removes it.
func (s *Subject[T]) Subscribe(fn Handler[T]) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.handlers = append(s.handlers, subscription[T]{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, h := range s.handlers {
			if h.id == id {
				s.handlers = append(s.handlers[:i:i], s.handlers[i+1:]...)
				return
			}
		}
	}
}

// Publish calls every handler with v. Handlers added or removed during
// Publish take effect on the next call.
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	handlers := make([]subscription[T], len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, h := range handlers {
		h.fn(v)
	}
}

// Len returns the number of registered handlers.
func (s *Subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}
