// Package observable provides a minimal reactive cell.
package observable

import "sync"

// Value holds a value of type T and notifies subscribers synchronously,
// on the caller's goroutine, every time Set is called. Subscribing does not
// replay the current value.
type Value[T any] struct {
	mu       sync.Mutex
	value    T
	nextID   int
	handlers map[int]func(T)
	order    []int
}

// New returns a Value holding initial.
func New[T any](initial T) *Value[T] {
	return &Value[T]{
		value:    initial,
		handlers: make(map[int]func(T)),
	}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// Set stores value and calls every current subscriber with it, in
// subscription order. Handlers run without the lock held, so they may call
// Get, Subscribe or the returned unsubscribe function.
func (v *Value[T]) Set(value T) {
	v.mu.Lock()
	v.value = value
	handlers := make([]func(T), 0, len(v.order))
	for _, id := range v.order {
		handlers = append(handlers, v.handlers[id])
	}
	v.mu.Unlock()

	for _, h := range handlers {
		h(value)
	}
}

// Subscribe registers handler and returns a function that removes it.
func (v *Value[T]) Subscribe(handler func(T)) (unsubscribe func()) {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.handlers[id] = handler
	v.order = append(v.order, id)
	v.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			delete(v.handlers, id)
			for i, oid := range v.order {
				if oid == id {
					v.order = append(v.order[:i:i], v.order[i+1:]...)
					break
				}
			}
		})
	}
}
