package observable

import (
	"sync"

	"github.com/google/uuid"
)

// Handle identifies a single subscription of a Registry
type Handle = uuid.UUID

// Registry maps subscription handles to callbacks.
// It uses its own lock, so callbacks may be registered or removed while
// the owner of the registry holds any of its own locks.
type Registry[T any] struct {
	mu        sync.RWMutex
	callbacks map[Handle]func(T)
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		callbacks: map[Handle]func(T){},
	}
}

// Subscribe registers the given callback and returns a handle that can be used to unsubscribe it again
func (r *Registry[T]) Subscribe(callback func(T)) Handle {
	handle := uuid.New()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[handle] = callback
	return handle
}

// Unsubscribe removes the callback registered for the given handle,
// returns false if no such subscription exists
func (r *Registry[T]) Unsubscribe(handle Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.callbacks[handle]
	delete(r.callbacks, handle)
	return exists
}

func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.callbacks)
}

// Notify synchronously calls every registered callback with the given value
func (r *Registry[T]) Notify(value T) {
	r.mu.RLock()
	callbacks := make([]func(T), 0, len(r.callbacks))
	for _, callback := range r.callbacks {
		callbacks = append(callbacks, callback)
	}
	r.mu.RUnlock()

	for _, callback := range callbacks {
		callback(value)
	}
}
