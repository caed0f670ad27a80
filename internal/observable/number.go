package observable

import "sync"

// Number is an integer value that notifies its subscribers whenever it changes.
// Used to report calibration progress, which ranges from 0 to 100 and is -1 on failure.
type Number struct {
	mu    sync.RWMutex
	value int

	observers *Registry[int]
}

func NewNumber(value int) *Number {
	return &Number{
		value:     value,
		observers: NewRegistry[int](),
	}
}

func (n *Number) Get() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.value
}

// Set updates the value and notifies all subscribers, if the value changed
func (n *Number) Set(value int) {
	n.mu.Lock()
	changed := n.value != value
	n.value = value
	n.mu.Unlock()

	if changed {
		n.observers.Notify(value)
	}
}

func (n *Number) Subscribe(callback func(value int)) Handle {
	return n.observers.Subscribe(callback)
}

func (n *Number) Unsubscribe(handle Handle) bool {
	return n.observers.Unsubscribe(handle)
}
