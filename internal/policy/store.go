package policy

import (
	"sync"
	"sync/atomic"
)

// ChangeListener is invoked after the active policy is replaced.
type ChangeListener func(old, updated *DevicePolicy)

// Store holds the device's active policy. Updates swap the whole object, so
// a reader always sees one coherent policy, never a half-applied update.
type Store struct {
	current atomic.Pointer[DevicePolicy]

	mu        sync.Mutex
	listeners []ChangeListener
}

// NewStore seeds the store with the given policy.
func NewStore(initial *DevicePolicy) *Store {
	s := &Store{}
	s.current.Store(initial)
	return s
}

// Current returns the active policy. Callers must treat it as read-only.
func (s *Store) Current() *DevicePolicy {
	return s.current.Load()
}

// Replace installs a new policy and notifies listeners. Listeners run on the
// caller's goroutine, after the swap, in registration order.
func (s *Store) Replace(updated *DevicePolicy) {
	old := s.current.Swap(updated)

	s.mu.Lock()
	listeners := make([]ChangeListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(old, updated)
	}
}

// OnChange registers a listener for policy replacements.
func (s *Store) OnChange(fn ChangeListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}
