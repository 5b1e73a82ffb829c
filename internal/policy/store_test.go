package policy

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreReplaceSwapsWholePolicy(t *testing.T) {
	initial := DefaultDevicePolicy("device-1")
	s := NewStore(initial)

	updated := StrictDevicePolicy("device-1")
	s.Replace(updated)

	assert.Same(t, updated, s.Current())
}

func TestStoreNotifiesListenersInOrder(t *testing.T) {
	initial := DefaultDevicePolicy("device-1")
	s := NewStore(initial)

	var calls []string
	s.OnChange(func(old, updated *DevicePolicy) {
		calls = append(calls, "first:"+old.ID+"->"+updated.ID)
	})
	s.OnChange(func(old, updated *DevicePolicy) {
		calls = append(calls, "second")
	})

	updated := StrictDevicePolicy("device-1")
	s.Replace(updated)

	assert.Equal(t, []string{
		"first:default_device-1->strict_device-1",
		"second",
	}, calls)
}

func TestStoreConcurrentReadersSeeCoherentPolicy(t *testing.T) {
	s := NewStore(DefaultDevicePolicy("device-1"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p := s.Current()
				// Every observed policy is one of the two complete
				// objects, never a blend.
				assert.Contains(t, []string{"default_device-1", "strict_device-1"}, p.ID)
			}
		}()
	}
	for j := 0; j < 50; j++ {
		if j%2 == 0 {
			s.Replace(StrictDevicePolicy("device-1"))
		} else {
			s.Replace(DefaultDevicePolicy("device-1"))
		}
	}
	wg.Wait()
}
