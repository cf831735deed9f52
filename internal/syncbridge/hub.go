// Package syncbridge provides SyncBridge implementations and the subscription
// fan-out they share.
package syncbridge

import (
	"sync"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
)

// Hub delivers family snapshots to the callbacks subscribed to that family.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[uint64]func(domain.FamilyRecord)
	next uint64
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]func(domain.FamilyRecord))}
}

// Subscribe registers onChange for familyKey.
func (h *Hub) Subscribe(familyKey string, onChange func(domain.FamilyRecord)) domain.Unsubscribe {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.next
	h.next++
	if h.subs[familyKey] == nil {
		h.subs[familyKey] = make(map[uint64]func(domain.FamilyRecord))
	}
	h.subs[familyKey][id] = onChange

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[familyKey], id)
			if len(h.subs[familyKey]) == 0 {
				delete(h.subs, familyKey)
			}
		})
	}
}

// Publish hands a copy of rec to every subscriber of familyKey and returns how many were called.
// Callbacks run on the caller's goroutine without the hub lock held.
func (h *Hub) Publish(familyKey string, rec domain.FamilyRecord) int {
	h.mu.RLock()
	callbacks := make([]func(domain.FamilyRecord), 0, len(h.subs[familyKey]))
	for _, fn := range h.subs[familyKey] {
		callbacks = append(callbacks, fn)
	}
	h.mu.RUnlock()

	for _, fn := range callbacks {
		fn(rec.Clone())
	}
	return len(callbacks)
}

// Subscribers returns the number of callbacks registered for familyKey.
func (h *Hub) Subscribers(familyKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[familyKey])
}
