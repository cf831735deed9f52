package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
	"github.com/kawadia/dad-son-fitness-challenge/internal/observability"
)

type entry struct {
	store  *Store
	cancel context.CancelFunc
}

// Registry tracks the families connected in this process.
type Registry struct {
	bridge       domain.SyncBridge
	dateInterval time.Duration
	opts         []Option

	mu      sync.Mutex
	stores  map[string]entry
	pending map[string]chan struct{}
}

// NewRegistry constructs a Registry. Every store it creates checks for a
// date change once per dateInterval.
func NewRegistry(bridge domain.SyncBridge, dateInterval time.Duration, opts ...Option) *Registry {
	return &Registry{
		bridge:       bridge,
		dateInterval: dateInterval,
		opts:         opts,
		stores:       make(map[string]entry),
		pending:      make(map[string]chan struct{}),
	}
}

// Connect returns the live store for rawFamilyID, connecting it first if needed.
// Concurrent calls for one family share a single connection attempt; other
// families stay reachable while it is in flight.
func (r *Registry) Connect(ctx context.Context, rawFamilyID string) (*Store, error) {
	key, err := domain.NormalizeFamilyID(rawFamilyID)
	if err != nil {
		return nil, err
	}

	for {
		r.mu.Lock()
		if e, ok := r.stores[key]; ok {
			r.mu.Unlock()
			return e.store, nil
		}
		wait, busy := r.pending[key]
		if !busy {
			done := make(chan struct{})
			r.pending[key] = done
			r.mu.Unlock()
			return r.connect(ctx, key, done)
		}
		r.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (r *Registry) connect(ctx context.Context, key string, done chan struct{}) (*Store, error) {
	store := NewStore(key, r.bridge, r.opts...)
	connectErr := store.Connect(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, key)
	close(done)

	if connectErr != nil {
		store.Disconnect()
		return nil, connectErr
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	go store.WatchDate(watchCtx, r.dateInterval)

	r.stores[key] = entry{store: store, cancel: cancel}
	observability.SetConnectedFamilies(len(r.stores))
	return store, nil
}

// Get returns the live store for rawFamilyID.
func (r *Registry) Get(rawFamilyID string) (*Store, error) {
	key, err := domain.NormalizeFamilyID(rawFamilyID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.stores[key]
	if !ok {
		return nil, domain.ErrNotConnected
	}
	return e.store, nil
}

// Disconnect stops the family's subscription and date watcher.
func (r *Registry) Disconnect(rawFamilyID string) error {
	key, err := domain.NormalizeFamilyID(rawFamilyID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	e, ok := r.stores[key]
	delete(r.stores, key)
	observability.SetConnectedFamilies(len(r.stores))
	r.mu.Unlock()

	if !ok {
		return domain.ErrNotConnected
	}
	e.cancel()
	e.store.Disconnect()
	return nil
}

// Close disconnects every family.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.stores
	r.stores = make(map[string]entry)
	observability.SetConnectedFamilies(0)
	r.mu.Unlock()

	for _, e := range entries {
		e.cancel()
		e.store.Disconnect()
	}
}
