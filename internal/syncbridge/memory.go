package syncbridge

import (
	"context"
	"sync"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
)

// MemoryBridge keeps family documents in process memory for local development.
// Every create or save is published to subscribers before it returns, and
// subscribers see saves in the order they were stored.
type MemoryBridge struct {
	writeMu sync.Mutex // held across store and publish

	mu   sync.Mutex
	docs map[string]domain.FamilyRecord
	hub  *Hub
}

// NewMemoryBridge constructs an empty MemoryBridge.
func NewMemoryBridge() *MemoryBridge {
	return &MemoryBridge{
		docs: make(map[string]domain.FamilyRecord),
		hub:  NewHub(),
	}
}

// Load implements domain.SyncBridge.
func (b *MemoryBridge) Load(ctx context.Context, familyKey string) (domain.FamilyRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.FamilyRecord{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.docs[familyKey]
	if !ok {
		return domain.FamilyRecord{}, domain.ErrNotFound
	}
	return rec.Clone(), nil
}

// Create implements domain.SyncBridge.
func (b *MemoryBridge) Create(ctx context.Context, familyKey string, initial domain.FamilyRecord) error {
	return b.Save(ctx, familyKey, initial)
}

// Save implements domain.SyncBridge.
func (b *MemoryBridge) Save(ctx context.Context, familyKey string, record domain.FamilyRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	b.mu.Lock()
	b.docs[familyKey] = record.Clone()
	b.mu.Unlock()

	b.hub.Publish(familyKey, record)
	return nil
}

// Subscribe implements domain.SyncBridge.
func (b *MemoryBridge) Subscribe(_ context.Context, familyKey string, onChange func(domain.FamilyRecord)) (domain.Unsubscribe, error) {
	return b.hub.Subscribe(familyKey, onChange), nil
}
