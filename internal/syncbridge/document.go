package syncbridge

import (
	"context"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
)

// DocumentStore persists whole family documents.
type DocumentStore interface {
	Load(ctx context.Context, familyKey string) (domain.FamilyRecord, error)
	Create(ctx context.Context, familyKey string, initial domain.FamilyRecord) error
	Save(ctx context.Context, familyKey string, record domain.FamilyRecord) error
}

// DocumentBridge pairs a durable DocumentStore with a Hub that is fed
// asynchronously, typically by the Kafka snapshot consumer.
type DocumentBridge struct {
	docs DocumentStore
	hub  *Hub
}

// NewDocumentBridge constructs a DocumentBridge.
func NewDocumentBridge(docs DocumentStore, hub *Hub) *DocumentBridge {
	return &DocumentBridge{docs: docs, hub: hub}
}

// Load implements domain.SyncBridge.
func (b *DocumentBridge) Load(ctx context.Context, familyKey string) (domain.FamilyRecord, error) {
	return b.docs.Load(ctx, familyKey)
}

// Create implements domain.SyncBridge.
func (b *DocumentBridge) Create(ctx context.Context, familyKey string, initial domain.FamilyRecord) error {
	return b.docs.Create(ctx, familyKey, initial)
}

// Save implements domain.SyncBridge.
func (b *DocumentBridge) Save(ctx context.Context, familyKey string, record domain.FamilyRecord) error {
	return b.docs.Save(ctx, familyKey, record)
}

// Subscribe implements domain.SyncBridge.
func (b *DocumentBridge) Subscribe(_ context.Context, familyKey string, onChange func(domain.FamilyRecord)) (domain.Unsubscribe, error) {
	return b.hub.Subscribe(familyKey, onChange), nil
}
