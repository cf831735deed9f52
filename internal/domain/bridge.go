package domain

import "context"

// Unsubscribe stops a subscription. It is safe to call more than once.
type Unsubscribe func()

// SyncBridge persists family documents and pushes remote changes.
//
// Load returns ErrNotFound when no document exists. Save is a full overwrite.
// Subscribe delivers every committed change, including the caller's own writes.
type SyncBridge interface {
	Load(ctx context.Context, familyKey string) (FamilyRecord, error)
	Create(ctx context.Context, familyKey string, initial FamilyRecord) error
	Save(ctx context.Context, familyKey string, record FamilyRecord) error
	Subscribe(ctx context.Context, familyKey string, onChange func(FamilyRecord)) (Unsubscribe, error)
}
