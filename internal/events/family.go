// Package events defines payloads exchanged over Kafka.
package events

import (
	"encoding/json"
	"time"
)

const (
	// FamilyUpdatedType is the outbox event type for a committed family document.
	FamilyUpdatedType = "family.updated"
	// FamilyUpdatesTopic carries FamilyUpdated events keyed by family id.
	FamilyUpdatesTopic = "family_updates"
)

// FamilyUpdated is emitted after every create or save of a family document.
type FamilyUpdated struct {
	EventID   string          `json:"event_id"`
	FamilyID  string          `json:"family_id"`
	Revision  int64           `json:"revision"`
	Document  json.RawMessage `json:"document"`
	UpdatedAt time.Time       `json:"updated_at"`
}
