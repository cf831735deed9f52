package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
	"github.com/kawadia/dad-son-fitness-challenge/internal/events"
)

// Publisher fans a family document out to live subscribers.
type Publisher interface {
	Publish(familyKey string, record domain.FamilyRecord) int
}

// SnapshotHandler turns family.updated events into hub publications.
// Revisions at or below the last one seen for a family are dropped.
type SnapshotHandler struct {
	publisher Publisher

	mu       sync.Mutex
	revision map[string]int64
}

// NewSnapshotHandler constructs a SnapshotHandler.
func NewSnapshotHandler(publisher Publisher) *SnapshotHandler {
	return &SnapshotHandler{
		publisher: publisher,
		revision:  make(map[string]int64),
	}
}

// Handle implements Handler.
func (h *SnapshotHandler) Handle(_ context.Context, msg Message) error {
	if msg.EventType != events.FamilyUpdatedType {
		return nil
	}

	var evt events.FamilyUpdated
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		return fmt.Errorf("decode %s: %w", msg.EventType, err)
	}
	if evt.FamilyID == "" {
		evt.FamilyID = msg.FamilyID
	}
	if evt.FamilyID == "" {
		return fmt.Errorf("%s without family id", msg.EventType)
	}

	rec, err := domain.DecodeFamilyRecord(evt.Document)
	if err != nil {
		return err
	}

	if !h.advance(evt.FamilyID, evt.Revision) {
		recordStaleSnapshot(msg.Topic)
		return nil
	}

	h.publisher.Publish(evt.FamilyID, rec)
	return nil
}

func (h *SnapshotHandler) advance(familyID string, revision int64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if last, ok := h.revision[familyID]; ok && revision <= last {
		return false
	}
	h.revision[familyID] = revision
	return true
}
