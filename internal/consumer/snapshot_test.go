package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
	"github.com/kawadia/dad-son-fitness-challenge/internal/events"
	"github.com/kawadia/dad-son-fitness-challenge/internal/syncbridge"
)

func TestSnapshotHandlerPublishesToHub(t *testing.T) {
	hub := syncbridge.NewHub()
	var got []domain.FamilyRecord
	hub.Subscribe("smith", func(rec domain.FamilyRecord) { got = append(got, rec) })

	handler := NewSnapshotHandler(hub)

	rec := domain.NewFamilyRecord(time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC))
	rec.AppendSession(domain.UserDad, "2025-03-10", domain.Session{Exercise: domain.ExercisePushups, Reps: 25})

	require.NoError(t, handler.Handle(context.Background(), snapshotMessage(t, "smith", 1, rec)))
	require.Len(t, got, 1)
	require.Equal(t, 25, got[0].Dad["2025-03-10"].TotalReps)
	require.NotNil(t, got[0].Son)
}

func TestSnapshotHandlerDropsStaleRevisions(t *testing.T) {
	hub := syncbridge.NewHub()
	delivered := 0
	hub.Subscribe("smith", func(domain.FamilyRecord) { delivered++ })

	handler := NewSnapshotHandler(hub)
	rec := domain.NewFamilyRecord(time.Now())

	require.NoError(t, handler.Handle(context.Background(), snapshotMessage(t, "smith", 3, rec)))
	require.NoError(t, handler.Handle(context.Background(), snapshotMessage(t, "smith", 2, rec)))
	require.NoError(t, handler.Handle(context.Background(), snapshotMessage(t, "smith", 3, rec)))
	require.NoError(t, handler.Handle(context.Background(), snapshotMessage(t, "smith", 4, rec)))
	require.Equal(t, 2, delivered)
}

func TestSnapshotHandlerIgnoresOtherEventTypes(t *testing.T) {
	hub := syncbridge.NewHub()
	delivered := 0
	hub.Subscribe("smith", func(domain.FamilyRecord) { delivered++ })

	handler := NewSnapshotHandler(hub)
	err := handler.Handle(context.Background(), Message{EventType: "family.deleted", Payload: json.RawMessage(`not json`)})
	require.NoError(t, err)
	require.Zero(t, delivered)
}

func TestSnapshotHandlerRejectsBadDocument(t *testing.T) {
	handler := NewSnapshotHandler(syncbridge.NewHub())
	payload, err := json.Marshal(events.FamilyUpdated{
		FamilyID: "smith",
		Revision: 1,
		Document: json.RawMessage(`"oops"`),
	})
	require.NoError(t, err)

	err = handler.Handle(context.Background(), Message{EventType: events.FamilyUpdatedType, Payload: payload})
	require.Error(t, err)
}

func snapshotMessage(t *testing.T, familyID string, revision int64, rec domain.FamilyRecord) Message {
	t.Helper()

	doc, err := json.Marshal(rec)
	require.NoError(t, err)
	payload, err := json.Marshal(events.FamilyUpdated{
		EventID:   "evt",
		FamilyID:  familyID,
		Revision:  revision,
		Document:  doc,
		UpdatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	return Message{
		Topic:     events.FamilyUpdatesTopic,
		EventType: events.FamilyUpdatedType,
		FamilyID:  familyID,
		Payload:   payload,
	}
}
