package syncbridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
)

func TestMemoryBridgeLoadMissing(t *testing.T) {
	bridge := NewMemoryBridge()

	_, err := bridge.Load(context.Background(), "smith")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryBridgeSavePublishesToSubscribers(t *testing.T) {
	ctx := context.Background()
	bridge := NewMemoryBridge()

	var got []domain.FamilyRecord
	unsubscribe, err := bridge.Subscribe(ctx, "smith", func(rec domain.FamilyRecord) {
		got = append(got, rec)
	})
	require.NoError(t, err)

	other := 0
	_, err = bridge.Subscribe(ctx, "jones", func(domain.FamilyRecord) { other++ })
	require.NoError(t, err)

	rec := domain.NewFamilyRecord(time.Now())
	require.NoError(t, bridge.Create(ctx, "smith", rec))
	rec.AppendSession(domain.UserDad, "2025-03-01", domain.Session{Exercise: domain.ExerciseSquats, Reps: 10})
	require.NoError(t, bridge.Save(ctx, "smith", rec))

	require.Len(t, got, 2)
	require.Equal(t, 10, got[1].Dad["2025-03-01"].TotalReps)
	require.Zero(t, other)

	unsubscribe()
	unsubscribe()
	require.NoError(t, bridge.Save(ctx, "smith", rec))
	require.Len(t, got, 2)

	loaded, err := bridge.Load(ctx, "smith")
	require.NoError(t, err)
	require.Equal(t, rec, loaded)
}

func TestMemoryBridgePublishesInStoreOrder(t *testing.T) {
	ctx := context.Background()
	bridge := NewMemoryBridge()

	var published []string
	_, err := bridge.Subscribe(ctx, "smith", func(rec domain.FamilyRecord) {
		published = append(published, rec.LastUpdated)
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := domain.NewFamilyRecord(time.Now())
			rec.LastUpdated = fmt.Sprintf("save-%02d", i)
			require.NoError(t, bridge.Save(ctx, "smith", rec))
		}()
	}
	wg.Wait()

	stored, err := bridge.Load(ctx, "smith")
	require.NoError(t, err)
	require.Len(t, published, 32)
	require.Equal(t, published[len(published)-1], stored.LastUpdated)
}

func TestMemoryBridgeStoresCopies(t *testing.T) {
	ctx := context.Background()
	bridge := NewMemoryBridge()

	rec := domain.NewFamilyRecord(time.Now())
	require.NoError(t, bridge.Save(ctx, "smith", rec))
	rec.AppendSession(domain.UserSon, "2025-03-01", domain.Session{Exercise: domain.ExerciseLunges, Reps: 3})

	loaded, err := bridge.Load(ctx, "smith")
	require.NoError(t, err)
	require.Empty(t, loaded.Son)
}

func TestHubSubscriberCount(t *testing.T) {
	hub := NewHub()
	stop := hub.Subscribe("smith", func(domain.FamilyRecord) {})
	require.Equal(t, 1, hub.Subscribers("smith"))
	require.Equal(t, 1, hub.Publish("smith", domain.NewFamilyRecord(time.Now())))

	stop()
	require.Zero(t, hub.Subscribers("smith"))
	require.Zero(t, hub.Publish("smith", domain.NewFamilyRecord(time.Now())))
}

func TestDocumentBridgeDelegatesAndUsesHub(t *testing.T) {
	ctx := context.Background()
	docs := &stubDocs{err: errors.New("db down")}
	hub := NewHub()
	bridge := NewDocumentBridge(docs, hub)

	require.Error(t, bridge.Save(ctx, "smith", domain.NewFamilyRecord(time.Now())))
	require.Equal(t, 1, docs.saves)

	delivered := 0
	_, err := bridge.Subscribe(ctx, "smith", func(domain.FamilyRecord) { delivered++ })
	require.NoError(t, err)
	hub.Publish("smith", domain.NewFamilyRecord(time.Now()))
	require.Equal(t, 1, delivered)
}

type stubDocs struct {
	saves int
	err   error
}

func (s *stubDocs) Load(context.Context, string) (domain.FamilyRecord, error) {
	return domain.FamilyRecord{}, domain.ErrNotFound
}

func (s *stubDocs) Create(context.Context, string, domain.FamilyRecord) error { return s.err }

func (s *stubDocs) Save(context.Context, string, domain.FamilyRecord) error {
	s.saves++
	return s.err
}
