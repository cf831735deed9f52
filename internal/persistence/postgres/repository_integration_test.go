//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
	"github.com/kawadia/dad-son-fitness-challenge/internal/events"
)

func TestRepositoryStoresFamilyDocuments(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)
	repo := NewRepository(pool)

	_, err := repo.Load(ctx, "smith")
	require.ErrorIs(t, err, domain.ErrNotFound)

	rec := domain.NewFamilyRecord(time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC))
	rec.EnsureDay("2025-03-10")
	require.NoError(t, repo.Create(ctx, "smith", rec))

	// A second create must not clobber the first document.
	other := rec.Clone()
	other.AppendSession(domain.UserDad, "2025-03-10", domain.Session{Exercise: domain.ExerciseSquats, Reps: 99})
	require.NoError(t, repo.Create(ctx, "smith", other))

	loaded, err := repo.Load(ctx, "smith")
	require.NoError(t, err)
	require.Equal(t, 0, loaded.Dad["2025-03-10"].TotalReps)

	rec.AppendSession(domain.UserSon, "2025-03-10", domain.Session{Exercise: domain.ExerciseLunges, Reps: 12})
	rec.SetGoal("2025-03-10", 10)
	require.NoError(t, repo.Save(ctx, "smith", rec))

	loaded, err = repo.Load(ctx, "smith")
	require.NoError(t, err)
	require.Equal(t, rec, loaded)
	require.True(t, loaded.Son["2025-03-10"].GoalMet)

	revision, err := repo.Revision(ctx, "smith")
	require.NoError(t, err)
	require.EqualValues(t, 2, revision)
}

func TestRepositoryWritesOutboxRowPerRevision(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t, ctx)
	repo := NewRepository(pool)

	rec := domain.NewFamilyRecord(time.Now())
	require.NoError(t, repo.Create(ctx, "jones", rec))
	require.NoError(t, repo.Create(ctx, "jones", rec))
	require.NoError(t, repo.Save(ctx, "jones", rec))

	rows, err := pool.Query(ctx, `SELECT event_type, topic, partition_key, dedupe_key FROM outbox WHERE family_id = $1 ORDER BY event_id`, "jones")
	require.NoError(t, err)
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var eventType, topic, partitionKey, dedupe string
		require.NoError(t, rows.Scan(&eventType, &topic, &partitionKey, &dedupe))
		require.Equal(t, events.FamilyUpdatedType, eventType)
		require.Equal(t, events.FamilyUpdatesTopic, topic)
		require.Equal(t, "jones", partitionKey)
		keys = append(keys, dedupe)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{"jones:1", "jones:2"}, keys)
}

func startPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("fitness"),
		postgrescontainer.WithUsername("family"),
		postgrescontainer.WithPassword("family"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	runMigrations(t, ctx, pool)
	return pool
}

func runMigrations(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	files, err := filepath.Glob(filepath.Join(resolvePath(t, "../../../db/postgres/migrations"), "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	sort.Strings(files)

	for _, file := range files {
		contents, readErr := os.ReadFile(file)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoErrorf(t, execErr, "execute migration %s", file)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
