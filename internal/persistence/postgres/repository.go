// Package postgres stores family documents in PostgreSQL and records
// change events in the transactional outbox.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kawadia/dad-son-fitness-challenge/internal/domain"
	"github.com/kawadia/dad-son-fitness-challenge/internal/events"
)

// Repository provides Postgres-backed persistence for family documents and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Load returns the stored document or domain.ErrNotFound.
func (r *Repository) Load(ctx context.Context, familyKey string) (domain.FamilyRecord, error) {
	var body []byte
	err := r.pool.QueryRow(ctx, `SELECT document FROM families WHERE family_id=$1`, familyKey).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.FamilyRecord{}, domain.ErrNotFound
		}
		return domain.FamilyRecord{}, err
	}
	return domain.DecodeFamilyRecord(body)
}

// Create inserts the initial document. An existing document is left untouched.
func (r *Repository) Create(ctx context.Context, familyKey string, initial domain.FamilyRecord) error {
	body, err := json.Marshal(initial)
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	updatedAt := lastUpdated(initial)
	tag, err := tx.Exec(ctx,
		`INSERT INTO families (family_id, document, revision, created_at, last_updated)
         VALUES ($1, $2, 1, NOW(), $3)
         ON CONFLICT (family_id) DO NOTHING`,
		familyKey, body, updatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return tx.Rollback(ctx)
	}

	if err = r.insertOutbox(ctx, tx, familyKey, 1, body, updatedAt); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	return err
}

// Save overwrites the whole document and bumps its revision.
func (r *Repository) Save(ctx context.Context, familyKey string, record domain.FamilyRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	updatedAt := lastUpdated(record)
	var revision int64
	err = tx.QueryRow(ctx,
		`INSERT INTO families (family_id, document, revision, created_at, last_updated)
         VALUES ($1, $2, 1, NOW(), $3)
         ON CONFLICT (family_id) DO UPDATE
            SET document = EXCLUDED.document,
                revision = families.revision + 1,
                last_updated = EXCLUDED.last_updated
         RETURNING revision`,
		familyKey, body, updatedAt,
	).Scan(&revision)
	if err != nil {
		return err
	}

	if err = r.insertOutbox(ctx, tx, familyKey, revision, body, updatedAt); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	return err
}

// Revision returns the current revision of a family document.
func (r *Repository) Revision(ctx context.Context, familyKey string) (int64, error) {
	var revision int64
	err := r.pool.QueryRow(ctx, `SELECT revision FROM families WHERE family_id=$1`, familyKey).Scan(&revision)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	return revision, err
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, familyKey string, revision int64, document []byte, updatedAt time.Time) error {
	payload, err := json.Marshal(events.FamilyUpdated{
		EventID:   uuid.NewString(),
		FamilyID:  familyKey,
		Revision:  revision,
		Document:  document,
		UpdatedAt: updatedAt,
	})
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[events.FamilyUpdatedType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", events.FamilyUpdatedType)
	}

	const stmt = `INSERT INTO outbox (family_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		familyKey,
		"family",
		familyKey,
		events.FamilyUpdatedType,
		meta.Topic,
		meta.SchemaSubject,
		familyKey,
		payload,
		fmt.Sprintf("%s:%d", familyKey, revision),
	)
	return err
}

func lastUpdated(rec domain.FamilyRecord) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, rec.LastUpdated); err == nil {
		return ts.UTC()
	}
	return time.Now().UTC()
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	events.FamilyUpdatedType: {
		Topic:         events.FamilyUpdatesTopic,
		SchemaSubject: events.FamilyUpdatesTopic + "-value",
	},
}
