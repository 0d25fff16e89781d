package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PostgresStore keeps jobs in the fulfillment_jobs table. Updates lock the row for the
// duration of the merge.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore creates a store on an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Create inserts a job record.
func (s *PostgresStore) Create(ctx context.Context, job *Job) error {
	stored := job.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	stored.UpdatedAt = stored.CreatedAt

	record, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO fulfillment_jobs (id, status, record, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		stored.ID, string(stored.Status), record, stored.CreatedAt, stored.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert job %s: %w", job.ID, err)
	}
	return nil
}

// Get loads a job record.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Job, error) {
	var record []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM fulfillment_jobs WHERE id = $1`, id).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	return decodeJob(id, record)
}

// Update merges patch into the job inside a transaction.
func (s *PostgresStore) Update(ctx context.Context, id string, patch Patch) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var record []byte
	err = tx.QueryRowContext(ctx,
		`SELECT record FROM fulfillment_jobs WHERE id = $1 FOR UPDATE`, id).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock job %s: %w", id, err)
	}

	job, err := decodeJob(id, record)
	if err != nil {
		return nil, err
	}
	if err := job.Apply(patch, s.now()); err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE fulfillment_jobs SET status = $2, record = $3, updated_at = $4 WHERE id = $1`,
		id, string(job.Status), encoded, job.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update job %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit job %s: %w", id, err)
	}
	return job, nil
}

func decodeJob(id string, record []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(record, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", id, err)
	}
	return &job, nil
}
