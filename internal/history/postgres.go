package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/fulfillment-agent/internal/types"
)

// PostgresStore keeps history in the batches table. Batch ids are the zero-padded seq column.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

const batchColumns = "seq, created_at, type, row_count, rows, last_modified"

func scanBatch(scan func(dest ...any) error) (*types.Batch, error) {
	var (
		b            types.Batch
		seq          int64
		rows         []byte
		lastModified sql.NullTime
	)
	if err := scan(&seq, &b.Timestamp, &b.Type, &b.Count, &rows, &lastModified); err != nil {
		return nil, err
	}
	b.ID = FormatID(seq)
	if err := json.Unmarshal(rows, &b.Rows); err != nil {
		return nil, fmt.Errorf("failed to decode rows of batch %s: %w", b.ID, err)
	}
	if lastModified.Valid {
		t := lastModified.Time
		b.LastModified = &t
	}
	return &b, nil
}

// Latest returns the newest batch or nil.
func (s *PostgresStore) Latest(ctx context.Context) (*types.Batch, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+batchColumns+" FROM batches ORDER BY seq DESC LIMIT 1")
	b, err := scanBatch(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest batch: %w", err)
	}
	return b, nil
}

// List returns retained batches, newest first.
func (s *PostgresStore) List(ctx context.Context) ([]types.Batch, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+batchColumns+" FROM batches ORDER BY seq DESC LIMIT $1", MaxBatches)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var batches []types.Batch
	for rows.Next() {
		b, err := scanBatch(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return batches, nil
}

// Save inserts a batch and prunes everything beyond MaxBatches in one transaction.
func (s *PostgresStore) Save(ctx context.Context, batchType string, rows []types.OrderRow) (*types.Batch, error) {
	if rows == nil {
		rows = []types.OrderRow{}
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rows: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created := s.now().UTC()
	var seq int64
	err = tx.QueryRowContext(ctx,
		"INSERT INTO batches (created_at, type, row_count, rows) VALUES ($1, $2, $3, $4) RETURNING seq",
		created, batchType, len(rows), payload,
	).Scan(&seq)
	if err != nil {
		return nil, fmt.Errorf("failed to insert batch: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"DELETE FROM batches WHERE seq NOT IN (SELECT seq FROM batches ORDER BY seq DESC LIMIT $1)",
		MaxBatches,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to prune batches: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}

	return &types.Batch{
		ID:        FormatID(seq),
		Timestamp: created,
		Type:      batchType,
		Count:     len(rows),
		Rows:      rows,
	}, nil
}

// Update replaces the rows of a batch.
func (s *PostgresStore) Update(ctx context.Context, id string, rows []types.OrderRow) (*types.Batch, error) {
	seq, ok := ParseID(id)
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	if rows == nil {
		rows = []types.OrderRow{}
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rows: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		"UPDATE batches SET rows = $1, last_modified = $2 WHERE seq = $3 RETURNING "+batchColumns,
		payload, s.now().UTC(), seq,
	)
	b, err := scanBatch(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update batch: %w", err)
	}
	return b, nil
}
