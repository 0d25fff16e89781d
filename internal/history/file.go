package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/fulfillment-agent/internal/types"
)

// FileStore keeps history in one JSON file, newest batch first.
type FileStore struct {
	path   string
	logger *zap.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewFileStore opens (or initializes) history at dir/history.json.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if logger == nil {
		logger = zap.L()
	}
	s := &FileStore{
		path:   filepath.Join(dir, "history.json"),
		logger: logger.Named("history"),
		now:    time.Now,
	}
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		if err := s.write(nil); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *FileStore) read() ([]types.Batch, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	var batches []types.Batch
	if err := json.Unmarshal(data, &batches); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return batches, nil
}

// write replaces the history file atomically.
func (s *FileStore) write(batches []types.Batch) error {
	if batches == nil {
		batches = []types.Batch{}
	}
	data, err := json.MarshalIndent(batches, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.json")
	if err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return nil
}

// List returns every retained batch, newest first.
func (s *FileStore) List(_ context.Context) ([]types.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Latest returns the newest batch or nil.
func (s *FileStore) Latest(_ context.Context) (*types.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batches, err := s.read()
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, nil
	}
	return &batches[0], nil
}

// Save prepends a new batch with the next sequence id and evicts beyond MaxBatches.
func (s *FileStore) Save(_ context.Context, batchType string, rows []types.OrderRow) (*types.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batches, err := s.read()
	if err != nil {
		return nil, err
	}

	var maxSeq int64
	for _, b := range batches {
		if seq, ok := ParseID(b.ID); ok && seq > maxSeq {
			maxSeq = seq
		}
	}

	batch := types.Batch{
		ID:        FormatID(maxSeq + 1),
		Timestamp: s.now().UTC(),
		Type:      batchType,
		Count:     len(rows),
		Rows:      rows,
	}

	batches = append([]types.Batch{batch}, batches...)
	if len(batches) > MaxBatches {
		batches = batches[:MaxBatches]
	}

	if err := s.write(batches); err != nil {
		return nil, err
	}
	s.logger.Info("batch saved", zap.String("batch_id", batch.ID), zap.String("type", batchType), zap.Int("rows", len(rows)))
	return &batch, nil
}

// Update replaces the rows of a batch and stamps LastModified.
func (s *FileStore) Update(_ context.Context, id string, rows []types.OrderRow) (*types.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batches, err := s.read()
	if err != nil {
		return nil, err
	}

	for i := range batches {
		if batches[i].ID != id {
			continue
		}
		now := s.now().UTC()
		batches[i].Rows = rows
		batches[i].LastModified = &now
		if err := s.write(batches); err != nil {
			return nil, err
		}
		updated := batches[i]
		return &updated, nil
	}
	return nil, &NotFoundError{ID: id}
}
