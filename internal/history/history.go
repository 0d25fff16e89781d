// Package history persists export batches. The newest batch is the input of every shipping job.
package history

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jonathan/fulfillment-agent/internal/types"
)

// MaxBatches is the number of batches retained; older ones are evicted.
const MaxBatches = 50

// Store persists batches. List returns newest first and Latest returns nil, nil when empty.
type Store interface {
	Latest(ctx context.Context) (*types.Batch, error)
	List(ctx context.Context) ([]types.Batch, error)
	Save(ctx context.Context, batchType string, rows []types.OrderRow) (*types.Batch, error)
	Update(ctx context.Context, id string, rows []types.OrderRow) (*types.Batch, error)
}

// NotFoundError is returned when a batch id is unknown.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("batch not found: %s", e.ID)
}

// FormatID renders a batch sequence number as a zero-padded id.
func FormatID(seq int64) string {
	return fmt.Sprintf("%06d", seq)
}

// ParseID returns the sequence number of a batch id.
func ParseID(id string) (int64, bool) {
	seq, err := strconv.ParseInt(id, 10, 64)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

// AverageShippingCost averages the positive shipping costs recorded on rows across batches.
// ok is false when no row carries one.
func AverageShippingCost(batches []types.Batch) (avg float64, ok bool) {
	var sum float64
	var n int
	for _, b := range batches {
		for _, r := range b.Rows {
			if r.ShippingCost != nil && *r.ShippingCost > 0 {
				sum += *r.ShippingCost
				n++
			}
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
