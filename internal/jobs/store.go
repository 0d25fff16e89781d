package jobs

import (
	"context"
	"fmt"
	"time"
)

// Store persists job records. Implementations serialize updates per job and reject illegal
// transitions with a *TransitionError.
type Store interface {
	Create(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	Update(ctx context.Context, id string, patch Patch) (*Job, error)
}

// Watcher is implemented by stores that can push job changes.
// The channel is closed when ctx ends.
type Watcher interface {
	Watch(ctx context.Context, id string) (<-chan *Job, error)
}

// NotFoundError is returned for unknown job ids.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job not found: %s", e.ID)
}

// DefaultPollInterval is used by Watch for stores that cannot push changes.
const DefaultPollInterval = 500 * time.Millisecond

// Watch streams snapshots of a job until it reaches a terminal status or ctx ends.
// The first snapshot is the current record. Stores implementing Watcher push changes; others
// are polled every interval.
func Watch(ctx context.Context, store Store, id string, interval time.Duration) (<-chan *Job, error) {
	current, err := store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	out := make(chan *Job, 1)
	out <- current
	if current.Status.Terminal() {
		close(out)
		return out, nil
	}

	var pushed <-chan *Job
	if w, ok := store.(Watcher); ok {
		pushed, err = w.Watch(ctx, id)
		if err != nil {
			pushed = nil
		}
	}

	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		last := current.UpdatedAt
		emit := func(job *Job) bool {
			if job.UpdatedAt.After(last) || job.Status.Terminal() {
				last = job.UpdatedAt
				select {
				case out <- job:
				case <-ctx.Done():
					return false
				}
			}
			return !job.Status.Terminal()
		}

		for {
			select {
			case <-ctx.Done():
				return
			case job, ok := <-pushed:
				if !ok {
					pushed = nil
					continue
				}
				if !emit(job) {
					return
				}
			case <-ticker.C:
				job, err := store.Get(ctx, id)
				if err != nil {
					return
				}
				if !emit(job) {
					return
				}
			}
		}
	}()
	return out, nil
}
