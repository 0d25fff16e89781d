package jobs

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps jobs in process memory. Jobs are lost on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	subscribers map[string][]chan *Job
	now         func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:        make(map[string]*Job),
		subscribers: make(map[string][]chan *Job),
		now:         time.Now,
	}
}

// Create inserts a job. An existing record with the same id is replaced.
func (s *MemoryStore) Create(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := job.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	stored.UpdatedAt = stored.CreatedAt
	s.jobs[job.ID] = stored
	return nil
}

// Get returns a copy of the job.
func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return job.Clone(), nil
}

// Update merges patch into the job and notifies watchers.
func (s *MemoryStore) Update(_ context.Context, id string, patch Patch) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	next := job.Clone()
	if err := next.Apply(patch, s.now()); err != nil {
		return nil, err
	}
	s.jobs[id] = next

	for _, ch := range s.subscribers[id] {
		select {
		case ch <- next.Clone():
		default:
			// Slow watcher; it will catch up on the next change.
		}
	}
	return next.Clone(), nil
}

// Watch pushes every subsequent change of the job until ctx ends.
func (s *MemoryStore) Watch(ctx context.Context, id string) (<-chan *Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return nil, &NotFoundError{ID: id}
	}
	ch := make(chan *Job, 16)
	s.subscribers[id] = append(s.subscribers[id], ch)

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.subscribers[id]
		for i, c := range subs {
			if c == ch {
				s.subscribers[id] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(s.subscribers[id]) == 0 {
			delete(s.subscribers, id)
		}
		close(ch)
	}()
	return ch, nil
}
