package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRedisTTL bounds how long finished job records are kept.
const DefaultRedisTTL = 24 * time.Hour

const (
	redisKeyPrefix    = "fulfillment:job:"
	maxUpdateAttempts = 10
)

// RedisStore keeps jobs as JSON values with a TTL and publishes every change on a per-job
// channel. Updates use optimistic WATCH/MULTI transactions.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisStore wraps a connected client.
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, ttl: ttl, logger: logger, now: time.Now}
}

func jobKey(id string) string {
	return redisKeyPrefix + id
}

func eventsChannel(id string) string {
	return redisKeyPrefix + id + ":events"
}

// Create stores a new job record.
func (s *RedisStore) Create(ctx context.Context, job *Job) error {
	stored := job.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	stored.UpdatedAt = stored.CreatedAt

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := s.client.Set(ctx, jobKey(job.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store job %s: %w", job.ID, err)
	}
	return nil
}

// Get loads a job record.
func (s *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	data, err := s.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", id, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", id, err)
	}
	return &job, nil
}

// Update merges patch into the stored job, retrying when another writer races it.
func (s *RedisStore) Update(ctx context.Context, id string, patch Patch) (*Job, error) {
	key := jobKey(id)
	var updated *Job

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return &NotFoundError{ID: id}
		}
		if err != nil {
			return err
		}
		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			return fmt.Errorf("failed to decode job %s: %w", id, err)
		}
		if err := job.Apply(patch, s.now()); err != nil {
			return err
		}
		encoded, err := json.Marshal(&job)
		if err != nil {
			return fmt.Errorf("failed to encode job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			pipe.Publish(ctx, eventsChannel(id), encoded)
			return nil
		})
		if err == nil {
			updated = &job
		}
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("failed to update job %s: too much contention", id)
}

// Watch subscribes to change events for the job.
func (s *RedisStore) Watch(ctx context.Context, id string) (<-chan *Job, error) {
	pubsub := s.client.Subscribe(ctx, eventsChannel(id))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to job %s: %w", id, err)
	}

	out := make(chan *Job, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var job Job
				if err := json.Unmarshal([]byte(msg.Payload), &job); err != nil {
					s.logger.Warn("discarding malformed job event", zap.String("job_id", id), zap.Error(err))
					continue
				}
				select {
				case out <- &job:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
