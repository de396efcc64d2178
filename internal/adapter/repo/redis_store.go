package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"letterbanner/internal/domain"
)

const (
	defaultRedisPrefix = "letterbanner:"
	maxUpdateRetries   = 16
)

// RedisJobStore keeps each job as a JSON value with a TTL, plus a sorted set
// of ids scored by creation time for sweeping and stats.
type RedisJobStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisJobStore builds a store. ttl <= 0 keeps jobs until swept.
func NewRedisJobStore(client *redis.Client, prefix string, ttl time.Duration) *RedisJobStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisJobStore{client: client, prefix: prefix, ttl: ttl, now: time.Now}
}

func (s *RedisJobStore) jobKey(id string) string { return s.prefix + "job:" + id }
func (s *RedisJobStore) indexKey() string        { return s.prefix + "jobs" }

func (s *RedisJobStore) Create(ctx context.Context, job *domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("repo: encode job: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.jobKey(job.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("repo: store job: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: job %s", domain.ErrDuplicateOperation, job.ID)
	}
	score := float64(job.CreatedAt.Unix())
	if err := s.client.ZAdd(ctx, s.indexKey(), redis.Z{Score: score, Member: job.ID}).Err(); err != nil {
		return fmt.Errorf("repo: index job: %w", err)
	}
	return nil
}

func (s *RedisJobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	data, err := s.client.Get(ctx, s.jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("repo: load job: %w", err)
	}
	return decodeJob(data)
}

// Update runs fn under WATCH and retries when another writer got in first.
func (s *RedisJobStore) Update(ctx context.Context, id string, fn func(*domain.Job) error) (*domain.Job, error) {
	key := s.jobKey(id)
	var updated *domain.Job
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("repo: load job: %w", err)
		}
		job, err := decodeJob(data)
		if err != nil {
			return err
		}
		if err := fn(job); err != nil {
			return err
		}
		job.UpdatedAt = s.now()
		encoded, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("repo: encode job: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, redis.KeepTTL)
			return nil
		})
		if err == nil {
			updated = job
		}
		return err
	}
	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("repo: update job %s: too much contention", id)
}

func (s *RedisJobStore) SweepExpired(ctx context.Context, cutoff time.Time) ([]domain.Job, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("repo: scan index: %w", err)
	}
	var removed []domain.Job
	for _, id := range ids {
		job, err := s.Get(ctx, id)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			return removed, err
		default:
			removed = append(removed, *job)
		}
		pipe := s.client.TxPipeline()
		pipe.Del(ctx, s.jobKey(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		if _, err := pipe.Exec(ctx); err != nil {
			return removed, fmt.Errorf("repo: delete job %s: %w", id, err)
		}
	}
	return removed, nil
}

// Stats counts indexed jobs. Index entries whose value expired are pruned.
func (s *RedisJobStore) Stats(ctx context.Context) (domain.JobStats, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return domain.JobStats{}, fmt.Errorf("repo: read index: %w", err)
	}
	if len(ids) == 0 {
		return domain.JobStats{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.jobKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return domain.JobStats{}, fmt.Errorf("repo: load jobs: %w", err)
	}
	var stats domain.JobStats
	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		stats.Total++
		job, err := decodeJob([]byte(raw))
		if err == nil && job.Status.Active() {
			stats.Active++
		}
	}
	if len(stale) > 0 {
		_ = s.client.ZRem(ctx, s.indexKey(), stale...).Err()
	}
	return stats, nil
}

func decodeJob(data []byte) (*domain.Job, error) {
	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("repo: decode job: %w", err)
	}
	return &job, nil
}

var _ domain.JobStore = (*RedisJobStore)(nil)
