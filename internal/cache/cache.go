// Package cache is a read-through Redis cache in front of the job store.
// It is strictly an accelerator: every miss or Redis error falls back to
// the store, and writes invalidate before updating.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medforge/casgen/internal/config"
	"github.com/medforge/casgen/internal/store"
	"github.com/medforge/casgen/internal/types"
)

// ErrTemplateNotFound is returned when a named template does not exist.
var ErrTemplateNotFound = errors.New("template not found")

// JobCache caches job records by ID. Running jobs get a short TTL so
// progress stays fresh; terminal jobs are frozen and cache for longer.
type JobCache struct {
	inner store.Store
	rdb   *redis.Client
}

// New wraps a store with the Redis cache. redisURL is a redis:// URL.
func New(inner store.Store, redisURL string) (*JobCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &JobCache{inner: inner, rdb: redis.NewClient(opt)}, nil
}

// NewWithClient wraps a store with an existing client. Used in tests.
func NewWithClient(inner store.Store, rdb *redis.Client) *JobCache {
	return &JobCache{inner: inner, rdb: rdb}
}

// Close releases the Redis connection pool.
func (c *JobCache) Close() error {
	return c.rdb.Close()
}

func jobKey(jobID string) string {
	return "casgen:job:" + jobID
}

func jobTTL(job *types.Job) time.Duration {
	if job.Status.Terminal() {
		return config.TerminalJobTTL
	}
	return config.RunningJobTTL
}

func (c *JobCache) CreateJob(ctx context.Context, job *types.Job) error {
	if err := c.inner.CreateJob(ctx, job); err != nil {
		return err
	}
	c.fill(ctx, job)
	return nil
}

func (c *JobCache) UpdateJob(ctx context.Context, job *types.Job) error {
	// Invalidate first so a crash between store write and cache fill
	// leaves a miss, not a stale record.
	c.rdb.Del(ctx, jobKey(job.JobID))
	if err := c.inner.UpdateJob(ctx, job); err != nil {
		return err
	}
	c.fill(ctx, job)
	return nil
}

func (c *JobCache) GetJob(ctx context.Context, jobID string) (*types.Job, error) {
	if data, err := c.rdb.Get(ctx, jobKey(jobID)).Bytes(); err == nil {
		var job types.Job
		if err := json.Unmarshal(data, &job); err == nil {
			return &job, nil
		}
		c.rdb.Del(ctx, jobKey(jobID))
	}

	job, err := c.inner.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, job)
	return job, nil
}

// ListJobs always hits the store; the listing is paginated and cheap
// relative to per-job polling.
func (c *JobCache) ListJobs(ctx context.Context, limit, offset int) ([]*types.Job, int, error) {
	return c.inner.ListJobs(ctx, limit, offset)
}

func (c *JobCache) DeleteJob(ctx context.Context, jobID string) error {
	c.rdb.Del(ctx, jobKey(jobID))
	return c.inner.DeleteJob(ctx, jobID)
}

func (c *JobCache) fill(ctx context.Context, job *types.Job) {
	data, err := json.Marshal(job)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, jobKey(job.JobID), data, jobTTL(job))
}

func templateKey(name string) string {
	return "casgen:template:" + name
}

// PutTemplate stores a named scenario configuration for reuse.
// Templates live only in Redis and expire after config.TemplateTTL.
func (c *JobCache) PutTemplate(ctx context.Context, name string, body []byte) error {
	return c.rdb.Set(ctx, templateKey(name), body, config.TemplateTTL).Err()
}

// GetTemplate returns a stored template body, or ErrTemplateNotFound
// when the name is absent or has expired.
func (c *JobCache) GetTemplate(ctx context.Context, name string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, templateKey(name)).Bytes()
	if err == redis.Nil {
		return nil, ErrTemplateNotFound
	}
	return data, err
}

// DeleteTemplate removes a stored template. Missing names are a no-op.
func (c *JobCache) DeleteTemplate(ctx context.Context, name string) error {
	return c.rdb.Del(ctx, templateKey(name)).Err()
}
