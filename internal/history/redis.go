package history

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const redisKey = "datasets:recent"

// Redis is a history index shared across processes, backed by a Redis
// list. LPUSH and LTRIM run in one MULTI/EXEC transaction so the
// insert-and-evict step is atomic.
type Redis struct {
	client *redis.Client
	size   int
}

// NewRedis returns an index over client capped at size. The caller owns
// the client.
func NewRedis(client *redis.Client, size int) *Redis {
	if size <= 0 {
		size = DefaultSize
	}
	return &Redis{client: client, size: size}
}

// Record inserts id at the front, evicting past the cap.
func (r *Redis) Record(ctx context.Context, id int64) error {
	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, redisKey, id)
	pipe.LTrim(ctx, redisKey, 0, int64(r.size-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record dataset %d: %w", id, err)
	}
	return nil
}

// Snapshot returns the current newest-first ordering.
func (r *Redis) Snapshot(ctx context.Context) ([]int64, error) {
	vals, err := r.client.LRange(ctx, redisKey, 0, int64(r.size-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent datasets: %w", err)
	}

	ids := make([]int64, 0, len(vals))
	for _, v := range vals {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt history entry %q: %w", v, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
