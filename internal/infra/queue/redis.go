package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/totegamma/passport-scorer/internal/usecase"
)

// Task is one unit of scoring work on the wire.
type Task struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	CommunityID uint      `json:"communityID"`
	Address     string    `json:"address"`
	EnqueuedAt  time.Time `json:"enqueuedAt"`
}

// RedisQueue is a FIFO list in redis: producers LPUSH, consumers BRPOP.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

var _ usecase.TaskPublisher = (*RedisQueue)(nil)

func NewRedisQueue(rdb *redis.Client, key string) *RedisQueue {
	return &RedisQueue{
		rdb: rdb,
		key: key,
	}
}

func (q *RedisQueue) Publish(ctx context.Context, name string, communityID uint, address string) error {
	task := Task{
		ID:          uuid.New(),
		Name:        name,
		CommunityID: communityID,
		Address:     address,
		EnqueuedAt:  time.Now().UTC(),
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return errors.Wrap(err, "marshal task")
	}
	if err := q.rdb.LPush(ctx, q.key, payload).Err(); err != nil {
		return errors.Wrapf(err, "push task to %s", q.key)
	}
	return nil
}

// Dequeue blocks up to timeout for the next task. It returns nil when none arrived.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	result, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "pop task from %s", q.key)
	}
	if len(result) != 2 {
		return nil, errors.Errorf("unexpected BRPOP reply of length %d", len(result))
	}

	var task Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, errors.Wrap(err, "decode task")
	}
	return &task, nil
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}
