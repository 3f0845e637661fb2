package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Predefinied Queue IDs.
const (
	CreateQueue = "creation"
	UpdateQueue = "updating"
	DeleteQueue = "deletion"
)

// popWait bounds a single blocking pop so consumers observe their context.
const popWait = 2 * time.Second

// ErrNoEvent is returned by Pop when no event arrived in time.
var ErrNoEvent = errors.New("queue: no event available")

// Ensure *redisQueue implements Queuer.
var _ Queuer = (*redisQueue)(nil)

// Queuer describes a queue of book change events.
type Queuer interface {
	Push(ctx context.Context, qid string, book Book) error
	Pop(ctx context.Context, qids ...string) (string, Book, error)
}

// redisQueue represents a queue which implements the Queuer interface.
type redisQueue struct {
	client *redis.Client
	prefix string
}

// NewRedisQueue provides a redis lists based queue. All queue ids are
// namespaced with the given prefix.
func NewRedisQueue(client *redis.Client, prefix string) Queuer {
	return &redisQueue{client: client, prefix: prefix}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

func (q *redisQueue) key(qid string) string {
	if q.prefix == "" {
		return qid
	}
	return q.prefix + ":" + qid
}

// Push enqueues a book onto the queue identified by qid.
func (q *redisQueue) Push(ctx context.Context, qid string, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, q.key(qid), bookBytes).Err()
}

// Pop waits for a book on one of the queues and returns it with the id
// of the queue it came from. It gives ErrNoEvent when nothing arrived.
func (q *redisQueue) Pop(ctx context.Context, qids ...string) (string, Book, error) {
	var book Book
	var qid string
	keys := make([]string, 0, len(qids))
	names := make(map[string]string, len(qids))
	for _, id := range qids {
		k := q.key(id)
		keys = append(keys, k)
		names[k] = id
	}

	infos, err := q.client.BLPop(ctx, popWait, keys...).Result()
	if errors.Is(err, redis.Nil) {
		return qid, book, ErrNoEvent
	}
	if err != nil {
		return qid, book, err
	}

	if err = json.Unmarshal([]byte(infos[1]), &book); err != nil {
		return qid, book, err
	}
	qid = names[infos[0]]
	return qid, book, nil
}
