package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisQueue keeps the buffer in a redis list (RPUSH at the tail, LPOP at
// the head). The key must be unique per broadcaster instance.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue connects to redisURL and verifies the connection.
func NewRedisQueue(ctx context.Context, redisURL, key string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisQueue{client: client, key: key}, nil
}

// Key returns the redis list key.
func (q *RedisQueue) Key() string { return q.key }

// Enqueue RPUSHes m, JSON-encoded, onto the tail of the list.
func (q *RedisQueue) Enqueue(ctx context.Context, m Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, q.key, b).Err(); err != nil {
		return fmt.Errorf("redis rpush: %w", err)
	}
	queueDepth.Inc()
	return nil
}

// Dequeue LPOPs the head of the list. A missing key is an empty queue.
func (q *RedisQueue) Dequeue(ctx context.Context) (Message, bool, error) {
	b, err := q.client.LPop(ctx, q.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Message{}, false, nil
	}
	if err != nil {
		return Message{}, false, fmt.Errorf("redis lpop: %w", err)
	}
	queueDepth.Dec()

	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return Message{}, false, fmt.Errorf("decode queued message: %w", err)
	}
	return m, true, nil
}

// Len reports LLEN of the list.
func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	return int(n), err
}

// Close deletes the instance's list and closes the connection.
func (q *RedisQueue) Close(ctx context.Context) error {
	delErr := q.client.Del(ctx, q.key).Err()
	return errors.Join(delErr, q.client.Close())
}
