package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Dequeue when no job arrived before the timeout.
var ErrEmpty = errors.New("queue empty")

type (
	// Envelope wraps a job payload with its delivery bookkeeping.
	Envelope struct {
		ID         string          `json:"id"`
		Payload    json.RawMessage `json:"payload"`
		Attempt    int             `json:"attempt"`
		EnqueuedAt time.Time       `json:"enqueuedAt"`
		LastError  string          `json:"lastError,omitempty"`

		raw string
	}

	// JobQueue is an at-least-once queue. A dequeued envelope stays in flight
	// until it is acked, retried or dead-lettered.
	JobQueue interface {
		Enqueue(ctx context.Context, payload any) error
		Dequeue(ctx context.Context, timeout time.Duration) (*Envelope, error)
		Ack(ctx context.Context, env *Envelope) error
		Retry(ctx context.Context, env *Envelope, cause error) error
		DeadLetter(ctx context.Context, env *Envelope, cause error) error
		RecoverInFlight(ctx context.Context) (int, error)
		Ping(ctx context.Context) error
		Close() error
	}

	RedisOptions struct {
		Addr     string
		Password string
		DB       int
		Name     string
	}

	redisQueue struct {
		rdb        *goredis.Client
		pending    string
		processing string
		dead       string
	}
)

func NewRedisQueue(ctx context.Context, opts RedisOptions) (JobQueue, error) {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisQueueFromClient(rdb, opts.Name), nil
}

func NewRedisQueueFromClient(rdb *goredis.Client, name string) JobQueue {
	if name == "" {
		name = "jobs"
	}
	return &redisQueue{
		rdb:        rdb,
		pending:    name + ":pending",
		processing: name + ":processing",
		dead:       name + ":dead",
	}
}

func (q *redisQueue) Enqueue(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	env := Envelope{
		ID:         uuid.NewString(),
		Payload:    body,
		EnqueuedAt: time.Now().UTC(),
	}
	return q.push(ctx, q.pending, &env)
}

func (q *redisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Envelope, error) {
	raw, err := q.rdb.BLMove(ctx, q.pending, q.processing, "RIGHT", "LEFT", timeout).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue %s: %w", q.pending, err)
	}

	env := &Envelope{raw: raw}
	if err := json.Unmarshal([]byte(raw), env); err != nil {
		// Keep the bytes, as a JSON string, so the worker can dead-letter what
		// it could not read.
		env = &Envelope{ID: uuid.NewString()}
		env.Payload, _ = json.Marshal(raw)
	}
	env.raw = raw
	return env, nil
}

func (q *redisQueue) Ack(ctx context.Context, env *Envelope) error {
	if err := q.rdb.LRem(ctx, q.processing, 1, env.raw).Err(); err != nil {
		return fmt.Errorf("ack %s: %w", env.ID, err)
	}
	return nil
}

func (q *redisQueue) Retry(ctx context.Context, env *Envelope, cause error) error {
	return q.move(ctx, env, q.pending, cause)
}

func (q *redisQueue) DeadLetter(ctx context.Context, env *Envelope, cause error) error {
	return q.move(ctx, env, q.dead, cause)
}

// RecoverInFlight returns every in-flight envelope to the pending list. It is
// meant to run once at worker start, before any consumer is dequeuing.
//
// The processing list is shared, so this assumes a single worker process per
// queue name. Scale out with WORKER_CONCURRENCY, or give each worker process
// its own QUEUE_NAME; a second live process would have its in-flight jobs
// requeued and run twice.
func (q *redisQueue) RecoverInFlight(ctx context.Context) (int, error) {
	n := 0
	for {
		_, err := q.rdb.LMove(ctx, q.processing, q.pending, "RIGHT", "RIGHT").Result()
		if errors.Is(err, goredis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("recover in-flight jobs: %w", err)
		}
		n++
	}
}

func (q *redisQueue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}

func (q *redisQueue) Close() error {
	return q.rdb.Close()
}

func (q *redisQueue) move(ctx context.Context, env *Envelope, dst string, cause error) error {
	next := *env
	next.Attempt = env.Attempt + 1
	if cause != nil {
		next.LastError = cause.Error()
	}
	body, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	_, err = q.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.LRem(ctx, q.processing, 1, env.raw)
		pipe.LPush(ctx, dst, body)
		return nil
	})
	if err != nil {
		return fmt.Errorf("move %s to %s: %w", env.ID, dst, err)
	}
	return nil
}

func (q *redisQueue) push(ctx context.Context, list string, env *Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := q.rdb.LPush(ctx, list, body).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", list, err)
	}
	return nil
}
