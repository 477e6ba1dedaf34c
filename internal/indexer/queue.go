package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Kind names the entity a task refers to
type Kind string

const (
	KindJob    Kind = "job"
	KindSeeker Kind = "seeker"
)

// ErrQueueClosed is returned by Push and Pop once a queue is closed
var ErrQueueClosed = errors.New("queue closed")

// Task asks for one entity to be (re-)embedded
type Task struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	EntityID   int64     `json:"entity_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewTask creates a task with a fresh id
func NewTask(kind Kind, id int64) Task {
	return Task{ID: uuid.NewString(), Kind: kind, EntityID: id, EnqueuedAt: time.Now().UTC()}
}

// Queue carries embedding tasks from writers to workers. Implementations are
// safe for concurrent use.
type Queue interface {
	Push(ctx context.Context, task Task) error
	// Pop blocks until a task is available, the context ends, or the queue
	// is closed
	Pop(ctx context.Context) (Task, error)
	Len(ctx context.Context) (int, error)
	Close() error
}

// MemoryQueue is an in-process queue backed by a buffered channel
type MemoryQueue struct {
	tasks  chan Task
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

// NewMemoryQueue creates a queue holding up to buffer pending tasks
func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 1024
	}
	return &MemoryQueue{tasks: make(chan Task, buffer), done: make(chan struct{})}
}

func (q *MemoryQueue) Push(ctx context.Context, task Task) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- task:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Pop(ctx context.Context) (Task, error) {
	select {
	case task := <-q.tasks:
		return task, nil
	case <-q.done:
		return Task{}, ErrQueueClosed
	case <-ctx.Done():
		return Task{}, ctx.Err()
	}
}

func (q *MemoryQueue) Len(context.Context) (int, error) {
	return len(q.tasks), nil
}

// Close stops the queue. Pending tasks are dropped.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
	return nil
}

// Redis queue defaults
const (
	DefaultRedisKey = "impactmatch:embed"
	redisPopTimeout = 2 * time.Second
)

// RedisQueue is a durable list-backed queue: LPUSH on write, BRPOP on read
type RedisQueue struct {
	client *redis.Client
	key    string
	closed chan struct{}
	once   sync.Once
}

// NewRedisClient parses redisURL and verifies connectivity
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedisQueue wraps a connected client. The queue owns the client and
// closes it on Close.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisQueue{client: client, key: key, closed: make(chan struct{})}
}

func (q *RedisQueue) Push(ctx context.Context, task Task) error {
	select {
	case <-q.closed:
		return ErrQueueClosed
	default:
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", q.key, err)
	}
	return nil
}

func (q *RedisQueue) Pop(ctx context.Context) (Task, error) {
	for {
		select {
		case <-q.closed:
			return Task{}, ErrQueueClosed
		case <-ctx.Done():
			return Task{}, ctx.Err()
		default:
		}

		res, err := q.client.BRPop(ctx, redisPopTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return Task{}, ctx.Err()
			}
			return Task{}, fmt.Errorf("brpop %s: %w", q.key, err)
		}

		// BRPOP replies with [key, value]
		var task Task
		if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
			return Task{}, fmt.Errorf("decode task: %w", err)
		}
		return task, nil
	}
}

func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", q.key, err)
	}
	return int(n), nil
}

func (q *RedisQueue) Close() error {
	var err error
	q.once.Do(func() {
		close(q.closed)
		err = q.client.Close()
	})
	return err
}
