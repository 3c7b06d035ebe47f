// Package queue is the at-least-once message transport between
// pipeline stages. A received message stays invisible for the queue's
// visibility timeout; consumers must Delete it after processing or it
// is redelivered.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is one unit of work in flight. Receipt identifies a single
// delivery and is required to Delete the message.
type Message struct {
	ID         string
	Body       []byte
	Attributes map[string]string
	Receipt    string
}

// Queue is the transport contract. Receive blocks for at most wait and
// returns an empty slice when no work is available.
type Queue interface {
	Send(ctx context.Context, body []byte, attrs map[string]string) error
	Receive(ctx context.Context, max int, wait time.Duration) ([]Message, error)
	Delete(ctx context.Context, receipt string) error
}

// Backend names a queue implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendRedis  Backend = "redis"
)

// DefaultVisibility is how long a received message stays invisible
// before it is considered abandoned and redelivered.
const DefaultVisibility = 60 * time.Second

// Options configures a Provider.
type Options struct {
	Backend       Backend
	Visibility    time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Provider hands out queues by name. Memory queues are cached so that
// every stage in one process shares the same instance.
type Provider struct {
	opts Options

	mu     sync.Mutex
	memory map[string]*MemoryQueue
	client *redis.Client
}

func NewProvider(opts Options) *Provider {
	if opts.Backend == "" {
		opts.Backend = BackendMemory
	}
	if opts.Visibility <= 0 {
		opts.Visibility = DefaultVisibility
	}
	return &Provider{opts: opts, memory: make(map[string]*MemoryQueue)}
}

func (p *Provider) Queue(name string) (Queue, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.opts.Backend {
	case BackendMemory:
		q, ok := p.memory[name]
		if !ok {
			q = NewMemoryQueue(p.opts.Visibility)
			p.memory[name] = q
		}
		return q, nil
	case BackendRedis:
		if p.client == nil {
			p.client = redis.NewClient(&redis.Options{
				Addr:     p.opts.RedisAddr,
				Password: p.opts.RedisPassword,
				DB:       p.opts.RedisDB,
			})
		}
		return NewRedisQueue(p.client, name, p.opts.Visibility), nil
	default:
		return nil, fmt.Errorf("unsupported queue backend: %s", p.opts.Backend)
	}
}
