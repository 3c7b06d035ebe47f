package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisReceiveScript atomically requeues expired deliveries and claims
// up to max ready messages.
// KEYS[1] = ready list
// KEYS[2] = inflight hash (receipt -> payload)
// KEYS[3] = deadlines zset (receipt scored by visibility deadline, ms)
// ARGV[1] = now (unix ms)
// ARGV[2] = visibility deadline for claimed messages (unix ms)
// ARGV[3] = max messages to claim
// ARGV[4..] = pre-generated receipts, one per potential claim
var redisReceiveScript = redis.NewScript(`
local ready = KEYS[1]
local inflight = KEYS[2]
local deadlines = KEYS[3]
local now = tonumber(ARGV[1])
local deadline = tonumber(ARGV[2])
local max = tonumber(ARGV[3])

-- Requeue deliveries whose visibility timeout expired.
local expired = redis.call("ZRANGEBYSCORE", deadlines, "-inf", now)
for _, receipt in ipairs(expired) do
    local payload = redis.call("HGET", inflight, receipt)
    if payload then
        redis.call("LPUSH", ready, payload)
        redis.call("HDEL", inflight, receipt)
    end
    redis.call("ZREM", deadlines, receipt)
end

-- Claim up to max messages.
local claimed = {}
for i = 4, 3 + max do
    local payload = redis.call("RPOP", ready)
    if not payload then
        break
    end
    local receipt = ARGV[i]
    redis.call("HSET", inflight, receipt, payload)
    redis.call("ZADD", deadlines, deadline, receipt)
    table.insert(claimed, receipt)
    table.insert(claimed, payload)
end
return claimed
`)

type storedMessage struct {
	ID         string            `json:"id"`
	Body       []byte            `json:"body"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// RedisQueue is a Queue backed by a redis list plus an inflight hash,
// so several worker processes can share one pipeline.
type RedisQueue struct {
	client     *redis.Client
	visibility time.Duration
	clock      func() time.Time

	readyKey     string
	inflightKey  string
	deadlinesKey string
}

func NewRedisQueue(client *redis.Client, name string, visibility time.Duration) *RedisQueue {
	if visibility <= 0 {
		visibility = DefaultVisibility
	}
	base := "rudder:q:" + name
	return &RedisQueue{
		client:       client,
		visibility:   visibility,
		clock:        time.Now,
		readyKey:     base + ":ready",
		inflightKey:  base + ":inflight",
		deadlinesKey: base + ":deadlines",
	}
}

// WithClock overrides the time source for visibility deadlines.
func (q *RedisQueue) WithClock(clock func() time.Time) *RedisQueue {
	q.clock = clock
	return q
}

func (q *RedisQueue) Send(ctx context.Context, body []byte, attrs map[string]string) error {
	data, err := json.Marshal(storedMessage{ID: uuid.NewString(), Body: body, Attributes: attrs})
	if err != nil {
		return fmt.Errorf("marshal queue message: %w", err)
	}
	if err := q.client.LPush(ctx, q.readyKey, data).Err(); err != nil {
		return fmt.Errorf("redis send: %w", err)
	}
	return nil
}

func (q *RedisQueue) Receive(ctx context.Context, max int, wait time.Duration) ([]Message, error) {
	if max <= 0 {
		max = 1
	}
	deadline := time.Now().Add(wait)
	for {
		msgs, err := q.claim(ctx, max)
		if err != nil {
			return nil, err
		}
		if len(msgs) > 0 {
			return msgs, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}
		pause := 250 * time.Millisecond
		if pause > remaining {
			pause = remaining
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pause):
		}
	}
}

func (q *RedisQueue) claim(ctx context.Context, max int) ([]Message, error) {
	now := q.clock().UnixMilli()
	visDeadline := now + q.visibility.Milliseconds()

	args := make([]interface{}, 0, 3+max)
	args = append(args, now, visDeadline, max)
	for i := 0; i < max; i++ {
		args = append(args, uuid.NewString())
	}

	keys := []string{q.readyKey, q.inflightKey, q.deadlinesKey}
	res, err := redisReceiveScript.Run(ctx, q.client, keys, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis receive: %w", err)
	}

	items, ok := res.([]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid response from receive script")
	}

	msgs := make([]Message, 0, len(items)/2)
	for i := 0; i+1 < len(items); i += 2 {
		receipt, _ := items[i].(string)
		payload, _ := items[i+1].(string)

		var stored storedMessage
		if err := json.Unmarshal([]byte(payload), &stored); err != nil {
			return nil, fmt.Errorf("unmarshal queue message: %w", err)
		}
		msgs = append(msgs, Message{
			ID:         stored.ID,
			Body:       stored.Body,
			Attributes: stored.Attributes,
			Receipt:    receipt,
		})
	}
	return msgs, nil
}

func (q *RedisQueue) Delete(ctx context.Context, receipt string) error {
	pipe := q.client.TxPipeline()
	pipe.HDel(ctx, q.inflightKey, receipt)
	pipe.ZRem(ctx, q.deadlinesKey, receipt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}
