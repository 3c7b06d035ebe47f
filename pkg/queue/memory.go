package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inflightMessage struct {
	msg      Message
	deadline time.Time
}

// MemoryQueue is an in-process Queue for tests and single-binary runs.
// It honors the same visibility semantics as the redis backend.
type MemoryQueue struct {
	visibility time.Duration
	clock      func() time.Time

	mu       sync.Mutex
	ready    []Message
	inflight map[string]inflightMessage

	notify chan struct{}
}

func NewMemoryQueue(visibility time.Duration) *MemoryQueue {
	if visibility <= 0 {
		visibility = DefaultVisibility
	}
	return &MemoryQueue{
		visibility: visibility,
		clock:      time.Now,
		inflight:   make(map[string]inflightMessage),
		notify:     make(chan struct{}, 1),
	}
}

// WithClock overrides the time source. Visibility deadlines follow the
// injected clock; Receive wait timing stays on the wall clock.
func (q *MemoryQueue) WithClock(clock func() time.Time) *MemoryQueue {
	q.clock = clock
	return q
}

func (q *MemoryQueue) Send(ctx context.Context, body []byte, attrs map[string]string) error {
	msg := Message{ID: uuid.NewString(), Body: body, Attributes: attrs}

	q.mu.Lock()
	q.ready = append(q.ready, msg)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

func (q *MemoryQueue) Receive(ctx context.Context, max int, wait time.Duration) ([]Message, error) {
	if max <= 0 {
		max = 1
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		if msgs := q.take(max); len(msgs) > 0 {
			return msgs, nil
		}
		if wait <= 0 {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return q.take(max), nil
		case <-q.notify:
		}
	}
}

func (q *MemoryQueue) Delete(ctx context.Context, receipt string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, receipt)
	return nil
}

func (q *MemoryQueue) take(max int) []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock()
	q.requeueExpiredLocked(now)

	n := len(q.ready)
	if n > max {
		n = max
	}
	if n == 0 {
		return nil
	}

	out := make([]Message, 0, n)
	for _, msg := range q.ready[:n] {
		msg.Receipt = uuid.NewString()
		q.inflight[msg.Receipt] = inflightMessage{msg: msg, deadline: now.Add(q.visibility)}
		out = append(out, msg)
	}
	q.ready = append([]Message(nil), q.ready[n:]...)
	return out
}

func (q *MemoryQueue) requeueExpiredLocked(now time.Time) {
	for receipt, entry := range q.inflight {
		if entry.deadline.After(now) {
			continue
		}
		msg := entry.msg
		msg.Receipt = ""
		q.ready = append(q.ready, msg)
		delete(q.inflight, receipt)
	}
}
