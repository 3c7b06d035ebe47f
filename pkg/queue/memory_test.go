package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryQueueRoundTrip(t *testing.T) {
	q := NewMemoryQueue(time.Minute)
	ctx := context.Background()

	if err := q.Send(ctx, []byte(`{"x":1}`), map[string]string{"stage": "evaluation"}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	msgs, err := q.Receive(ctx, 1, 0)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("Receive returned %d messages, want 1", len(msgs))
	}
	msg := msgs[0]
	if string(msg.Body) != `{"x":1}` {
		t.Fatalf("Body = %s", msg.Body)
	}
	if msg.Attributes["stage"] != "evaluation" {
		t.Fatalf("Attributes = %v", msg.Attributes)
	}
	if msg.ID == "" || msg.Receipt == "" {
		t.Fatal("message must carry an ID and a receipt")
	}
}

func TestMemoryQueueEmptyReturnsImmediately(t *testing.T) {
	q := NewMemoryQueue(time.Minute)

	start := time.Now()
	msgs, err := q.Receive(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("Receive returned %d messages, want 0", len(msgs))
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("zero-wait Receive must not block")
	}
}

func TestMemoryQueueVisibilityTimeout(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := now
	q := NewMemoryQueue(30 * time.Second).WithClock(func() time.Time { return current })
	ctx := context.Background()

	if err := q.Send(ctx, []byte("work"), nil); err != nil {
		t.Fatalf("Send: %v", err)
	}

	first, err := q.Receive(ctx, 1, 0)
	if err != nil || len(first) != 1 {
		t.Fatalf("Receive = %v, %v", first, err)
	}

	if msgs, _ := q.Receive(ctx, 1, 0); len(msgs) != 0 {
		t.Fatal("message redelivered before its visibility deadline")
	}

	current = now.Add(time.Minute)
	second, err := q.Receive(ctx, 1, 0)
	if err != nil || len(second) != 1 {
		t.Fatalf("Receive after expiry = %v, %v", second, err)
	}
	if second[0].ID != first[0].ID {
		t.Fatal("redelivery must carry the same message ID")
	}
	if second[0].Receipt == first[0].Receipt {
		t.Fatal("redelivery must mint a fresh receipt")
	}
}

func TestMemoryQueueDeleteStopsRedelivery(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := now
	q := NewMemoryQueue(30 * time.Second).WithClock(func() time.Time { return current })
	ctx := context.Background()

	if err := q.Send(ctx, []byte("work"), nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	msgs, err := q.Receive(ctx, 1, 0)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("Receive = %v, %v", msgs, err)
	}
	if err := q.Delete(ctx, msgs[0].Receipt); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	current = now.Add(time.Hour)
	if msgs, _ := q.Receive(ctx, 1, 0); len(msgs) != 0 {
		t.Fatal("deleted message must not be redelivered")
	}
}

func TestMemoryQueueMaxBounded(t *testing.T) {
	q := NewMemoryQueue(time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := q.Send(ctx, []byte{byte('a' + i)}, nil); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	msgs, err := q.Receive(ctx, 2, 0)
	if err != nil || len(msgs) != 2 {
		t.Fatalf("Receive = %d messages, %v; want 2", len(msgs), err)
	}
	if string(msgs[0].Body) != "a" || string(msgs[1].Body) != "b" {
		t.Fatalf("Receive order = %s, %s", msgs[0].Body, msgs[1].Body)
	}

	msgs, err = q.Receive(ctx, 2, 0)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("Receive = %d messages, %v; want 1", len(msgs), err)
	}
}

func TestMemoryQueueWakesOnSend(t *testing.T) {
	q := NewMemoryQueue(time.Minute)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = q.Send(context.Background(), []byte("late"), nil)
	}()

	start := time.Now()
	msgs, err := q.Receive(context.Background(), 1, 5*time.Second)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("Receive = %v, %v", msgs, err)
	}
	if time.Since(start) >= 5*time.Second {
		t.Fatal("Receive should wake on Send, not run out the full wait")
	}
}

func TestMemoryQueueHonorsContext(t *testing.T) {
	q := NewMemoryQueue(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := q.Receive(ctx, 1, 5*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Receive = %v, want context.Canceled", err)
	}
}
