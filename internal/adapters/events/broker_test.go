package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/ports"
)

var (
	_ Broker               = (*MemoryBroker)(nil)
	_ Broker               = (*RedisBroker)(nil)
	_ ports.EventPublisher = (*MemoryBroker)(nil)
)

func delivered(session string, seq uint64) domain.ProgressEvent {
	return domain.ProgressEvent{
		SessionID:  session,
		RouteID:    1,
		Event:      domain.EventDelivered,
		PackageID:  "P1",
		CourierID:  "X",
		SequenceNo: seq,
		Timestamp:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func receive(t *testing.T, ch <-chan domain.ProgressEvent) domain.ProgressEvent {
	t.Helper()
	select {
	case evt, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return evt
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	return domain.ProgressEvent{}
}

func TestMemoryBrokerPublishSubscribe(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker()
	ch, _ := b.Subscribe(ctx, "s1")
	other, _ := b.Subscribe(ctx, "s2")

	if err := b.Publish(ctx, delivered("s1", 7)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := receive(t, ch); got.SequenceNo != 7 || got.PackageID != "P1" {
		t.Fatalf("got %+v", got)
	}
	select {
	case evt := <-other:
		t.Fatalf("s2 subscriber got %+v", evt)
	default:
	}

	b.Unsubscribe("s1", ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	b.Unsubscribe("s1", ch)
}

func TestMemoryBrokerDropsOldestForSlowSubscribers(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker()
	ch, _ := b.Subscribe(ctx, "s1")

	for i := 0; i < subscriberBuffer+5; i++ {
		if err := b.Publish(ctx, delivered("s1", uint64(i+1))); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
	if len(ch) != subscriberBuffer {
		t.Fatalf("buffered %d events, want %d", len(ch), subscriberBuffer)
	}
	// The newest event always lands so the reader can see the gap.
	if first := receive(t, ch); first.SequenceNo != 6 {
		t.Fatalf("first = %d, want 6", first.SequenceNo)
	}
	var newest domain.ProgressEvent
	for len(ch) > 0 {
		newest = <-ch
	}
	if newest.SequenceNo != subscriberBuffer+5 {
		t.Fatalf("newest = %d, want %d", newest.SequenceNo, subscriberBuffer+5)
	}
}

func TestRedisBrokerRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	b := NewRedisBroker(rdb)

	ch, err := b.Subscribe(ctx, "s1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	evt := delivered("s1", 3)
	evt.State = domain.StateInProgress
	if err := b.Publish(ctx, evt); err != nil {
		t.Fatalf("publish: %v", err)
	}

	got := receive(t, ch)
	if got.SequenceNo != 3 || got.State != domain.StateInProgress || !got.Timestamp.Equal(evt.Timestamp) {
		t.Fatalf("got %+v", got)
	}

	b.Unsubscribe("s1", ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("unexpected event after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}

func TestRedisBrokerPublishFailsWhenDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	if err := NewRedisBroker(rdb).Publish(context.Background(), delivered("s1", 1)); err == nil {
		t.Fatal("expected publish error")
	}
}
