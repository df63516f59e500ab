package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"last-mile-planner/internal/domain"
)

const publishTimeout = 2 * time.Second

// RedisBroker carries events over Redis pub/sub so every server process sees
// every session's stream.
type RedisBroker struct {
	rdb *redis.Client

	mu   sync.Mutex
	subs map[<-chan domain.ProgressEvent]*redis.PubSub
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb, subs: map[<-chan domain.ProgressEvent]*redis.PubSub{}}
}

func channelName(sessionID string) string { return "session:" + sessionID + ":events" }

func (b *RedisBroker) Publish(ctx context.Context, evt domain.ProgressEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("publish event: marshal: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := b.rdb.Publish(ctx, channelName(evt.SessionID), data).Err(); err != nil {
		return fmt.Errorf("publish event %s/%d: %w", evt.SessionID, evt.SequenceNo, err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so events
// published afterwards are not missed.
func (b *RedisBroker) Subscribe(ctx context.Context, sessionID string) (<-chan domain.ProgressEvent, error) {
	ps := b.rdb.Subscribe(ctx, channelName(sessionID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", sessionID, err)
	}

	ch := make(chan domain.ProgressEvent, subscriberBuffer)
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var evt domain.ProgressEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				continue
			}
			offer(ch, evt)
		}
	}()

	b.mu.Lock()
	b.subs[ch] = ps
	b.mu.Unlock()
	return ch, nil
}

// Unsubscribe closes the Redis subscription; the channel closes once the
// reader goroutine drains.
func (b *RedisBroker) Unsubscribe(_ string, ch <-chan domain.ProgressEvent) {
	b.mu.Lock()
	ps, ok := b.subs[ch]
	delete(b.subs, ch)
	b.mu.Unlock()
	if ok {
		_ = ps.Close()
	}
}
