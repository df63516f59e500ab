package events

import (
	"context"
	"sync"

	"last-mile-planner/internal/domain"
	"last-mile-planner/internal/ports"
)

// Broker fans progress events out to live subscribers of a session.
type Broker interface {
	ports.EventPublisher
	ports.EventStream
}

const subscriberBuffer = 16

// MemoryBroker delivers events within the process. Slow subscribers lose their
// oldest buffered events rather than block the publisher; readers refill the
// gap from the session's event log.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string]map[<-chan domain.ProgressEvent]chan domain.ProgressEvent
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: map[string]map[<-chan domain.ProgressEvent]chan domain.ProgressEvent{}}
}

func (b *MemoryBroker) Subscribe(_ context.Context, sessionID string) (<-chan domain.ProgressEvent, error) {
	ch := make(chan domain.ProgressEvent, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = map[<-chan domain.ProgressEvent]chan domain.ProgressEvent{}
	}
	b.subs[sessionID][ch] = ch
	return ch, nil
}

// Unsubscribe removes and closes the subscription. Unknown channels are ignored.
func (b *MemoryBroker) Unsubscribe(sessionID string, ch <-chan domain.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[sessionID]
	w, ok := m[ch]
	if !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, sessionID)
	}
	close(w)
}

func (b *MemoryBroker) Publish(_ context.Context, evt domain.ProgressEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[evt.SessionID] {
		offer(ch, evt)
	}
	return nil
}

// offer never blocks. A full buffer loses its oldest event so the newest,
// which reveals the gap to the reader, always lands.
func offer(ch chan domain.ProgressEvent, evt domain.ProgressEvent) {
	select {
	case ch <- evt:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- evt:
	default:
	}
}
