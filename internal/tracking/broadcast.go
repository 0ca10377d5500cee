package tracking

import (
	"sync"

	"github.com/google/uuid"
)

// Broadcaster fans snapshots out to subscribers. Each subscriber channel
// holds at most one pending snapshot; a slow reader sees the latest value
// and misses intermediate ones. Publish never blocks.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[string]chan Snapshot
	latest      Snapshot
	closed      bool
}

// NewBroadcaster returns a Broadcaster whose initial value is initial.
func NewBroadcaster(initial Snapshot) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]chan Snapshot),
		latest:      initial,
	}
}

// Subscribe registers a channel primed with the latest snapshot.
func (b *Broadcaster) Subscribe() (string, <-chan Snapshot) {
	id := uuid.NewString()
	ch := make(chan Snapshot, 1)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	ch <- b.latest
	b.subscribers[id] = ch
	return id, ch
}

// Unsubscribe closes and removes the subscriber.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Publish stores s as the latest snapshot and offers it to every subscriber.
func (b *Broadcaster) Publish(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.latest = s
	for _, ch := range b.subscribers {
		select {
		case ch <- s:
			continue
		default:
		}
		// replace the stale pending value
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// Close closes every subscriber channel. Later Subscribe calls receive a
// closed channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}
