// Package broadcast implements the in-memory publish/subscribe hub that
// fans out newly appended event envelopes to live subscribers. It is safe
// to call Publish from any execution context, including a Watcher's
// file-event goroutine, without blocking on subscribers.
package broadcast

import (
	"sync"

	"github.com/anthropics/goclode/internal/models"
)

// queueSize bounds each subscriber's pending-envelope buffer.
const queueSize = 256

// Broadcaster fans out envelopes to every currently attached Subscription.
// Chosen overflow policy: drop the oldest pending envelope rather than closing the
// subscription, so a slow consumer loses history, not its connection.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// New creates an empty Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{subs: make(map[*Subscription]struct{})}
}

// Subscription is a live subscriber's handle. Envelopes published after
// Attach arrive on C in publish order; no ordering is guaranteed relative
// to other subscriptions.
type Subscription struct {
	C  chan models.Envelope
	b  *Broadcaster
	mu sync.Mutex
}

// Attach registers a new subscriber and returns its Subscription.
func (b *Broadcaster) Attach() *Subscription {
	sub := &Subscription{C: make(chan models.Envelope, queueSize), b: b}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Detach removes sub from the hub. Safe to call more than once.
func (b *Broadcaster) Detach(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// Publish fans envelope out to every attached subscription. It never
// blocks: a full subscriber queue has its oldest entry evicted to make
// room for the new one.
func (b *Broadcaster) Publish(envelope models.Envelope) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		sub.deliver(envelope)
	}
}

// Subscribers returns the number of currently attached subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (s *Subscription) deliver(e models.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		select {
		case s.C <- e:
			return
		default:
			select {
			case <-s.C:
				// dropped oldest pending envelope, retry
			default:
				return
			}
		}
	}
}
