package events

import (
	"sync"
	"time"
)

// subscriberBufferSize is the per-subscriber update buffer. A subscriber that
// falls this far behind starts losing updates.
const subscriberBufferSize = 64

// StatusUpdate describes one spot status transition.
type StatusUpdate struct {
	LotID     int64      `json:"lot_id"`
	NodeID    int64      `json:"node_id"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Logger is the logging surface the bus needs. Satisfied by
// *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// Bus fans StatusUpdates out to subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	logger Logger
}

// Subscription is one subscriber's handle on the bus. Close it when done;
// an abandoned subscription keeps accumulating (and dropping) updates.
type Subscription struct {
	bus   *Bus
	lotID *int64 // nil means all lots
	ch    chan StatusUpdate

	closeOnce sync.Once
}

// NewBus creates an event bus. Pass nil to disable logging.
func NewBus(logger Logger) *Bus {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Bus{
		subs:   make(map[*Subscription]struct{}),
		logger: logger,
	}
}

// Subscribe registers a new subscriber. A non-nil lotID restricts delivery
// to updates for that lot.
func (b *Bus) Subscribe(lotID *int64) *Subscription {
	sub := &Subscription{
		bus:   b,
		lotID: lotID,
		ch:    make(chan StatusUpdate, subscriberBufferSize),
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	b.logger.Debug("event subscriber added", "subscribers", b.SubscriberCount())
	return sub
}

// Publish delivers an update to every matching subscriber. It never blocks:
// subscribers with full buffers are skipped.
//
// Sends happen under the read lock. Close takes the write lock before
// closing a channel, so a send can never race a close.
func (b *Bus) Publish(update StatusUpdate) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for sub := range b.subs {
		if sub.lotID != nil && *sub.lotID != update.LotID {
			continue
		}
		select {
		case sub.ch <- update:
			delivered++
		default:
			// Subscriber buffer full, skip
		}
	}
	if delivered > 0 {
		b.logger.Debug("status update published",
			"lot_id", update.LotID, "node_id", update.NodeID,
			"status", update.Status, "recipients", delivered)
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// C returns the subscriber's update channel. It is closed by Close.
func (s *Subscription) C() <-chan StatusUpdate {
	return s.ch
}

// Close removes the subscription from the bus and closes its channel.
// Safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		close(s.ch)
		s.bus.mu.Unlock()
	})
}
