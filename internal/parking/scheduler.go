package parking

import (
	"sync"
	"time"
)

// Scheduler arms one timer per reserved node and fires a release callback
// when the TTL lapses.
//
// Timers are advisory: the callback re-reads the persisted row and only
// reverts a spot that is still RESERVED with a lapsed expiry, so a timer
// that fires after the spot was occupied or re-reserved is a no-op. There
// is deliberately no cancellation on occupy; the fire-time re-check makes
// cancellation unnecessary.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[int64]*time.Timer
	release func(lotID, nodeID int64)
	closed  bool
}

// NewScheduler creates a scheduler firing release for each lapsed
// reservation.
func NewScheduler(release func(lotID, nodeID int64)) *Scheduler {
	return &Scheduler{
		timers:  make(map[int64]*time.Timer),
		release: release,
	}
}

// Arm schedules (or reschedules) the expiry timer for a node. An expiry in
// the past fires immediately.
func (s *Scheduler) Arm(lotID, nodeID int64, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if old, ok := s.timers[nodeID]; ok {
		old.Stop()
	}

	delay := time.Until(expiresAt)
	if delay < 0 {
		delay = 0
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		// Only remove our own entry. A callback already in flight when Arm
		// replaced its timer must not evict the replacement.
		if s.timers[nodeID] == timer {
			delete(s.timers, nodeID)
		}
		closed := s.closed
		s.mu.Unlock()

		if !closed {
			s.release(lotID, nodeID)
		}
	})
	s.timers[nodeID] = timer
}

// Pending returns the number of armed timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close stops all timers. Armed callbacks that have not yet fired are
// dropped; pending reservations are recovered by the startup sweep on the
// next run.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
