package statusbus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrClosed is returned by Next after the subscription is closed.
var ErrClosed = errors.New("subscription closed")

// Subscription is one subscriber's bounded event queue. Events for a
// single document arrive in commit order; when the queue overflows, the
// oldest buffered event is replaced by a resync marker so the subscriber
// knows to refetch state.
type Subscription struct {
	bus        *Bus
	owner      uuid.UUID
	documentID uuid.UUID
	limit      int

	mu     sync.Mutex
	queue  []Event
	closed bool
	notify chan struct{}
}

func (s *Subscription) push(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if len(s.queue) >= s.limit && !s.overflow() {
		// lone marker; the refetch it triggers observes this event
		s.wake()
		return
	}
	s.queue = append(s.queue, evt)
	s.wake()
}

// overflow makes room for one event while preserving the resync
// guarantee: the oldest buffered event becomes a resync marker, and if
// a marker already heads the queue the event after it is dropped
// instead. Surviving events keep their relative order. Returns false
// when the queue is a lone marker, which already covers any gap.
func (s *Subscription) overflow() bool {
	if s.queue[0].Type != EventResync {
		s.queue[0] = Event{
			Type:      EventResync,
			OwnerID:   s.owner,
			Timestamp: time.Now().UTC(),
		}
	}
	if len(s.queue) < 2 {
		return false
	}

	copy(s.queue[1:], s.queue[2:])
	s.queue = s.queue[:len(s.queue)-1]
	return true
}

func (s *Subscription) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until an event is available, the context is done, or the
// subscription is closed.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			evt := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return evt, nil
		}
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return Event{}, ErrClosed
		}

		select {
		case <-s.notify:
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// Close unsubscribes and wakes any blocked Next call.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.bus.unsubscribe(s)

	select {
	case s.notify <- struct{}{}:
	default:
	}
}
