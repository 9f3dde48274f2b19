// Package notifications carries the health transitions of a running
// instance from its monitors to any number of subscribers.
package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hostncode/apphost-smoke/internal/models"
)

// ErrClosed is returned by Subscription.Next once the hub is closed and the
// subscription backlog has been consumed.
var ErrClosed = errors.New("notification stream closed")

// Source is what the health gate needs from a running instance.
type Source interface {
	Subscribe(resource string) *Subscription
}

// Hub fans out resource health transitions to subscribers. It remembers the
// latest event per resource and replays it to every new subscription, so a
// transition that happens before Subscribe is not lost.
type Hub struct {
	lock   sync.Mutex
	latest map[string]models.ResourceEvent
	order  []string
	subs   map[*Subscription]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		latest: make(map[string]models.ResourceEvent),
		subs:   make(map[*Subscription]struct{}),
	}
}

// Publish records the event and delivers it to matching subscriptions. Events
// that do not change the resource state are dropped. Publish never blocks on
// slow subscribers. It returns false if the event was dropped.
func (h *Hub) Publish(event models.ResourceEvent) bool {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	if h.closed {
		return false
	}

	prev, seen := h.latest[event.Resource]
	if seen && prev.State == event.State && prev.Error == event.Error {
		return false
	}
	if !seen {
		h.order = append(h.order, event.Resource)
	}
	h.latest[event.Resource] = event

	for s := range h.subs {
		s.deliver(event)
	}
	return true
}

// Latest returns the last event published for resource.
func (h *Hub) Latest(resource string) (models.ResourceEvent, bool) {
	h.lock.Lock()
	defer h.lock.Unlock()
	e, ok := h.latest[resource]
	return e, ok
}

// Subscribe returns a subscription to the events of resource, or of every
// resource when resource is empty. The latest known state of the matching
// resources is queued first.
func (h *Hub) Subscribe(resource string) *Subscription {
	s := &Subscription{
		resource: resource,
		signal:   make(chan struct{}, 1),
		hub:      h,
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	for _, name := range h.order {
		s.deliver(h.latest[name])
	}

	if h.closed {
		s.finish()
		return s
	}

	h.subs[s] = struct{}{}
	return s
}

// Close ends every subscription. Subscribers still receive their backlog.
func (h *Hub) Close() {
	h.lock.Lock()
	defer h.lock.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		s.finish()
		delete(h.subs, s)
	}
}

func (h *Hub) unsubscribe(s *Subscription) {
	h.lock.Lock()
	defer h.lock.Unlock()
	delete(h.subs, s)
}

// Subscription is a lazy, finite sequence of resource events. It cannot be
// restarted; subscribe again to get a fresh replay.
type Subscription struct {
	resource string
	hub      *Hub

	lock    sync.Mutex
	backlog models.Queue[models.ResourceEvent]
	done    bool
	signal  chan struct{}
}

func (s *Subscription) deliver(event models.ResourceEvent) {
	if s.resource != "" && s.resource != event.Resource {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.done {
		return
	}
	s.backlog.Push(event)
	s.notify()
}

func (s *Subscription) finish() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.done = true
	s.notify()
}

func (s *Subscription) notify() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// Next blocks until the next event is available, the stream ends (ErrClosed)
// or ctx is done.
func (s *Subscription) Next(ctx context.Context) (models.ResourceEvent, error) {
	for {
		s.lock.Lock()
		if s.backlog.Len() > 0 {
			e := s.backlog.Pop()
			s.lock.Unlock()
			return e, nil
		}
		done := s.done
		s.lock.Unlock()

		if done {
			return models.ResourceEvent{}, ErrClosed
		}

		select {
		case <-s.signal:
		case <-ctx.Done():
			return models.ResourceEvent{}, ctx.Err()
		}
	}
}

// Close detaches the subscription from the hub and drops its backlog.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s)

	s.lock.Lock()
	defer s.lock.Unlock()
	s.done = true
	s.backlog.Drain()
	s.notify()
}
