package registry

import (
	"sync"

	"github.com/ruteri/certificate-registry/interfaces"
	"go.uber.org/atomic"
)

// EventLog is an append-only log of registry notifications.
// Sequence numbers start at 1 and have no gaps.
type EventLog struct {
	mu     sync.RWMutex
	events []interfaces.Event
	subs   map[uint64]*Subscription
	nextID uint64
}

// NewEventLog creates an empty log.
func NewEventLog() *EventLog {
	return &EventLog{
		subs: make(map[uint64]*Subscription),
	}
}

// Subscription delivers events appended after it was created.
type Subscription struct {
	// C receives events. It is closed by Close.
	C <-chan interfaces.Event

	ch      chan interfaces.Event
	id      uint64
	log     *EventLog
	dropped atomic.Uint64
	once    sync.Once
}

// Dropped returns the number of events not delivered because C was full.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unregisters the subscription and closes C. Safe to call repeatedly.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.log.mu.Lock()
		defer s.log.mu.Unlock()
		delete(s.log.subs, s.id)
		close(s.ch)
	})
}

// Subscribe registers a subscriber with the given channel buffer size.
func (l *EventLog) Subscribe(buffer int) *Subscription {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan interfaces.Event, buffer)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	sub := &Subscription{
		C:   ch,
		ch:  ch,
		id:  l.nextID,
		log: l,
	}
	l.subs[sub.id] = sub
	return sub
}

// Since returns events with Seq > after, in order. At most limit events are
// copied; limit <= 0 means no limit.
func (l *EventLog) Since(after uint64, limit int) []interfaces.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if after >= uint64(len(l.events)) {
		return nil
	}

	tail := l.events[after:]
	if limit > 0 && len(tail) > limit {
		tail = tail[:limit]
	}
	out := make([]interfaces.Event, len(tail))
	copy(out, tail)
	return out
}

// Len returns the number of events appended so far.
func (l *EventLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// append assigns sequence numbers, stores the events and offers them to
// subscribers without blocking.
func (l *EventLog) append(events ...interfaces.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, ev := range events {
		ev.Seq = uint64(len(l.events)) + 1
		l.events = append(l.events, ev)

		for _, sub := range l.subs {
			select {
			case sub.ch <- ev:
			default:
				sub.dropped.Inc()
			}
		}
	}
}
