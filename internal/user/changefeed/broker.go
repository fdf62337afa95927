package changefeed

import (
	"sync"

	commonerrors "github.com/AlibekovAA/registration-board/internal/common/errors"
	"github.com/AlibekovAA/registration-board/internal/common/logger"
	"github.com/AlibekovAA/registration-board/internal/observability/metrics"
)

// Broker fans change events out to subscriptions. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Broker struct {
	mu         sync.RWMutex
	subs       map[uint64]*Subscription
	nextID     uint64
	bufferSize int
	closed     bool
	log        *logger.Logger
}

func NewBroker(bufferSize int, log *logger.Logger) *Broker {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Broker{
		subs:       make(map[uint64]*Subscription),
		bufferSize: bufferSize,
		log:        log,
	}
}

type Subscription struct {
	id     uint64
	broker *Broker
	events chan Event
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Unsubscribe detaches the subscription and closes its channel. Safe to call
// more than once and after the broker is closed.
func (s *Subscription) Unsubscribe() {
	s.broker.detach(s.id)
}

func (b *Broker) Subscribe() (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, commonerrors.ErrFeedClosed
	}

	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		broker: b,
		events: make(chan Event, b.bufferSize),
	}
	b.subs[sub.id] = sub
	metrics.ChangefeedSubscribersActive.Inc()
	return sub, nil
}

func (b *Broker) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subs {
		select {
		case sub.events <- ev:
		default:
			metrics.ChangefeedDroppedTotal.Inc()
			b.log.Warnf("changefeed: subscriber %d buffer full, dropping %s event", id, ev.Op)
		}
	}
}

func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every live subscription and rejects new ones.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.events)
		metrics.ChangefeedSubscribersActive.Dec()
	}
	b.log.Info("changefeed broker closed")
}

func (b *Broker) detach(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.events)
	metrics.ChangefeedSubscribersActive.Dec()
}
