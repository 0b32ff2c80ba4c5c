package events

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/agentstation/fillmap/pkg/constants"
	"github.com/agentstation/fillmap/pkg/logging"
)

// Broker queues published events and hands them to every subscriber from
// a single goroutine, so all subscribers observe the same order.
type Broker struct {
	queue chan Event
	seq   atomic.Uint64

	mu     sync.RWMutex
	subs   map[int]Subscriber
	nextID int

	dropped atomic.Uint64
	logger  *zerolog.Logger
}

// NewBroker returns a broker with a queue of constants.ChannelBufferSize.
func NewBroker(logger *zerolog.Logger) *Broker {
	return &Broker{
		queue:  make(chan Event, constants.ChannelBufferSize),
		subs:   make(map[int]Subscriber),
		logger: logging.OrNop(logger),
	}
}

// Subscribe adds sub and returns a function that removes it again.
// Subscribing is allowed before Run starts.
func (b *Broker) Subscribe(sub Subscriber) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	n := len(b.subs)
	b.mu.Unlock()

	b.logger.Debug().Int("subscribers", n).Msg("Event subscriber added")

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish queues an event. It never blocks: when the queue is full the
// event is dropped and false is returned. Sequence numbers are assigned on
// delivery.
func (b *Broker) Publish(eventType EventType, runID string, data any) bool {
	event := Event{
		Type:      eventType,
		RunID:     runID,
		Timestamp: utc.Now(),
		Data:      data,
	}

	select {
	case b.queue <- event:
		return true
	default:
		b.dropped.Add(1)
		b.logger.Warn().
			Str("event_type", string(eventType)).
			Str("run_id", runID).
			Msg("Event queue full, event dropped")
		return false
	}
}

// Run delivers queued events until ctx is cancelled.
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Uint64("dropped", b.dropped.Load()).Msg("Event broker shut down")
			return
		case event := <-b.queue:
			b.deliver(event)
		}
	}
}

func (b *Broker) deliver(event Event) {
	event.Seq = b.seq.Add(1)

	b.mu.RLock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	subs := make([]Subscriber, len(ids))
	for i, id := range ids {
		subs[i] = b.subs[id]
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.Notify(event)
	}

	b.logger.Debug().
		Str("event_type", string(event.Type)).
		Str("run_id", event.RunID).
		Uint64("seq", event.Seq).
		Int("subscribers", len(subs)).
		Msg("Event delivered")
}

// SubscriberCount returns the number of current subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many events were discarded on a full queue.
func (b *Broker) Dropped() uint64 {
	return b.dropped.Load()
}
