package bus

import (
	"context"
	"sync"
	"time"
)

const defaultEventBuffer = 64

type EventType string

const (
	EventStateChanged       EventType = "state_changed"
	EventMessageDiscarded   EventType = "message_discarded"
	EventFetchFailed        EventType = "fetch_failed"
	EventArtifactQueued     EventType = "artifact_queued"
	EventArtifactRejected   EventType = "artifact_rejected"
	EventArtifactConsumed   EventType = "artifact_consumed"
	EventReconnectScheduled EventType = "reconnect_scheduled"
)

// Event describes one pipeline lifecycle step for observers such as the status server.
type Event struct {
	Type    EventType         `json:"type"`
	At      time.Time         `json:"at"`
	State   string            `json:"state,omitempty"`
	URI     string            `json:"uri,omitempty"`
	Reason  string            `json:"reason,omitempty"`
	Error   string            `json:"error,omitempty"`
	Payload map[string]string `json:"payload,omitempty"`
}

// EventBus fans lifecycle events out to subscribers without ever blocking the publisher.
type EventBus struct {
	subscribers      map[uint64]chan Event
	nextSubscriberID uint64

	done      chan struct{}
	closeOnce sync.Once

	mu sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[uint64]chan Event),
		done:        make(chan struct{}),
	}
}

// Publish delivers the event to every subscriber with buffer space left.
//
// A nil bus accepts and discards events so components can run unobserved.
func (eb *EventBus) Publish(event Event) bool {
	if eb == nil {
		return false
	}

	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	select {
	case <-eb.done:
		return false
	default:
	}

	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Slow subscribers lose events.
		}
	}

	return true
}

// Subscribe returns a buffered event stream and its unsubscribe function.
// The stream closes on unsubscribe, ctx cancellation or bus close.
func (eb *EventBus) Subscribe(ctx context.Context, buffer int) (<-chan Event, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	ch := make(chan Event, buffer)

	eb.mu.Lock()
	select {
	case <-eb.done:
		eb.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}

	id := eb.nextSubscriberID
	eb.nextSubscriberID++
	eb.subscribers[id] = ch
	eb.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			eb.mu.Lock()
			if eventCh, ok := eb.subscribers[id]; ok {
				delete(eb.subscribers, id)
				close(eventCh)
			}
			eb.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-eb.done:
		}
		unsubscribe()
	}()

	return ch, unsubscribe
}

func (eb *EventBus) Close() {
	eb.closeOnce.Do(func() {
		close(eb.done)

		eb.mu.Lock()
		for id, ch := range eb.subscribers {
			close(ch)
			delete(eb.subscribers, id)
		}
		eb.mu.Unlock()
	})
}
