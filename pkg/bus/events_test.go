package bus

import (
	"context"
	"testing"
	"time"
)

func TestEventFanout(t *testing.T) {
	eb := NewEventBus()
	t.Cleanup(eb.Close)

	ctx := context.Background()
	eventsA, unsubA := eb.Subscribe(ctx, 1)
	defer unsubA()
	eventsB, unsubB := eb.Subscribe(ctx, 1)
	defer unsubB()

	if ok := eb.Publish(Event{Type: EventArtifactQueued, URI: "u"}); !ok {
		t.Fatal("expected event publish to succeed")
	}

	for name, events := range map[string]<-chan Event{"A": eventsA, "B": eventsB} {
		select {
		case got := <-events:
			if got.Type != EventArtifactQueued {
				t.Fatalf("subscriber %s event type = %q, want %q", name, got.Type, EventArtifactQueued)
			}
			if got.At.IsZero() {
				t.Fatalf("subscriber %s expected publish timestamp", name)
			}
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("subscriber %s did not receive event", name)
		}
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	eb := NewEventBus()
	t.Cleanup(eb.Close)

	events, unsubscribe := eb.Subscribe(context.Background(), 1)
	defer unsubscribe()

	eb.Publish(Event{Type: EventStateChanged, State: "connecting"})

	start := time.Now()
	if ok := eb.Publish(Event{Type: EventStateChanged, State: "subscribed"}); !ok {
		t.Fatal("expected second event publish to succeed")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("publish blocked on slow subscriber")
	}

	got := <-events
	if got.State != "connecting" {
		t.Fatalf("state = %q, want connecting (second event dropped)", got.State)
	}
}

func TestUnsubscribeClosesStream(t *testing.T) {
	eb := NewEventBus()
	t.Cleanup(eb.Close)

	events, unsubscribe := eb.Subscribe(context.Background(), 1)
	unsubscribe()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected closed event channel")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected event channel close after unsubscribe")
	}
}

func TestSubscribeAfterCloseReturnsClosedStream(t *testing.T) {
	eb := NewEventBus()
	eb.Close()

	events, _ := eb.Subscribe(context.Background(), 1)
	if _, ok := <-events; ok {
		t.Fatal("expected closed stream from closed bus")
	}
	if eb.Publish(Event{Type: EventStateChanged}) {
		t.Fatal("expected publish to fail after close")
	}
}

func TestNilEventBusDiscards(t *testing.T) {
	var eb *EventBus
	if eb.Publish(Event{Type: EventStateChanged}) {
		t.Fatal("expected nil bus publish to report false")
	}
}
