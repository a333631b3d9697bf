package gateway

import (
	"context"
	"log/slog"
	"time"

	"mintfeed/pkg/bus"
)

// Counters accumulate pipeline outcomes since the service started.
type Counters struct {
	Queued      int64 `json:"queued"`
	Rejected    int64 `json:"rejected"`
	FetchFailed int64 `json:"fetch_failed"`
	Discarded   int64 `json:"discarded"`
	Consumed    int64 `json:"consumed"`
	Reconnects  int64 `json:"reconnects"`
}

func (s *Service) observeEvents(ctx context.Context, events <-chan bus.Event) {
	log := s.log.With("component", "bus.events")
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.record(event)
			logEvent(log, event)
		}
	}
}

func (s *Service) record(event bus.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case bus.EventArtifactQueued:
		s.counters.Queued++
	case bus.EventArtifactRejected:
		s.counters.Rejected++
	case bus.EventFetchFailed:
		s.counters.FetchFailed++
		s.lastError = event.Error
	case bus.EventMessageDiscarded:
		s.counters.Discarded++
	case bus.EventArtifactConsumed:
		s.counters.Consumed++
		if event.Error != "" {
			s.lastError = event.Error
		}
	case bus.EventReconnectScheduled:
		s.counters.Reconnects++
	}

	at := event.At
	if at.IsZero() {
		at = time.Now()
	}
	s.lastEvent = at.UTC()
}

func logEvent(log *slog.Logger, event bus.Event) {
	attrs := []any{"event_type", string(event.Type)}
	if event.State != "" {
		attrs = append(attrs, "state", event.State)
	}
	if event.Reason != "" {
		attrs = append(attrs, "reason", event.Reason)
	}
	if len(event.Payload) > 0 {
		attrs = append(attrs, "payload", event.Payload)
	}
	if event.Error != "" {
		attrs = append(attrs, "error", event.Error)
	}

	// Components log their own outcomes at the right level; this is the trace.
	log.Debug("Pipeline event", attrs...)
}
