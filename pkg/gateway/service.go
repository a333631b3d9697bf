// Package gateway runs the ingestion pipeline as one service: the feed
// subscriber, the drain consumer and an HTTP status server.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mintfeed/pkg/bus"
	"mintfeed/pkg/config"
	"mintfeed/pkg/drain"
	"mintfeed/pkg/fetch"
	"mintfeed/pkg/stream"
)

// Ingester is the producer side of the pipeline. *stream.Subscriber satisfies it.
type Ingester interface {
	Run(ctx context.Context) error
	State() stream.State
}

// Consumer takes artifacts off the queue. *drain.Consumer satisfies it.
type Consumer interface {
	Run(ctx context.Context) error
}

type Service struct {
	cfg      *config.Config
	log      *slog.Logger
	queue    *bus.ArtifactQueue
	events   *bus.EventBus
	ingester Ingester
	consumer Consumer

	mu        sync.RWMutex
	startedAt time.Time
	counters  Counters
	lastError string
	lastEvent time.Time
}

// NewService wires the default pipeline from configuration.
func NewService(cfg *config.Config, log *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if log == nil {
		log = slog.Default()
	}

	queue := bus.NewArtifactQueue(cfg.Queue.Capacity)
	events := bus.NewEventBus()

	subscriber, err := stream.NewSubscriber(cfg.Stream, fetch.New(cfg.Fetch, log), queue, events, log)
	if err != nil {
		return nil, fmt.Errorf("initialize subscriber: %w", err)
	}

	consumer, err := drain.New(cfg.Output, queue, events, log)
	if err != nil {
		return nil, fmt.Errorf("initialize drain consumer: %w", err)
	}

	return newService(cfg, queue, events, subscriber, consumer, log), nil
}

func newService(cfg *config.Config, queue *bus.ArtifactQueue, events *bus.EventBus, ingester Ingester, consumer Consumer, log *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		log:      log.With("component", "gateway.service"),
		queue:    queue,
		events:   events,
		ingester: ingester,
		consumer: consumer,
	}
}

// Queue exposes the artifact queue for in-process consumers.
func (s *Service) Queue() *bus.ArtifactQueue {
	return s.queue
}

// Run blocks until ctx is cancelled or a component fails, then waits for the
// subscriber and consumer to return.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, unsubscribe := s.events.Subscribe(runCtx, 128)
	observed := make(chan struct{})
	go func() {
		defer close(observed)
		s.observeEvents(runCtx, events)
	}()

	serverErrors := make(chan error, 1)
	go s.runStatusServer(runCtx, serverErrors)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	if s.consumer != nil {
		wg.Go(func() {
			if err := s.consumer.Run(runCtx); err != nil {
				errCh <- fmt.Errorf("run drain consumer: %w", err)
			}
		})
	}
	wg.Go(func() {
		if err := s.ingester.Run(runCtx); err != nil {
			errCh <- fmt.Errorf("run subscriber: %w", err)
		}
	})

	var result error
	select {
	case <-ctx.Done():
	case result = <-serverErrors:
	case result = <-errCh:
	}

	cancel()
	wg.Wait()
	unsubscribe()
	<-observed
	s.events.Close()

	s.log.Info("Pipeline stopped", "queue_len", s.queue.Len())
	return result
}
