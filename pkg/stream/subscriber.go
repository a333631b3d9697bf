// Package stream owns the websocket feed connection: dial, subscribe, receive,
// and reconnect with backoff.
//
// Events are fetched inline, one at a time, in the order they arrive. While a
// fetch is outstanding no further messages are read, which caps throughput at
// roughly one event per fetch round trip. Fanning fetches out to a worker pool
// is the place to lift that ceiling, at the cost of queue ordering.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru/v2"

	"mintfeed/pkg/bus"
	"mintfeed/pkg/config"
	"mintfeed/pkg/fetch"
)

const (
	defaultPingInterval     = 30 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
	writeTimeout            = 10 * time.Second
	uriPreviewLimit         = 160
)

// Fetcher resolves one metadata locator into an artifact.
type Fetcher interface {
	Fetch(ctx context.Context, metadataURI string) (bus.Artifact, error)
}

// Dialer opens the websocket connection. *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Subscriber keeps one feed subscription alive and pushes fetched artifacts
// into the queue.
type Subscriber struct {
	url      string
	method   string
	fetcher  Fetcher
	queue    *bus.ArtifactQueue
	events   *bus.EventBus
	log      *slog.Logger
	dialer   Dialer
	backoff  *Backoff
	seen     *lru.Cache[string, struct{}]
	sleep    func(context.Context, time.Duration) error
	header   http.Header
	readWait time.Duration
	pingWait time.Duration

	state atomic.Int32
}

// NewSubscriber validates stream configuration and constructs a subscriber.
// events may be nil.
func NewSubscriber(cfg config.StreamConfig, fetcher Fetcher, queue *bus.ArtifactQueue, events *bus.EventBus, log *slog.Logger) (*Subscriber, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if queue == nil {
		return nil, errors.New("artifact queue is required")
	}

	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse stream url: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, fmt.Errorf("stream url must use ws or wss, got %q", cfg.URL)
	}

	method := cfg.SubscribeMethod
	if method == "" {
		method = config.DefaultSubscribeMethod
	}

	if log == nil {
		log = slog.Default()
	}

	var seen *lru.Cache[string, struct{}]
	if cfg.DedupeSize > 0 {
		seen, err = lru.New[string, struct{}](cfg.DedupeSize)
		if err != nil {
			return nil, fmt.Errorf("create dedupe cache: %w", err)
		}
	}

	s := &Subscriber{
		url:     cfg.URL,
		method:  method,
		fetcher: fetcher,
		queue:   queue,
		events:  events,
		log:     log.With("component", "stream.subscriber"),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		backoff: NewBackoff(
			time.Duration(cfg.InitialBackoffSeconds)*time.Second,
			time.Duration(cfg.MaxBackoffSeconds)*time.Second,
		),
		seen:     seen,
		sleep:    sleepContext,
		header:   http.Header{"User-Agent": []string{"mintfeed/1.0"}},
		readWait: cfg.ReadTimeout(),
		pingWait: defaultPingInterval,
	}
	s.state.Store(int32(StateDisconnected))
	return s, nil
}

// State returns the current connection state.
func (s *Subscriber) State() State {
	return State(s.state.Load())
}

// Run maintains the subscription until ctx is cancelled, then returns nil.
//
// Cancellation is observed before every dial and before every read. A fetch
// already in progress is allowed to finish and its artifact is still queued.
func (s *Subscriber) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.setState(StateShuttingDown)

	for {
		if ctx.Err() != nil {
			return nil
		}

		s.setState(StateConnecting)
		conn, err := s.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			connectAttempts.WithLabelValues("failed").Inc()
			s.setState(StateDisconnected)
			s.log.Warn("Failed to connect to feed", "url", s.url, "error", err)
			if !s.waitBeforeReconnect(ctx) {
				return nil
			}
			continue
		}

		connectAttempts.WithLabelValues("ok").Inc()
		s.backoff.Reset()
		s.setState(StateSubscribed)
		s.log.Info("Subscribed to feed", "url", s.url, "method", s.method)

		err = s.receive(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}

		s.setState(StateDisconnected)
		s.log.Warn("Feed connection lost", "url", s.url, "error", err)
		if !s.waitBeforeReconnect(ctx) {
			return nil
		}
	}
}

// connect dials the feed and sends the subscribe control message.
func (s *Subscriber) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: dial: %v (status %d)", ErrConnection, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: dial: %v", ErrConnection, err)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(subscribeRequest{Method: s.method}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: send subscribe: %v", ErrConnection, err)
	}
	_ = conn.SetWriteDeadline(time.Time{})

	return conn, nil
}

type subscribeRequest struct {
	Method string `json:"method"`
}

// receive reads and dispatches messages until the connection fails or ctx ends.
func (s *Subscriber) receive(ctx context.Context, conn *websocket.Conn) error {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Closing the socket is the only way to release a blocked read.
	stop := context.AfterFunc(connCtx, func() {
		if ctx.Err() != nil {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutting down"),
				time.Now().Add(time.Second))
		}
		_ = conn.Close()
	})
	defer stop()

	if s.readWait > 0 {
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(s.readWait))
		})
	}
	go s.keepalive(connCtx, conn)

	for {
		if ctx.Err() != nil {
			return nil
		}

		if s.readWait > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.readWait))
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: read: %v", ErrConnection, err)
		}

		s.handleMessage(ctx, data)
	}
}

func (s *Subscriber) keepalive(ctx context.Context, conn *websocket.Conn) {
	if s.pingWait <= 0 {
		return
	}

	ticker := time.NewTicker(s.pingWait)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				s.log.Debug("Failed to ping feed", "error", err)
			}
		}
	}
}

// handleMessage turns one feed message into at most one queued artifact.
// Nothing here can end the receive loop.
func (s *Subscriber) handleMessage(ctx context.Context, data []byte) {
	event, err := parseEvent(data)
	if err != nil {
		messagesReceived.WithLabelValues("malformed").Inc()
		s.log.Warn("Discarding malformed message", "error", err, "size", len(data))
		s.publish(bus.Event{Type: bus.EventMessageDiscarded, Reason: "malformed", Error: err.Error()})
		return
	}

	if !event.Actionable() {
		messagesReceived.WithLabelValues("ignored").Inc()
		s.log.Debug("Ignoring message without uri")
		return
	}

	if s.seen != nil && s.seen.Contains(event.URI) {
		messagesReceived.WithLabelValues("duplicate").Inc()
		s.log.Debug("Skipping recently fetched uri", "uri", preview(event.URI))
		s.publish(bus.Event{Type: bus.EventMessageDiscarded, URI: event.URI, Reason: "duplicate"})
		return
	}

	messagesReceived.WithLabelValues("dispatched").Inc()
	s.log.Info("Metadata uri received", "uri", preview(event.URI), "mint", event.Mint)

	// The fetch is detached from cancellation; its own timeouts bound it.
	artifact, err := s.fetcher.Fetch(context.WithoutCancel(ctx), event.URI)
	switch {
	case errors.Is(err, fetch.ErrNoImage):
		s.remember(event.URI)
		s.log.Info("Metadata has no image", "uri", preview(event.URI))
		s.publish(bus.Event{Type: bus.EventMessageDiscarded, URI: event.URI, Reason: "no_image"})
		return
	case err != nil:
		s.log.Warn("Failed to fetch artifact", "uri", preview(event.URI), "stage", string(fetch.StageOf(err)), "error", err)
		s.publish(bus.Event{
			Type:    bus.EventFetchFailed,
			URI:     event.URI,
			Reason:  fetch.CategoryOf(err),
			Error:   err.Error(),
			Payload: map[string]string{"stage": string(fetch.StageOf(err))},
		})
		return
	}

	s.remember(event.URI)
	artifact.Mint = event.Mint
	if artifact.Name == "" {
		artifact.Name = event.Name
	}
	if artifact.Symbol == "" {
		artifact.Symbol = event.Symbol
	}

	if !s.queue.TryPush(artifact) {
		s.log.Info("Queue full, rejecting newest artifact", "key", preview(artifact.Key()), "capacity", s.queue.Cap())
		s.publish(bus.Event{Type: bus.EventArtifactRejected, URI: event.URI, Reason: "queue_full"})
		return
	}

	s.log.Debug("Artifact queued", "key", preview(artifact.Key()), "queue_len", s.queue.Len())
	s.publish(bus.Event{
		Type:    bus.EventArtifactQueued,
		URI:     event.URI,
		Payload: map[string]string{"queue_len": strconv.Itoa(s.queue.Len())},
	})
}

func (s *Subscriber) remember(uri string) {
	if s.seen != nil {
		s.seen.Add(uri, struct{}{})
	}
}

// waitBeforeReconnect sleeps the current backoff delay and reports whether
// the subscriber should dial again.
func (s *Subscriber) waitBeforeReconnect(ctx context.Context) bool {
	delay := s.backoff.Next()
	reconnectDelay.Set(delay.Seconds())
	s.log.Info("Reconnecting after delay", "delay", delay)
	s.publish(bus.Event{
		Type:    bus.EventReconnectScheduled,
		Payload: map[string]string{"delay_seconds": strconv.FormatFloat(delay.Seconds(), 'f', -1, 64)},
	})

	if err := s.sleep(ctx, delay); err != nil {
		return false
	}

	return ctx.Err() == nil
}

// setState records a transition. ShuttingDown is terminal.
func (s *Subscriber) setState(next State) {
	for {
		current := State(s.state.Load())
		if current == next || current == StateShuttingDown {
			return
		}
		if s.state.CompareAndSwap(int32(current), int32(next)) {
			break
		}
	}

	connectionState.Set(float64(next))
	s.log.Debug("Connection state changed", "state", next.String())
	s.publish(bus.Event{Type: bus.EventStateChanged, State: next.String()})
}

func (s *Subscriber) publish(event bus.Event) {
	s.events.Publish(event)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// preview returns a bounded log-safe form of a uri.
func preview(text string) string {
	if len(text) <= uriPreviewLimit {
		return text
	}

	return text[:uriPreviewLimit] + "..."
}
