package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mintfeed/pkg/bus"
	"mintfeed/pkg/stream"
)

// Status is the /status, /healthz and /readyz response body.
type Status struct {
	Status        string         `json:"status"`
	State         string         `json:"state"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Queue         bus.QueueStats `json:"queue"`
	Counters      Counters       `json:"counters"`
	LastError     string         `json:"last_error,omitempty"`
	LastEventAt   string         `json:"last_event_at,omitempty"`
}

func (s *Service) runStatusServer(ctx context.Context, errCh chan<- error) {
	addr := net.JoinHostPort(strings.TrimSpace(s.cfg.Gateway.Host), strconv.Itoa(s.cfg.Gateway.Port))
	server := &http.Server{
		Addr:              addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info("Status server started", "address", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("start status server: %w", err)
	}
}

func (s *Service) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondStatus(w, http.StatusOK, "ok")
}

func (s *Service) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.isReady() {
		s.respondStatus(w, http.StatusServiceUnavailable, "not_ready")
		return
	}

	s.respondStatus(w, http.StatusOK, "ready")
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := "not_ready"
	if s.isReady() {
		status = "ready"
	}

	s.respondStatus(w, http.StatusOK, status)
}

func (s *Service) respondStatus(w http.ResponseWriter, statusCode int, status string) {
	payload := s.CurrentStatus(status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("Failed to write status response", "error", err)
	}
}

// CurrentStatus snapshots the pipeline under the given status label.
func (s *Service) CurrentStatus(status string) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uptime := int64(0)
	if !s.startedAt.IsZero() {
		uptime = int64(time.Since(s.startedAt).Seconds())
	}

	lastEvent := ""
	if !s.lastEvent.IsZero() {
		lastEvent = s.lastEvent.Format(time.RFC3339)
	}

	return Status{
		Status:        status,
		State:         s.ingester.State().String(),
		UptimeSeconds: uptime,
		Queue:         s.queue.Stats(),
		Counters:      s.counters,
		LastError:     s.lastError,
		LastEventAt:   lastEvent,
	}
}

// isReady holds only while the feed subscription is live.
func (s *Service) isReady() bool {
	return s.ingester.State() == stream.StateSubscribed
}
