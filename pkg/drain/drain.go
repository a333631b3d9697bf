// Package drain is the bundled queue consumer. It paces pops from the
// artifact queue and persists each image as a PNG file.
package drain

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"mintfeed/pkg/bus"
	"mintfeed/pkg/config"
)

var consumed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mintfeed_drain_artifacts_total",
	Help: "Artifacts taken off the queue by the drain consumer, by result.",
}, []string{"result"})

var safeName = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Consumer pops artifacts at a bounded rate. With an empty dir it only logs.
type Consumer struct {
	queue   *bus.ArtifactQueue
	events  *bus.EventBus
	log     *slog.Logger
	dir     string
	limiter *rate.Limiter
	seq     atomic.Int64
	written atomic.Int64
}

func New(cfg config.OutputConfig, queue *bus.ArtifactQueue, events *bus.EventBus, log *slog.Logger) (*Consumer, error) {
	if queue == nil {
		return nil, errors.New("artifact queue is required")
	}
	if log == nil {
		log = slog.Default()
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	return &Consumer{
		queue:   queue,
		events:  events,
		log:     log.With("component", "drain.consumer"),
		dir:     cfg.Dir,
		limiter: newLimiter(cfg.DrainInterval()),
	}, nil
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}

	return rate.NewLimiter(rate.Every(interval), 1)
}

// Run consumes until ctx ends or the queue is closed and empty.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("Drain consumer started", "dir", c.dir, "interval", intervalOf(c.limiter))

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil
		}

		artifact, ok := c.queue.Pop(ctx)
		if !ok {
			return nil
		}

		c.consume(artifact)
	}
}

// Written reports how many files were persisted.
func (c *Consumer) Written() int64 {
	return c.written.Load()
}

func (c *Consumer) consume(artifact bus.Artifact) {
	seq := c.seq.Add(1)
	payload := map[string]string{"seq": strconv.FormatInt(seq, 10)}

	if c.dir == "" {
		consumed.WithLabelValues("logged").Inc()
		c.log.Info("Artifact consumed", "key", artifact.Key(), "name", artifact.Name, "symbol", artifact.Symbol)
		c.publish(bus.Event{Type: bus.EventArtifactConsumed, URI: artifact.MetadataURI, Payload: payload})
		return
	}

	path, err := c.write(artifact, seq)
	if err != nil {
		consumed.WithLabelValues("failed").Inc()
		c.log.Error("Failed to write artifact", "key", artifact.Key(), "error", err)
		c.publish(bus.Event{Type: bus.EventArtifactConsumed, URI: artifact.MetadataURI, Error: err.Error(), Payload: payload})
		return
	}

	c.written.Add(1)
	consumed.WithLabelValues("written").Inc()
	payload["path"] = path
	c.log.Info("Artifact written", "key", artifact.Key(), "path", path)
	c.publish(bus.Event{Type: bus.EventArtifactConsumed, URI: artifact.MetadataURI, Payload: payload})
}

// write encodes into a temp file and renames it so readers never see a partial PNG.
func (c *Consumer) write(artifact bus.Artifact, seq int64) (string, error) {
	if artifact.Image == nil {
		return "", errors.New("artifact has no image")
	}

	path := filepath.Join(c.dir, fileName(artifact, seq))
	tmp, err := os.CreateTemp(c.dir, ".artifact-*.png")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, artifact.Image); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename %s: %w", path, err)
	}

	return path, nil
}

// fileName uses the mint when it is filesystem safe, else a sequence number.
func fileName(artifact bus.Artifact, seq int64) string {
	if safeName.MatchString(artifact.Mint) {
		return artifact.Mint + ".png"
	}

	return fmt.Sprintf("artifact-%06d.png", seq)
}

func (c *Consumer) publish(event bus.Event) {
	c.events.Publish(event)
}

func intervalOf(limiter *rate.Limiter) time.Duration {
	limit := limiter.Limit()
	if limit == rate.Inf || limit <= 0 {
		return 0
	}

	return time.Duration(float64(time.Second) / float64(limit))
}
