// Package shutdown carries the process-wide stop request to every component.
//
// Components never poll a global flag; they receive Context() and observe
// its cancellation. Trigger may be called any number of times from any
// goroutine, including a signal handler.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// Coordinator owns one cancellable context and records why it ended.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger

	once      sync.Once
	requested atomic.Bool
	reason    atomic.Value
}

// New derives a coordinator from parent. Cancelling parent also counts as a
// shutdown request.
func New(parent context.Context, log *slog.Logger) *Coordinator {
	if parent == nil {
		parent = context.Background()
	}
	if log == nil {
		log = slog.Default()
	}

	ctx, cancel := context.WithCancel(parent)
	return &Coordinator{
		ctx:    ctx,
		cancel: cancel,
		log:    log.With("component", "shutdown"),
	}
}

// Context is cancelled once shutdown has been requested.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// Done is shorthand for Context().Done().
func (c *Coordinator) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Trigger requests shutdown. Only the first call has an effect.
func (c *Coordinator) Trigger(reason string) {
	c.once.Do(func() {
		c.reason.Store(reason)
		c.requested.Store(true)
		c.log.Info("Shutdown requested", "reason", reason)
		c.cancel()
	})
}

// Requested reports whether shutdown was triggered or the parent ended.
func (c *Coordinator) Requested() bool {
	return c.requested.Load() || c.ctx.Err() != nil
}

// Reason returns the reason passed to the first Trigger call, if any.
func (c *Coordinator) Reason() string {
	reason, _ := c.reason.Load().(string)
	return reason
}

// NotifySignals triggers shutdown when one of sig arrives. The returned stop
// detaches the handler; it is safe to call more than once.
func (c *Coordinator) NotifySignals(sig ...os.Signal) (stop func()) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, sig...)

	quit := make(chan struct{})
	var stopOnce sync.Once
	go func() {
		select {
		case s := <-signals:
			c.Trigger(s.String())
		case <-quit:
		case <-c.ctx.Done():
		}
	}()

	return func() {
		stopOnce.Do(func() {
			signal.Stop(signals)
			close(quit)
		})
	}
}
