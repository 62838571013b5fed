package topic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// payloadLogLimit bounds how much of a payload is echoed into log lines.
const payloadLogLimit = 256

// Handler processes one message. A returned error is logged by the router
// and never reaches the transport.
type Handler func(ctx context.Context, topic string, payload []byte) error

// Logger is satisfied by *logging.Logger and *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Observer receives routing outcomes, typically to feed metrics.
type Observer interface {
	MessageRouted(pattern string)
	MessageUnmatched()
	HandlerDone(pattern string, elapsed time.Duration, outcome Outcome)
}

// Outcome classifies how a handler finished.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
	OutcomePanic    Outcome = "panic"
)

type binding struct {
	pattern *Pattern
	handler Handler
}

// Router maps inbound topics to handlers. Bindings are evaluated in
// registration order and only the first match runs.
//
// Register every binding before the transport starts delivering; the
// binding table is read-only afterwards.
type Router struct {
	mu       sync.RWMutex
	bindings []binding

	logger   Logger
	observer Observer

	// ctx is handed to handlers started by Deliver.
	ctx    context.Context
	cancel context.CancelFunc

	inflight sync.WaitGroup
	closed   bool
	closeMu  sync.Mutex
}

// NewRouter creates an empty router.
//
// Parameters:
//   - logger: Receives unmatched-topic warnings and handler failures; may be nil
//   - observer: Receives routing outcomes, typically metrics; may be nil
//
// Returns:
//   - *Router: Router with no bindings; call Register before delivery starts
func NewRouter(logger Logger, observer Observer) *Router {
	ctx, cancel := context.WithCancel(context.Background())
	return &Router{
		logger:   logger,
		observer: observer,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register binds filter to handler. Malformed filters, nil handlers and
// repeated filters are rejected.
func (r *Router) Register(filter string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("%w: %q", ErrNilHandler, filter)
	}
	p, err := Compile(filter)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, b := range r.bindings {
		if b.pattern.raw == filter {
			return fmt.Errorf("%w: %q", ErrDuplicatePattern, filter)
		}
	}
	r.bindings = append(r.bindings, binding{pattern: p, handler: handler})
	return nil
}

// Patterns returns the registered filters in registration order.
func (r *Router) Patterns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.bindings))
	for i, b := range r.bindings {
		out[i] = b.pattern.raw
	}
	return out
}

// Dispatch runs the first handler whose filter matches topic on the
// calling goroutine. It reports whether any binding matched.
func (r *Router) Dispatch(ctx context.Context, topic string, payload []byte) bool {
	b, ok := r.match(topic, payload)
	if !ok {
		return false
	}
	r.run(ctx, b, topic, payload)
	return true
}

// Deliver is the transport callback. The handler is chosen synchronously,
// in delivery order, and then run on its own goroutine so a slow database
// or publish never holds up the next inbound message.
func (r *Router) Deliver(topic string, payload []byte) {
	b, ok := r.match(topic, payload)
	if !ok {
		return
	}

	r.closeMu.Lock()
	if r.closed {
		r.closeMu.Unlock()
		r.debug("router closed, dropping message", "topic", topic)
		return
	}
	r.inflight.Add(1)
	r.closeMu.Unlock()

	payload = bytes.Clone(payload)
	go func() {
		defer r.inflight.Done()
		r.run(r.ctx, b, topic, payload)
	}()
}

// Shutdown stops accepting deliveries and waits for running handlers until
// ctx is done. Handlers still running at that point see their context
// cancelled and are abandoned.
func (r *Router) Shutdown(ctx context.Context) error {
	r.closeMu.Lock()
	r.closed = true
	r.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()

	defer r.cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight handlers: %w", ctx.Err())
	}
}

func (r *Router) match(topic string, payload []byte) (binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.bindings {
		if b.pattern.Match(topic) {
			if r.observer != nil {
				r.observer.MessageRouted(b.pattern.raw)
			}
			return b, true
		}
	}

	if r.observer != nil {
		r.observer.MessageUnmatched()
	}
	if r.logger != nil {
		r.logger.Warn("no handler for topic, dropping message",
			"topic", topic,
			"payload", Truncate(payload),
		)
	}
	return binding{}, false
}

func (r *Router) run(ctx context.Context, b binding, topic string, payload []byte) {
	start := time.Now()
	outcome := OutcomeOK

	defer func() {
		if rec := recover(); rec != nil {
			outcome = OutcomePanic
			if r.logger != nil {
				r.logger.Error("message handler panic recovered",
					"pattern", b.pattern.raw,
					"topic", topic,
					"payload", Truncate(payload),
					"panic", rec,
				)
			}
		}
		if r.observer != nil {
			r.observer.HandlerDone(b.pattern.raw, time.Since(start), outcome)
		}
	}()

	err := b.handler(ctx, topic, payload)
	if err == nil {
		return
	}

	if errors.Is(err, ErrRejected) {
		outcome = OutcomeRejected
		if r.logger != nil {
			r.logger.Warn("dropping malformed message",
				"topic", topic,
				"payload", Truncate(payload),
				"error", err,
			)
		}
		return
	}

	outcome = OutcomeFailed
	if r.logger != nil {
		r.logger.Error("message handler failed",
			"pattern", b.pattern.raw,
			"topic", topic,
			"payload", Truncate(payload),
			"error", err,
		)
	}
}

func (r *Router) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

// Truncate renders a payload for logging, cut to a fixed length.
func Truncate(payload []byte) string {
	if len(payload) <= payloadLogLimit {
		return string(payload)
	}
	return string(payload[:payloadLogLimit]) + "...(truncated)"
}
