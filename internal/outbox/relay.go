package outbox

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NawarAli1912/EStore.API-sub000/internal/domain/event"
)

const (
	DefaultBatchSize       = 20
	DefaultMaxRetries      = 3
	DefaultInterval        = time.Second
	DefaultDispatchTimeout = 5 * time.Second
)

// Relay polls the outbox on a fixed interval and dispatches pending messages
// to registered handlers. Runs never overlap: a tick is skipped while a
// previous run is still in flight.
type Relay struct {
	store           Store
	log             *slog.Logger
	metrics         *Metrics
	batchSize       int
	maxRetries      int
	interval        time.Duration
	dispatchTimeout time.Duration

	mu       sync.RWMutex
	handlers map[string][]Handler
	catchAll []Handler

	inFlight atomic.Bool
}

type RelayOption func(*Relay)

func WithBatchSize(n int) RelayOption           { return func(r *Relay) { r.batchSize = n } }
func WithMaxRetries(n int) RelayOption          { return func(r *Relay) { r.maxRetries = n } }
func WithInterval(d time.Duration) RelayOption  { return func(r *Relay) { r.interval = d } }
func WithDispatchTimeout(d time.Duration) RelayOption {
	return func(r *Relay) { r.dispatchTimeout = d }
}
func WithMetrics(m *Metrics) RelayOption { return func(r *Relay) { r.metrics = m } }

func NewRelay(store Store, log *slog.Logger, opts ...RelayOption) *Relay {
	r := &Relay{
		store:           store,
		log:             log,
		batchSize:       DefaultBatchSize,
		maxRetries:      DefaultMaxRetries,
		interval:        DefaultInterval,
		dispatchTimeout: DefaultDispatchTimeout,
		handlers:        make(map[string][]Handler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register subscribes a handler to one event type.
func (r *Relay) Register(eventType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = append(r.handlers[eventType], h)
}

// RegisterAll subscribes a handler to every event type (e.g. a broker
// publisher that forwards everything).
func (r *Relay) RegisterAll(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catchAll = append(r.catchAll, h)
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Relay) tick(ctx context.Context) {
	if !r.inFlight.CompareAndSwap(false, true) {
		return // previous run still going
	}
	defer r.inFlight.Store(false)
	r.RunOnce(ctx)
}

// RunOnce processes one batch: fetch pending, dispatch each message, persist
// all row updates at the end. One message's failure never stops the batch.
func (r *Relay) RunOnce(ctx context.Context) {
	started := time.Now()

	messages, err := r.store.FetchPending(ctx, r.batchSize)
	if err != nil {
		r.log.Error("outbox fetch failed", "error", err)
		return
	}
	if len(messages) == 0 {
		return
	}

	for i := range messages {
		r.process(ctx, &messages[i])
	}

	if err := r.store.SaveResults(ctx, messages); err != nil {
		r.log.Error("outbox save results failed", "error", err)
		return
	}

	if r.metrics != nil {
		r.metrics.RunDuration.Observe(time.Since(started).Seconds())
	}
}

func (r *Relay) process(ctx context.Context, msg *Message) {
	env, err := event.Decode(msg.Content)
	if err == nil {
		err = r.dispatch(ctx, env)
	}

	if err == nil {
		now := time.Now().UTC()
		msg.ProcessedAt = &now
		msg.Done = true
		if r.metrics != nil {
			r.metrics.Processed.Inc()
		}
		return
	}

	msg.RetryCount++
	if r.metrics != nil {
		r.metrics.Failed.Inc()
	}
	if msg.RetryCount >= r.maxRetries {
		// dead letter: stop retrying but keep the forensic record
		errText := err.Error()
		msg.Error = &errText
		msg.Done = true
		if r.metrics != nil {
			r.metrics.DeadLettered.Inc()
		}
		r.log.Error("outbox message dead-lettered",
			"message_id", msg.ID, "type", msg.Type, "retries", msg.RetryCount, "error", err)
		return
	}
	r.log.Warn("outbox dispatch failed, will retry",
		"message_id", msg.ID, "type", msg.Type, "retries", msg.RetryCount, "error", err)
}

// dispatch delivers to every handler for the type, sequentially, awaiting
// each before the next. Each call is bounded by the dispatch timeout so a
// stuck subscriber costs one message's retry accounting, not the batch.
func (r *Relay) dispatch(ctx context.Context, env event.Envelope) error {
	r.mu.RLock()
	handlers := append(append([]Handler(nil), r.handlers[env.Type]...), r.catchAll...)
	r.mu.RUnlock()

	for _, h := range handlers {
		if err := r.dispatchOne(ctx, h, env); err != nil {
			return err
		}
	}
	return nil
}

func (r *Relay) dispatchOne(ctx context.Context, h Handler, env event.Envelope) error {
	ctx, cancel := context.WithTimeout(ctx, r.dispatchTimeout)
	defer cancel()
	return h(ctx, env)
}
