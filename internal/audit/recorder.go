package audit

import (
	"context"
	"sync"
	"time"

	"alugix.app/internal/ids"
	"alugix.app/internal/obs"
)

// Store appends immutable entries.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
}

const (
	defaultQueueSize    = 256
	defaultWriteTimeout = 5 * time.Second
)

// Recorder persists entries through a buffered queue and a single background
// worker, decoupling the audit write from the response path. Submission never
// blocks: when the queue is full the entry is dropped and counted.
type Recorder struct {
	store   Store
	queue   chan Entry
	timeout time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

// RecorderOption configures the Recorder.
type RecorderOption func(*Recorder)

// WithQueueSize overrides the dispatch queue capacity.
func WithQueueSize(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.queue = make(chan Entry, n)
		}
	}
}

// WithWriteTimeout bounds each audit insert.
func WithWriteTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRecorder starts the background worker and returns the recorder.
func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:   store,
		queue:   make(chan Entry, defaultQueueSize),
		timeout: defaultWriteTimeout,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.run()
	return r
}

// Submit enqueues an entry for persistence. It returns immediately; the
// caller's response is never delayed by the audit write.
func (r *Recorder) Submit(entry Entry) {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	select {
	case r.queue <- entry:
	default:
		obs.AuditDropped()
		obs.LogRequest(map[string]any{
			"ts":     time.Now().UTC().Format(time.RFC3339Nano),
			"level":  "warn",
			"msg":    "audit_entry_dropped",
			"entity": entry.EntityKind,
			"action": entry.Action,
		})
	}
}

// Close stops accepting work and drains the queue.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.queue)
		<-r.done
	})
}

func (r *Recorder) run() {
	defer close(r.done)
	for entry := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := r.store.Append(ctx, &entry)
		cancel()
		if err != nil {
			// Swallowed on purpose: audit failure must never change the
			// client-visible outcome of the request that produced it.
			obs.LogRequest(map[string]any{
				"ts":     time.Now().UTC().Format(time.RFC3339Nano),
				"level":  "error",
				"msg":    "audit_write_failed",
				"entity": entry.EntityKind,
				"action": entry.Action,
				"error":  err.Error(),
			})
		}
	}
}
