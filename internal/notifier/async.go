package notifier

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrQueueFull is returned when a notification is dropped because the queue is full.
var ErrQueueFull = errors.New("notification queue full")

// ErrClosed is returned for notifications sent after Close.
var ErrClosed = errors.New("notifier closed")

type notification struct {
	stationID string
	at        time.Time
}

// Async queues notifications for a background worker that delivers them to next.
// ProcessingStarted only enqueues, so a slow or unreachable channel never delays the caller.
type Async struct {
	name    string
	next    Notifier
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan notification
	done   chan struct{}

	dropped atomic.Uint64
}

// NewAsync starts a worker delivering to next. buffer bounds the number of pending
// notifications; timeout bounds each delivery.
func NewAsync(name string, next Notifier, buffer int, timeout time.Duration) *Async {
	if buffer < 1 {
		buffer = 1
	}
	a := &Async{
		name:    name,
		next:    next,
		timeout: timeout,
		queue:   make(chan notification, buffer),
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

// ProcessingStarted enqueues the notification without waiting for delivery.
// When the queue is full the notification is dropped and ErrQueueFull returned.
func (a *Async) ProcessingStarted(_ context.Context, stationID string, at time.Time) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	select {
	case a.queue <- notification{stationID: stationID, at: at}:
		return nil
	default:
		a.dropped.Add(1)
		slog.Warn("Dropping notification, queue full",
			"notifier", a.name,
			"station_id", stationID,
			"dropped_total", a.dropped.Load(),
		)
		return ErrQueueFull
	}
}

// Dropped returns how many notifications were discarded because the queue was full.
func (a *Async) Dropped() uint64 {
	return a.dropped.Load()
}

func (a *Async) run() {
	defer close(a.done)
	for n := range a.queue {
		a.deliver(n)
	}
}

func (a *Async) deliver(n notification) {
	ctx := context.Background()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if err := a.next.ProcessingStarted(ctx, n.stationID, n.at); err != nil {
		slog.Warn("Failed to deliver notification",
			"notifier", a.name,
			"station_id", n.stationID,
			"error", err,
		)
	}
}

// Close stops accepting notifications and waits up to wait for queued ones to be delivered.
func (a *Async) Close(wait time.Duration) {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-time.After(wait):
		slog.Warn("Notification queue not drained before shutdown", "notifier", a.name, "pending", len(a.queue))
	}
}
