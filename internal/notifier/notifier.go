// Package notifier emits best-effort "processing started" notifications over a
// websocket channel and an HTTP processing-log endpoint.
package notifier

import (
	"context"
	"errors"
	"time"
)

// Notifier announces that a station document started processing.
type Notifier interface {
	ProcessingStarted(ctx context.Context, stationID string, at time.Time) error
}

// Nop drops every notification. Used when no channel is configured.
type Nop struct{}

// ProcessingStarted does nothing.
func (Nop) ProcessingStarted(context.Context, string, time.Time) error { return nil }

// Group notifies every member in order and joins their errors.
type Group []Notifier

// ProcessingStarted calls every member, even after a failure.
func (g Group) ProcessingStarted(ctx context.Context, stationID string, at time.Time) error {
	var errs []error
	for _, n := range g {
		if err := n.ProcessingStarted(ctx, stationID, at); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
