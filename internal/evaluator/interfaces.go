package evaluator

import (
	"context"

	"github.com/FR0M-ZER0/nimbus-data-processing/internal/database"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/events"
)

// RuleStore reads alert rules and records alarms.
type RuleStore interface {
	// FindAlertRules returns the rules bound to a parameter with their subscribers.
	FindAlertRules(ctx context.Context, parameterID int64) ([]database.AlertRule, error)

	// InsertAlarmIfAbsent creates the alarm unless it already exists.
	// Returns the new alarm ID, or nil if it already existed.
	InsertAlarmIfAbsent(ctx context.Context, userID, measurementID, alertID int64) (*int64, error)
}

// AlarmPublisher publishes created alarms to downstream consumers.
type AlarmPublisher interface {
	Publish(ctx context.Context, alarm *events.AlarmCreated) error
	Close() error
}

// NoOpPublisher discards alarm events. Used when no event stream is configured.
type NoOpPublisher struct{}

// Compile-time check that NoOpPublisher implements AlarmPublisher.
var _ AlarmPublisher = (*NoOpPublisher)(nil)

// Publish does nothing.
func (n *NoOpPublisher) Publish(_ context.Context, _ *events.AlarmCreated) error { return nil }

// Close does nothing.
func (n *NoOpPublisher) Close() error { return nil }
