// Package evaluator checks alert rules against persisted measurements and records
// one alarm per subscribed user for every rule that fires.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FR0M-ZER0/nimbus-data-processing/internal/database"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/events"
)

// Result summarizes one evaluation.
type Result struct {
	RulesChecked    int
	RulesFired      int
	AlarmsCreated   int
	AlarmsExisting  int
	EventsPublished int
	PublishFailures int
}

// Add accumulates another result into r.
func (r *Result) Add(other Result) {
	r.RulesChecked += other.RulesChecked
	r.RulesFired += other.RulesFired
	r.AlarmsCreated += other.AlarmsCreated
	r.AlarmsExisting += other.AlarmsExisting
	r.EventsPublished += other.EventsPublished
	r.PublishFailures += other.PublishFailures
}

// Evaluator evaluates alert rules for measurements.
type Evaluator struct {
	store     RuleStore
	publisher AlarmPublisher
	timeout   time.Duration
}

// New creates an evaluator. If publisher is nil, alarm events are discarded.
// A non-positive timeout leaves store calls bounded only by ctx.
func New(store RuleStore, publisher AlarmPublisher, timeout time.Duration) *Evaluator {
	if publisher == nil {
		publisher = &NoOpPublisher{}
	}
	return &Evaluator{
		store:     store,
		publisher: publisher,
		timeout:   timeout,
	}
}

func (e *Evaluator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

// Evaluate checks every rule bound to the measurement's parameter. For each rule that
// fires, an alarm is created for each subscribed user unless it already exists, so
// evaluating the same measurement again never duplicates alarms.
// A failed alarm insert does not stop evaluation of the remaining users and rules;
// all such failures are joined into the returned error.
func (e *Evaluator) Evaluate(ctx context.Context, m database.Measurement) (Result, error) {
	var res Result

	rulesCtx, cancel := e.withTimeout(ctx)
	rules, err := e.store.FindAlertRules(rulesCtx, m.ParameterID)
	cancel()
	if err != nil {
		return res, fmt.Errorf("failed to load alert rules for parameter %d: %w", m.ParameterID, err)
	}

	var errs []error
	for _, rule := range rules {
		res.RulesChecked++
		if !Compare(m.Value, rule.Operator, rule.Threshold) {
			continue
		}
		res.RulesFired++

		slog.Debug("Alert rule fired",
			"alert_id", rule.AlertID,
			"measurement_id", m.MeasurementID,
			"value", m.Value,
			"operator", rule.Operator,
			"threshold", rule.Threshold,
			"subscribers", len(rule.Subscribers),
		)

		for _, userID := range rule.Subscribers {
			insertCtx, cancel := e.withTimeout(ctx)
			alarmID, err := e.store.InsertAlarmIfAbsent(insertCtx, userID, m.MeasurementID, rule.AlertID)
			cancel()
			if err != nil {
				slog.Error("Failed to record alarm",
					"user_id", userID,
					"measurement_id", m.MeasurementID,
					"alert_id", rule.AlertID,
					"error", err,
				)
				errs = append(errs, fmt.Errorf("alarm user=%d alert=%d: %w", userID, rule.AlertID, err))
				continue
			}
			if alarmID == nil {
				res.AlarmsExisting++
				continue
			}
			res.AlarmsCreated++
			e.publish(ctx, &res, newAlarmCreated(*alarmID, userID, m, rule))
		}
	}

	return res, errors.Join(errs...)
}

// publish emits the alarm event; failures are logged and counted only.
func (e *Evaluator) publish(ctx context.Context, res *Result, alarm *events.AlarmCreated) {
	pubCtx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.publisher.Publish(pubCtx, alarm); err != nil {
		res.PublishFailures++
		slog.Warn("Failed to publish alarm event",
			"alarm_id", alarm.AlarmID,
			"user_id", alarm.UserID,
			"alert_id", alarm.AlertID,
			"error", err,
		)
		return
	}
	res.EventsPublished++
}

func newAlarmCreated(alarmID, userID int64, m database.Measurement, rule database.AlertRule) *events.AlarmCreated {
	return &events.AlarmCreated{
		AlarmID:       alarmID,
		UserID:        userID,
		MeasurementID: m.MeasurementID,
		AlertID:       rule.AlertID,
		ParameterID:   m.ParameterID,
		Value:         m.Value,
		CapturedAt:    m.CapturedAt,
		Operator:      rule.Operator,
		Threshold:     rule.Threshold,
		Title:         rule.Title,
		Body:          rule.Body,
		SchemaVersion: events.SchemaVersion,
	}
}
