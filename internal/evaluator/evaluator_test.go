package evaluator

import (
	"context"
	"errors"
	"testing"

	"github.com/FR0M-ZER0/nimbus-data-processing/internal/database"
)

func temperatureRule() database.AlertRule {
	return database.AlertRule{
		AlertID:     3,
		ParameterID: 100,
		Operator:    ">",
		Threshold:   30,
		Title:       "High temperature",
		Body:        "Temperature above 30",
		Subscribers: []int64{42},
	}
}

func TestEvaluate_CreatesAlarmOnceForSameMeasurement(t *testing.T) {
	store := NewFakeRuleStore(temperatureRule())
	pub := &FakePublisher{}
	ev := New(store, pub, 0)

	m := database.Measurement{MeasurementID: 900, ParameterID: 100, Value: 31, CapturedAt: 1700000000000}

	res, err := ev.Evaluate(context.Background(), m)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.RulesChecked != 1 || res.RulesFired != 1 || res.AlarmsCreated != 1 {
		t.Errorf("Evaluate() result = %+v, want 1 checked, 1 fired, 1 created", res)
	}
	if store.AlarmCount() != 1 {
		t.Errorf("alarms = %d, want 1", store.AlarmCount())
	}
	if len(pub.Published) != 1 {
		t.Fatalf("published = %d, want 1", len(pub.Published))
	}
	got := pub.Published[0]
	if got.UserID != 42 || got.MeasurementID != 900 || got.AlertID != 3 || got.Value != 31 {
		t.Errorf("published alarm = %+v", got)
	}

	res, err = ev.Evaluate(context.Background(), m)
	if err != nil {
		t.Fatalf("second Evaluate() error = %v", err)
	}
	if res.AlarmsCreated != 0 || res.AlarmsExisting != 1 {
		t.Errorf("second Evaluate() result = %+v, want 0 created, 1 existing", res)
	}
	if store.AlarmCount() != 1 {
		t.Errorf("alarms after rerun = %d, want 1", store.AlarmCount())
	}
	if len(pub.Published) != 1 {
		t.Errorf("published after rerun = %d, want 1", len(pub.Published))
	}
}

func TestEvaluate_RuleNotFired(t *testing.T) {
	store := NewFakeRuleStore(temperatureRule())
	ev := New(store, nil, 0)

	res, err := ev.Evaluate(context.Background(), database.Measurement{MeasurementID: 1, ParameterID: 100, Value: 25.5})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.RulesChecked != 1 || res.RulesFired != 0 || res.AlarmsCreated != 0 {
		t.Errorf("Evaluate() result = %+v", res)
	}
	if store.AlarmCount() != 0 {
		t.Errorf("alarms = %d, want 0", store.AlarmCount())
	}
}

func TestEvaluate_NoRules(t *testing.T) {
	ev := New(NewFakeRuleStore(), nil, 0)

	res, err := ev.Evaluate(context.Background(), database.Measurement{MeasurementID: 1, ParameterID: 555, Value: 99})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res != (Result{}) {
		t.Errorf("Evaluate() result = %+v, want zero", res)
	}
}

func TestEvaluate_MultipleSubscribers(t *testing.T) {
	rule := temperatureRule()
	rule.Subscribers = []int64{1, 2, 3}
	store := NewFakeRuleStore(rule)
	ev := New(store, nil, 0)

	res, err := ev.Evaluate(context.Background(), database.Measurement{MeasurementID: 5, ParameterID: 100, Value: 40})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.AlarmsCreated != 3 {
		t.Errorf("AlarmsCreated = %d, want 3", res.AlarmsCreated)
	}
}

func TestEvaluate_RuleWithoutSubscribers(t *testing.T) {
	rule := temperatureRule()
	rule.Subscribers = nil
	store := NewFakeRuleStore(rule)
	ev := New(store, nil, 0)

	res, err := ev.Evaluate(context.Background(), database.Measurement{MeasurementID: 5, ParameterID: 100, Value: 40})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.RulesFired != 1 || res.AlarmsCreated != 0 {
		t.Errorf("Evaluate() result = %+v", res)
	}
}

func TestEvaluate_RulesError(t *testing.T) {
	store := NewFakeRuleStore()
	store.RulesErr = errors.New("connection reset")
	ev := New(store, nil, 0)

	_, err := ev.Evaluate(context.Background(), database.Measurement{ParameterID: 100})
	if err == nil {
		t.Fatal("Evaluate() expected error")
	}
	if !errors.Is(err, store.RulesErr) {
		t.Errorf("Evaluate() error = %v, want wrapped %v", err, store.RulesErr)
	}
}

func TestEvaluate_InsertErrorContinuesWithOtherUsers(t *testing.T) {
	rule := temperatureRule()
	rule.Subscribers = []int64{1, 2}
	store := NewFakeRuleStore(rule)
	insertErr := errors.New("deadlock")
	store.InsertErr = func(userID, alertID int64) error {
		if userID == 1 {
			return insertErr
		}
		return nil
	}
	ev := New(store, nil, 0)

	res, err := ev.Evaluate(context.Background(), database.Measurement{MeasurementID: 5, ParameterID: 100, Value: 40})
	if !errors.Is(err, insertErr) {
		t.Errorf("Evaluate() error = %v, want %v", err, insertErr)
	}
	if res.AlarmsCreated != 1 {
		t.Errorf("AlarmsCreated = %d, want 1", res.AlarmsCreated)
	}
}

func TestEvaluate_PublishFailureIsNotAnError(t *testing.T) {
	store := NewFakeRuleStore(temperatureRule())
	pub := &FakePublisher{PublishErr: errors.New("broker down")}
	ev := New(store, pub, 0)

	res, err := ev.Evaluate(context.Background(), database.Measurement{MeasurementID: 5, ParameterID: 100, Value: 40})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if res.AlarmsCreated != 1 || res.PublishFailures != 1 || res.EventsPublished != 0 {
		t.Errorf("Evaluate() result = %+v", res)
	}
}

func TestResult_Add(t *testing.T) {
	r := Result{RulesChecked: 1, AlarmsCreated: 1}
	r.Add(Result{RulesChecked: 2, RulesFired: 1, AlarmsExisting: 4})
	want := Result{RulesChecked: 3, RulesFired: 1, AlarmsCreated: 1, AlarmsExisting: 4}
	if r != want {
		t.Errorf("Add() = %+v, want %+v", r, want)
	}
}
