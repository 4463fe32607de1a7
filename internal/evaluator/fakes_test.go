package evaluator

import (
	"context"
	"fmt"

	"github.com/FR0M-ZER0/nimbus-data-processing/internal/database"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/events"
)

// FakeRuleStore is an in-memory RuleStore that enforces alarm uniqueness.
type FakeRuleStore struct {
	Rules     map[int64][]database.AlertRule
	RulesErr  error
	InsertErr func(userID, alertID int64) error

	alarms map[string]int64
	nextID int64
}

func NewFakeRuleStore(rules ...database.AlertRule) *FakeRuleStore {
	f := &FakeRuleStore{
		Rules:  make(map[int64][]database.AlertRule),
		alarms: make(map[string]int64),
	}
	for _, r := range rules {
		f.Rules[r.ParameterID] = append(f.Rules[r.ParameterID], r)
	}
	return f
}

func (f *FakeRuleStore) FindAlertRules(ctx context.Context, parameterID int64) ([]database.AlertRule, error) {
	if f.RulesErr != nil {
		return nil, f.RulesErr
	}
	return f.Rules[parameterID], nil
}

func (f *FakeRuleStore) InsertAlarmIfAbsent(ctx context.Context, userID, measurementID, alertID int64) (*int64, error) {
	if f.InsertErr != nil {
		if err := f.InsertErr(userID, alertID); err != nil {
			return nil, err
		}
	}
	key := fmt.Sprintf("%d/%d/%d", userID, measurementID, alertID)
	if _, ok := f.alarms[key]; ok {
		return nil, nil
	}
	f.nextID++
	f.alarms[key] = f.nextID
	id := f.nextID
	return &id, nil
}

func (f *FakeRuleStore) AlarmCount() int {
	return len(f.alarms)
}

// FakePublisher records published alarms.
type FakePublisher struct {
	Published  []*events.AlarmCreated
	PublishErr error
}

func (f *FakePublisher) Publish(ctx context.Context, alarm *events.AlarmCreated) error {
	if f.PublishErr != nil {
		return f.PublishErr
	}
	f.Published = append(f.Published, alarm)
	return nil
}

func (f *FakePublisher) Close() error {
	return nil
}
