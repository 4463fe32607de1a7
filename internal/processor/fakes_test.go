package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/FR0M-ZER0/nimbus-data-processing/internal/database"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/evaluator"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/resolver"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/staging"
)

// FakeStaging is an in-memory StagingStore.
type FakeStaging struct {
	Docs      []staging.PendingDocument
	ListErr   error
	DeleteErr error
	Deleted   []any
	Closed    bool
}

func (f *FakeStaging) ListPending(ctx context.Context) ([]staging.PendingDocument, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return f.Docs, nil
}

func (f *FakeStaging) Delete(ctx context.Context, id any) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.Deleted = append(f.Deleted, id)
	return nil
}

func (f *FakeStaging) Close(ctx context.Context) error {
	f.Closed = true
	return nil
}

func (f *FakeStaging) Opener() StagingOpener {
	return func(ctx context.Context) (StagingStore, error) { return f, nil }
}

// FakeTypes is a ParameterTypeSource keyed by station.
type FakeTypes struct {
	Types map[string][]resolver.ParameterType
	Err   error
	Calls []string
}

func (f *FakeTypes) FetchParameterTypes(ctx context.Context, stationID string) ([]resolver.ParameterType, error) {
	f.Calls = append(f.Calls, stationID)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Types[stationID], nil
}

// FakeStore is an in-memory MeasurementStore that enforces (parameter_id, captured_at) uniqueness.
type FakeStore struct {
	Parameters map[string]int64
	LookupErr  error
	InsertErr  error
	FindErr    error

	InsertCalls [][]database.NewMeasurement

	rows   map[string]database.Measurement
	nextID int64
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		Parameters: make(map[string]int64),
		rows:       make(map[string]database.Measurement),
		nextID:     1000,
	}
}

func (f *FakeStore) AddParameter(stationID string, parameterTypeID, parameterID int64) {
	f.Parameters[fmt.Sprintf("%s/%d", stationID, parameterTypeID)] = parameterID
}

func (f *FakeStore) FindParameterID(ctx context.Context, stationID string, parameterTypeID int64) (int64, error) {
	if f.LookupErr != nil {
		return 0, f.LookupErr
	}
	id, ok := f.Parameters[fmt.Sprintf("%s/%d", stationID, parameterTypeID)]
	if !ok {
		return 0, database.ErrParameterNotFound
	}
	return id, nil
}

func (f *FakeStore) InsertMeasurements(ctx context.Context, rows []database.NewMeasurement) (int64, error) {
	if f.InsertErr != nil {
		return 0, f.InsertErr
	}
	f.InsertCalls = append(f.InsertCalls, rows)
	var inserted int64
	for _, r := range rows {
		key := fmt.Sprintf("%d/%d", r.ParameterID, r.CapturedAt)
		if _, ok := f.rows[key]; ok {
			continue
		}
		f.nextID++
		f.rows[key] = database.Measurement{
			MeasurementID: f.nextID,
			ParameterID:   r.ParameterID,
			Value:         r.Value,
			CapturedAt:    r.CapturedAt,
		}
		inserted++
	}
	return inserted, nil
}

func (f *FakeStore) FindMeasurements(ctx context.Context, parameterIDs []int64, capturedAt int64) ([]database.Measurement, error) {
	if f.FindErr != nil {
		return nil, f.FindErr
	}
	var out []database.Measurement
	for _, id := range parameterIDs {
		if m, ok := f.rows[fmt.Sprintf("%d/%d", id, capturedAt)]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *FakeStore) RowCount() int {
	return len(f.rows)
}

// FakeEvaluator records evaluated measurements.
type FakeEvaluator struct {
	Evaluated []database.Measurement
	Result    evaluator.Result
	Err       error
}

func (f *FakeEvaluator) Evaluate(ctx context.Context, m database.Measurement) (evaluator.Result, error) {
	f.Evaluated = append(f.Evaluated, m)
	return f.Result, f.Err
}

// FakeNotifier records processing notifications.
type FakeNotifier struct {
	Stations []string
	Err      error
}

func (f *FakeNotifier) ProcessingStarted(ctx context.Context, stationID string, at time.Time) error {
	f.Stations = append(f.Stations, stationID)
	return f.Err
}

// FakeMetrics counts recorded events.
type FakeMetrics struct {
	mu        sync.Mutex
	Received  int
	Processed int
	Published int
	Errors    int
	Custom    map[string]uint64
}

func NewFakeMetrics() *FakeMetrics {
	return &FakeMetrics{Custom: make(map[string]uint64)}
}

func (f *FakeMetrics) RecordReceived() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Received++
}

func (f *FakeMetrics) RecordProcessed(latency time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Processed++
}

func (f *FakeMetrics) RecordPublished() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Published++
}

func (f *FakeMetrics) RecordError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors++
}

func (f *FakeMetrics) IncrementCustom(name string) {
	f.AddCustom(name, 1)
}

func (f *FakeMetrics) AddCustom(name string, value uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Custom[name] += value
}
