package processor

import (
	"context"

	"github.com/FR0M-ZER0/nimbus-data-processing/internal/database"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/evaluator"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/resolver"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/staging"
)

// StagingStore is a handle on the staging collection, valid for one pass.
type StagingStore interface {
	// ListPending returns all staged documents in listing order.
	ListPending(ctx context.Context) ([]staging.PendingDocument, error)

	// Delete removes a staged document by its identifier.
	Delete(ctx context.Context, id any) error

	// Close releases the handle.
	Close(ctx context.Context) error
}

// StagingOpener opens a staging handle at the start of a pass.
type StagingOpener func(ctx context.Context) (StagingStore, error)

// ParameterTypeSource returns the parameter type definitions configured for a station.
type ParameterTypeSource interface {
	FetchParameterTypes(ctx context.Context, stationID string) ([]resolver.ParameterType, error)
}

// MeasurementStore resolves parameters and persists measurements.
type MeasurementStore interface {
	// FindParameterID returns database.ErrParameterNotFound when no parameter matches.
	FindParameterID(ctx context.Context, stationID string, parameterTypeID int64) (int64, error)

	// InsertMeasurements inserts rows, skipping duplicates, and returns how many were new.
	InsertMeasurements(ctx context.Context, rows []database.NewMeasurement) (int64, error)

	// FindMeasurements returns the persisted rows for the parameters at capturedAt.
	FindMeasurements(ctx context.Context, parameterIDs []int64, capturedAt int64) ([]database.Measurement, error)
}

// AlertEvaluator evaluates alert rules for a persisted measurement.
type AlertEvaluator interface {
	Evaluate(ctx context.Context, m database.Measurement) (evaluator.Result, error)
}
