// Package processor drains staged station documents into relational measurements.
// Each document is mapped to parameters, inserted with duplicate suppression,
// evaluated against alert rules and then removed from staging.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FR0M-ZER0/nimbus-data-processing/internal/database"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/metrics"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/notifier"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/resolver"
	"github.com/FR0M-ZER0/nimbus-data-processing/internal/staging"
)

// Dependencies are the collaborators a Processor works with.
// Notifier and Metrics are optional.
type Dependencies struct {
	OpenStaging    StagingOpener
	ParameterTypes ParameterTypeSource
	Store          MeasurementStore
	Evaluator      AlertEvaluator
	Notifier       notifier.Notifier
	Metrics        MetricsRecorder
}

// Processor runs the drain-map-persist-evaluate pipeline.
type Processor struct {
	openStaging StagingOpener
	types       ParameterTypeSource
	store       MeasurementStore
	evaluator   AlertEvaluator
	notifier    notifier.Notifier
	metrics     MetricsRecorder
	timeout     time.Duration
}

// NewProcessor creates a processor. timeout bounds every individual I/O call;
// a non-positive value leaves calls bounded only by the caller's context.
func NewProcessor(deps Dependencies, timeout time.Duration) *Processor {
	p := &Processor{
		openStaging: deps.OpenStaging,
		types:       deps.ParameterTypes,
		store:       deps.Store,
		evaluator:   deps.Evaluator,
		notifier:    deps.Notifier,
		metrics:     deps.Metrics,
		timeout:     timeout,
	}
	if p.notifier == nil {
		p.notifier = notifier.Nop{}
	}
	if p.metrics == nil {
		p.metrics = &NoOpMetrics{}
	}
	return p
}

func (p *Processor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// ProcessDocument handles one staged document and reports its outcome. Errors are
// carried in the outcome and never abort the caller's pass.
func (p *Processor) ProcessDocument(ctx context.Context, st StagingStore, doc staging.PendingDocument) Outcome {
	start := time.Now()
	p.metrics.RecordReceived()

	if doc.Invalid != nil {
		return p.reject(ctx, st, doc)
	}

	log := slog.With("station_id", doc.StationID, "document_id", fmt.Sprint(doc.ID))
	log.Info("Processing document", "readings", len(doc.Readings), "captured_at", doc.CapturedAt)

	p.notifyStarted(ctx, log, doc.StationID)

	out := Outcome{Readings: len(doc.Readings)}

	typesCtx, cancel := p.withTimeout(ctx)
	types, err := p.types.FetchParameterTypes(typesCtx, doc.StationID)
	cancel()
	if err != nil || len(types) == 0 {
		if err == nil {
			err = fmt.Errorf("%w: no parameter types for station %s", resolver.ErrLookupFailed, doc.StationID)
		}
		log.Warn("Deferring document, parameter types unavailable", "error", err)
		out.Status = StatusDeferred
		out.Err = err
		p.metrics.IncrementCustom(metrics.DocumentsDeferred)
		return out
	}

	rows, err := p.buildRows(ctx, log, doc, resolver.BuildKeyMap(types), &out)
	p.metrics.AddCustom(metrics.ReadingsUnmapped, uint64(out.Unmapped))
	p.metrics.AddCustom(metrics.ReadingsUnresolved, uint64(out.Unresolved))
	if err != nil {
		return p.fail(log, out, err)
	}

	if len(rows) == 0 {
		if err := p.delete(ctx, st, doc.ID); err != nil {
			return p.fail(log, out, err)
		}
		log.Info("Discarded document with no resolvable readings",
			"unmapped", out.Unmapped,
			"unresolved", out.Unresolved,
		)
		out.Status = StatusDiscarded
		p.metrics.IncrementCustom(metrics.DocumentsDiscarded)
		return out
	}

	insertCtx, cancel := p.withTimeout(ctx)
	inserted, err := p.store.InsertMeasurements(insertCtx, rows)
	cancel()
	if err != nil {
		return p.fail(log, out, err)
	}
	out.Inserted = inserted
	out.Duplicates = int64(len(rows)) - inserted
	p.metrics.AddCustom(metrics.MeasurementsInserted, uint64(out.Inserted))
	p.metrics.AddCustom(metrics.MeasurementsDuplicate, uint64(out.Duplicates))

	findCtx, cancel := p.withTimeout(ctx)
	persisted, err := p.store.FindMeasurements(findCtx, parameterIDs(rows), doc.CapturedAt)
	cancel()
	if err != nil {
		return p.fail(log, out, err)
	}

	if err := p.evaluateAll(ctx, log, persisted, &out); err != nil {
		return p.fail(log, out, err)
	}

	if err := p.delete(ctx, st, doc.ID); err != nil {
		return p.fail(log, out, err)
	}

	out.Status = StatusProcessed
	p.metrics.RecordProcessed(time.Since(start))

	log.Info("Document processed and removed",
		"inserted", out.Inserted,
		"duplicates", out.Duplicates,
		"unmapped", out.Unmapped,
		"unresolved", out.Unresolved,
		"alarms_created", out.Alarms.AlarmsCreated,
	)
	return out
}

// reject removes a document that could not be decoded. It can never be processed,
// so it is discarded instead of being listed again on every pass.
func (p *Processor) reject(ctx context.Context, st StagingStore, doc staging.PendingDocument) Outcome {
	log := slog.With("document_id", fmt.Sprint(doc.ID))
	out := Outcome{Err: doc.Invalid}

	if err := p.delete(ctx, st, doc.ID); err != nil {
		return p.fail(log, out, err)
	}

	log.Warn("Removed undecodable staging document", "error", doc.Invalid)
	out.Status = StatusDiscarded
	p.metrics.IncrementCustom(metrics.DocumentsRejected)
	return out
}

func (p *Processor) notifyStarted(ctx context.Context, log *slog.Logger, stationID string) {
	nctx, cancel := p.withTimeout(ctx)
	defer cancel()
	if err := p.notifier.ProcessingStarted(nctx, stationID, time.Now()); err != nil {
		log.Warn("Failed to send processing notification", "error", err)
	}
}

// buildRows maps readings to measurement rows in document order. Readings without
// a parameter type or parameter are counted and skipped.
func (p *Processor) buildRows(ctx context.Context, log *slog.Logger, doc staging.PendingDocument, keyMap map[string]int64, out *Outcome) ([]database.NewMeasurement, error) {
	var rows []database.NewMeasurement
	for _, r := range doc.Readings {
		typeID, ok := keyMap[r.Key]
		if !ok {
			log.Debug("No parameter type for reading key", "key", r.Key)
			out.Unmapped++
			continue
		}

		lookupCtx, cancel := p.withTimeout(ctx)
		parameterID, err := p.store.FindParameterID(lookupCtx, doc.StationID, typeID)
		cancel()
		if errors.Is(err, database.ErrParameterNotFound) {
			log.Debug("No parameter for reading", "key", r.Key, "parameter_type_id", typeID)
			out.Unresolved++
			continue
		}
		if err != nil {
			return nil, err
		}

		rows = append(rows, database.NewMeasurement{
			ParameterID: parameterID,
			Value:       r.Value,
			CapturedAt:  doc.CapturedAt,
		})
	}
	return rows, nil
}

// evaluateAll evaluates every persisted row, even after a failure, and returns the
// joined evaluation errors. The document must stay staged when any evaluation failed
// so the next pass evaluates its rows again.
func (p *Processor) evaluateAll(ctx context.Context, log *slog.Logger, persisted []database.Measurement, out *Outcome) error {
	var errs []error
	for _, m := range persisted {
		res, err := p.evaluator.Evaluate(ctx, m)
		out.Alarms.Add(res)
		if err != nil {
			out.EvaluationErrors++
			errs = append(errs, fmt.Errorf("evaluate measurement %d: %w", m.MeasurementID, err))
			log.Error("Alert evaluation failed",
				"measurement_id", m.MeasurementID,
				"parameter_id", m.ParameterID,
				"error", err,
			)
		}
	}

	p.metrics.AddCustom(metrics.AlarmsCreated, uint64(out.Alarms.AlarmsCreated))
	p.metrics.AddCustom(metrics.AlarmsExisting, uint64(out.Alarms.AlarmsExisting))
	for i := 0; i < out.Alarms.EventsPublished; i++ {
		p.metrics.RecordPublished()
	}
	return errors.Join(errs...)
}

func (p *Processor) delete(ctx context.Context, st StagingStore, id any) error {
	deleteCtx, cancel := p.withTimeout(ctx)
	defer cancel()
	return st.Delete(deleteCtx, id)
}

func (p *Processor) fail(log *slog.Logger, out Outcome, err error) Outcome {
	log.Error("Document processing failed, keeping it staged", "error", err)
	out.Status = StatusFailed
	out.Err = err
	p.metrics.RecordError()
	p.metrics.IncrementCustom(metrics.DocumentsFailed)
	return out
}

// parameterIDs returns the distinct parameter IDs of rows in first-seen order.
func parameterIDs(rows []database.NewMeasurement) []int64 {
	seen := make(map[int64]struct{}, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.ParameterID]; ok {
			continue
		}
		seen[r.ParameterID] = struct{}{}
		ids = append(ids, r.ParameterID)
	}
	return ids
}
