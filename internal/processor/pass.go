package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FR0M-ZER0/nimbus-data-processing/internal/metrics"

	"github.com/google/uuid"
)

const closeTimeout = 10 * time.Second

// PassSummary aggregates the outcomes of one pass.
type PassSummary struct {
	RunID                string
	Documents            int
	Processed            int
	Discarded            int
	Deferred             int
	Failed               int
	MeasurementsInserted int64
	AlarmsCreated        int
	Duration             time.Duration
}

func (s *PassSummary) add(out Outcome) {
	switch out.Status {
	case StatusProcessed:
		s.Processed++
	case StatusDiscarded:
		s.Discarded++
	case StatusDeferred:
		s.Deferred++
	case StatusFailed:
		s.Failed++
	}
	s.MeasurementsInserted += out.Inserted
	s.AlarmsCreated += out.Alarms.AlarmsCreated
}

// RunPass opens staging, processes every pending document in listing order and
// closes staging. Only a connect or list failure is returned as an error; per-document
// failures are counted in the summary. Cancelling ctx stops the pass before the next document.
func (p *Processor) RunPass(ctx context.Context) (PassSummary, error) {
	start := time.Now()
	summary := PassSummary{RunID: uuid.NewString()}
	log := slog.With("run_id", summary.RunID)

	log.Info("Starting processing pass")

	st, err := p.openStaging(ctx)
	if err != nil {
		return p.abort(log, summary, start, fmt.Errorf("failed to open staging store: %w", err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			log.Warn("Failed to close staging store", "error", err)
		}
	}()

	listCtx, cancel := p.withTimeout(ctx)
	docs, err := st.ListPending(listCtx)
	cancel()
	if err != nil {
		return p.abort(log, summary, start, err)
	}
	summary.Documents = len(docs)
	log.Info("Pending documents listed", "count", len(docs))

	for i, doc := range docs {
		if ctx.Err() != nil {
			log.Warn("Pass cancelled, leaving remaining documents staged", "remaining", len(docs)-i)
			break
		}
		summary.add(p.ProcessDocument(ctx, st, doc))
	}

	summary.Duration = time.Since(start)
	p.metrics.IncrementCustom(metrics.PassesCompleted)

	log.Info("Processing pass completed",
		"documents", summary.Documents,
		"processed", summary.Processed,
		"discarded", summary.Discarded,
		"deferred", summary.Deferred,
		"failed", summary.Failed,
		"measurements_inserted", summary.MeasurementsInserted,
		"alarms_created", summary.AlarmsCreated,
		"duration", summary.Duration,
	)
	return summary, nil
}

func (p *Processor) abort(log *slog.Logger, summary PassSummary, start time.Time, err error) (PassSummary, error) {
	summary.Duration = time.Since(start)
	p.metrics.RecordError()
	p.metrics.IncrementCustom(metrics.PassesFailed)
	log.Error("Processing pass aborted", "error", err, "duration", summary.Duration)
	return summary, err
}
