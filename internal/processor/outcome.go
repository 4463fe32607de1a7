package processor

import "github.com/FR0M-ZER0/nimbus-data-processing/internal/evaluator"

// Status is the terminal state of one staged document after processing.
type Status int

const (
	// StatusProcessed means measurements were persisted and the document deleted.
	StatusProcessed Status = iota
	// StatusDiscarded means the document was deleted without persisting anything, because
	// no reading was resolvable or the document could not be decoded.
	StatusDiscarded
	// StatusDeferred means parameter types could not be fetched; the document stays staged.
	StatusDeferred
	// StatusFailed means a persistence or alert evaluation error occurred; the document
	// stays staged and is retried on the next pass.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusProcessed:
		return "processed"
	case StatusDiscarded:
		return "discarded"
	case StatusDeferred:
		return "deferred"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome reports what ProcessDocument did with one document.
type Outcome struct {
	Status Status

	Readings   int
	Unmapped   int
	Unresolved int

	Inserted   int64
	Duplicates int64

	Alarms           evaluator.Result
	EvaluationErrors int

	Err error
}

// Deleted reports whether the document was removed from staging.
func (o Outcome) Deleted() bool {
	return o.Status == StatusProcessed || o.Status == StatusDiscarded
}
