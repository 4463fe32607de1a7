// Package metrics records data processor activity. The Collector keeps pass-level
// counters and publishes them to Redis; Prometheus exposes the same events for scraping.
package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// ServiceName identifies this service in Redis and in logs.
	ServiceName = "data-processor"
	// KeyPrefix namespaces every Redis key written by a Collector.
	KeyPrefix = "metrics:"
	// SnapshotTTL expires a snapshot whose writer stopped reporting.
	SnapshotTTL = 2 * time.Minute
	// DefaultReportInterval is how often a started Collector reports.
	DefaultReportInterval = 30 * time.Second

	finalReportTimeout = 5 * time.Second
)

// Counter names accepted by IncrementCustom and AddCustom.
const (
	DocumentsDeferred     = "documents_deferred"
	DocumentsDiscarded    = "documents_discarded"
	DocumentsFailed       = "documents_failed"
	DocumentsRejected     = "documents_rejected"
	MeasurementsInserted  = "measurements_inserted"
	MeasurementsDuplicate = "measurements_duplicate"
	ReadingsUnmapped      = "readings_unmapped"
	ReadingsUnresolved    = "readings_unresolved"
	AlarmsCreated         = "alarms_created"
	AlarmsExisting        = "alarms_existing"
	PassesCompleted       = "passes_completed"
	PassesFailed          = "passes_failed"
)

// Snapshot is the JSON document stored under KeyPrefix + service name.
type Snapshot struct {
	Service   string    `json:"service"`
	StartedAt time.Time `json:"started_at"`
	TakenAt   time.Time `json:"taken_at"`

	Documents            DocumentStats `json:"documents"`
	AlarmEventsPublished uint64        `json:"alarm_events_published"`
	Errors               uint64        `json:"errors"`
	Latency              LatencyStats  `json:"latency"`

	Counters map[string]uint64 `json:"counters,omitempty"`
}

// DocumentStats counts staged documents. ProcessedPerMinute covers the time since
// the previous report, or since start before the first one.
type DocumentStats struct {
	Received           uint64  `json:"received"`
	Processed          uint64  `json:"processed"`
	ProcessedPerMinute float64 `json:"processed_per_minute"`
}

// LatencyStats describes end-to-end handling time of processed documents.
type LatencyStats struct {
	Samples uint64  `json:"samples"`
	MeanMs  float64 `json:"mean_ms"`
	MaxMs   float64 `json:"max_ms"`
}

type windowMark struct {
	at        time.Time
	processed uint64
}

// Collector counts processor events and reports them to Redis on an interval.
// With a nil Redis client it keeps counting and never writes.
type Collector struct {
	service   string
	redis     *redis.Client
	startedAt time.Time
	interval  time.Duration

	mu           sync.Mutex
	received     uint64
	processed    uint64
	published    uint64
	errors       uint64
	latencyTotal time.Duration
	latencyMax   time.Duration
	counters     map[string]uint64
	window       windowMark

	cancel context.CancelFunc
	done   chan struct{}
}

// NewCollector creates a collector that reports under the given service name.
func NewCollector(service string, redisClient *redis.Client) *Collector {
	now := time.Now().UTC()
	return &Collector{
		service:   service,
		redis:     redisClient,
		startedAt: now,
		interval:  DefaultReportInterval,
		counters:  make(map[string]uint64),
		window:    windowMark{at: now},
	}
}

// SetReportInterval changes the report interval. Call before Start.
func (c *Collector) SetReportInterval(interval time.Duration) {
	c.interval = interval
}

// Start reports every interval until ctx is cancelled or Stop is called, then
// reports once more.
func (c *Collector) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), finalReportTimeout)
			c.report(final)
			cancel()
			return
		case <-ticker.C:
			c.report(ctx)
		}
	}
}

// Stop ends reporting and waits for the final report. It is a no-op before Start
// and safe to call more than once.
func (c *Collector) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

// RecordReceived counts a staged document picked up by a pass.
func (c *Collector) RecordReceived() {
	c.mu.Lock()
	c.received++
	c.mu.Unlock()
}

// RecordProcessed counts a document that was persisted and deleted, with its handling time.
func (c *Collector) RecordProcessed(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processed++
	c.latencyTotal += latency
	if latency > c.latencyMax {
		c.latencyMax = latency
	}
}

// RecordPublished counts an alarm event handed to the broker.
func (c *Collector) RecordPublished() {
	c.mu.Lock()
	c.published++
	c.mu.Unlock()
}

// RecordError counts a processing error.
func (c *Collector) RecordError() {
	c.mu.Lock()
	c.errors++
	c.mu.Unlock()
}

// IncrementCustom adds one to the named counter.
func (c *Collector) IncrementCustom(name string) {
	c.AddCustom(name, 1)
}

// AddCustom adds value to the named counter.
func (c *Collector) AddCustom(name string, value uint64) {
	c.mu.Lock()
	c.counters[name] += value
	c.mu.Unlock()
}

// Snapshot returns the current counters without reporting them.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(time.Now().UTC())
}

func (c *Collector) snapshotLocked(now time.Time) Snapshot {
	s := Snapshot{
		Service:   c.service,
		StartedAt: c.startedAt,
		TakenAt:   now,
		Documents: DocumentStats{
			Received:  c.received,
			Processed: c.processed,
		},
		AlarmEventsPublished: c.published,
		Errors:               c.errors,
		Latency: LatencyStats{
			Samples: c.processed,
			MaxMs:   milliseconds(c.latencyMax),
		},
		Counters: maps.Clone(c.counters),
	}
	if c.processed > 0 {
		s.Latency.MeanMs = milliseconds(c.latencyTotal) / float64(c.processed)
	}
	if elapsed := now.Sub(c.window.at).Minutes(); elapsed > 0 {
		s.Documents.ProcessedPerMinute = float64(c.processed-c.window.processed) / elapsed
	}
	return s
}

// report writes the snapshot as JSON and the named counters as a hash next to it,
// both in one transaction, then starts a new rate window.
func (c *Collector) report(ctx context.Context) {
	if c.redis == nil {
		return
	}

	c.mu.Lock()
	snap := c.snapshotLocked(time.Now().UTC())
	c.window = windowMark{at: snap.TakenAt, processed: snap.Documents.Processed}
	c.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		slog.Error("Failed to encode metrics snapshot", "service", c.service, "error", err)
		return
	}

	key := KeyPrefix + c.service
	countersKey := key + ":counters"

	pipe := c.redis.TxPipeline()
	pipe.Set(ctx, key, data, SnapshotTTL)
	if len(snap.Counters) > 0 {
		fields := make(map[string]any, len(snap.Counters))
		for name, v := range snap.Counters {
			fields[name] = v
		}
		pipe.HSet(ctx, countersKey, fields)
		pipe.Expire(ctx, countersKey, SnapshotTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("Failed to report metrics to Redis", "service", c.service, "error", err)
		return
	}

	slog.Debug("Metrics reported", "service", c.service, "key", key,
		"processed", snap.Documents.Processed,
		"processed_per_minute", snap.Documents.ProcessedPerMinute,
	)
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
