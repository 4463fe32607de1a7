package metrics

import "time"

// Recorder is the set of operations shared by Collector and Prometheus.
type Recorder interface {
	RecordReceived()
	RecordProcessed(latency time.Duration)
	RecordPublished()
	RecordError()
	IncrementCustom(name string)
	AddCustom(name string, value uint64)
}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = (*Prometheus)(nil)
	_ Recorder = Fanout(nil)
)

// Fanout forwards every call to each recorder in order.
type Fanout []Recorder

// RecordReceived forwards to every recorder.
func (f Fanout) RecordReceived() {
	for _, r := range f {
		r.RecordReceived()
	}
}

// RecordProcessed forwards to every recorder.
func (f Fanout) RecordProcessed(latency time.Duration) {
	for _, r := range f {
		r.RecordProcessed(latency)
	}
}

// RecordPublished forwards to every recorder.
func (f Fanout) RecordPublished() {
	for _, r := range f {
		r.RecordPublished()
	}
}

// RecordError forwards to every recorder.
func (f Fanout) RecordError() {
	for _, r := range f {
		r.RecordError()
	}
}

// IncrementCustom forwards to every recorder.
func (f Fanout) IncrementCustom(name string) {
	for _, r := range f {
		r.IncrementCustom(name)
	}
}

// AddCustom forwards to every recorder.
func (f Fanout) AddCustom(name string, value uint64) {
	for _, r := range f {
		r.AddCustom(name, value)
	}
}
