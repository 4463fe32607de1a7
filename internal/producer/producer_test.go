package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/FR0M-ZER0/nimbus-data-processing/internal/events"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func sampleAlarm() *events.AlarmCreated {
	return &events.AlarmCreated{
		AlarmID:       77,
		UserID:        42,
		MeasurementID: 900,
		AlertID:       3,
		ParameterID:   100,
		Value:         31,
		CapturedAt:    1700000000000,
		Operator:      ">",
		Threshold:     30,
		Title:         "High temperature",
		Body:          "Temperature above 30",
		SchemaVersion: events.SchemaVersion,
	}
}

func TestNewProducer(t *testing.T) {
	tests := []struct {
		name    string
		brokers string
		topic   string
		wantErr bool
		errMsg  string
	}{
		{name: "valid producer", brokers: "localhost:9092", topic: "alarms.created"},
		{name: "multiple brokers", brokers: "localhost:9092, localhost:9093", topic: "alarms.created"},
		{name: "empty brokers", brokers: "", topic: "alarms.created", wantErr: true, errMsg: "brokers cannot be empty"},
		{name: "empty topic", brokers: "localhost:9092", topic: "", wantErr: true, errMsg: "topic cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProducer(tt.brokers, tt.topic)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewProducer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if err.Error() != tt.errMsg {
					t.Errorf("NewProducer() error = %q, want %q", err.Error(), tt.errMsg)
				}
				return
			}
			if err := p.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
}

func TestBuildMessage(t *testing.T) {
	alarm := sampleAlarm()

	msg, err := buildMessage(alarm)
	if err != nil {
		t.Fatalf("buildMessage() error = %v", err)
	}
	if string(msg.Key) != "42" {
		t.Errorf("Key = %q, want %q", msg.Key, "42")
	}

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["schema_version"] != "1" || headers["alarm_id"] != "77" {
		t.Errorf("headers = %v", headers)
	}

	var decoded events.AlarmCreated
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded != *alarm {
		t.Errorf("payload = %+v, want %+v", decoded, *alarm)
	}
	if msg.Time.IsZero() {
		t.Error("Time not set")
	}
}

func TestPublish(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, topic: "alarms.created"}

	if err := p.Publish(context.Background(), sampleAlarm()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(w.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.messages))
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !w.closed {
		t.Error("writer not closed")
	}
}

func TestPublish_WriteError(t *testing.T) {
	writeErr := errors.New("leader not available")
	p := &Producer{writer: &fakeWriter{err: writeErr}, topic: "alarms.created"}

	err := p.Publish(context.Background(), sampleAlarm())
	if !errors.Is(err, writeErr) {
		t.Errorf("Publish() error = %v, want wrapped %v", err, writeErr)
	}
}
