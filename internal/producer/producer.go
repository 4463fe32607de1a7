// Package producer publishes alarm events to Kafka.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/FR0M-ZER0/nimbus-data-processing/internal/events"
	kafkautil "github.com/FR0M-ZER0/nimbus-data-processing/internal/kafka"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes AlarmCreated events, keyed by user ID so one user's alarms
// stay on one partition.
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer creates a synchronous Kafka producer for the given brokers and topic.
func NewProducer(brokers string, topic string) (*Producer, error) {
	if err := kafkautil.ValidateProducerParams(brokers, topic); err != nil {
		return nil, err
	}

	brokerList := kafkautil.ParseBrokers(brokers)

	slog.Info("Initializing Kafka producer",
		"brokers", brokerList,
		"topic", topic,
	)

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerList...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: kafkautil.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	slog.Info("Kafka producer configured",
		"write_timeout", kafkautil.WriteTimeout,
		"required_acks", "RequireOne",
		"partition_key", "user_id (hashed)",
	)

	return &Producer{
		writer: writer,
		topic:  topic,
	}, nil
}

func buildMessage(alarm *events.AlarmCreated) (kafka.Message, error) {
	payload, err := json.Marshal(alarm)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal alarm created event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(strconv.FormatInt(alarm.UserID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "schema_version", Value: []byte(strconv.Itoa(alarm.SchemaVersion))},
			{Key: "alarm_id", Value: []byte(strconv.FormatInt(alarm.AlarmID, 10))},
		},
		Time: time.Now(),
	}, nil
}

// Publish serializes the event to JSON and writes it synchronously.
func (p *Producer) Publish(ctx context.Context, alarm *events.AlarmCreated) error {
	msg, err := buildMessage(alarm)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write alarm %d to Kafka topic %s: %w", alarm.AlarmID, p.topic, err)
	}

	slog.Debug("Published alarm created event",
		"alarm_id", alarm.AlarmID,
		"user_id", alarm.UserID,
		"alert_id", alarm.AlertID,
	)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	slog.Info("Closing Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		slog.Error("Error closing Kafka producer", "error", err)
		return err
	}
	return nil
}
