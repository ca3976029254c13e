// File: backend/services/impersonation-service/internal/events/kafka/producer.go
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CloudEvent defines the structure for CloudEvents v1.0.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         *string     `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType *string     `json:"datacontenttype,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// EventType is a string alias for event types.
type EventType string

// Impersonation lifecycle event types published to the security topic.
const (
	EventSessionStarted    EventType = "com.crm.impersonation.session.started"
	EventSessionEnded      EventType = "com.crm.impersonation.session.ended"
	EventSessionForceEnded EventType = "com.crm.impersonation.session.force_ended"
	EventSessionExpired    EventType = "com.crm.impersonation.session.expired"
)

const (
	cloudEventSpecVersion     = "1.0"
	cloudEventDataContentType = "application/json"
)

// Producer publishes CloudEvents to Kafka.
type Producer struct {
	producer sarama.SyncProducer
	logger   *zap.Logger
	source   string
	topic    string
}

// NewProducer creates a new Kafka producer. cloudEventSource identifies the
// service, e.g. "/impersonation-service".
func NewProducer(brokers []string, topic string, logger *zap.Logger, cloudEventSource string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 500 * time.Millisecond
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1 // Required for the idempotent producer

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &Producer{
		producer: producer,
		logger:   logger.Named("kafka_producer"),
		source:   cloudEventSource,
		topic:    topic,
	}, nil
}

// PublishSessionEvent publishes an impersonation lifecycle event keyed by
// session id. Failures are returned to the caller, which treats publication
// as best-effort.
func (p *Producer) PublishSessionEvent(ctx context.Context, eventType EventType, sessionID string, payload interface{}) error {
	contentType := cloudEventDataContentType
	event := CloudEvent{
		SpecVersion:     cloudEventSpecVersion,
		ID:              uuid.NewString(),
		Source:          p.source,
		Type:            string(eventType),
		Subject:         &sessionID,
		Time:            time.Now().UTC(),
		DataContentType: &contentType,
		Data:            payload,
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal CloudEvent to JSON: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(sessionID),
		Value: sarama.ByteEncoder(eventJSON),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send CloudEvent to Kafka: %w", err)
	}

	p.logger.Debug("Published impersonation event",
		zap.String("event_type", string(eventType)),
		zap.String("session_id", sessionID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close shuts down the underlying sarama producer.
func (p *Producer) Close() error {
	return p.producer.Close()
}
