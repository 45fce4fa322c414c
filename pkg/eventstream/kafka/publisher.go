// Package kafka publishes upload progress events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/stylectl/pkg/eventstream"
)

// MessageWriter is the subset of *kafkago.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config configures a Publisher.
type Config struct {
	Brokers []string
	Topic   string

	// Writer overrides the kafka-go writer built from Brokers and Topic.
	Writer MessageWriter
}

// Publisher writes each event as one JSON message keyed by upload id, so all
// events of an upload land on the same partition in order.
type Publisher struct {
	writer MessageWriter
	topic  string
}

// NewPublisher validates cfg and returns a Publisher.
func NewPublisher(cfg Config) (*Publisher, error) {
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}

	writer := cfg.Writer
	if writer == nil {
		if len(cfg.Brokers) == 0 {
			return nil, errors.New("at least one kafka broker is required")
		}
		writer = &kafkago.Writer{
			Addr:                   kafkago.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
		}
	}

	return &Publisher{writer: writer, topic: cfg.Topic}, nil
}

// PublishProgress encodes and writes event.
func (p *Publisher) PublishProgress(ctx context.Context, event *eventstream.UploadProgressEvent) error {
	if event == nil {
		return eventstream.ErrNilProgressEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding progress event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.UploadID),
		Value: value,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte(fmt.Sprint(event.SchemaVersion))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing to kafka topic %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes pending messages and releases the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
