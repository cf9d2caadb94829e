package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/arunvm123/gigbooking/config"
	"github.com/arunvm123/gigbooking/model"
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Pool for JSON encoding buffers
var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return &bytes.Buffer{}
	},
}

// LifecyclePublisher writes booking lifecycle events to Kafka, keyed by
// booking id so the events of one booking stay ordered within a partition.
type LifecyclePublisher struct {
	writer MessageWriter
}

func NewLifecyclePublisher(writer MessageWriter) *LifecyclePublisher {
	return &LifecyclePublisher{writer: writer}
}

// NewWriter builds the writer for the booking events topic.
func NewWriter(cfg config.Kafka) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.BookingEventsTopic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

func (p *LifecyclePublisher) Publish(ctx context.Context, event model.BookingLifecycleEvent) error {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		jsonBufferPool.Put(buf)
	}()

	if err := json.NewEncoder(buf).Encode(event); err != nil {
		return fmt.Errorf("failed to encode lifecycle event: %w", err)
	}

	// The writer may keep the slice after returning, so hand it a copy.
	value := bytes.Clone(buf.Bytes())

	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.BookingID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s for booking %s: %w", event.Type, event.BookingID, err)
	}
	return nil
}

func (p *LifecyclePublisher) Close() error {
	return p.writer.Close()
}
