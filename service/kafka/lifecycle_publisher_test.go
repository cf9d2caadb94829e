package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arunvm123/gigbooking/config"
	"github.com/arunvm123/gigbooking/model"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestLifecyclePublisher_Publish(t *testing.T) {
	writer := &fakeWriter{}
	pub := NewLifecyclePublisher(writer)
	event := model.BookingLifecycleEvent{
		ID:              "msg-1",
		Type:            model.LifecycleBookingCancelled,
		BookingID:       "bkg-1",
		EventID:         "evt-1",
		UserID:          "user-1",
		NumberOfTickets: 3,
		TotalAmount:     75,
		Status:          model.BookingStatusCancelled,
		PaymentStatus:   model.PaymentStatusRefunded,
		OccurredAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, pub.Publish(context.Background(), event))
	require.NoError(t, pub.Publish(context.Background(), event))

	require.Len(t, writer.messages, 2)
	msg := writer.messages[0]
	assert.Equal(t, "bkg-1", string(msg.Key))
	assert.Equal(t, []kafka.Header{{Key: "type", Value: []byte("booking_cancelled")}}, msg.Headers)

	var decoded model.BookingLifecycleEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event, decoded)
	assert.Equal(t, msg.Value, writer.messages[1].Value)
}

func TestLifecyclePublisher_WriteError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker unreachable")}
	pub := NewLifecyclePublisher(writer)

	err := pub.Publish(context.Background(), model.BookingLifecycleEvent{BookingID: "bkg-1", Type: model.LifecycleBookingCreated})

	assert.ErrorContains(t, err, "broker unreachable")
	assert.ErrorContains(t, err, "booking_created")
}

func TestLifecyclePublisher_Close(t *testing.T) {
	writer := &fakeWriter{}
	require.NoError(t, NewLifecyclePublisher(writer).Close())
	assert.True(t, writer.closed)
}

func TestNewWriter(t *testing.T) {
	w := NewWriter(config.Kafka{Brokers: []string{"localhost:9092"}, BookingEventsTopic: "booking-events"})
	defer w.Close()

	assert.Equal(t, "booking-events", w.Topic)
	assert.Equal(t, "localhost:9092", w.Addr.String())
}
