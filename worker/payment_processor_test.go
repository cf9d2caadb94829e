package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arunvm123/gigbooking/model"
)

// chanReader serves messages from a channel until ctx is cancelled and
// records committed offsets.
type chanReader struct {
	messages chan kafka.Message
	fetchErr error
	fetches  int64

	mu        sync.Mutex
	committed []int64
}

func newChanReader(size int) *chanReader {
	return &chanReader{messages: make(chan kafka.Message, size)}
}

func (r *chanReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	atomic.AddInt64(&r.fetches, 1)
	if r.fetchErr != nil {
		return kafka.Message{}, r.fetchErr
	}
	select {
	case msg := <-r.messages:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *chanReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *chanReader) Close() error { return nil }

func (r *chanReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func (r *chanReader) lastCommit() int64 {
	c := r.commits()
	if len(c) == 0 {
		return -1
	}
	return c[len(c)-1]
}

type recordingApplier struct {
	mu       sync.Mutex
	applied  []model.PaymentResult
	failures map[string]int
	delay    map[model.PaymentOutcome]time.Duration
}

func (a *recordingApplier) ApplyPaymentResult(_ context.Context, result model.PaymentResult) error {
	if result.BookingID == "missing" {
		return model.ErrBookingNotFound
	}
	if d := a.delay[result.Outcome]; d > 0 {
		time.Sleep(d)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failures[result.BookingID] != 0 {
		if a.failures[result.BookingID] > 0 {
			a.failures[result.BookingID]--
		}
		return fmt.Errorf("%w: connection reset", model.ErrDatabase)
	}
	a.applied = append(a.applied, result)
	return nil
}

func (a *recordingApplier) results() []model.PaymentResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.PaymentResult(nil), a.applied...)
}

func paymentMessage(t *testing.T, offset int64, result model.PaymentResult) kafka.Message {
	t.Helper()
	value, err := json.Marshal(result)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(result.BookingID), Value: value, Offset: offset}
}

func newTestProcessor(applier PaymentApplier, reader MessageReader, workers int) *PaymentProcessor {
	p := NewPaymentProcessor(applier, reader, workers, zap.NewNop())
	p.retryInitialDelay = time.Millisecond
	p.retryMaxDelay = 5 * time.Millisecond
	p.fetchRetryDelay = 20 * time.Millisecond
	return p
}

func runProcessor(t *testing.T, p *PaymentProcessor) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Start(ctx) }()

	return func() {
		cancel()
		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(2 * time.Second):
			t.Fatal("processor did not stop")
		}
	}
}

func TestPaymentProcessor_AppliesResults(t *testing.T) {
	reader := newChanReader(4)
	applier := &recordingApplier{}
	processor := newTestProcessor(applier, reader, 2)

	reader.messages <- paymentMessage(t, 0, model.PaymentResult{BookingID: "bkg-1", Outcome: model.PaymentOutcomePaid, Reference: "ch_1"})
	reader.messages <- paymentMessage(t, 1, model.PaymentResult{BookingID: "missing", Outcome: model.PaymentOutcomePaid})
	reader.messages <- kafka.Message{Value: []byte("{not json"), Offset: 2}
	reader.messages <- paymentMessage(t, 3, model.PaymentResult{Outcome: model.PaymentOutcomeFailed})

	stop := runProcessor(t, processor)
	assert.Eventually(t, func() bool { return processor.Processed() == 4 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return reader.lastCommit() == 3 }, 2*time.Second, 10*time.Millisecond)
	stop()

	results := applier.results()
	require.Len(t, results, 1)
	assert.Equal(t, "bkg-1", results[0].BookingID)
	assert.Equal(t, "ch_1", results[0].Reference)
}

func TestPaymentProcessor_TransientFailureIsNotCommitted(t *testing.T) {
	reader := newChanReader(1)
	applier := &recordingApplier{failures: map[string]int{"bkg-1": -1}}
	processor := newTestProcessor(applier, reader, 1)

	reader.messages <- paymentMessage(t, 0, model.PaymentResult{BookingID: "bkg-1", Outcome: model.PaymentOutcomePaid})

	stop := runProcessor(t, processor)
	time.Sleep(50 * time.Millisecond)
	stop()

	assert.Empty(t, reader.commits())
	assert.Empty(t, applier.results())
	assert.Zero(t, processor.Processed())
}

func TestPaymentProcessor_RetriesUntilApplied(t *testing.T) {
	reader := newChanReader(1)
	applier := &recordingApplier{failures: map[string]int{"bkg-1": 3}}
	processor := newTestProcessor(applier, reader, 1)

	reader.messages <- paymentMessage(t, 0, model.PaymentResult{BookingID: "bkg-1", Outcome: model.PaymentOutcomePaid})

	stop := runProcessor(t, processor)
	assert.Eventually(t, func() bool { return reader.lastCommit() == 0 }, 2*time.Second, 5*time.Millisecond)
	stop()

	assert.Len(t, applier.results(), 1)
	assert.Equal(t, int64(1), processor.Processed())
}

func TestPaymentProcessor_SameBookingKeepsOrder(t *testing.T) {
	reader := newChanReader(2)
	applier := &recordingApplier{delay: map[model.PaymentOutcome]time.Duration{model.PaymentOutcomePaid: 30 * time.Millisecond}}
	processor := newTestProcessor(applier, reader, 4)

	reader.messages <- paymentMessage(t, 0, model.PaymentResult{BookingID: "bkg-7", Outcome: model.PaymentOutcomePaid})
	reader.messages <- paymentMessage(t, 1, model.PaymentResult{BookingID: "bkg-7", Outcome: model.PaymentOutcomeRefunded})

	stop := runProcessor(t, processor)
	assert.Eventually(t, func() bool { return processor.Processed() == 2 }, 2*time.Second, 5*time.Millisecond)
	stop()

	results := applier.results()
	require.Len(t, results, 2)
	assert.Equal(t, model.PaymentOutcomePaid, results[0].Outcome)
	assert.Equal(t, model.PaymentOutcomeRefunded, results[1].Outcome)
}

func TestPaymentProcessor_FetchErrorBacksOff(t *testing.T) {
	reader := newChanReader(0)
	reader.fetchErr = errors.New("broker unavailable")
	processor := newTestProcessor(&recordingApplier{}, reader, 1)

	stop := runProcessor(t, processor)
	time.Sleep(100 * time.Millisecond)
	stop()

	assert.LessOrEqual(t, atomic.LoadInt64(&reader.fetches), int64(20))
}

func TestOffsetTracker_CommitsHandledPrefix(t *testing.T) {
	tracker := newOffsetTracker()
	msgs := []kafka.Message{{Partition: 0, Offset: 10}, {Partition: 0, Offset: 11}, {Partition: 0, Offset: 12}, {Partition: 1, Offset: 4}}
	for _, m := range msgs {
		tracker.track(m)
	}

	_, ok := tracker.complete(msgs[2])
	assert.False(t, ok)

	upTo, ok := tracker.complete(msgs[0])
	require.True(t, ok)
	assert.Equal(t, int64(10), upTo.Offset)

	upTo, ok = tracker.complete(msgs[1])
	require.True(t, ok)
	assert.Equal(t, int64(12), upTo.Offset)

	upTo, ok = tracker.complete(msgs[3])
	require.True(t, ok)
	assert.Equal(t, 1, upTo.Partition)
	assert.Equal(t, int64(4), upTo.Offset)
}

func TestPaymentProcessor_ProcessPayment(t *testing.T) {
	processor := newTestProcessor(&recordingApplier{}, newChanReader(0), 1)

	err := processor.processPayment(paymentMessage(t, 0, model.PaymentResult{BookingID: "missing", Outcome: model.PaymentOutcomeRefunded}))
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.False(t, retryable(err))

	err = processor.processPayment(paymentMessage(t, 0, model.PaymentResult{Outcome: model.PaymentOutcomePaid}))
	assert.ErrorIs(t, err, model.ErrValidation)

	err = processor.processPayment(kafka.Message{Value: []byte("[")})
	assert.False(t, retryable(err))

	assert.True(t, retryable(fmt.Errorf("%w: timeout", model.ErrDatabase)))
	assert.NoError(t, processor.processPayment(paymentMessage(t, 0, model.PaymentResult{BookingID: "bkg-2", Outcome: model.PaymentOutcomePaid})))
}

func TestPaymentProcessor_RetryDelayIsCapped(t *testing.T) {
	processor := NewPaymentProcessor(&recordingApplier{}, newChanReader(0), 1, zap.NewNop())

	assert.Equal(t, defaultRetryInitialDelay, processor.retryDelay(0))
	assert.Equal(t, 2*defaultRetryInitialDelay, processor.retryDelay(1))
	assert.Equal(t, defaultRetryMaxDelay, processor.retryDelay(30))
}

func TestNewPaymentProcessor_AtLeastOneWorker(t *testing.T) {
	processor := NewPaymentProcessor(&recordingApplier{}, newChanReader(0), 0, zap.NewNop())
	assert.Len(t, processor.workers, 1)
	assert.Same(t, processor.workerFor([]byte("bkg-1")), processor.workerFor([]byte("bkg-1")))
}
