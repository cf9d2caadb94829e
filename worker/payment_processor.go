package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/arunvm123/gigbooking/metrics"
	"github.com/arunvm123/gigbooking/model"
)

const (
	shutdownTimeout = 30 * time.Second
	metricsInterval = 30 * time.Second
	commitTimeout   = 10 * time.Second

	defaultRetryInitialDelay = 200 * time.Millisecond
	defaultRetryMaxDelay     = 10 * time.Second
	defaultFetchRetryDelay   = time.Second

	workerQueueSize = 16
)

// MessageReader is the part of *kafka.Reader the processor uses. Offsets are
// committed explicitly once a result has been handled.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PaymentApplier records a payment outcome against a booking.
type PaymentApplier interface {
	ApplyPaymentResult(ctx context.Context, result model.PaymentResult) error
}

// PaymentProcessor consumes payment results and applies them to bookings
// through a fixed pool of workers. Messages with the same key always go to
// the same worker, so results for one booking apply in partition order.
type PaymentProcessor struct {
	applier  PaymentApplier
	consumer MessageReader
	logger   *zap.Logger
	workers  []*paymentWorker
	offsets  *offsetTracker

	retryInitialDelay time.Duration
	retryMaxDelay     time.Duration
	fetchRetryDelay   time.Duration

	// Metrics
	processedCount int64
	activeWorkers  int64
}

type paymentWorker struct {
	id         int
	processor  *PaymentProcessor
	jobChannel chan kafka.Message
	quit       chan struct{}
	done       chan struct{}
}

func NewPaymentProcessor(applier PaymentApplier, consumer MessageReader, maxWorkers int, logger *zap.Logger) *PaymentProcessor {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	processor := &PaymentProcessor{
		applier:           applier,
		consumer:          consumer,
		logger:            logger,
		workers:           make([]*paymentWorker, maxWorkers),
		offsets:           newOffsetTracker(),
		retryInitialDelay: defaultRetryInitialDelay,
		retryMaxDelay:     defaultRetryMaxDelay,
		fetchRetryDelay:   defaultFetchRetryDelay,
	}

	for i := 0; i < maxWorkers; i++ {
		processor.workers[i] = &paymentWorker{
			id:         i,
			processor:  processor,
			jobChannel: make(chan kafka.Message, workerQueueSize),
			quit:       make(chan struct{}),
			done:       make(chan struct{}),
		}
	}

	return processor
}

// Start fetches payment results until ctx is cancelled, then stops the
// workers and returns ctx.Err(). Messages fetched but not yet handled stay
// uncommitted and are redelivered.
func (p *PaymentProcessor) Start(ctx context.Context) error {
	p.logger.Info("starting payment processor", zap.Int("workers", len(p.workers)))

	for _, w := range p.workers {
		w.start(ctx)
	}
	defer p.shutdown()

	go p.reportMetrics(ctx)

	for {
		msg, err := p.consumer.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Warn("error fetching message", zap.Error(err))
			if !sleep(ctx, p.fetchRetryDelay) {
				return ctx.Err()
			}
			continue
		}

		p.offsets.track(msg)

		// Blocks while the key's worker queue is full.
		select {
		case p.workerFor(msg.Key).jobChannel <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *PaymentProcessor) workerFor(key []byte) *paymentWorker {
	h := fnv.New32a()
	h.Write(key)
	return p.workers[h.Sum32()%uint32(len(p.workers))]
}

func (w *paymentWorker) start(ctx context.Context) {
	go func() {
		defer close(w.done)
		for {
			select {
			case job := <-w.jobChannel:
				atomic.AddInt64(&w.processor.activeWorkers, 1)
				w.process(ctx, job)
				atomic.AddInt64(&w.processor.activeWorkers, -1)
			case <-w.quit:
				return
			}
		}
	}()
}

// process applies one message, retrying transient failures until it succeeds
// or ctx is cancelled. Only handled messages are committed.
func (w *paymentWorker) process(ctx context.Context, job kafka.Message) {
	p := w.processor
	for attempt := 0; ; attempt++ {
		err := p.processPayment(job)
		if err == nil || !retryable(err) {
			if err != nil {
				p.logger.Warn("dropping payment result",
					zap.Int("worker", w.id),
					zap.Int64("offset", job.Offset),
					zap.Error(err),
				)
			}
			atomic.AddInt64(&p.processedCount, 1)
			p.commit(job)
			return
		}

		delay := p.retryDelay(attempt)
		p.logger.Warn("failed to apply payment result, retrying",
			zap.Int("worker", w.id),
			zap.Int64("offset", job.Offset),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if !sleep(ctx, delay) {
			return
		}
	}
}

func (p *PaymentProcessor) retryDelay(attempt int) time.Duration {
	delay := p.retryInitialDelay
	for i := 0; i < attempt && delay < p.retryMaxDelay; i++ {
		delay *= 2
	}
	if delay > p.retryMaxDelay {
		delay = p.retryMaxDelay
	}
	return delay
}

// commit marks msg handled and commits the partition's offset up to the
// highest message whose predecessors are all handled.
func (p *PaymentProcessor) commit(msg kafka.Message) {
	p.offsets.mu.Lock()
	defer p.offsets.mu.Unlock()

	upTo, ok := p.offsets.complete(msg)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()
	if err := p.consumer.CommitMessages(ctx, upTo); err != nil {
		p.logger.Error("failed to commit offset",
			zap.Int("partition", upTo.Partition),
			zap.Int64("offset", upTo.Offset),
			zap.Error(err),
		)
	}
}

// shutdown stops every worker and waits for in-flight results to finish.
func (p *PaymentProcessor) shutdown() {
	p.logger.Info("shutting down payment processor workers")

	for _, w := range p.workers {
		close(w.quit)
	}

	timeout := time.After(shutdownTimeout)
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-timeout:
			p.logger.Warn("shutdown timeout reached, forcing exit")
			return
		}
	}
	p.logger.Info("all workers finished")
}

func (p *PaymentProcessor) reportMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.logger.Info("payment processor metrics",
				zap.Int64("processed", atomic.LoadInt64(&p.processedCount)),
				zap.Int64("active_workers", atomic.LoadInt64(&p.activeWorkers)),
			)
		}
	}
}

// Processed returns the number of messages handled so far.
func (p *PaymentProcessor) Processed() int64 {
	return atomic.LoadInt64(&p.processedCount)
}

// processPayment applies one payment result.
func (p *PaymentProcessor) processPayment(msg kafka.Message) error {
	var result model.PaymentResult
	if err := json.Unmarshal(msg.Value, &result); err != nil {
		metrics.RecordPaymentResult("unknown", "malformed")
		return fmt.Errorf("%w: failed to unmarshal payment result: %v", model.ErrValidation, err)
	}
	if result.BookingID == "" {
		metrics.RecordPaymentResult(string(result.Outcome), "malformed")
		return fmt.Errorf("%w: payment result without booking id", model.ErrValidation)
	}

	ctx := context.Background()
	err := p.applier.ApplyPaymentResult(ctx, result)
	switch {
	case err == nil:
		metrics.RecordPaymentResult(string(result.Outcome), "applied")
		p.logger.Info("payment result applied",
			zap.String("booking_id", result.BookingID),
			zap.String("outcome", string(result.Outcome)),
			zap.String("reference", result.Reference),
		)
		return nil
	case !retryable(err):
		metrics.RecordPaymentResult(string(result.Outcome), "rejected")
	default:
		metrics.RecordPaymentResult(string(result.Outcome), "failed")
	}

	return fmt.Errorf("booking %s: %w", result.BookingID, err)
}

// retryable reports whether err may succeed on a later attempt. Results that
// can never apply, such as malformed payloads or unknown bookings, are not.
func retryable(err error) bool {
	return !errors.Is(err, model.ErrNotFound) &&
		!errors.Is(err, model.ErrValidation) &&
		!errors.Is(err, model.ErrInvalidTransition)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// offsetTracker orders completions per partition. Workers finish out of
// order, but a partition's offset only advances past messages that are all
// handled.
type offsetTracker struct {
	mu         sync.Mutex
	partitions map[int]*partitionOffsets
}

type partitionOffsets struct {
	pending []int64
	done    map[int64]kafka.Message
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{partitions: make(map[int]*partitionOffsets)}
}

func (t *offsetTracker) track(msg kafka.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	po, ok := t.partitions[msg.Partition]
	if !ok {
		po = &partitionOffsets{done: make(map[int64]kafka.Message)}
		t.partitions[msg.Partition] = po
	}
	po.pending = append(po.pending, msg.Offset)
}

// complete must be called with mu held. It returns the last message of the
// handled prefix, if the prefix grew.
func (t *offsetTracker) complete(msg kafka.Message) (kafka.Message, bool) {
	po, ok := t.partitions[msg.Partition]
	if !ok {
		return kafka.Message{}, false
	}
	po.done[msg.Offset] = msg

	var last kafka.Message
	advanced := false
	for len(po.pending) > 0 {
		m, handled := po.done[po.pending[0]]
		if !handled {
			break
		}
		delete(po.done, po.pending[0])
		po.pending = po.pending[1:]
		last, advanced = m, true
	}
	return last, advanced
}
