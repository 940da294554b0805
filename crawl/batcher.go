package crawl

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fwojciec/furnitron"
)

// Batcher accumulates candidates from concurrent producers into fixed-size
// batches and sends them to the classifier.
//
// A single dispatcher goroutine is the only caller of the classifier, so at
// most one classification call is ever in flight. Producers share the
// accumulator under one lock and hand full batches to the dispatcher over a
// channel; the lock is never held while waiting on the dispatcher.
type Batcher struct {
	classifier furnitron.Classifier
	recorder   Recorder
	logger     *slog.Logger
	size       int
	delays     []time.Duration
	timeout    time.Duration
	ctx        context.Context

	mu      sync.Mutex
	pending []furnitron.Candidate
	closed  bool
	sends   sync.WaitGroup

	batches chan []furnitron.Candidate
	done    chan struct{}

	// Written only by the dispatcher; read after done is closed.
	err      error
	calls    int
	degraded int
}

// BatcherOption configures a Batcher.
type BatcherOption func(*Batcher)

// WithBatchSize sets the number of candidates per classifier call.
// Defaults to DefaultBatchSize.
func WithBatchSize(n int) BatcherOption {
	return func(b *Batcher) {
		b.size = n
	}
}

// WithClassifyDelays sets the waits between classifier attempts for a batch.
// The number of attempts is len(delays)+1. Defaults to a single attempt.
func WithClassifyDelays(delays []time.Duration) BatcherOption {
	return func(b *Batcher) {
		b.delays = delays
	}
}

// WithClassifyTimeout bounds each classifier call. Zero means no limit.
func WithClassifyTimeout(d time.Duration) BatcherOption {
	return func(b *Batcher) {
		b.timeout = d
	}
}

// WithBatchLogger sets the logger used for retries and degraded batches.
func WithBatchLogger(logger *slog.Logger) BatcherOption {
	return func(b *Batcher) {
		b.logger = logger
	}
}

// NewBatcher creates a Batcher and starts its dispatcher. Classified
// candidates are passed to recorder from the dispatcher goroutine.
//
// Classification is detached from ctx cancellation so batches flushed during
// shutdown are still labeled; values carried by ctx are kept. Close must be
// called to flush the final batch and stop the dispatcher.
func NewBatcher(ctx context.Context, classifier furnitron.Classifier, recorder Recorder, opts ...BatcherOption) *Batcher {
	b := &Batcher{
		classifier: classifier,
		recorder:   recorder,
		logger:     slog.New(slog.DiscardHandler),
		size:       DefaultBatchSize,
		ctx:        context.WithoutCancel(ctx),
		batches:    make(chan []furnitron.Candidate, 1),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.size < 1 {
		b.size = 1
	}

	go b.dispatch()
	return b
}

// Submit adds a candidate to the current batch. When the batch is full it is
// handed to the dispatcher; Submit then blocks until the dispatcher accepts it.
// Returns EINVARIANT after Close.
func (b *Batcher) Submit(c furnitron.Candidate) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return furnitron.Errorf(furnitron.EINVARIANT, "submit after close: %s", c.SourceURL)
	}
	b.pending = append(b.pending, c)
	var batch []furnitron.Candidate
	if len(b.pending) >= b.size {
		batch = b.cut()
	}
	b.mu.Unlock()

	b.send(batch)
	return nil
}

// Flush hands any partial batch to the dispatcher.
func (b *Batcher) Flush() {
	b.mu.Lock()
	var batch []furnitron.Candidate
	if !b.closed {
		batch = b.cut()
	}
	b.mu.Unlock()

	b.send(batch)
}

// Close flushes the partial batch, waits until every batch has been
// classified and recorded, and stops the dispatcher. It returns the first
// error returned by the recorder. Close is safe to call multiple times.
func (b *Batcher) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		<-b.done
		return b.err
	}
	b.closed = true
	batch := b.cut()
	b.mu.Unlock()

	b.send(batch)
	b.sends.Wait()
	close(b.batches)
	<-b.done
	return b.err
}

// Stats returns the number of classifier batches processed and the number of
// candidates labeled degraded. Valid after Close.
func (b *Batcher) Stats() (batches, degraded int) {
	<-b.done
	return b.calls, b.degraded
}

// cut takes the pending candidates as a batch and registers its send.
// Must be called with mu held.
func (b *Batcher) cut() []furnitron.Candidate {
	if len(b.pending) == 0 {
		return nil
	}
	batch := b.pending
	b.pending = nil
	b.sends.Add(1)
	return batch
}

func (b *Batcher) send(batch []furnitron.Candidate) {
	if batch == nil {
		return
	}
	defer b.sends.Done()
	b.batches <- batch
}

// dispatch is the only goroutine that calls the classifier.
func (b *Batcher) dispatch() {
	defer close(b.done)
	for batch := range b.batches {
		b.classify(batch)
	}
}

func (b *Batcher) classify(batch []furnitron.Candidate) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.Text
	}

	var labels []furnitron.Label
	attempts, err := Retry(b.ctx, b.delays, furnitron.IsTransient, func(ctx context.Context, _ int) error {
		if b.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, b.timeout)
			defer cancel()
		}
		l, err := b.classifier.Classify(ctx, texts)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !furnitron.IsTransient(err) {
				return furnitron.Errorf(furnitron.ETIMEOUT, "classifier timed out after %s", b.timeout)
			}
			return err
		}
		if len(l) != len(texts) {
			return furnitron.Errorf(furnitron.EINTERNAL, "classifier returned %d labels for %d texts", len(l), len(texts))
		}
		labels = l
		return nil
	}, func(attempt int, delay time.Duration, err error) {
		b.logger.Warn("classify retry", "batch", len(batch), "attempt", attempt, "delay", delay, "err", err)
	})
	b.calls++

	degraded := err != nil
	if degraded {
		b.degraded += len(batch)
		b.logger.Error("classification degraded",
			"batch", len(batch),
			"attempts", attempts,
			"err", err,
		)
	}

	for i, c := range batch {
		cc := furnitron.ClassifiedCandidate{Candidate: c, Label: furnitron.LabelOther}
		if degraded {
			cc.Degraded = true
		} else {
			cc.Label = labels[i]
		}
		if err := b.recorder.Record(cc); err != nil && b.err == nil {
			b.err = err
		}
	}
}
