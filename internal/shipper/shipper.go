// Package shipper implements the asynchronous batching-and-delivery
// engine: a bounded queue fed synchronously by logging call sites and a
// single background worker that drains it into batches and pushes them
// through a transport with retry and backoff.
package shipper

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"logship/internal/config"
	"logship/internal/logger"
	"logship/internal/metrics"
	"logship/internal/models"
	"logship/internal/queue"
	"logship/internal/transport"
)

// Hooks are the user-supplied enrichment callbacks. Both may be nil.
// Metadata is called once per batch; ExtraFields once per record. A
// panicking hook is recovered and the batch or record proceeds without
// its fields.
type Hooks struct {
	Metadata    func() map[string]any
	ExtraFields models.ExtraFieldsFunc
}

// Shipper owns one queue and one delivery worker. Instances are fully
// independent; create one per destination. Handle is safe for
// concurrent use and never blocks on the network.
type Shipper struct {
	opts  config.Options
	hooks Hooks
	norm  *models.Normalizer
	queue *queue.Queue
	tr    transport.Transport
	log   zerolog.Logger

	notify chan struct{}
	stop   chan struct{}
	done   chan struct{}

	started  atomic.Bool
	stopOnce sync.Once

	enqueued         atomic.Uint64
	delivered        atomic.Uint64
	droppedRetry     atomic.Uint64
	droppedPermanent atomic.Uint64
	droppedShutdown  atomic.Uint64

	// lostAcked tracks drops already reported in a delivered batch.
	// Touched only by the worker goroutine.
	lostAcked uint64
}

// New creates a shipper around the given transport. Call Start before
// handling records.
func New(opts config.Options, tr transport.Transport, hooks Hooks) *Shipper {
	log := logger.WithComponent("shipper").With().Str("app", opts.AppName).Logger()

	return &Shipper{
		opts:   opts,
		hooks:  hooks,
		norm:   models.NewNormalizer(opts.AppName, hooks.ExtraFields, opts.MaxMessageBytes, log),
		queue:  queue.New(opts.MaxQueueRecords),
		tr:     tr,
		log:    log,
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start spawns the delivery worker. Calling it again is a no-op.
func (s *Shipper) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.log.Info().
		Int("max_queue_records", s.opts.MaxQueueRecords).
		Int("max_batch_records", s.opts.MaxBatchRecords).
		Dur("flush_interval", s.opts.FlushInterval).
		Msg("starting delivery worker")
	go s.run()
}

// Handle normalizes and enqueues one record. It returns in bounded time
// regardless of queue or network state and never surfaces an error to
// the logging call site; all failure signals show up in Stats and the
// prometheus counters.
func (s *Shipper) Handle(in models.Input, extra map[string]any) {
	rec := s.norm.Normalize(in, extra)

	if s.queue.Enqueue(rec) {
		s.enqueued.Add(1)
		metrics.RecordsEnqueued.WithLabelValues(s.opts.AppName).Inc()
	} else {
		metrics.RecordsDropped.WithLabelValues(s.opts.AppName, "overflow").Inc()
	}

	depth := s.queue.Len()
	metrics.QueueDepth.WithLabelValues(s.opts.AppName).Set(float64(depth))
	if depth >= s.opts.MaxBatchRecords {
		select {
		case s.notify <- struct{}{}:
		default:
		}
	}
}

// Close signals the worker to stop, waits up to timeout for its final
// flush and reports whether the flush completed in time. Records still
// queued when the worker's shutdown budget lapses are counted dropped.
// Safe to call more than once.
func (s *Shipper) Close(timeout time.Duration) bool {
	if !s.started.Load() {
		return true
	}
	s.stopOnce.Do(func() { close(s.stop) })

	select {
	case <-s.done:
		return true
	case <-time.After(timeout):
		s.log.Warn().Dur("timeout", timeout).Msg("close timed out waiting for final flush")
		return false
	}
}

// run is the worker loop. It wakes on the flush ticker, on a
// size-threshold notification from Handle, or on shutdown.
func (s *Shipper) run() {
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("delivery worker panic recovered")
		}
	}()

	s.log.Info().Msg("delivery worker started")
	defer s.log.Info().Msg("delivery worker stopped")

	ticker := time.NewTicker(s.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			s.finalFlush()
			return
		case <-ticker.C:
			s.flush(true)
		case <-s.notify:
			s.flush(false)
		}
	}
}

// flush drains and ships batches. When includePartial is false only
// full batches go out; the remainder waits for the next ticker wake-up.
func (s *Shipper) flush(includePartial bool) {
	for {
		depth := s.queue.Len()
		if depth == 0 {
			return
		}
		if !includePartial && depth < s.opts.MaxBatchRecords {
			return
		}
		records := s.queue.Drain(s.opts.MaxBatchRecords)
		if len(records) == 0 {
			return
		}
		metrics.QueueDepth.WithLabelValues(s.opts.AppName).Set(float64(s.queue.Len()))
		s.deliver(s.makeBatch(records))
		if len(records) < s.opts.MaxBatchRecords {
			return
		}
		// Let shutdown preempt a long catch-up run.
		select {
		case <-s.stop:
			return
		default:
		}
	}
}

// makeBatch wraps drained records, attaching batch-level metadata
// (computed once here, not per record) and the lost-record count
// accumulated since the last delivered batch.
func (s *Shipper) makeBatch(records []models.LogRecord) *models.Batch {
	meta := models.SafeMetadata(s.opts.AppName, s.hooks.Metadata, s.log)
	lost := s.totalDropped() - s.lostAcked
	batch := models.NewBatch(s.opts.AppName, records, meta, lost)
	metrics.BatchSize.Observe(float64(batch.Len()))
	return batch
}

// deliver pushes one batch to a terminal outcome: delivered, or dropped
// after a permanent failure or MaxRetries attempts. Backoff doubles per
// attempt up to BackoffCap and is interruptible by shutdown. A retried
// batch is not re-prioritized ahead of freshly queued records, so
// cross-batch delivery order is best-effort only.
func (s *Shipper) deliver(batch *models.Batch) {
	backoff := s.opts.BackoffBase

	for attempt := 1; ; attempt++ {
		err := s.sendOnce(batch)
		if err == nil {
			s.delivered.Add(uint64(batch.Len()))
			s.lostAcked += batch.Lost
			metrics.BatchesSent.WithLabelValues(s.opts.AppName, "delivered").Inc()
			s.log.Debug().
				Str("batch_id", batch.ID).
				Int("records", batch.Len()).
				Int("attempt", attempt).
				Msg("batch delivered")
			return
		}

		if transport.IsPermanent(err) {
			s.dropBatch(batch, "permanent", &s.droppedPermanent)
			s.log.Error().
				Err(err).
				Str("batch_id", batch.ID).
				Int("records", batch.Len()).
				Msg("permanent delivery failure, batch dropped")
			return
		}

		if attempt >= s.opts.MaxRetries {
			s.dropBatch(batch, "retry_exhausted", &s.droppedRetry)
			s.log.Error().
				Err(err).
				Str("batch_id", batch.ID).
				Int("records", batch.Len()).
				Int("attempts", attempt).
				Msg("delivery failed after all attempts, batch dropped")
			return
		}

		s.log.Warn().
			Err(err).
			Str("batch_id", batch.ID).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("retryable delivery failure, backing off")
		metrics.SendRetries.WithLabelValues(s.opts.AppName).Inc()

		select {
		case <-time.After(backoff):
			backoff *= 2
			if backoff > s.opts.BackoffCap {
				backoff = s.opts.BackoffCap
			}
		case <-s.stop:
			// Shutdown interrupts the backoff; this batch gets no more
			// attempts. The final flush handles whatever is still queued.
			s.dropBatch(batch, "shutdown", &s.droppedShutdown)
			return
		}
	}
}

// sendOnce runs a single transport attempt under the send timeout.
func (s *Shipper) sendOnce(batch *models.Batch) error {
	ctx := context.Background()
	if s.opts.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.SendTimeout)
		defer cancel()
	}

	start := time.Now()
	err := s.tr.Send(ctx, batch)
	metrics.SendDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		metrics.SendAttempts.WithLabelValues(s.opts.AppName, "success").Inc()
	case transport.IsPermanent(err):
		metrics.SendAttempts.WithLabelValues(s.opts.AppName, "permanent").Inc()
	default:
		metrics.SendAttempts.WithLabelValues(s.opts.AppName, "retryable").Inc()
	}
	return err
}

// finalFlush drains the queue on shutdown, one single-attempt send per
// batch, bounded by ShutdownTimeout. Anything left when the budget
// lapses is counted dropped rather than silently lost.
func (s *Shipper) finalFlush() {
	deadline := time.Now().Add(s.opts.ShutdownTimeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			s.dropRemaining()
			return
		}

		records := s.queue.Drain(s.opts.MaxBatchRecords)
		if len(records) == 0 {
			return
		}
		batch := s.makeBatch(records)

		timeout := s.opts.SendTimeout
		if timeout <= 0 || timeout > remaining {
			timeout = remaining
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err := s.tr.Send(ctx, batch)
		cancel()

		if err != nil {
			s.dropBatch(batch, "shutdown", &s.droppedShutdown)
			s.log.Warn().
				Err(err).
				Str("batch_id", batch.ID).
				Int("records", batch.Len()).
				Msg("final flush send failed, batch dropped")
			continue
		}
		s.delivered.Add(uint64(batch.Len()))
		s.lostAcked += batch.Lost
		metrics.BatchesSent.WithLabelValues(s.opts.AppName, "delivered").Inc()
	}
}

// dropRemaining counts everything still queued as shutdown drops.
func (s *Shipper) dropRemaining() {
	total := 0
	for {
		records := s.queue.Drain(s.opts.MaxBatchRecords)
		if len(records) == 0 {
			break
		}
		total += len(records)
	}
	if total > 0 {
		s.droppedShutdown.Add(uint64(total))
		metrics.RecordsDropped.WithLabelValues(s.opts.AppName, "shutdown").Add(float64(total))
		s.log.Warn().Int("records", total).Msg("shutdown timeout reached, queued records dropped")
	}
}

func (s *Shipper) dropBatch(batch *models.Batch, reason string, counter *atomic.Uint64) {
	counter.Add(uint64(batch.Len()))
	metrics.RecordsDropped.WithLabelValues(s.opts.AppName, reason).Add(float64(batch.Len()))
	metrics.BatchesSent.WithLabelValues(s.opts.AppName, "dropped").Inc()
}

// totalDropped sums every drop cause; the delta against lostAcked is
// reported to the collector as the batch's lost count.
func (s *Shipper) totalDropped() uint64 {
	return s.queue.Dropped() +
		s.droppedRetry.Load() +
		s.droppedPermanent.Load() +
		s.droppedShutdown.Load()
}

// Stats is a point-in-time snapshot of the shipper's counters.
type Stats struct {
	Enqueued         uint64
	Delivered        uint64
	DroppedOverflow  uint64
	DroppedRetry     uint64
	DroppedPermanent uint64
	DroppedShutdown  uint64
}

// Stats returns the shipper's diagnostic counters.
func (s *Shipper) Stats() Stats {
	return Stats{
		Enqueued:         s.enqueued.Load(),
		Delivered:        s.delivered.Load(),
		DroppedOverflow:  s.queue.Dropped(),
		DroppedRetry:     s.droppedRetry.Load(),
		DroppedPermanent: s.droppedPermanent.Load(),
		DroppedShutdown:  s.droppedShutdown.Load(),
	}
}
