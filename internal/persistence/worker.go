package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"DutchAuction/internal/core"
	"DutchAuction/internal/observability"
)

// Worker drains the receipt channel and batch-writes to Postgres. The
// processor sends on this channel blocking, so a stalled worker stalls the
// processor rather than losing receipts.
type Worker struct {
	writer       *ReceiptWriter
	inputChan    <-chan *core.Receipt
	batchSize    int
	flushTimeout time.Duration
	metrics      *observability.Metrics
	log          zerolog.Logger
}

func NewWorker(
	db *sql.DB,
	inputChan <-chan *core.Receipt,
	batchSize int,
	flushTimeout time.Duration,
	metrics *observability.Metrics,
) *Worker {
	return &Worker{
		writer:       NewReceiptWriter(db),
		inputChan:    inputChan,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
		metrics:      metrics,
		log:          observability.NewLogger("persistence"),
	}
}

// Run batches incoming receipts and flushes when the batch is full or the
// flush timeout expires. Blocks until ctx is cancelled or the channel
// closes; remaining receipts are flushed on the way out.
func (w *Worker) Run(ctx context.Context) error {
	batch := make([]*core.Receipt, 0, w.batchSize)

	timer := time.NewTimer(w.flushTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				if err := w.writer.WriteBatch(context.Background(), batch); err != nil {
					w.log.Error().Err(err).Msg("final flush failed")
				}
			}
			return ctx.Err()

		case rcpt, ok := <-w.inputChan:
			if !ok {
				if len(batch) > 0 {
					if err := w.writer.WriteBatch(context.Background(), batch); err != nil {
						w.log.Error().Err(err).Msg("final flush failed")
					}
				}
				return nil
			}
			batch = append(batch, rcpt)
			if len(batch) >= w.batchSize {
				w.flushWithRetry(ctx, batch)
				batch = batch[:0]
				timer.Reset(w.flushTimeout)
			}

		case <-timer.C:
			if len(batch) > 0 {
				w.flushWithRetry(ctx, batch)
				batch = batch[:0]
			}
			timer.Reset(w.flushTimeout)
		}
	}
}

// flushWithRetry retries with exponential backoff until the write succeeds
// or the context is cancelled. Receipts are never dropped; on shutdown a
// final attempt runs with a background context.
func (w *Worker) flushWithRetry(ctx context.Context, batch []*core.Receipt) {
	backoff := 100 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			w.log.Warn().Int("attempt", attempt).Dur("backoff", backoff).
				Int("receipts", len(batch)).Msg("persistence retry")
			select {
			case <-ctx.Done():
				if err := w.writer.WriteBatch(context.Background(), batch); err != nil {
					w.log.Error().Err(err).Msg("final flush on shutdown failed")
					if w.metrics != nil {
						w.metrics.PersistErrors.Inc()
					}
				}
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		start := time.Now()
		err := w.writer.WriteBatch(ctx, batch)
		if err == nil {
			if w.metrics != nil {
				w.metrics.ReceiptsWritten.Add(float64(len(batch)))
				w.metrics.PersistBatchSize.Observe(float64(len(batch)))
				w.metrics.PersistBatchDur.Observe(time.Since(start).Seconds())
				w.metrics.PersistLastSeq.Set(float64(batch[len(batch)-1].Sequence))
			}
			return
		}
		if w.metrics != nil {
			w.metrics.PersistRetry.Inc()
		}
	}
}
