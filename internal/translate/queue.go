package translate

import (
	"context"
	"sync"
	"time"

	"github.com/averyong/lingodesk/internal/domain"
	"github.com/averyong/lingodesk/internal/logger"
	"github.com/averyong/lingodesk/internal/metrics"
)

// Batch is a bounded group of rows submitted together in one provider call.
// Batches live only in the queue's in-memory work list.
type Batch struct {
	Rows     []domain.TranslationRow
	Template domain.PromptTemplate
}

// Progress counts completed vs. total batches for the current job. Each
// Enqueue call starts a fresh count covering only its own batches; a full
// drain or cancellation resets it to zero.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// BatchInvoker performs the provider call for one batch.
type BatchInvoker interface {
	Configured() bool
	Translate(ctx context.Context, rows []domain.TranslationRow, template domain.PromptTemplate, glossary []domain.GlossaryTerm, targetLangs []string) ([]Result, error)
}

// GlossarySource supplies the read-only glossary snapshot for a version.
type GlossarySource interface {
	ActiveTerms(ctx context.Context, version int) ([]domain.GlossaryTerm, error)
}

// QueueConfig holds the per-queue batching knobs.
type QueueConfig struct {
	BatchSize       int
	Throttle        time.Duration
	TargetLanguages []string
	GlossaryVersion int
}

// Queue owns the ordered list of pending batches for one project and drives
// their strictly sequential execution with throttling and cooperative
// cancellation. Batches run one at a time to respect provider rate limits.
type Queue struct {
	projectID string
	invoker   BatchInvoker
	rows      *Projector
	glossary  GlossarySource

	mu         sync.Mutex
	cfg        QueueConfig
	batches    []Batch
	inFlight   map[string]struct{} // row ids currently queued or translating
	processing bool
	cancelled  bool
	cancelCh   chan struct{} // closed on cancel to wake the throttle wait
	progress   Progress
}

// NewQueue creates a queue bound to one project.
// Parameters:
//   - projectID: owning project.
//   - invoker: provider call wrapper.
//   - projector: row-state writer.
//   - glossary: glossary snapshot source.
//   - cfg: batching and throttle configuration.
// Returns:
//   - *Queue: idle queue ready for Enqueue.
func NewQueue(projectID string, invoker BatchInvoker, projector *Projector, glossary GlossarySource, cfg QueueConfig) *Queue {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &Queue{
		projectID: projectID,
		invoker:   invoker,
		rows:      projector,
		glossary:  glossary,
		cfg:       cfg,
		inFlight:  make(map[string]struct{}),
		cancelCh:  make(chan struct{}),
	}
}

// Progress returns a snapshot of the current job's batch counters.
func (q *Queue) Progress() Progress {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.progress
}

// Running reports whether the processing loop is active.
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processing
}

// setConfig refreshes the batching knobs; ignored while a job is running so
// an in-flight job keeps the configuration it started with.
func (q *Queue) setConfig(cfg QueueConfig) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.processing {
		q.cfg = cfg
	}
}

// Enqueue partitions the given rows into batches of at most the configured
// size, preserving input order, and appends them behind any in-flight work.
// Rows already queued or translating are skipped, so a row is never in two
// batches at once. Every accepted row is marked queued synchronously before
// any network call. Progress restarts at {0, newBatches}.
//
// Returns ErrAPINotConfigured before touching any row when no provider
// credential is available. An empty or fully-duplicate row set is a no-op.
func (q *Queue) Enqueue(ctx context.Context, rows []domain.TranslationRow, template domain.PromptTemplate) error {
	if len(rows) == 0 {
		return nil
	}
	if !q.invoker.Configured() {
		return ErrAPINotConfigured
	}

	q.mu.Lock()

	fresh := make([]domain.TranslationRow, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if _, dup := seen[row.ID]; dup {
			continue
		}
		if _, busy := q.inFlight[row.ID]; busy {
			continue
		}
		seen[row.ID] = struct{}{}
		fresh = append(fresh, row)
	}
	if len(fresh) == 0 {
		q.mu.Unlock()
		return nil
	}

	newBatches := partition(fresh, q.cfg.BatchSize, template)
	ids := make([]string, 0, len(fresh))
	for _, row := range fresh {
		q.inFlight[row.ID] = struct{}{}
		ids = append(ids, row.ID)
	}

	// Queued status is a synchronous side effect of Enqueue; the lock is held
	// so a concurrent Cancel cannot interleave between bookkeeping and write.
	if err := q.rows.MarkQueued(ctx, ids); err != nil {
		for _, id := range ids {
			delete(q.inFlight, id)
		}
		q.mu.Unlock()
		return err
	}

	q.batches = append(q.batches, newBatches...)
	q.progress = Progress{Current: 0, Total: len(newBatches)}
	start := !q.processing
	if start {
		q.processing = true
	}
	q.mu.Unlock()

	logger.CtxInfo(ctx, "Enqueued %d rows in %d batches: project=%s, template=%s",
		len(fresh), len(newBatches), q.projectID, template.Name)

	if start {
		loopCtx := logger.WithFields(context.Background(), logger.Fields{
			logger.FieldProjectID: q.projectID,
			logger.FieldComponent: "translate-queue",
		})
		go q.processLoop(loopCtx)
	}
	return nil
}

// Cancel discards all batches that have not started and asks the loop to
// drop the in-flight batch's result when its call settles. Rows owned by the
// queue revert to pending. Idempotent; a no-op when nothing is queued.
func (q *Queue) Cancel(ctx context.Context) {
	q.mu.Lock()
	if !q.processing && len(q.batches) == 0 {
		q.mu.Unlock()
		return
	}
	metrics.QueueCancellations.Inc()
	q.cancelled = true

	// The head batch is in flight while processing; everything behind it is
	// discarded here and reverted below. The loop reverts the head itself.
	var notStarted []Batch
	if q.processing && len(q.batches) > 0 {
		notStarted = q.batches[1:]
		q.batches = q.batches[:1]
	} else {
		notStarted = q.batches
		q.batches = nil
	}

	var ids []string
	for _, b := range notStarted {
		for _, row := range b.Rows {
			ids = append(ids, row.ID)
			delete(q.inFlight, row.ID)
		}
	}
	q.progress = Progress{}

	close(q.cancelCh)
	q.cancelCh = make(chan struct{})

	if !q.processing {
		// No loop to finish the cleanup.
		q.cancelled = false
		q.inFlight = make(map[string]struct{})
	}
	q.mu.Unlock()

	logger.CtxInfo(ctx, "Translation job cancelled: project=%s, discarded_rows=%d", q.projectID, len(ids))

	if len(ids) > 0 {
		if err := q.rows.Revert(ctx, ids); err != nil {
			logger.CtxError(ctx, "Failed to revert cancelled rows: project=%s, error=%v", q.projectID, err)
		}
	}
}

// processLoop drives batches strictly FIFO. It is the only goroutine touching
// the head of the queue; re-entrant triggers are prevented by the processing
// flag. Cancellation is observed before each batch, after the provider call
// settles, and during the inter-batch throttle.
func (q *Queue) processLoop(ctx context.Context) {
	batchIndex := 0
	for {
		q.mu.Lock()
		if q.cancelled {
			ids := allRowIDs(q.batches)
			q.clearLocked()
			q.mu.Unlock()
			if len(ids) > 0 {
				if err := q.rows.Revert(ctx, ids); err != nil {
					logger.CtxError(ctx, "Failed to revert rows on cancellation: %v", err)
				}
			}
			return
		}
		if len(q.batches) == 0 {
			q.progress = Progress{}
			q.processing = false
			q.mu.Unlock()
			logger.CtxInfo(ctx, "Translation queue drained: project=%s", q.projectID)
			return
		}
		batch := q.batches[0]
		throttle := q.cfg.Throttle
		cancelCh := q.cancelCh
		q.mu.Unlock()

		batchCtx := logger.WithField(ctx, logger.FieldBatch, batchIndex)
		cancelled := q.runBatch(batchCtx, batch)
		batchIndex++

		q.mu.Lock()
		if cancelled {
			q.clearLocked()
			q.mu.Unlock()
			return
		}
		if len(q.batches) > 0 {
			q.batches = q.batches[1:]
		}
		for _, row := range batch.Rows {
			delete(q.inFlight, row.ID)
		}
		q.progress.Current++
		more := len(q.batches) > 0
		q.mu.Unlock()

		if more && throttle > 0 {
			select {
			case <-time.After(throttle):
			case <-cancelCh:
			case <-ctx.Done():
			}
		}
	}
}

// runBatch executes one batch end to end and reports whether cancellation was
// observed while the call was in flight (in which case the result was
// discarded and the rows reverted).
func (q *Queue) runBatch(ctx context.Context, batch Batch) bool {
	ids := make([]string, 0, len(batch.Rows))
	for _, row := range batch.Rows {
		ids = append(ids, row.ID)
	}

	if err := q.rows.MarkTranslating(ctx, ids); err != nil {
		logger.CtxError(ctx, "Failed to mark batch translating: %v", err)
	}

	start := time.Now()
	glossary, err := q.glossary.ActiveTerms(ctx, q.cfg.GlossaryVersion)
	var results []Result
	if err == nil {
		results, err = q.invoker.Translate(ctx, batch.Rows, batch.Template, glossary, q.cfg.TargetLanguages)
	}

	if q.isCancelled() {
		// In-flight call cannot be aborted; its result is simply discarded.
		if rerr := q.rows.Revert(ctx, ids); rerr != nil {
			logger.CtxError(ctx, "Failed to revert in-flight batch: %v", rerr)
		}
		return true
	}

	if err != nil {
		// Terminal for this batch only; the loop moves on.
		metrics.BatchesProcessed.WithLabelValues("error").Inc()
		logger.With(logger.Fields{
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
			logger.FieldCount:      len(batch.Rows),
		}).Error(ctx, "Batch failed terminally: %v", err)
		q.rows.Fail(ctx, batch, err)
		return false
	}

	metrics.BatchesProcessed.WithLabelValues("review").Inc()
	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldCount:      len(batch.Rows),
	}).Info(ctx, "Batch translated: project=%s", q.projectID)
	q.rows.Apply(ctx, batch, results)
	return false
}

func (q *Queue) isCancelled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cancelled
}

// clearLocked resets the queue to idle after cancellation. Caller holds mu.
func (q *Queue) clearLocked() {
	q.batches = nil
	q.inFlight = make(map[string]struct{})
	q.progress = Progress{}
	q.processing = false
	q.cancelled = false
}

// partition splits rows into batches of at most size, preserving order.
func partition(rows []domain.TranslationRow, size int, template domain.PromptTemplate) []Batch {
	batches := make([]Batch, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		batches = append(batches, Batch{Rows: rows[start:end], Template: template})
	}
	return batches
}

func allRowIDs(batches []Batch) []string {
	var ids []string
	for _, b := range batches {
		for _, row := range b.Rows {
			ids = append(ids, row.ID)
		}
	}
	return ids
}
