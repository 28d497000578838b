package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"TokenLedger/internal/observability"
)

// CoreOutput mirrors core.CoreOutput to avoid an import cycle.
// The orchestrator (cmd/main.go) bridges between core.CoreOutput and this.
type CoreOutput struct {
	ActionRow    ActionRow
	MutationRows []MutationRow
}

// PersistenceWorker drains the persist channel and batch-writes to Postgres.
// This goroutine runs independently from the engine. The persist channel uses
// BLOCKING sends from the engine, so if this worker falls behind, the engine
// stalls — guaranteeing no action is lost.
type PersistenceWorker struct {
	writer       *ActionLogWriter
	inputChan    <-chan CoreOutput
	batchSize    int
	flushTimeout time.Duration
	metrics      *observability.Metrics
}

func NewPersistenceWorker(
	db *sql.DB,
	inputChan <-chan CoreOutput,
	batchSize int,
	flushTimeout time.Duration,
	metrics *observability.Metrics,
) *PersistenceWorker {
	return &PersistenceWorker{
		writer:       NewActionLogWriter(db, batchSize, flushTimeout),
		inputChan:    inputChan,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
		metrics:      metrics,
	}
}

// Run starts the persistence worker loop. It batches incoming outputs
// and flushes either when the batch is full or the flush timeout expires.
// Blocks until ctx is cancelled.
func (pw *PersistenceWorker) Run(ctx context.Context) error {
	actionBatch := make([]ActionRow, 0, pw.batchSize)
	mutationBatch := make([]MutationRow, 0, pw.batchSize*3) // ~3 mutations per action avg

	timer := time.NewTimer(pw.flushTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			// Graceful shutdown: flush remaining
			if len(actionBatch) > 0 {
				if err := pw.flush(context.Background(), actionBatch, mutationBatch); err != nil {
					log.Printf("ERROR: final flush failed: %v", err)
				}
			}
			return ctx.Err()

		case output, ok := <-pw.inputChan:
			if !ok {
				// Channel closed — flush and exit
				if len(actionBatch) > 0 {
					if err := pw.flush(context.Background(), actionBatch, mutationBatch); err != nil {
						log.Printf("ERROR: final flush failed: %v", err)
					}
				}
				return nil
			}

			actionBatch = append(actionBatch, output.ActionRow)
			mutationBatch = append(mutationBatch, output.MutationRows...)

			// Flush if batch is full
			if len(actionBatch) >= pw.batchSize {
				if err := pw.flushWithRetry(ctx, actionBatch, mutationBatch); err != nil {
					log.Printf("ERROR: batch flush failed after retries: %v", err)
				}
				actionBatch = actionBatch[:0]
				mutationBatch = mutationBatch[:0]
				timer.Reset(pw.flushTimeout)
			}

		case <-timer.C:
			// Flush timeout — write whatever we have
			if len(actionBatch) > 0 {
				if err := pw.flushWithRetry(ctx, actionBatch, mutationBatch); err != nil {
					log.Printf("ERROR: timeout flush failed after retries: %v", err)
				}
				actionBatch = actionBatch[:0]
				mutationBatch = mutationBatch[:0]
			}
			timer.Reset(pw.flushTimeout)
		}
	}
}

// flushWithRetry attempts to flush with exponential backoff. The worker
// NEVER drops actions — it retries until the write succeeds or the context
// is cancelled (graceful shutdown).
func (pw *PersistenceWorker) flushWithRetry(ctx context.Context, actions []ActionRow, mutations []MutationRow) error {
	backoff := 100 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			log.Printf("WARN: persistence retry attempt %d (backoff=%v, actions=%d)",
				attempt, backoff, len(actions))
			select {
			case <-ctx.Done():
				// Graceful shutdown — attempt one final flush with background
				// context to avoid losing the batch.
				finalErr := pw.flush(context.Background(), actions, mutations)
				if finalErr != nil {
					return fmt.Errorf("final flush on shutdown failed: %w", finalErr)
				}
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		err := pw.flush(ctx, actions, mutations)
		if err == nil {
			if attempt > 0 {
				log.Printf("INFO: persistence flush succeeded after %d retries", attempt)
			}
			return nil
		}

		if pw.metrics != nil {
			pw.metrics.PersistRetry.Inc()
		}
	}
}

func (pw *PersistenceWorker) flush(ctx context.Context, actions []ActionRow, mutations []MutationRow) error {
	start := time.Now()

	// Write actions and mutations in a single transaction
	tx, err := pw.writer.db.BeginTx(ctx, nil)
	if err != nil {
		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("tx_begin").Inc()
		}
		return err
	}
	defer tx.Rollback()

	if err := pw.writer.WriteActionBatch(ctx, actions, tx); err != nil {
		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("write_actions").Inc()
		}
		return err
	}

	if err := pw.writer.WriteMutationBatch(ctx, mutations, tx); err != nil {
		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("write_mutations").Inc()
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if pw.metrics != nil {
			pw.metrics.PersistErrors.WithLabelValues("tx_commit").Inc()
		}
		return err
	}

	// Record metrics on success
	if pw.metrics != nil {
		pw.metrics.PersistBatchDur.Observe(time.Since(start).Seconds())
		pw.metrics.PersistBatchSize.Observe(float64(len(actions)))
		pw.metrics.PersistActionsWritten.Add(float64(len(actions)))
		pw.metrics.PersistMutationsWritten.Add(float64(len(mutations)))
		if len(actions) > 0 {
			pw.metrics.PersistLastSequence.Set(float64(actions[len(actions)-1].Sequence))
		}
	}

	return nil
}

// GetWriter returns the underlying writer.
func (pw *PersistenceWorker) GetWriter() *ActionLogWriter {
	return pw.writer
}

// MarshalPayload is a convenience wrapper for JSON-encoding action payloads.
func MarshalPayload(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("WARN: failed to marshal payload: %v", err)
		return []byte("{}")
	}
	return data
}
