package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// execer abstracts *sql.DB and *sql.Tx so batch writes can run inside the
// worker's transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// ActionLogWriter writes actions and mutations to Postgres using multi-row
// INSERTs. A portable alternative to the COPY protocol; switch to pgx
// CopyFrom for production-grade throughput.
type ActionLogWriter struct {
	db           *sql.DB
	batchSize    int
	flushTimeout time.Duration
}

// ActionRow represents a row in action_log.actions
type ActionRow struct {
	Sequence       int64
	ActionType     string
	IdempotencyKey string
	SymbolCode     *string
	Payload        []byte // JSON-encoded action payload
	StateHash      []byte
	PrevHash       []byte
	Timestamp      time.Time
	SourceSequence int64
}

// MutationRow represents a row in action_log.mutations
type MutationRow struct {
	MutationID string
	BatchID    string
	ActionRef  string
	Sequence   int64
	Op         string
	TableName  string
	Owner      string
	Spender    string
	SymbolCode string
	Precision  int16
	Amount     int64
	MaxSupply  int64
	Issuer     string
	Payer      string
	RowCreated bool
	RowDeleted bool
	Timestamp  int64
}

func NewActionLogWriter(db *sql.DB, batchSize int, flushTimeout time.Duration) *ActionLogWriter {
	return &ActionLogWriter{
		db:           db,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
	}
}

// WriteActionBatch writes a batch of actions to action_log.actions.
// Pass a non-nil tx to write inside an existing transaction.
func (w *ActionLogWriter) WriteActionBatch(ctx context.Context, actions []ActionRow, tx execer) error {
	if len(actions) == 0 {
		return nil
	}
	if tx == nil {
		tx = w.db
	}

	query := `INSERT INTO action_log.actions
		(sequence, action_type, idempotency_key, symbol_code, payload, state_hash, prev_hash, timestamp, source_sequence)
		VALUES `

	values := make([]string, 0, len(actions))
	args := make([]interface{}, 0, len(actions)*9)

	for i, a := range actions {
		base := i * 9
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9,
		))
		args = append(args,
			a.Sequence, a.ActionType, a.IdempotencyKey, a.SymbolCode,
			a.Payload, a.StateHash, a.PrevHash, a.Timestamp, a.SourceSequence,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (sequence) DO NOTHING" // Idempotent writes

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// WriteMutationBatch writes a batch of row mutations to action_log.mutations.
func (w *ActionLogWriter) WriteMutationBatch(ctx context.Context, mutations []MutationRow, tx execer) error {
	if len(mutations) == 0 {
		return nil
	}
	if tx == nil {
		tx = w.db
	}

	query := `INSERT INTO action_log.mutations
		(mutation_id, batch_id, action_ref, sequence, op, table_name, owner, spender, symbol_code, precision, amount, max_supply, issuer, payer, row_created, row_deleted, timestamp)
		VALUES `

	values := make([]string, 0, len(mutations))
	args := make([]interface{}, 0, len(mutations)*17)

	for i, m := range mutations {
		base := i * 17
		placeholders := make([]string, 17)
		for p := 0; p < 17; p++ {
			placeholders[p] = fmt.Sprintf("$%d", base+p+1)
		}
		values = append(values, "("+strings.Join(placeholders, ", ")+")")
		args = append(args,
			m.MutationID, m.BatchID, m.ActionRef, m.Sequence,
			m.Op, m.TableName, m.Owner, m.Spender, m.SymbolCode, m.Precision,
			m.Amount, m.MaxSupply, m.Issuer, m.Payer,
			m.RowCreated, m.RowDeleted, m.Timestamp,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (mutation_id) DO NOTHING"

	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// MarshalActionPayload serializes an action payload to JSON for storage.
func MarshalActionPayload(payload interface{}) ([]byte, error) {
	return json.Marshal(payload)
}
