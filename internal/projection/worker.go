package projection

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// ProjectionOutput mirrors the data needed by projection workers.
// The orchestrator bridges between core.CoreOutput and this.
type ProjectionOutput struct {
	Sequence   int64
	ActionType string
	SymbolCode *string
	Mutations  []MutationEntry
	Timestamp  int64
}

// MutationEntry is a simplified row mutation for projection consumption.
type MutationEntry struct {
	Op         string
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
}

// ProjectionWorker updates the queryable projection tables from committed
// actions. The projection channel is non-blocking with drop; if projections
// fall behind, they can be rebuilt from the action log.
type ProjectionWorker struct {
	db        *sql.DB
	inputChan <-chan ProjectionOutput
	lastSeq   int64
}

func NewProjectionWorker(db *sql.DB, inputChan <-chan ProjectionOutput) *ProjectionWorker {
	return &ProjectionWorker{
		db:        db,
		inputChan: inputChan,
	}
}

// Run starts the projection worker loop.
func (pw *ProjectionWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case output, ok := <-pw.inputChan:
			if !ok {
				return nil
			}

			if err := pw.processOutput(ctx, output); err != nil {
				log.Printf("WARN: projection update failed at seq=%d: %v", output.Sequence, err)
				// Continue; projections are eventually consistent
				// and can be rebuilt from the action log
			}

			pw.lastSeq = output.Sequence
		}
	}
}

func (pw *ProjectionWorker) processOutput(ctx context.Context, output ProjectionOutput) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range output.Mutations {
		if err := applyMutation(ctx, tx, m, output.Sequence); err != nil {
			return fmt.Errorf("apply %s: %w", m.Op, err)
		}
	}

	// Update projection watermark
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (worker_id, last_sequence, updated_at)
		VALUES ('main', $1, NOW())
		ON CONFLICT (worker_id) DO UPDATE SET last_sequence = $1, updated_at = NOW()
	`, output.Sequence); err != nil {
		return fmt.Errorf("watermark update: %w", err)
	}

	return tx.Commit()
}

// applyMutation mirrors the in-memory store semantics onto the projection
// tables, one op at a time.
func applyMutation(ctx context.Context, tx *sql.Tx, m MutationEntry, seq int64) error {
	switch m.Op {
	case "credit_account":
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projections.accounts (owner, symbol_code, precision, balance, payer, last_sequence)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (owner, symbol_code)
			DO UPDATE SET balance = projections.accounts.balance + $4, last_sequence = $6
		`, m.Owner, m.SymbolCode, m.Precision, m.Amount, m.Payer, seq)
		return err

	case "debit_account":
		if m.RowDeleted {
			_, err := tx.ExecContext(ctx, `
				DELETE FROM projections.accounts WHERE owner = $1 AND symbol_code = $2
			`, m.Owner, m.SymbolCode)
			return err
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE projections.accounts
			SET balance = balance - $3, last_sequence = $4
			WHERE owner = $1 AND symbol_code = $2
		`, m.Owner, m.SymbolCode, m.Amount, seq)
		return err

	case "open_account":
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projections.accounts (owner, symbol_code, precision, balance, payer, last_sequence)
			VALUES ($1, $2, $3, 0, $4, $5)
			ON CONFLICT (owner, symbol_code) DO NOTHING
		`, m.Owner, m.SymbolCode, m.Precision, m.Payer, seq)
		return err

	case "close_account":
		_, err := tx.ExecContext(ctx, `
			DELETE FROM projections.accounts WHERE owner = $1 AND symbol_code = $2
		`, m.Owner, m.SymbolCode)
		return err

	case "create_supply":
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projections.stats (symbol_code, precision, supply, max_supply, issuer, payer, last_sequence)
			VALUES ($1, $2, 0, $3, $4, $5, $6)
			ON CONFLICT (symbol_code) DO NOTHING
		`, m.SymbolCode, m.Precision, m.MaxSupply, m.Issuer, m.Payer, seq)
		return err

	case "increase_supply":
		_, err := tx.ExecContext(ctx, `
			UPDATE projections.stats
			SET supply = supply + $2, last_sequence = $3
			WHERE symbol_code = $1
		`, m.SymbolCode, m.Amount, seq)
		return err

	case "decrease_supply":
		_, err := tx.ExecContext(ctx, `
			UPDATE projections.stats
			SET supply = supply - $2, last_sequence = $3
			WHERE symbol_code = $1
		`, m.SymbolCode, m.Amount, seq)
		return err

	case "set_allowance":
		_, err := tx.ExecContext(ctx, `
			INSERT INTO projections.allowed (owner, spender, symbol_code, precision, amount, payer, last_sequence)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (owner, spender, symbol_code)
			DO UPDATE SET amount = $5, payer = $6, last_sequence = $7
		`, m.Owner, m.Spender, m.SymbolCode, m.Precision, m.Amount, m.Payer, seq)
		return err

	case "delete_allowance":
		_, err := tx.ExecContext(ctx, `
			DELETE FROM projections.allowed WHERE owner = $1 AND spender = $2 AND symbol_code = $3
		`, m.Owner, m.Spender, m.SymbolCode)
		return err

	case "consume_allowance":
		if m.RowDeleted {
			_, err := tx.ExecContext(ctx, `
				DELETE FROM projections.allowed WHERE owner = $1 AND spender = $2 AND symbol_code = $3
			`, m.Owner, m.Spender, m.SymbolCode)
			return err
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE projections.allowed
			SET amount = amount - $4, last_sequence = $5
			WHERE owner = $1 AND spender = $2 AND symbol_code = $3
		`, m.Owner, m.Spender, m.SymbolCode, m.Amount, seq)
		return err

	default:
		return fmt.Errorf("unknown mutation op: %s", m.Op)
	}
}

// RebuildProjections rebuilds all projection tables by replaying the
// mutation log in sequence order.
func RebuildProjections(ctx context.Context, db *sql.DB) error {
	truncateStatements := []string{
		`TRUNCATE projections.accounts`,
		`TRUNCATE projections.stats`,
		`TRUNCATE projections.allowed`,
		`DELETE FROM projections.watermark WHERE worker_id = 'main'`,
	}

	for _, stmt := range truncateStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate failed: %w", err)
		}
	}

	rows, err := db.QueryContext(ctx, `
		SELECT sequence, op, owner, spender, symbol_code, precision,
		       amount, max_supply, issuer, payer, row_created, row_deleted
		FROM action_log.mutations
		ORDER BY sequence ASC, mutation_id ASC
	`)
	if err != nil {
		return fmt.Errorf("read mutation log: %w", err)
	}
	defer rows.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var lastSeq int64
	for rows.Next() {
		var m MutationEntry
		var seq int64
		if err := rows.Scan(
			&seq, &m.Op, &m.Owner, &m.Spender, &m.SymbolCode, &m.Precision,
			&m.Amount, &m.MaxSupply, &m.Issuer, &m.Payer, &m.RowCreated, &m.RowDeleted,
		); err != nil {
			return err
		}
		if err := applyMutation(ctx, tx, m, seq); err != nil {
			return fmt.Errorf("rebuild at seq %d: %w", seq, err)
		}
		lastSeq = seq
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (worker_id, last_sequence, updated_at)
		VALUES ('main', $1, NOW())
		ON CONFLICT (worker_id) DO UPDATE SET last_sequence = $1, updated_at = NOW()
	`, lastSeq); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Println("INFO: projection rebuild complete")
	return nil
}
