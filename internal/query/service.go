package query

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"TokenLedger/internal/token"
)

// QueryService provides read-only access to projection tables. Queries are
// served via gRPC and HTTP/JSON, reading from PostgreSQL projections. All
// responses carry as_of_sequence so callers can reason about freshness.
type QueryService struct {
	db *sql.DB
}

func NewQueryService(db *sql.DB) *QueryService {
	return &QueryService{db: db}
}

// GetBalance returns an owner's balance for a symbol. An owner with no row
// holds zero; the response reports zero of the symbol rather than an error,
// provided the symbol itself exists.
func (qs *QueryService) GetBalance(
	ctx context.Context,
	owner string,
	symbolCode string,
) (*BalanceResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	var resp BalanceResponse
	err = qs.db.QueryRowContext(ctx, `
		SELECT owner, symbol_code, precision, balance, payer
		FROM projections.accounts
		WHERE owner = $1 AND symbol_code = $2
	`, owner, symbolCode).Scan(
		&resp.Owner, &resp.SymbolCode, &resp.Precision, &resp.Amount, &resp.Payer,
	)
	if err == sql.ErrNoRows {
		resp = BalanceResponse{Owner: owner, SymbolCode: symbolCode}
		var precision uint8
		perr := qs.db.QueryRowContext(ctx,
			`SELECT precision FROM projections.stats WHERE symbol_code = $1`, symbolCode,
		).Scan(&precision)
		if perr == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: token with symbol %s does not exist", token.ErrState, symbolCode)
		}
		if perr != nil {
			return nil, perr
		}
		resp.Precision = precision
	} else if err != nil {
		return nil, err
	}

	resp.Quantity = formatQuantity(resp.Amount, resp.SymbolCode, resp.Precision)
	resp.AsOfSequence = asOfSeq
	return &resp, nil
}

// ListAccounts returns every balance row held by an owner.
func (qs *QueryService) ListAccounts(
	ctx context.Context,
	owner string,
) ([]BalanceResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := qs.db.QueryContext(ctx, `
		SELECT owner, symbol_code, precision, balance, payer
		FROM projections.accounts
		WHERE owner = $1
		ORDER BY symbol_code
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []BalanceResponse
	for rows.Next() {
		var r BalanceResponse
		if err := rows.Scan(&r.Owner, &r.SymbolCode, &r.Precision, &r.Amount, &r.Payer); err != nil {
			return nil, err
		}
		r.Quantity = formatQuantity(r.Amount, r.SymbolCode, r.Precision)
		r.AsOfSequence = asOfSeq
		accounts = append(accounts, r)
	}

	return accounts, rows.Err()
}

// GetSupply returns the supply state for a symbol.
func (qs *QueryService) GetSupply(
	ctx context.Context,
	symbolCode string,
) (*SupplyResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	var resp SupplyResponse
	err = qs.db.QueryRowContext(ctx, `
		SELECT symbol_code, precision, supply, max_supply, issuer
		FROM projections.stats
		WHERE symbol_code = $1
	`, symbolCode).Scan(
		&resp.SymbolCode, &resp.Precision, &resp.Supply, &resp.MaxSupply, &resp.Issuer,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: token with symbol %s does not exist", token.ErrState, symbolCode)
	}
	if err != nil {
		return nil, err
	}

	resp.SupplyQuantity = formatQuantity(resp.Supply, resp.SymbolCode, resp.Precision)
	resp.MaxSupplyQuantity = formatQuantity(resp.MaxSupply, resp.SymbolCode, resp.Precision)
	resp.AsOfSequence = asOfSeq
	return &resp, nil
}

// GetAllowance returns the allowance a spender holds on an owner's balance.
// A missing row means zero allowance; this returns a zero response rather
// than an error so callers can treat absence uniformly.
func (qs *QueryService) GetAllowance(
	ctx context.Context,
	owner string,
	spender string,
	symbolCode string,
) (*AllowanceResponse, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	var resp AllowanceResponse
	err = qs.db.QueryRowContext(ctx, `
		SELECT owner, spender, symbol_code, precision, amount
		FROM projections.allowed
		WHERE owner = $1 AND spender = $2 AND symbol_code = $3
	`, owner, spender, symbolCode).Scan(
		&resp.Owner, &resp.Spender, &resp.SymbolCode, &resp.Precision, &resp.Amount,
	)
	if err == sql.ErrNoRows {
		// Zero allowance rows are deleted; report zero with precision
		// from the supply record when available.
		resp = AllowanceResponse{Owner: owner, Spender: spender, SymbolCode: symbolCode}
		var precision uint8
		perr := qs.db.QueryRowContext(ctx,
			`SELECT precision FROM projections.stats WHERE symbol_code = $1`, symbolCode,
		).Scan(&precision)
		if perr == nil {
			resp.Precision = precision
		}
	} else if err != nil {
		return nil, err
	}

	resp.Quantity = formatQuantity(resp.Amount, resp.SymbolCode, resp.Precision)
	resp.AsOfSequence = asOfSeq
	return &resp, nil
}

// GetActionHistory returns committed actions from the log with cursor-based
// pagination, optionally filtered to one symbol.
func (qs *QueryService) GetActionHistory(
	ctx context.Context,
	symbolCode *string,
	limit int,
	beforeSequence *int64,
) ([]ActionHistoryEntry, error) {
	query := `
		SELECT sequence, action_type, idempotency_key, symbol_code, payload, state_hash, timestamp
		FROM action_log.actions
		WHERE TRUE
	`
	args := []interface{}{}
	argIdx := 1

	if symbolCode != nil {
		query += fmt.Sprintf(" AND symbol_code = $%d", argIdx)
		args = append(args, *symbolCode)
		argIdx++
	}

	if beforeSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *beforeSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ActionHistoryEntry
	for rows.Next() {
		var e ActionHistoryEntry
		var stateHash []byte
		var ts time.Time
		if err := rows.Scan(
			&e.Sequence, &e.ActionType, &e.IdempotencyKey, &e.SymbolCode,
			&e.Payload, &stateHash, &ts,
		); err != nil {
			return nil, err
		}
		e.StateHash = hex.EncodeToString(stateHash)
		e.Timestamp = ts.UTC().Format(time.RFC3339Nano)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// --- Admin APIs ---

// VerifyIntegrity checks hash chain continuity in the action log and supply
// conservation across the projections.
func (qs *QueryService) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	// Hash chain: each action's prev_hash must equal the previous action's
	// state_hash.
	rows, err := qs.db.QueryContext(ctx, `
		SELECT a.sequence
		FROM action_log.actions a
		JOIN action_log.actions p ON p.sequence = a.sequence - 1
		WHERE a.prev_hash != p.state_hash
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Conservation: per symbol, sum of balances must equal recorded supply.
	balanceRows, err := qs.db.QueryContext(ctx, `
		SELECT s.symbol_code, s.supply, COALESCE(SUM(a.balance), 0) AS balance_sum
		FROM projections.stats s
		LEFT JOIN projections.accounts a ON a.symbol_code = s.symbol_code
		GROUP BY s.symbol_code, s.supply
		HAVING s.supply != COALESCE(SUM(a.balance), 0)
	`)
	if err != nil {
		return nil, err
	}
	defer balanceRows.Close()

	for balanceRows.Next() {
		var u UnconservedSymbol
		if err := balanceRows.Scan(&u.SymbolCode, &u.Supply, &u.BalanceSum); err != nil {
			return nil, err
		}
		report.UnconservedSymbols = append(report.UnconservedSymbols, u)
	}
	if err := balanceRows.Err(); err != nil {
		return nil, err
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0 && len(report.UnconservedSymbols) == 0
	return report, nil
}

// --- helpers ---

func (qs *QueryService) getWatermark(ctx context.Context) (int64, error) {
	var seq int64
	err := qs.db.QueryRowContext(ctx, `
		SELECT COALESCE(last_sequence, 0) FROM projections.watermark WHERE worker_id = 'main'
	`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return seq, err
}

func formatQuantity(amount int64, code string, precision uint8) string {
	return token.NewAsset(amount, token.NewSymbol(code, precision)).String()
}
