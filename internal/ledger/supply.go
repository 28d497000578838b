package ledger

import (
	"fmt"

	"github.com/google/uuid"

	"TokenLedger/internal/token"
)

// Stats is one supply row: current supply, the cap fixed at creation, the
// issuing principal, and the payer billed for the row.
type Stats struct {
	Supply    token.Asset
	MaxSupply token.Asset
	Issuer    token.Principal
	Payer     token.Principal
}

// SupplyRegistry is the keyed store of per-symbol supply statistics, one row
// per symbol code contract-wide. Rows are created exactly once and never
// deleted. Not thread-safe — only accessed from the single-threaded engine.
type SupplyRegistry struct {
	rows map[string]*Stats
}

func NewSupplyRegistry() *SupplyRegistry {
	return &SupplyRegistry{rows: make(map[string]*Stats)}
}

// Lookup returns a copy of the supply row for a symbol code.
func (sr *SupplyRegistry) Lookup(code string) (Stats, bool) {
	row, ok := sr.rows[code]
	if !ok {
		return Stats{}, false
	}
	return *row, true
}

// Create inserts a supply row with zero current supply. Fails if the symbol
// is invalid, the cap is non-positive, or the symbol already exists.
func (sr *SupplyRegistry) Create(issuer token.Principal, maxSupply token.Asset, payer token.Principal) (Mutation, error) {
	if !maxSupply.Symbol.IsValid() {
		return Mutation{}, fmt.Errorf("%w: invalid symbol %q", token.ErrValidation, maxSupply.Symbol.Code)
	}
	if !maxSupply.IsValid() {
		return Mutation{}, fmt.Errorf("%w: invalid supply %s", token.ErrValidation, maxSupply)
	}
	if maxSupply.Amount <= 0 {
		return Mutation{}, fmt.Errorf("%w: max supply must be positive", token.ErrValidation)
	}
	if _, ok := sr.rows[maxSupply.Symbol.Code]; ok {
		return Mutation{}, fmt.Errorf("%w: token with symbol %s already exists", token.ErrState, maxSupply.Symbol.Code)
	}

	sr.rows[maxSupply.Symbol.Code] = &Stats{
		Supply:    token.ZeroOf(maxSupply.Symbol),
		MaxSupply: maxSupply,
		Issuer:    issuer,
		Payer:     payer,
	}
	return Mutation{
		MutationID: uuid.New(),
		Op:         OpCreateSupply,
		Symbol:     maxSupply.Symbol,
		MaxSupply:  maxSupply.Amount,
		Issuer:     issuer,
		Payer:      payer,
		RowCreated: true,
	}, nil
}

// IncreaseSupply adds delta to the current supply, bounded by the cap.
func (sr *SupplyRegistry) IncreaseSupply(delta token.Asset) (Mutation, error) {
	row, err := sr.checkedRow(delta)
	if err != nil {
		return Mutation{}, err
	}
	if delta.Amount > row.MaxSupply.Amount-row.Supply.Amount {
		return Mutation{}, fmt.Errorf("%w: quantity exceeds available supply: cap %s, supply %s, delta %s",
			token.ErrInvariant, row.MaxSupply, row.Supply, delta)
	}

	m := Mutation{
		MutationID:  uuid.New(),
		Op:          OpIncreaseSupply,
		Symbol:      delta.Symbol,
		Amount:      delta.Amount,
		PrevExisted: true,
		PrevAmount:  row.Supply.Amount,
	}
	row.Supply.Amount += delta.Amount
	return m, nil
}

// DecreaseSupply subtracts delta from the current supply, never below zero.
func (sr *SupplyRegistry) DecreaseSupply(delta token.Asset) (Mutation, error) {
	row, err := sr.checkedRow(delta)
	if err != nil {
		return Mutation{}, err
	}
	if row.Supply.Amount < delta.Amount {
		return Mutation{}, fmt.Errorf("%w: quantity exceeds current supply: supply %s, delta %s",
			token.ErrInvariant, row.Supply, delta)
	}

	m := Mutation{
		MutationID:  uuid.New(),
		Op:          OpDecreaseSupply,
		Symbol:      delta.Symbol,
		Amount:      delta.Amount,
		PrevExisted: true,
		PrevAmount:  row.Supply.Amount,
	}
	row.Supply.Amount -= delta.Amount
	return m, nil
}

func (sr *SupplyRegistry) checkedRow(delta token.Asset) (*Stats, error) {
	if !delta.IsValid() || delta.Amount <= 0 {
		return nil, fmt.Errorf("%w: invalid quantity %s", token.ErrValidation, delta)
	}
	row, ok := sr.rows[delta.Symbol.Code]
	if !ok {
		return nil, fmt.Errorf("%w: token with symbol %s does not exist", token.ErrState, delta.Symbol.Code)
	}
	if !delta.Symbol.Equal(row.Supply.Symbol) {
		return nil, fmt.Errorf("%w: symbol precision mismatch: %s vs %s", token.ErrValidation, delta.Symbol, row.Supply.Symbol)
	}
	return row, nil
}

// Revert undoes a previously applied stats mutation.
func (sr *SupplyRegistry) Revert(m Mutation) {
	switch m.Op {
	case OpCreateSupply:
		delete(sr.rows, m.Symbol.Code)
	case OpIncreaseSupply, OpDecreaseSupply:
		sr.rows[m.Symbol.Code].Supply.Amount = m.PrevAmount
	}
}

// ForEach visits every supply row.
func (sr *SupplyRegistry) ForEach(fn func(string, Stats)) {
	for code, row := range sr.rows {
		fn(code, *row)
	}
}

// Len returns the number of supply rows.
func (sr *SupplyRegistry) Len() int {
	return len(sr.rows)
}

// SetRow installs a row directly; used by snapshot restore only.
func (sr *SupplyRegistry) SetRow(code string, row Stats) {
	sr.rows[code] = &row
}
