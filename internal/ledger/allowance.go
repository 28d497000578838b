package ledger

import (
	"fmt"

	"github.com/google/uuid"

	"TokenLedger/internal/token"
)

// AllowanceKey addresses one delegated-spending row.
type AllowanceKey struct {
	Owner   token.Principal
	Spender token.Principal
	Code    string
}

func (k AllowanceKey) Path() string {
	return fmt.Sprintf("allowed:%s:%s:%s", k.Owner, k.Spender, k.Code)
}

// Allowance is one delegated spending limit. A row only exists while its
// amount is positive — a zero allowance is deleted, never stored.
type Allowance struct {
	Quantity token.Asset
	Payer    token.Principal
}

// AllowanceRegistry is the keyed store of per-(owner, spender, symbol-code)
// spending limits. Not thread-safe — only accessed from the single-threaded
// engine.
type AllowanceRegistry struct {
	rows map[AllowanceKey]*Allowance
}

func NewAllowanceRegistry() *AllowanceRegistry {
	return &AllowanceRegistry{rows: make(map[AllowanceKey]*Allowance)}
}

// Lookup returns a copy of the allowance row, if present.
func (ar *AllowanceRegistry) Lookup(owner, spender token.Principal, code string) (Allowance, bool) {
	row, ok := ar.rows[AllowanceKey{Owner: owner, Spender: spender, Code: code}]
	if !ok {
		return Allowance{}, false
	}
	return *row, true
}

// Set creates or overwrites the allowance row billed to payer. A zero
// quantity deletes the row and fails when none exists.
func (ar *AllowanceRegistry) Set(owner, spender token.Principal, quantity token.Asset, payer token.Principal) (Mutation, error) {
	if !quantity.IsValid() || quantity.Amount < 0 {
		return Mutation{}, fmt.Errorf("%w: invalid quantity %s", token.ErrValidation, quantity)
	}

	key := AllowanceKey{Owner: owner, Spender: spender, Code: quantity.Symbol.Code}
	row, exists := ar.rows[key]

	if quantity.Amount == 0 {
		if !exists {
			return Mutation{}, fmt.Errorf("%w: no allowance row for %s", token.ErrState, key.Path())
		}
		m := Mutation{
			MutationID:  uuid.New(),
			Op:          OpDeleteAllowance,
			Owner:       owner,
			Spender:     spender,
			Symbol:      quantity.Symbol,
			PrevExisted: true,
			PrevAmount:  row.Quantity.Amount,
			PrevPayer:   row.Payer,
			RowDeleted:  true,
		}
		delete(ar.rows, key)
		return m, nil
	}

	m := Mutation{
		MutationID: uuid.New(),
		Op:         OpSetAllowance,
		Owner:      owner,
		Spender:    spender,
		Symbol:     quantity.Symbol,
		Amount:     quantity.Amount,
		Payer:      payer,
	}
	if exists {
		m.PrevExisted = true
		m.PrevAmount = row.Quantity.Amount
		m.PrevPayer = row.Payer
		row.Quantity = quantity
		row.Payer = payer
	} else {
		m.RowCreated = true
		ar.rows[key] = &Allowance{Quantity: quantity, Payer: payer}
	}
	return m, nil
}

// CheckConsume verifies a consume would succeed without mutating anything.
func (ar *AllowanceRegistry) CheckConsume(owner, spender token.Principal, quantity token.Asset) error {
	if !quantity.IsValid() || quantity.Amount <= 0 {
		return fmt.Errorf("%w: invalid quantity %s", token.ErrValidation, quantity)
	}
	key := AllowanceKey{Owner: owner, Spender: spender, Code: quantity.Symbol.Code}
	row, ok := ar.rows[key]
	if !ok {
		return fmt.Errorf("%w: spender not allowed: no row for %s", token.ErrState, key.Path())
	}
	if !row.Quantity.Symbol.Equal(quantity.Symbol) {
		return fmt.Errorf("%w: symbol precision mismatch for %s", token.ErrValidation, key.Path())
	}
	if row.Quantity.Amount < quantity.Amount {
		return fmt.Errorf("%w: allowed quantity %s less than transfer quantity %s",
			token.ErrInvariant, row.Quantity, quantity)
	}
	return nil
}

// Consume subtracts quantity from the row, deleting it when it reaches zero.
func (ar *AllowanceRegistry) Consume(owner, spender token.Principal, quantity token.Asset) (Mutation, error) {
	if err := ar.CheckConsume(owner, spender, quantity); err != nil {
		return Mutation{}, err
	}

	key := AllowanceKey{Owner: owner, Spender: spender, Code: quantity.Symbol.Code}
	row := ar.rows[key]

	m := Mutation{
		MutationID:  uuid.New(),
		Op:          OpConsumeAllowance,
		Owner:       owner,
		Spender:     spender,
		Symbol:      quantity.Symbol,
		Amount:      quantity.Amount,
		PrevExisted: true,
		PrevAmount:  row.Quantity.Amount,
		PrevPayer:   row.Payer,
	}
	row.Quantity.Amount -= quantity.Amount
	if row.Quantity.Amount == 0 {
		delete(ar.rows, key)
		m.RowDeleted = true
	}
	return m, nil
}

// Revert undoes a previously applied allowed mutation.
func (ar *AllowanceRegistry) Revert(m Mutation) {
	key := AllowanceKey{Owner: m.Owner, Spender: m.Spender, Code: m.Symbol.Code}
	switch m.Op {
	case OpSetAllowance:
		if m.RowCreated {
			delete(ar.rows, key)
			return
		}
		ar.rows[key].Quantity.Amount = m.PrevAmount
		ar.rows[key].Payer = m.PrevPayer
	case OpDeleteAllowance:
		ar.rows[key] = &Allowance{
			Quantity: token.Asset{Amount: m.PrevAmount, Symbol: m.Symbol},
			Payer:    m.PrevPayer,
		}
	case OpConsumeAllowance:
		if m.RowDeleted {
			ar.rows[key] = &Allowance{
				Quantity: token.Asset{Amount: m.PrevAmount, Symbol: m.Symbol},
				Payer:    m.PrevPayer,
			}
			return
		}
		ar.rows[key].Quantity.Amount = m.PrevAmount
	}
}

// ForEach visits every allowance row.
func (ar *AllowanceRegistry) ForEach(fn func(AllowanceKey, Allowance)) {
	for k, v := range ar.rows {
		fn(k, *v)
	}
}

// Len returns the number of allowance rows.
func (ar *AllowanceRegistry) Len() int {
	return len(ar.rows)
}

// SetRow installs a row directly; used by snapshot restore only.
func (ar *AllowanceRegistry) SetRow(key AllowanceKey, row Allowance) {
	ar.rows[key] = &row
}
