package ledger

import (
	"fmt"

	"github.com/google/uuid"

	"TokenLedger/internal/token"
)

// Config holds the explicit policy switches the two observed deployments of
// this contract disagree on.
type Config struct {
	// DeleteZeroBalances removes a balance row the moment a debit lands
	// exactly on zero. When false (the default), a zeroed row survives and
	// is removed only by an explicit close.
	DeleteZeroBalances bool
}

// AccountKey addresses one balance row.
type AccountKey struct {
	Owner token.Principal
	Code  string
}

func (k AccountKey) Path() string {
	return fmt.Sprintf("account:%s:%s", k.Owner, k.Code)
}

// Account is one balance row: an asset plus the principal billed for the
// row's storage footprint. The payer is bookkeeping metadata only.
type Account struct {
	Balance token.Asset
	Payer   token.Principal
}

// LedgerStore is the keyed store of per-(owner, symbol-code) balances.
// Not thread-safe — only accessed from the single-threaded engine.
type LedgerStore struct {
	cfg  Config
	rows map[AccountKey]*Account
}

func NewLedgerStore(cfg Config) *LedgerStore {
	return &LedgerStore{
		cfg:  cfg,
		rows: make(map[AccountKey]*Account),
	}
}

// Lookup returns a copy of the row, if present.
func (ls *LedgerStore) Lookup(owner token.Principal, code string) (Account, bool) {
	row, ok := ls.rows[AccountKey{Owner: owner, Code: code}]
	if !ok {
		return Account{}, false
	}
	return *row, true
}

// BalanceOf returns the owner's balance, or zero-of-symbol when no row
// exists. Read-only convenience.
func (ls *LedgerStore) BalanceOf(owner token.Principal, sym token.Symbol) token.Asset {
	if row, ok := ls.rows[AccountKey{Owner: owner, Code: sym.Code}]; ok {
		return row.Balance
	}
	return token.ZeroOf(sym)
}

// Credit adds value to the owner's balance, creating the row billed to payer
// when absent. The payer of an existing row is unchanged.
func (ls *LedgerStore) Credit(owner token.Principal, value token.Asset, payer token.Principal) (Mutation, error) {
	if !value.IsValid() || value.Amount <= 0 {
		return Mutation{}, fmt.Errorf("%w: invalid quantity %s", token.ErrValidation, value)
	}

	key := AccountKey{Owner: owner, Code: value.Symbol.Code}
	m := Mutation{
		MutationID: uuid.New(),
		Op:         OpCreditAccount,
		Owner:      owner,
		Symbol:     value.Symbol,
		Amount:     value.Amount,
		Payer:      payer,
	}

	row, ok := ls.rows[key]
	if !ok {
		ls.rows[key] = &Account{Balance: value, Payer: payer}
		m.RowCreated = true
		return m, nil
	}

	if !row.Balance.Symbol.Equal(value.Symbol) {
		return Mutation{}, fmt.Errorf("%w: symbol precision mismatch for %s", token.ErrValidation, key.Path())
	}
	m.PrevExisted = true
	m.PrevAmount = row.Balance.Amount
	m.PrevPayer = row.Payer
	row.Balance.Amount += value.Amount
	return m, nil
}

// CheckDebit verifies a debit would succeed without mutating anything.
func (ls *LedgerStore) CheckDebit(owner token.Principal, value token.Asset) error {
	if !value.IsValid() || value.Amount <= 0 {
		return fmt.Errorf("%w: invalid quantity %s", token.ErrValidation, value)
	}
	key := AccountKey{Owner: owner, Code: value.Symbol.Code}
	row, ok := ls.rows[key]
	if !ok {
		return fmt.Errorf("%w: no balance row for %s", token.ErrState, key.Path())
	}
	if !row.Balance.Symbol.Equal(value.Symbol) {
		return fmt.Errorf("%w: symbol precision mismatch for %s", token.ErrValidation, key.Path())
	}
	if row.Balance.Amount < value.Amount {
		return fmt.Errorf("%w: overdrawn balance: have %s, need %s", token.ErrInvariant, row.Balance, value)
	}
	return nil
}

// Debit subtracts value from the owner's balance. A balance never goes
// negative; whether a row landing on zero is deleted is governed by Config.
func (ls *LedgerStore) Debit(owner token.Principal, value token.Asset) (Mutation, error) {
	if err := ls.CheckDebit(owner, value); err != nil {
		return Mutation{}, err
	}

	key := AccountKey{Owner: owner, Code: value.Symbol.Code}
	row := ls.rows[key]

	m := Mutation{
		MutationID:  uuid.New(),
		Op:          OpDebitAccount,
		Owner:       owner,
		Symbol:      value.Symbol,
		Amount:      value.Amount,
		PrevExisted: true,
		PrevAmount:  row.Balance.Amount,
		PrevPayer:   row.Payer,
	}

	row.Balance.Amount -= value.Amount
	if row.Balance.Amount == 0 && ls.cfg.DeleteZeroBalances {
		delete(ls.rows, key)
		m.RowDeleted = true
	}
	return m, nil
}

// Open creates a zero-balance row billed to payer. Returns nil when the row
// already exists (explicit open is a no-op on an open account).
func (ls *LedgerStore) Open(owner token.Principal, sym token.Symbol, payer token.Principal) (*Mutation, error) {
	if !sym.IsValid() {
		return nil, fmt.Errorf("%w: invalid symbol %q", token.ErrValidation, sym.Code)
	}
	key := AccountKey{Owner: owner, Code: sym.Code}
	if _, ok := ls.rows[key]; ok {
		return nil, nil
	}
	ls.rows[key] = &Account{Balance: token.ZeroOf(sym), Payer: payer}
	return &Mutation{
		MutationID: uuid.New(),
		Op:         OpOpenAccount,
		Owner:      owner,
		Symbol:     sym,
		Payer:      payer,
		RowCreated: true,
	}, nil
}

// Close deletes the owner's row. The balance must exist and be exactly zero.
func (ls *LedgerStore) Close(owner token.Principal, code string) (Mutation, error) {
	key := AccountKey{Owner: owner, Code: code}
	row, ok := ls.rows[key]
	if !ok {
		return Mutation{}, fmt.Errorf("%w: no balance row for %s", token.ErrState, key.Path())
	}
	if row.Balance.Amount != 0 {
		return Mutation{}, fmt.Errorf("%w: cannot close %s with non-zero balance %s", token.ErrInvariant, key.Path(), row.Balance)
	}

	m := Mutation{
		MutationID:  uuid.New(),
		Op:          OpCloseAccount,
		Owner:       owner,
		Symbol:      row.Balance.Symbol,
		PrevExisted: true,
		PrevAmount:  0,
		PrevPayer:   row.Payer,
		RowDeleted:  true,
	}
	delete(ls.rows, key)
	return m, nil
}

// Revert undoes a previously applied accounts mutation.
func (ls *LedgerStore) Revert(m Mutation) {
	key := AccountKey{Owner: m.Owner, Code: m.Symbol.Code}
	switch m.Op {
	case OpCreditAccount:
		if m.RowCreated {
			delete(ls.rows, key)
			return
		}
		ls.rows[key].Balance.Amount = m.PrevAmount
	case OpDebitAccount:
		if m.RowDeleted {
			ls.rows[key] = &Account{
				Balance: token.Asset{Amount: m.PrevAmount, Symbol: m.Symbol},
				Payer:   m.PrevPayer,
			}
			return
		}
		ls.rows[key].Balance.Amount = m.PrevAmount
	case OpOpenAccount:
		delete(ls.rows, key)
	case OpCloseAccount:
		ls.rows[key] = &Account{
			Balance: token.ZeroOf(m.Symbol),
			Payer:   m.PrevPayer,
		}
	}
}

// ForEach visits every row. Iteration order is map order; callers needing
// determinism must sort.
func (ls *LedgerStore) ForEach(fn func(AccountKey, Account)) {
	for k, v := range ls.rows {
		fn(k, *v)
	}
}

// Len returns the number of balance rows.
func (ls *LedgerStore) Len() int {
	return len(ls.rows)
}

// SetRow installs a row directly; used by snapshot restore only.
func (ls *LedgerStore) SetRow(key AccountKey, row Account) {
	ls.rows[key] = &row
}
