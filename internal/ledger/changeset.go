package ledger

import (
	"fmt"

	"github.com/google/uuid"

	"TokenLedger/internal/token"
)

// Table identifies one of the three persistent stores.
type Table int32

const (
	TableAccounts Table = iota
	TableStats
	TableAllowed
)

func (t Table) String() string {
	switch t {
	case TableAccounts:
		return "accounts"
	case TableStats:
		return "stats"
	case TableAllowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// Op is the kind of row mutation recorded in a changeset.
type Op int32

const (
	OpCreditAccount Op = iota
	OpDebitAccount
	OpOpenAccount
	OpCloseAccount
	OpCreateSupply
	OpIncreaseSupply
	OpDecreaseSupply
	OpSetAllowance
	OpDeleteAllowance
	OpConsumeAllowance
)

func (o Op) String() string {
	switch o {
	case OpCreditAccount:
		return "credit_account"
	case OpDebitAccount:
		return "debit_account"
	case OpOpenAccount:
		return "open_account"
	case OpCloseAccount:
		return "close_account"
	case OpCreateSupply:
		return "create_supply"
	case OpIncreaseSupply:
		return "increase_supply"
	case OpDecreaseSupply:
		return "decrease_supply"
	case OpSetAllowance:
		return "set_allowance"
	case OpDeleteAllowance:
		return "delete_allowance"
	case OpConsumeAllowance:
		return "consume_allowance"
	default:
		return "unknown"
	}
}

// Table returns the store an op mutates.
func (o Op) Table() Table {
	switch o {
	case OpCreateSupply, OpIncreaseSupply, OpDecreaseSupply:
		return TableStats
	case OpSetAllowance, OpDeleteAllowance, OpConsumeAllowance:
		return TableAllowed
	default:
		return TableAccounts
	}
}

// Mutation is one applied row change, carrying enough prior state to be
// inverted if a later precondition of the same action fails.
type Mutation struct {
	MutationID uuid.UUID
	Op         Op
	Owner      token.Principal
	Spender    token.Principal // allowed rows only
	Symbol     token.Symbol
	Amount     int64           // delta for credit/debit/supply/consume; new amount for set_allowance
	MaxSupply  int64           // create_supply only
	Issuer     token.Principal // create_supply only
	Payer      token.Principal // principal billed when the op creates a row

	// Prior state for revert.
	PrevAmount  int64
	PrevPayer   token.Principal
	PrevExisted bool
	RowCreated  bool // apply inserted the row
	RowDeleted  bool // apply removed the row
}

// KeyPath is the canonical string key of the mutated row, used for state
// digests and projection rows.
func (m Mutation) KeyPath() string {
	switch m.Op.Table() {
	case TableStats:
		return fmt.Sprintf("stat:%s", m.Symbol.Code)
	case TableAllowed:
		return fmt.Sprintf("allowed:%s:%s:%s", m.Owner, m.Spender, m.Symbol.Code)
	default:
		return fmt.Sprintf("account:%s:%s", m.Owner, m.Symbol.Code)
	}
}

// Changeset groups every row mutation applied by one action. An action either
// commits its whole changeset or the engine reverts it in reverse order.
type Changeset struct {
	BatchID   uuid.UUID
	ActionRef string // idempotency key of the source action
	Sequence  int64
	Timestamp int64 // versioned input timestamp (epoch microseconds)
	Mutations []Mutation
}

func NewChangeset(actionRef string, sequence, timestamp int64) *Changeset {
	return &Changeset{
		BatchID:   uuid.New(),
		ActionRef: actionRef,
		Sequence:  sequence,
		Timestamp: timestamp,
	}
}

func (c *Changeset) Append(m Mutation) {
	c.Mutations = append(c.Mutations, m)
}

// Validate ensures the changeset is well-formed before it is emitted for
// persistence. Balance deltas must be positive (direction is carried by the
// op), and allowance sets must not be negative.
func (c *Changeset) Validate() error {
	for _, m := range c.Mutations {
		switch m.Op {
		case OpCreditAccount, OpDebitAccount, OpIncreaseSupply, OpDecreaseSupply, OpConsumeAllowance:
			if m.Amount <= 0 {
				return fmt.Errorf("mutation %s has non-positive delta: %d", m.MutationID, m.Amount)
			}
		case OpSetAllowance:
			if m.Amount <= 0 {
				return fmt.Errorf("mutation %s sets non-positive allowance: %d", m.MutationID, m.Amount)
			}
		case OpCreateSupply:
			if m.MaxSupply <= 0 {
				return fmt.Errorf("mutation %s has non-positive max supply: %d", m.MutationID, m.MaxSupply)
			}
		}
		if !m.Symbol.IsValid() {
			return fmt.Errorf("mutation %s has invalid symbol %q", m.MutationID, m.Symbol.Code)
		}
	}
	return nil
}
