package action

import (
	"time"

	"github.com/google/uuid"

	"TokenLedger/internal/token"
)

// Transfer moves quantity from sender to recipient under the sender's
// authority.
type Transfer struct {
	ActionID     uuid.UUID
	From         token.Principal
	To           token.Principal
	Quantity     token.Asset
	Memo         string
	AuthorizedBy []token.Principal
	Sequence     int64
	Timestamp    time.Time
}

func (t *Transfer) IdempotencyKey() string { return t.ActionID.String() }

func (t *Transfer) ActionType() ActionType { return ActionTypeTransfer }

func (t *Transfer) SymbolCode() *string { return &t.Quantity.Symbol.Code }

func (t *Transfer) SourceSequence() int64 { return t.Sequence }

func (t *Transfer) Authorizers() []token.Principal { return t.AuthorizedBy }

// TransferFrom moves quantity from owner to recipient under the spender's
// authority, consuming the owner's allowance for the spender.
type TransferFrom struct {
	ActionID     uuid.UUID
	From         token.Principal
	To           token.Principal
	Spender      token.Principal
	Quantity     token.Asset
	Memo         string
	AuthorizedBy []token.Principal
	Sequence     int64
	Timestamp    time.Time
}

func (t *TransferFrom) IdempotencyKey() string { return t.ActionID.String() }

func (t *TransferFrom) ActionType() ActionType { return ActionTypeTransferFrom }

func (t *TransferFrom) SymbolCode() *string { return &t.Quantity.Symbol.Code }

func (t *TransferFrom) SourceSequence() int64 { return t.Sequence }

func (t *TransferFrom) Authorizers() []token.Principal { return t.AuthorizedBy }
