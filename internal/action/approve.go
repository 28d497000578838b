package action

import (
	"time"

	"github.com/google/uuid"

	"TokenLedger/internal/token"
)

// Approve sets (or, at zero quantity, removes) the spender's delegated
// spending limit over the owner's funds.
type Approve struct {
	ActionID     uuid.UUID
	Owner        token.Principal
	Spender      token.Principal
	Quantity     token.Asset
	AuthorizedBy []token.Principal
	Sequence     int64
	Timestamp    time.Time
}

func (a *Approve) IdempotencyKey() string { return a.ActionID.String() }

func (a *Approve) ActionType() ActionType { return ActionTypeApprove }

func (a *Approve) SymbolCode() *string { return &a.Quantity.Symbol.Code }

func (a *Approve) SourceSequence() int64 { return a.Sequence }

func (a *Approve) Authorizers() []token.Principal { return a.AuthorizedBy }
