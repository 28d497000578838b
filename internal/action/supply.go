package action

import (
	"time"

	"github.com/google/uuid"

	"TokenLedger/internal/token"
)

// Create registers a new token: a supply row with a fixed cap and issuer.
type Create struct {
	ActionID     uuid.UUID
	Issuer       token.Principal
	MaxSupply    token.Asset
	AuthorizedBy []token.Principal
	Sequence     int64
	Timestamp    time.Time
}

func (c *Create) IdempotencyKey() string { return c.ActionID.String() }

func (c *Create) ActionType() ActionType { return ActionTypeCreate }

func (c *Create) SymbolCode() *string { return &c.MaxSupply.Symbol.Code }

func (c *Create) SourceSequence() int64 { return c.Sequence }

func (c *Create) Authorizers() []token.Principal { return c.AuthorizedBy }

// Issue mints quantity into circulation, credited to the issuer and, when
// the recipient differs, transferred on in the same atomic unit.
type Issue struct {
	ActionID     uuid.UUID
	To           token.Principal
	Quantity     token.Asset
	Memo         string
	AuthorizedBy []token.Principal
	Sequence     int64
	Timestamp    time.Time
}

func (i *Issue) IdempotencyKey() string { return i.ActionID.String() }

func (i *Issue) ActionType() ActionType { return ActionTypeIssue }

func (i *Issue) SymbolCode() *string { return &i.Quantity.Symbol.Code }

func (i *Issue) SourceSequence() int64 { return i.Sequence }

func (i *Issue) Authorizers() []token.Principal { return i.AuthorizedBy }

// Retire burns quantity out of circulation from the issuer's balance.
type Retire struct {
	ActionID     uuid.UUID
	Quantity     token.Asset
	Memo         string
	AuthorizedBy []token.Principal
	Sequence     int64
	Timestamp    time.Time
}

func (r *Retire) IdempotencyKey() string { return r.ActionID.String() }

func (r *Retire) ActionType() ActionType { return ActionTypeRetire }

func (r *Retire) SymbolCode() *string { return &r.Quantity.Symbol.Code }

func (r *Retire) SourceSequence() int64 { return r.Sequence }

func (r *Retire) Authorizers() []token.Principal { return r.AuthorizedBy }
