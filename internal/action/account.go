package action

import (
	"time"

	"github.com/google/uuid"

	"TokenLedger/internal/token"
)

// Open creates an explicit zero-balance row for owner, billed to the payer.
type Open struct {
	ActionID     uuid.UUID
	Owner        token.Principal
	Symbol       token.Symbol
	Payer        token.Principal
	AuthorizedBy []token.Principal
	Sequence     int64
	Timestamp    time.Time
}

func (o *Open) IdempotencyKey() string { return o.ActionID.String() }

func (o *Open) ActionType() ActionType { return ActionTypeOpen }

func (o *Open) SymbolCode() *string { return &o.Symbol.Code }

func (o *Open) SourceSequence() int64 { return o.Sequence }

func (o *Open) Authorizers() []token.Principal { return o.AuthorizedBy }

// Close deletes the owner's zero-balance row.
type Close struct {
	ActionID     uuid.UUID
	Owner        token.Principal
	Symbol       token.Symbol
	AuthorizedBy []token.Principal
	Sequence     int64
	Timestamp    time.Time
}

func (c *Close) IdempotencyKey() string { return c.ActionID.String() }

func (c *Close) ActionType() ActionType { return ActionTypeClose }

func (c *Close) SymbolCode() *string { return &c.Symbol.Code }

func (c *Close) SourceSequence() int64 { return c.Sequence }

func (c *Close) Authorizers() []token.Principal { return c.AuthorizedBy }
