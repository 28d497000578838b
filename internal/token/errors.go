package token

import "errors"

// Failure taxonomy for ledger actions. Every precondition failure wraps
// exactly one of these sentinels; the host maps them to caller-visible
// responses. All are fatal to the enclosing action — there is no retry
// inside the core.
var (
	// ErrUnauthorized: a required principal did not authorize the action.
	ErrUnauthorized = errors.New("missing required authorization")

	// ErrValidation: malformed symbol, invalid or non-positive asset,
	// oversized memo.
	ErrValidation = errors.New("validation failed")

	// ErrState: an expected row (or principal) is missing, or a row already
	// exists where uniqueness is required.
	ErrState = errors.New("state error")

	// ErrInvariant: overdraft, supply cap exceeded, insufficient allowance,
	// self-transfer or self-approval.
	ErrInvariant = errors.New("invariant violation")
)
