package action

import (
	"time"

	"TokenLedger/internal/token"
)

// MaxMemoBytes caps memo length; a longer memo rejects the action, it is
// never truncated.
const MaxMemoBytes = 256

// ActionType discriminator for action payloads.
type ActionType int32

const (
	ActionTypeUnknown ActionType = iota
	ActionTypeCreate
	ActionTypeIssue
	ActionTypeRetire
	ActionTypeTransfer
	ActionTypeApprove
	ActionTypeTransferFrom
	ActionTypeOpen
	ActionTypeClose
)

func (at ActionType) String() string {
	switch at {
	case ActionTypeCreate:
		return "Create"
	case ActionTypeIssue:
		return "Issue"
	case ActionTypeRetire:
		return "Retire"
	case ActionTypeTransfer:
		return "Transfer"
	case ActionTypeApprove:
		return "Approve"
	case ActionTypeTransferFrom:
		return "TransferFrom"
	case ActionTypeOpen:
		return "Open"
	case ActionTypeClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// Envelope wraps every action in the log.
type Envelope struct {
	// Global monotonic sequence assigned by the engine
	Sequence int64

	// Stable idempotency key from the host
	IdempotencyKey string

	// Action type discriminator
	ActionType ActionType

	// Symbol context (nil for actions without one)
	SymbolCode *string

	// Versioned input timestamp (NOT wall-clock)
	Timestamp time.Time

	// Host sequence for ordering validation
	SourceSequence int64

	// JSON-encoded action payload
	Payload []byte

	// SHA-256 of state AFTER applying this action
	StateHash [32]byte

	// Previous action's state hash (chain integrity)
	PrevHash [32]byte
}

// Action is the interface every authenticated state-transition request
// delivered by the host must implement.
type Action interface {
	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string

	// ActionType returns the discriminator
	ActionType() ActionType

	// SymbolCode returns the symbol context (nil when none)
	SymbolCode() *string

	// SourceSequence returns the host ordering key
	SourceSequence() int64

	// Authorizers returns the set of principals whose signatures the host
	// verified for this action
	Authorizers() []token.Principal
}

// Authorized reports whether principal p is among the action's verified
// authorizers. This is the capability check behind every require_auth.
func Authorized(a Action, p token.Principal) bool {
	for _, auth := range a.Authorizers() {
		if auth == p {
			return true
		}
	}
	return false
}
