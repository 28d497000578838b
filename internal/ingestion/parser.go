package ingestion

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"TokenLedger/internal/action"
	"TokenLedger/internal/token"
)

// ParseRawAction converts a RawAction (JSON bytes + action type string) into
// a typed action.Action. The ingestion shell validates, parses, and converts
// raw messages before sending anything to the engine.
func ParseRawAction(raw RawAction, actionType string) (action.Action, error) {
	switch actionType {
	case "Create":
		return parseCreate(raw.Data)
	case "Issue":
		return parseIssue(raw.Data)
	case "Retire":
		return parseRetire(raw.Data)
	case "Transfer":
		return parseTransfer(raw.Data)
	case "Approve":
		return parseApprove(raw.Data)
	case "TransferFrom":
		return parseTransferFrom(raw.Data)
	case "Open":
		return parseOpen(raw.Data)
	case "Close":
		return parseClose(raw.Data)
	default:
		return nil, fmt.Errorf("unknown action type: %s", actionType)
	}
}

// --- JSON wire formats ---
// These structs represent the JSON payloads received from NATS.
// Field names use snake_case to match upstream producers. Quantities are
// decimal strings ("100.00 TOK"); symbols are "precision,CODE".

func parseAuthorizers(names []string) []token.Principal {
	out := make([]token.Principal, 0, len(names))
	for _, n := range names {
		out = append(out, token.Principal(n))
	}
	return out
}

type createJSON struct {
	ActionID     string   `json:"action_id"`
	Issuer       string   `json:"issuer"`
	MaxSupply    string   `json:"max_supply"`
	AuthorizedBy []string `json:"authorized_by"`
	Sequence     int64    `json:"sequence"`
	TimestampUs  int64    `json:"timestamp_us"`
}

func parseCreate(data []byte) (*action.Create, error) {
	var j createJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Create: %w", err)
	}
	actionID, err := uuid.Parse(j.ActionID)
	if err != nil {
		return nil, fmt.Errorf("parse action_id: %w", err)
	}
	maxSupply, err := token.ParseAsset(j.MaxSupply)
	if err != nil {
		return nil, fmt.Errorf("parse max_supply: %w", err)
	}
	return &action.Create{
		ActionID:     actionID,
		Issuer:       token.Principal(j.Issuer),
		MaxSupply:    maxSupply,
		AuthorizedBy: parseAuthorizers(j.AuthorizedBy),
		Sequence:     j.Sequence,
		Timestamp:    time.UnixMicro(j.TimestampUs),
	}, nil
}

type issueJSON struct {
	ActionID     string   `json:"action_id"`
	To           string   `json:"to"`
	Quantity     string   `json:"quantity"`
	Memo         string   `json:"memo"`
	AuthorizedBy []string `json:"authorized_by"`
	Sequence     int64    `json:"sequence"`
	TimestampUs  int64    `json:"timestamp_us"`
}

func parseIssue(data []byte) (*action.Issue, error) {
	var j issueJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Issue: %w", err)
	}
	actionID, err := uuid.Parse(j.ActionID)
	if err != nil {
		return nil, fmt.Errorf("parse action_id: %w", err)
	}
	quantity, err := token.ParseAsset(j.Quantity)
	if err != nil {
		return nil, fmt.Errorf("parse quantity: %w", err)
	}
	return &action.Issue{
		ActionID:     actionID,
		To:           token.Principal(j.To),
		Quantity:     quantity,
		Memo:         j.Memo,
		AuthorizedBy: parseAuthorizers(j.AuthorizedBy),
		Sequence:     j.Sequence,
		Timestamp:    time.UnixMicro(j.TimestampUs),
	}, nil
}

type retireJSON struct {
	ActionID     string   `json:"action_id"`
	Quantity     string   `json:"quantity"`
	Memo         string   `json:"memo"`
	AuthorizedBy []string `json:"authorized_by"`
	Sequence     int64    `json:"sequence"`
	TimestampUs  int64    `json:"timestamp_us"`
}

func parseRetire(data []byte) (*action.Retire, error) {
	var j retireJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Retire: %w", err)
	}
	actionID, err := uuid.Parse(j.ActionID)
	if err != nil {
		return nil, fmt.Errorf("parse action_id: %w", err)
	}
	quantity, err := token.ParseAsset(j.Quantity)
	if err != nil {
		return nil, fmt.Errorf("parse quantity: %w", err)
	}
	return &action.Retire{
		ActionID:     actionID,
		Quantity:     quantity,
		Memo:         j.Memo,
		AuthorizedBy: parseAuthorizers(j.AuthorizedBy),
		Sequence:     j.Sequence,
		Timestamp:    time.UnixMicro(j.TimestampUs),
	}, nil
}

type transferJSON struct {
	ActionID     string   `json:"action_id"`
	From         string   `json:"from"`
	To           string   `json:"to"`
	Quantity     string   `json:"quantity"`
	Memo         string   `json:"memo"`
	AuthorizedBy []string `json:"authorized_by"`
	Sequence     int64    `json:"sequence"`
	TimestampUs  int64    `json:"timestamp_us"`
}

func parseTransfer(data []byte) (*action.Transfer, error) {
	var j transferJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Transfer: %w", err)
	}
	actionID, err := uuid.Parse(j.ActionID)
	if err != nil {
		return nil, fmt.Errorf("parse action_id: %w", err)
	}
	quantity, err := token.ParseAsset(j.Quantity)
	if err != nil {
		return nil, fmt.Errorf("parse quantity: %w", err)
	}
	return &action.Transfer{
		ActionID:     actionID,
		From:         token.Principal(j.From),
		To:           token.Principal(j.To),
		Quantity:     quantity,
		Memo:         j.Memo,
		AuthorizedBy: parseAuthorizers(j.AuthorizedBy),
		Sequence:     j.Sequence,
		Timestamp:    time.UnixMicro(j.TimestampUs),
	}, nil
}

type approveJSON struct {
	ActionID     string   `json:"action_id"`
	Owner        string   `json:"owner"`
	Spender      string   `json:"spender"`
	Quantity     string   `json:"quantity"`
	AuthorizedBy []string `json:"authorized_by"`
	Sequence     int64    `json:"sequence"`
	TimestampUs  int64    `json:"timestamp_us"`
}

func parseApprove(data []byte) (*action.Approve, error) {
	var j approveJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Approve: %w", err)
	}
	actionID, err := uuid.Parse(j.ActionID)
	if err != nil {
		return nil, fmt.Errorf("parse action_id: %w", err)
	}
	quantity, err := token.ParseAsset(j.Quantity)
	if err != nil {
		return nil, fmt.Errorf("parse quantity: %w", err)
	}
	return &action.Approve{
		ActionID:     actionID,
		Owner:        token.Principal(j.Owner),
		Spender:      token.Principal(j.Spender),
		Quantity:     quantity,
		AuthorizedBy: parseAuthorizers(j.AuthorizedBy),
		Sequence:     j.Sequence,
		Timestamp:    time.UnixMicro(j.TimestampUs),
	}, nil
}

type transferFromJSON struct {
	ActionID     string   `json:"action_id"`
	From         string   `json:"from"`
	To           string   `json:"to"`
	Spender      string   `json:"spender"`
	Quantity     string   `json:"quantity"`
	Memo         string   `json:"memo"`
	AuthorizedBy []string `json:"authorized_by"`
	Sequence     int64    `json:"sequence"`
	TimestampUs  int64    `json:"timestamp_us"`
}

func parseTransferFrom(data []byte) (*action.TransferFrom, error) {
	var j transferFromJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse TransferFrom: %w", err)
	}
	actionID, err := uuid.Parse(j.ActionID)
	if err != nil {
		return nil, fmt.Errorf("parse action_id: %w", err)
	}
	quantity, err := token.ParseAsset(j.Quantity)
	if err != nil {
		return nil, fmt.Errorf("parse quantity: %w", err)
	}
	return &action.TransferFrom{
		ActionID:     actionID,
		From:         token.Principal(j.From),
		To:           token.Principal(j.To),
		Spender:      token.Principal(j.Spender),
		Quantity:     quantity,
		Memo:         j.Memo,
		AuthorizedBy: parseAuthorizers(j.AuthorizedBy),
		Sequence:     j.Sequence,
		Timestamp:    time.UnixMicro(j.TimestampUs),
	}, nil
}

type openJSON struct {
	ActionID     string   `json:"action_id"`
	Owner        string   `json:"owner"`
	Symbol       string   `json:"symbol"`
	Payer        string   `json:"payer"`
	AuthorizedBy []string `json:"authorized_by"`
	Sequence     int64    `json:"sequence"`
	TimestampUs  int64    `json:"timestamp_us"`
}

func parseOpen(data []byte) (*action.Open, error) {
	var j openJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Open: %w", err)
	}
	actionID, err := uuid.Parse(j.ActionID)
	if err != nil {
		return nil, fmt.Errorf("parse action_id: %w", err)
	}
	sym, err := token.ParseSymbol(j.Symbol)
	if err != nil {
		return nil, fmt.Errorf("parse symbol: %w", err)
	}
	return &action.Open{
		ActionID:     actionID,
		Owner:        token.Principal(j.Owner),
		Symbol:       sym,
		Payer:        token.Principal(j.Payer),
		AuthorizedBy: parseAuthorizers(j.AuthorizedBy),
		Sequence:     j.Sequence,
		Timestamp:    time.UnixMicro(j.TimestampUs),
	}, nil
}

type closeJSON struct {
	ActionID     string   `json:"action_id"`
	Owner        string   `json:"owner"`
	Symbol       string   `json:"symbol"`
	AuthorizedBy []string `json:"authorized_by"`
	Sequence     int64    `json:"sequence"`
	TimestampUs  int64    `json:"timestamp_us"`
}

func parseClose(data []byte) (*action.Close, error) {
	var j closeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Close: %w", err)
	}
	actionID, err := uuid.Parse(j.ActionID)
	if err != nil {
		return nil, fmt.Errorf("parse action_id: %w", err)
	}
	sym, err := token.ParseSymbol(j.Symbol)
	if err != nil {
		return nil, fmt.Errorf("parse symbol: %w", err)
	}
	return &action.Close{
		ActionID:     actionID,
		Owner:        token.Principal(j.Owner),
		Symbol:       sym,
		AuthorizedBy: parseAuthorizers(j.AuthorizedBy),
		Sequence:     j.Sequence,
		Timestamp:    time.UnixMicro(j.TimestampUs),
	}, nil
}
