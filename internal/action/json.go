package action

import (
	"encoding/json"

	"TokenLedger/internal/token"
)

// Actions marshal to the same wire format the ingestion parser accepts:
// snake_case fields, quantities as decimal strings ("100.00 TOK"), symbols
// as "precision,CODE", timestamps as epoch microseconds. Persisted payloads
// therefore round-trip through the parser during log replay.

func authorizerNames(auths []token.Principal) []string {
	out := make([]string, 0, len(auths))
	for _, a := range auths {
		out = append(out, string(a))
	}
	return out
}

func (c *Create) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ActionID     string   `json:"action_id"`
		Issuer       string   `json:"issuer"`
		MaxSupply    string   `json:"max_supply"`
		AuthorizedBy []string `json:"authorized_by"`
		Sequence     int64    `json:"sequence"`
		TimestampUs  int64    `json:"timestamp_us"`
	}{
		ActionID:     c.ActionID.String(),
		Issuer:       string(c.Issuer),
		MaxSupply:    c.MaxSupply.String(),
		AuthorizedBy: authorizerNames(c.AuthorizedBy),
		Sequence:     c.Sequence,
		TimestampUs:  c.Timestamp.UnixMicro(),
	})
}

func (i *Issue) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ActionID     string   `json:"action_id"`
		To           string   `json:"to"`
		Quantity     string   `json:"quantity"`
		Memo         string   `json:"memo"`
		AuthorizedBy []string `json:"authorized_by"`
		Sequence     int64    `json:"sequence"`
		TimestampUs  int64    `json:"timestamp_us"`
	}{
		ActionID:     i.ActionID.String(),
		To:           string(i.To),
		Quantity:     i.Quantity.String(),
		Memo:         i.Memo,
		AuthorizedBy: authorizerNames(i.AuthorizedBy),
		Sequence:     i.Sequence,
		TimestampUs:  i.Timestamp.UnixMicro(),
	})
}

func (r *Retire) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ActionID     string   `json:"action_id"`
		Quantity     string   `json:"quantity"`
		Memo         string   `json:"memo"`
		AuthorizedBy []string `json:"authorized_by"`
		Sequence     int64    `json:"sequence"`
		TimestampUs  int64    `json:"timestamp_us"`
	}{
		ActionID:     r.ActionID.String(),
		Quantity:     r.Quantity.String(),
		Memo:         r.Memo,
		AuthorizedBy: authorizerNames(r.AuthorizedBy),
		Sequence:     r.Sequence,
		TimestampUs:  r.Timestamp.UnixMicro(),
	})
}

func (t *Transfer) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ActionID     string   `json:"action_id"`
		From         string   `json:"from"`
		To           string   `json:"to"`
		Quantity     string   `json:"quantity"`
		Memo         string   `json:"memo"`
		AuthorizedBy []string `json:"authorized_by"`
		Sequence     int64    `json:"sequence"`
		TimestampUs  int64    `json:"timestamp_us"`
	}{
		ActionID:     t.ActionID.String(),
		From:         string(t.From),
		To:           string(t.To),
		Quantity:     t.Quantity.String(),
		Memo:         t.Memo,
		AuthorizedBy: authorizerNames(t.AuthorizedBy),
		Sequence:     t.Sequence,
		TimestampUs:  t.Timestamp.UnixMicro(),
	})
}

func (a *Approve) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ActionID     string   `json:"action_id"`
		Owner        string   `json:"owner"`
		Spender      string   `json:"spender"`
		Quantity     string   `json:"quantity"`
		AuthorizedBy []string `json:"authorized_by"`
		Sequence     int64    `json:"sequence"`
		TimestampUs  int64    `json:"timestamp_us"`
	}{
		ActionID:     a.ActionID.String(),
		Owner:        string(a.Owner),
		Spender:      string(a.Spender),
		Quantity:     a.Quantity.String(),
		AuthorizedBy: authorizerNames(a.AuthorizedBy),
		Sequence:     a.Sequence,
		TimestampUs:  a.Timestamp.UnixMicro(),
	})
}

func (t *TransferFrom) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ActionID     string   `json:"action_id"`
		From         string   `json:"from"`
		To           string   `json:"to"`
		Spender      string   `json:"spender"`
		Quantity     string   `json:"quantity"`
		Memo         string   `json:"memo"`
		AuthorizedBy []string `json:"authorized_by"`
		Sequence     int64    `json:"sequence"`
		TimestampUs  int64    `json:"timestamp_us"`
	}{
		ActionID:     t.ActionID.String(),
		From:         string(t.From),
		To:           string(t.To),
		Spender:      string(t.Spender),
		Quantity:     t.Quantity.String(),
		Memo:         t.Memo,
		AuthorizedBy: authorizerNames(t.AuthorizedBy),
		Sequence:     t.Sequence,
		TimestampUs:  t.Timestamp.UnixMicro(),
	})
}

func (o *Open) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ActionID     string   `json:"action_id"`
		Owner        string   `json:"owner"`
		Symbol       string   `json:"symbol"`
		Payer        string   `json:"payer"`
		AuthorizedBy []string `json:"authorized_by"`
		Sequence     int64    `json:"sequence"`
		TimestampUs  int64    `json:"timestamp_us"`
	}{
		ActionID:     o.ActionID.String(),
		Owner:        string(o.Owner),
		Symbol:       o.Symbol.String(),
		Payer:        string(o.Payer),
		AuthorizedBy: authorizerNames(o.AuthorizedBy),
		Sequence:     o.Sequence,
		TimestampUs:  o.Timestamp.UnixMicro(),
	})
}

func (c *Close) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ActionID     string   `json:"action_id"`
		Owner        string   `json:"owner"`
		Symbol       string   `json:"symbol"`
		AuthorizedBy []string `json:"authorized_by"`
		Sequence     int64    `json:"sequence"`
		TimestampUs  int64    `json:"timestamp_us"`
	}{
		ActionID:     c.ActionID.String(),
		Owner:        string(c.Owner),
		Symbol:       c.Symbol.String(),
		AuthorizedBy: authorizerNames(c.AuthorizedBy),
		Sequence:     c.Sequence,
		TimestampUs:  c.Timestamp.UnixMicro(),
	})
}
