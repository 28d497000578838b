package ingestion_test

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"TokenLedger/internal/action"
	"TokenLedger/internal/ingestion"
	"TokenLedger/internal/token"
)

func raw(data string) ingestion.RawAction {
	return ingestion.RawAction{Data: []byte(data)}
}

func TestParseCreate(t *testing.T) {
	data := `{
		"action_id": "a81bc81b-dead-4e5d-abff-90865d1e13b1",
		"issuer": "issuer",
		"max_supply": "1000000.0000 EOS",
		"authorized_by": ["issuer"],
		"sequence": 0,
		"timestamp_us": 1717243200000000
	}`
	act, err := ingestion.ParseRawAction(raw(data), "Create")
	if err != nil {
		t.Fatalf("ParseRawAction: %v", err)
	}
	c, ok := act.(*action.Create)
	if !ok {
		t.Fatalf("parsed %T, want *action.Create", act)
	}
	if c.Issuer != "issuer" {
		t.Errorf("issuer = %s", c.Issuer)
	}
	if c.MaxSupply.Amount != 10_000_000_000 {
		t.Errorf("max supply amount = %d, want 10000000000", c.MaxSupply.Amount)
	}
	if c.MaxSupply.Symbol.Code != "EOS" || c.MaxSupply.Symbol.Precision != 4 {
		t.Errorf("symbol = %v, want 4,EOS", c.MaxSupply.Symbol)
	}
	if c.SourceSequence() != 0 {
		t.Errorf("sequence = %d", c.SourceSequence())
	}
	if c.Timestamp.UnixMicro() != 1717243200000000 {
		t.Errorf("timestamp = %d us", c.Timestamp.UnixMicro())
	}
	if len(c.AuthorizedBy) != 1 || c.AuthorizedBy[0] != token.Principal("issuer") {
		t.Errorf("authorized_by = %v", c.AuthorizedBy)
	}
}

func TestParseTransfer(t *testing.T) {
	data := `{
		"action_id": "7f9c24e5-2f31-4c0f-9d2a-3f0e6a1b5c44",
		"from": "alice",
		"to": "bob",
		"quantity": "25.50 TOK",
		"memo": "rent",
		"authorized_by": ["alice"],
		"sequence": 7,
		"timestamp_us": 1717243201000000
	}`
	act, err := ingestion.ParseRawAction(raw(data), "Transfer")
	if err != nil {
		t.Fatalf("ParseRawAction: %v", err)
	}
	tr := act.(*action.Transfer)
	if tr.From != "alice" || tr.To != "bob" {
		t.Errorf("from/to = %s/%s", tr.From, tr.To)
	}
	if tr.Quantity.Amount != 2550 || tr.Quantity.Symbol.Code != "TOK" {
		t.Errorf("quantity = %v", tr.Quantity)
	}
	if tr.Memo != "rent" {
		t.Errorf("memo = %q", tr.Memo)
	}
	if tr.SourceSequence() != 7 {
		t.Errorf("sequence = %d", tr.SourceSequence())
	}
}

func TestParseTransferFrom(t *testing.T) {
	data := `{
		"action_id": "7f9c24e5-2f31-4c0f-9d2a-3f0e6a1b5c44",
		"from": "alice",
		"to": "bob",
		"spender": "carol",
		"quantity": "10.00 TOK",
		"memo": "",
		"authorized_by": ["carol"],
		"sequence": 8,
		"timestamp_us": 1717243202000000
	}`
	act, err := ingestion.ParseRawAction(raw(data), "TransferFrom")
	if err != nil {
		t.Fatalf("ParseRawAction: %v", err)
	}
	tf := act.(*action.TransferFrom)
	if tf.Spender != "carol" {
		t.Errorf("spender = %s", tf.Spender)
	}
	if tf.Quantity.Amount != 1000 {
		t.Errorf("quantity = %d", tf.Quantity.Amount)
	}
}

func TestParseApprove(t *testing.T) {
	data := `{
		"action_id": "7f9c24e5-2f31-4c0f-9d2a-3f0e6a1b5c44",
		"owner": "alice",
		"spender": "bob",
		"quantity": "0.00 TOK",
		"authorized_by": ["alice"],
		"sequence": 3,
		"timestamp_us": 1717243203000000
	}`
	act, err := ingestion.ParseRawAction(raw(data), "Approve")
	if err != nil {
		t.Fatalf("ParseRawAction: %v", err)
	}
	ap := act.(*action.Approve)
	if ap.Quantity.Amount != 0 {
		t.Errorf("quantity = %d, want 0 (revocation)", ap.Quantity.Amount)
	}
	if ap.Owner != "alice" || ap.Spender != "bob" {
		t.Errorf("owner/spender = %s/%s", ap.Owner, ap.Spender)
	}
}

func TestParseOpenAndClose(t *testing.T) {
	openData := `{
		"action_id": "7f9c24e5-2f31-4c0f-9d2a-3f0e6a1b5c44",
		"owner": "alice",
		"symbol": "2,TOK",
		"payer": "bob",
		"authorized_by": ["bob"],
		"sequence": 4,
		"timestamp_us": 1717243204000000
	}`
	act, err := ingestion.ParseRawAction(raw(openData), "Open")
	if err != nil {
		t.Fatalf("parse Open: %v", err)
	}
	op := act.(*action.Open)
	if op.Symbol.Code != "TOK" || op.Symbol.Precision != 2 {
		t.Errorf("symbol = %v, want 2,TOK", op.Symbol)
	}
	if op.Payer != "bob" {
		t.Errorf("payer = %s", op.Payer)
	}

	closeData := `{
		"action_id": "7f9c24e5-2f31-4c0f-9d2a-3f0e6a1b5c44",
		"owner": "alice",
		"symbol": "2,TOK",
		"authorized_by": ["alice"],
		"sequence": 5,
		"timestamp_us": 1717243205000000
	}`
	act, err = ingestion.ParseRawAction(raw(closeData), "Close")
	if err != nil {
		t.Fatalf("parse Close: %v", err)
	}
	cl := act.(*action.Close)
	if cl.Owner != "alice" {
		t.Errorf("owner = %s", cl.Owner)
	}
}

func TestParseRejectsMalformedAsset(t *testing.T) {
	data := `{
		"action_id": "7f9c24e5-2f31-4c0f-9d2a-3f0e6a1b5c44",
		"to": "alice",
		"quantity": "not an asset",
		"authorized_by": ["issuer"],
		"sequence": 1,
		"timestamp_us": 1717243200000000
	}`
	if _, err := ingestion.ParseRawAction(raw(data), "Issue"); err == nil {
		t.Error("malformed quantity should fail to parse")
	}
}

func TestParseRejectsBadActionID(t *testing.T) {
	data := `{
		"action_id": "not-a-uuid",
		"to": "alice",
		"quantity": "1.00 TOK",
		"authorized_by": ["issuer"],
		"sequence": 1,
		"timestamp_us": 1717243200000000
	}`
	if _, err := ingestion.ParseRawAction(raw(data), "Issue"); err == nil {
		t.Error("malformed action_id should fail to parse")
	}
}

func TestParseUnknownActionType(t *testing.T) {
	_, err := ingestion.ParseRawAction(raw(`{}`), "Mint")
	if err == nil {
		t.Fatal("unknown action type should fail")
	}
	if !strings.Contains(err.Error(), "unknown action type") {
		t.Errorf("unexpected error: %v", err)
	}
}

// Persisted action payloads are re-parsed during log replay, so the action
// encoder and the wire parser must agree exactly.
func TestPersistedPayloadRoundTrip(t *testing.T) {
	cases := []action.Action{
		&action.Transfer{
			ActionID:     uuid.MustParse("7f9c24e5-2f31-4c0f-9d2a-3f0e6a1b5c44"),
			From:         "alice",
			To:           "bob",
			Quantity:     token.NewAsset(2550, token.NewSymbol("TOK", 2)),
			Memo:         "rent",
			AuthorizedBy: []token.Principal{"alice"},
			Sequence:     7,
			Timestamp:    time.UnixMicro(1717243200000000),
		},
		&action.Issue{
			ActionID:     uuid.MustParse("a81bc81b-dead-4e5d-abff-90865d1e13b1"),
			To:           "alice",
			Quantity:     token.NewAsset(10_000_000_000, token.NewSymbol("EOS", 4)),
			AuthorizedBy: []token.Principal{"issuer"},
			Sequence:     1,
			Timestamp:    time.UnixMicro(1717243201000000),
		},
		&action.Approve{
			ActionID:     uuid.MustParse("6d1f0e3a-0b5c-44e5-9d2a-7f9c24e52f31"),
			Owner:        "alice",
			Spender:      "carol",
			Quantity:     token.NewAsset(0, token.NewSymbol("TOK", 2)),
			AuthorizedBy: []token.Principal{"alice"},
			Sequence:     2,
			Timestamp:    time.UnixMicro(1717243202000000),
		},
		&action.Open{
			ActionID:     uuid.MustParse("3f0e6a1b-5c44-4c0f-9d2a-2f314c0f9d2a"),
			Owner:        "alice",
			Symbol:       token.NewSymbol("TOK", 2),
			Payer:        "bob",
			AuthorizedBy: []token.Principal{"bob"},
			Sequence:     3,
			Timestamp:    time.UnixMicro(1717243203000000),
		},
	}

	for _, orig := range cases {
		actionType := orig.ActionType().String()
		data, err := json.Marshal(orig)
		if err != nil {
			t.Fatalf("marshal %s: %v", actionType, err)
		}
		got, err := ingestion.ParseRawAction(ingestion.RawAction{Data: data}, actionType)
		if err != nil {
			t.Fatalf("re-parse %s payload: %v", actionType, err)
		}
		if !reflect.DeepEqual(got, orig) {
			t.Errorf("%s round trip:\n got %+v\nwant %+v", actionType, got, orig)
		}
	}
}

func TestActionTypeForSubject(t *testing.T) {
	for _, cfg := range ingestion.DefaultSubjects() {
		got, ok := ingestion.ActionTypeForSubject(cfg.Subject)
		if !ok || got != cfg.ActionType {
			t.Errorf("ActionTypeForSubject(%q) = %q, %v", cfg.Subject, got, ok)
		}
	}
	if _, ok := ingestion.ActionTypeForSubject("token.actions.mint"); ok {
		t.Error("unknown subject should not resolve")
	}
}
