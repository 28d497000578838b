package ledger_test

import (
	"errors"
	"testing"

	"TokenLedger/internal/ledger"
	"TokenLedger/internal/token"
)

var (
	alice = token.Principal("alice")
	bob   = token.Principal("bob")
	carol = token.Principal("carol")
	tok   = token.NewSymbol("TOK", 2)
)

func asset(amount int64) token.Asset {
	return token.NewAsset(amount, tok)
}

func TestCreditCreatesRowWithPayer(t *testing.T) {
	ls := ledger.NewLedgerStore(ledger.Config{})

	m, err := ls.Credit(alice, asset(100), bob)
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if !m.RowCreated {
		t.Error("first credit should create the row")
	}

	row, ok := ls.Lookup(alice, "TOK")
	if !ok {
		t.Fatal("row not found after credit")
	}
	if row.Balance.Amount != 100 {
		t.Errorf("balance = %d, want 100", row.Balance.Amount)
	}
	if row.Payer != bob {
		t.Errorf("payer = %s, want bob", row.Payer)
	}

	// Second credit must not change the payer
	if _, err := ls.Credit(alice, asset(50), carol); err != nil {
		t.Fatalf("second credit: %v", err)
	}
	row, _ = ls.Lookup(alice, "TOK")
	if row.Balance.Amount != 150 {
		t.Errorf("balance = %d, want 150", row.Balance.Amount)
	}
	if row.Payer != bob {
		t.Errorf("payer changed to %s, want bob", row.Payer)
	}
}

func TestDebitOverdraft(t *testing.T) {
	ls := ledger.NewLedgerStore(ledger.Config{})
	ls.Credit(alice, asset(100), alice)

	if _, err := ls.Debit(alice, asset(101)); !errors.Is(err, token.ErrInvariant) {
		t.Errorf("overdraft: got %v, want ErrInvariant", err)
	}

	// No row at all
	if _, err := ls.Debit(bob, asset(1)); !errors.Is(err, token.ErrState) {
		t.Errorf("debit without row: got %v, want ErrState", err)
	}
}

func TestDebitZeroBalancePolicy(t *testing.T) {
	// Default: zeroed row survives
	ls := ledger.NewLedgerStore(ledger.Config{})
	ls.Credit(alice, asset(100), alice)
	m, err := ls.Debit(alice, asset(100))
	if err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if m.RowDeleted {
		t.Error("row deleted with DeleteZeroBalances=false")
	}
	if _, ok := ls.Lookup(alice, "TOK"); !ok {
		t.Error("zeroed row should survive with default config")
	}

	// Opt-in: zeroed row is removed
	ls = ledger.NewLedgerStore(ledger.Config{DeleteZeroBalances: true})
	ls.Credit(alice, asset(100), alice)
	m, err = ls.Debit(alice, asset(100))
	if err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if !m.RowDeleted {
		t.Error("row not deleted with DeleteZeroBalances=true")
	}
	if _, ok := ls.Lookup(alice, "TOK"); ok {
		t.Error("zeroed row should be removed with DeleteZeroBalances=true")
	}
}

func TestOpenClose(t *testing.T) {
	ls := ledger.NewLedgerStore(ledger.Config{})

	m, err := ls.Open(alice, tok, bob)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if m == nil || !m.RowCreated {
		t.Fatal("open should create the row")
	}

	// Open on an existing row is a no-op
	m, err = ls.Open(alice, tok, carol)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if m != nil {
		t.Error("open on existing row should return nil mutation")
	}

	// Close a zero row
	if _, err := ls.Close(alice, "TOK"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := ls.Lookup(alice, "TOK"); ok {
		t.Error("row still present after close")
	}

	// Close a non-zero row fails
	ls.Credit(alice, asset(10), alice)
	if _, err := ls.Close(alice, "TOK"); !errors.Is(err, token.ErrInvariant) {
		t.Errorf("close non-zero: got %v, want ErrInvariant", err)
	}

	// Close a missing row fails
	if _, err := ls.Close(bob, "TOK"); !errors.Is(err, token.ErrState) {
		t.Errorf("close missing: got %v, want ErrState", err)
	}
}

func TestAccountRevertRoundTrips(t *testing.T) {
	ls := ledger.NewLedgerStore(ledger.Config{DeleteZeroBalances: true})

	// Credit that created a row reverts to no row
	m, _ := ls.Credit(alice, asset(100), alice)
	ls.Revert(m)
	if _, ok := ls.Lookup(alice, "TOK"); ok {
		t.Error("revert of row-creating credit should delete the row")
	}

	// Debit that deleted a row reverts to the prior balance and payer
	ls.Credit(alice, asset(100), bob)
	m, _ = ls.Debit(alice, asset(100))
	if !m.RowDeleted {
		t.Fatal("expected row deletion")
	}
	ls.Revert(m)
	row, ok := ls.Lookup(alice, "TOK")
	if !ok {
		t.Fatal("revert should restore the row")
	}
	if row.Balance.Amount != 100 || row.Payer != bob {
		t.Errorf("restored row = {%d, %s}, want {100, bob}", row.Balance.Amount, row.Payer)
	}

	// Debit that left a row reverts to the prior balance
	m, _ = ls.Debit(alice, asset(30))
	ls.Revert(m)
	row, _ = ls.Lookup(alice, "TOK")
	if row.Balance.Amount != 100 {
		t.Errorf("balance after debit revert = %d, want 100", row.Balance.Amount)
	}

	// Close reverts to a zero row with the prior payer
	ls.Debit(alice, asset(100))
	ls.Open(alice, tok, bob)
	m2, err := ls.Close(alice, "TOK")
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	ls.Revert(m2)
	row, ok = ls.Lookup(alice, "TOK")
	if !ok {
		t.Fatal("revert of close should reinsert the row")
	}
	if row.Balance.Amount != 0 || row.Payer != bob {
		t.Errorf("reinserted row = {%d, %s}, want {0, bob}", row.Balance.Amount, row.Payer)
	}
}

func TestSupplyRegistryLifecycle(t *testing.T) {
	sr := ledger.NewSupplyRegistry()

	if _, err := sr.Create(alice, asset(1000), alice); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Duplicate symbol
	if _, err := sr.Create(bob, asset(500), bob); !errors.Is(err, token.ErrState) {
		t.Errorf("duplicate create: got %v, want ErrState", err)
	}

	// Issue within the cap
	if _, err := sr.IncreaseSupply(asset(600)); err != nil {
		t.Fatalf("IncreaseSupply: %v", err)
	}

	// Issue beyond the cap
	if _, err := sr.IncreaseSupply(asset(401)); !errors.Is(err, token.ErrInvariant) {
		t.Errorf("over-cap issue: got %v, want ErrInvariant", err)
	}

	// Retire within supply
	if _, err := sr.DecreaseSupply(asset(100)); err != nil {
		t.Fatalf("DecreaseSupply: %v", err)
	}

	// Retire beyond supply
	if _, err := sr.DecreaseSupply(asset(501)); !errors.Is(err, token.ErrInvariant) {
		t.Errorf("over-retire: got %v, want ErrInvariant", err)
	}

	st, ok := sr.Lookup("TOK")
	if !ok {
		t.Fatal("supply row missing")
	}
	if st.Supply.Amount != 500 {
		t.Errorf("supply = %d, want 500", st.Supply.Amount)
	}
	if st.Issuer != alice {
		t.Errorf("issuer = %s, want alice", st.Issuer)
	}
}

func TestSupplyPrecisionMismatch(t *testing.T) {
	sr := ledger.NewSupplyRegistry()
	sr.Create(alice, asset(1000), alice)

	wrong := token.NewAsset(10, token.NewSymbol("TOK", 4))
	if _, err := sr.IncreaseSupply(wrong); !errors.Is(err, token.ErrValidation) {
		t.Errorf("precision mismatch: got %v, want ErrValidation", err)
	}
}

func TestSupplyRevert(t *testing.T) {
	sr := ledger.NewSupplyRegistry()

	m, _ := sr.Create(alice, asset(1000), alice)
	sr.Revert(m)
	if _, ok := sr.Lookup("TOK"); ok {
		t.Error("revert of create should delete the supply row")
	}

	sr.Create(alice, asset(1000), alice)
	m, _ = sr.IncreaseSupply(asset(300))
	sr.Revert(m)
	st, _ := sr.Lookup("TOK")
	if st.Supply.Amount != 0 {
		t.Errorf("supply after revert = %d, want 0", st.Supply.Amount)
	}
}

func TestAllowanceSetAndDelete(t *testing.T) {
	ar := ledger.NewAllowanceRegistry()

	if _, err := ar.Set(alice, bob, asset(100), alice); err != nil {
		t.Fatalf("Set: %v", err)
	}
	row, ok := ar.Lookup(alice, bob, "TOK")
	if !ok || row.Quantity.Amount != 100 {
		t.Fatalf("allowance = %+v, want 100", row)
	}

	// Zero quantity deletes the row
	m, err := ar.Set(alice, bob, asset(0), alice)
	if err != nil {
		t.Fatalf("Set zero: %v", err)
	}
	if !m.RowDeleted {
		t.Error("zero set should delete the row")
	}
	if _, ok := ar.Lookup(alice, bob, "TOK"); ok {
		t.Error("row still present after zero set")
	}

	// Zero quantity with no row fails
	if _, err := ar.Set(alice, bob, asset(0), alice); !errors.Is(err, token.ErrState) {
		t.Errorf("zero set without row: got %v, want ErrState", err)
	}
}

func TestAllowanceConsume(t *testing.T) {
	ar := ledger.NewAllowanceRegistry()
	ar.Set(alice, bob, asset(100), alice)

	// Partial consume leaves the remainder
	if _, err := ar.Consume(alice, bob, asset(40)); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	row, _ := ar.Lookup(alice, bob, "TOK")
	if row.Quantity.Amount != 60 {
		t.Errorf("remaining = %d, want 60", row.Quantity.Amount)
	}

	// Consuming beyond the allowance fails
	if err := ar.CheckConsume(alice, bob, asset(61)); !errors.Is(err, token.ErrInvariant) {
		t.Errorf("over-consume: got %v, want ErrInvariant", err)
	}

	// Consuming exactly to zero deletes the row
	m, err := ar.Consume(alice, bob, asset(60))
	if err != nil {
		t.Fatalf("full consume: %v", err)
	}
	if !m.RowDeleted {
		t.Error("full consume should delete the row")
	}
	if _, ok := ar.Lookup(alice, bob, "TOK"); ok {
		t.Error("row still present after full consume")
	}

	// No row at all
	if err := ar.CheckConsume(alice, carol, asset(1)); !errors.Is(err, token.ErrState) {
		t.Errorf("consume without row: got %v, want ErrState", err)
	}
}

func TestAllowanceRevert(t *testing.T) {
	ar := ledger.NewAllowanceRegistry()

	// Revert of a creating set deletes the row
	m, _ := ar.Set(alice, bob, asset(100), alice)
	ar.Revert(m)
	if _, ok := ar.Lookup(alice, bob, "TOK"); ok {
		t.Error("revert of creating set should delete the row")
	}

	// Revert of a full consume restores the row
	ar.Set(alice, bob, asset(100), alice)
	m, _ = ar.Consume(alice, bob, asset(100))
	ar.Revert(m)
	row, ok := ar.Lookup(alice, bob, "TOK")
	if !ok || row.Quantity.Amount != 100 {
		t.Errorf("restored allowance = %+v, want 100", row)
	}

	// Revert of a delete restores the row
	m, _ = ar.Set(alice, bob, asset(0), alice)
	ar.Revert(m)
	row, ok = ar.Lookup(alice, bob, "TOK")
	if !ok || row.Quantity.Amount != 100 {
		t.Errorf("restored after delete-revert = %+v, want 100", row)
	}
}

func TestConservationValidator(t *testing.T) {
	accounts := ledger.NewLedgerStore(ledger.Config{})
	supply := ledger.NewSupplyRegistry()
	allowed := ledger.NewAllowanceRegistry()
	v := ledger.NewInvariantValidator(accounts, supply, allowed)

	supply.Create(alice, asset(1000), alice)
	supply.IncreaseSupply(asset(300))
	accounts.Credit(alice, asset(200), alice)
	accounts.Credit(bob, asset(100), bob)

	if err := v.ValidateConservation("TOK"); err != nil {
		t.Errorf("conservation should hold: %v", err)
	}
	if err := v.ValidateAll(); err != nil {
		t.Errorf("full sweep should pass: %v", err)
	}

	// Break conservation
	accounts.Credit(carol, asset(1), carol)
	if err := v.ValidateConservation("TOK"); err == nil {
		t.Error("conservation should be violated")
	}
}
