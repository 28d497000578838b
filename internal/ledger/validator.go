package ledger

import (
	"fmt"
)

// InvariantValidator cross-checks the stores after mutations have been
// applied. Violations indicate engine bugs, not bad input — callers treat
// them as fatal.
type InvariantValidator struct {
	accounts *LedgerStore
	supply   *SupplyRegistry
	allowed  *AllowanceRegistry
}

func NewInvariantValidator(accounts *LedgerStore, supply *SupplyRegistry, allowed *AllowanceRegistry) *InvariantValidator {
	return &InvariantValidator{accounts: accounts, supply: supply, allowed: allowed}
}

// ValidateConservation checks that the sum of all balance rows for a symbol
// equals its current supply.
func (v *InvariantValidator) ValidateConservation(code string) error {
	stats, ok := v.supply.Lookup(code)
	if !ok {
		return fmt.Errorf("no supply row for symbol %s", code)
	}

	var sum int64
	v.accounts.ForEach(func(key AccountKey, row Account) {
		if key.Code == code {
			sum += row.Balance.Amount
		}
	})

	if sum != stats.Supply.Amount {
		return fmt.Errorf("conservation violated for %s: balances sum to %d, supply is %d",
			code, sum, stats.Supply.Amount)
	}
	return nil
}

// ValidateNonNegative checks every balance row is >= 0 and every supply row
// satisfies 0 <= supply <= max_supply.
func (v *InvariantValidator) ValidateNonNegative() error {
	var err error
	v.accounts.ForEach(func(key AccountKey, row Account) {
		if err == nil && row.Balance.Amount < 0 {
			err = fmt.Errorf("account %s has negative balance %d", key.Path(), row.Balance.Amount)
		}
	})
	if err != nil {
		return err
	}
	v.supply.ForEach(func(code string, row Stats) {
		if err != nil {
			return
		}
		if row.Supply.Amount < 0 {
			err = fmt.Errorf("symbol %s has negative supply %d", code, row.Supply.Amount)
		} else if row.Supply.Amount > row.MaxSupply.Amount {
			err = fmt.Errorf("symbol %s supply %d exceeds cap %d", code, row.Supply.Amount, row.MaxSupply.Amount)
		}
	})
	return err
}

// ValidateAllowancesPositive checks no allowance row stores a non-positive
// amount (a zero allowance must have been deleted).
func (v *InvariantValidator) ValidateAllowancesPositive() error {
	var err error
	v.allowed.ForEach(func(key AllowanceKey, row Allowance) {
		if err == nil && row.Quantity.Amount <= 0 {
			err = fmt.Errorf("allowance %s stored with non-positive amount %d", key.Path(), row.Quantity.Amount)
		}
	})
	return err
}

// ValidateAll runs every global check. Used for the periodic full sweep.
func (v *InvariantValidator) ValidateAll() error {
	if err := v.ValidateNonNegative(); err != nil {
		return err
	}
	if err := v.ValidateAllowancesPositive(); err != nil {
		return err
	}
	var err error
	v.supply.ForEach(func(code string, _ Stats) {
		if err == nil {
			err = v.ValidateConservation(code)
		}
	})
	return err
}
