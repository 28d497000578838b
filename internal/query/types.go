package query

import "encoding/json"

// BalanceResponse is a single balance row for API queries. Quantity is the
// display form ("100.00 TOK"); Amount is the raw smallest-unit value.
type BalanceResponse struct {
	Owner        string `json:"owner"`
	SymbolCode   string `json:"symbol_code"`
	Precision    uint8  `json:"precision"`
	Amount       int64  `json:"amount"`
	Quantity     string `json:"quantity"`
	Payer        string `json:"payer"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// SupplyResponse describes a token's supply state for API queries.
type SupplyResponse struct {
	SymbolCode        string `json:"symbol_code"`
	Precision         uint8  `json:"precision"`
	Supply            int64  `json:"supply"`
	SupplyQuantity    string `json:"supply_quantity"`
	MaxSupply         int64  `json:"max_supply"`
	MaxSupplyQuantity string `json:"max_supply_quantity"`
	Issuer            string `json:"issuer"`
	AsOfSequence      int64  `json:"as_of_sequence"`
}

// AllowanceResponse is a single allowance row for API queries.
type AllowanceResponse struct {
	Owner        string `json:"owner"`
	Spender      string `json:"spender"`
	SymbolCode   string `json:"symbol_code"`
	Precision    uint8  `json:"precision"`
	Amount       int64  `json:"amount"`
	Quantity     string `json:"quantity"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// ActionHistoryEntry is a committed action from the log, for audit queries.
type ActionHistoryEntry struct {
	Sequence       int64           `json:"sequence"`
	ActionType     string          `json:"action_type"`
	IdempotencyKey string          `json:"idempotency_key"`
	SymbolCode     *string         `json:"symbol_code,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	StateHash      string          `json:"state_hash"`
	Timestamp      string          `json:"timestamp"`
}

// IntegrityReport is the result of an integrity verification check.
type IntegrityReport struct {
	IsHealthy          bool                `json:"is_healthy"`
	HashChainBreaks    []int64             `json:"hash_chain_breaks,omitempty"`
	UnconservedSymbols []UnconservedSymbol `json:"unconserved_symbols,omitempty"`
}

// UnconservedSymbol reports a symbol whose projected balances do not sum to
// its recorded supply.
type UnconservedSymbol struct {
	SymbolCode string `json:"symbol_code"`
	Supply     int64  `json:"supply"`
	BalanceSum int64  `json:"balance_sum"`
}
