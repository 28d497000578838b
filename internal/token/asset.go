package token

import (
	"fmt"
	"strings"
)

// MaxAssetAmount bounds asset magnitude so that sums of two valid assets
// never overflow int64.
const MaxAssetAmount int64 = (1 << 62) - 1

// Asset is a signed fixed-point quantity tagged with a Symbol. The amount is
// stored in the symbol's smallest unit; the precision is display-only.
type Asset struct {
	Amount int64
	Symbol Symbol
}

// NewAsset builds an asset without validating it; call IsValid before use.
func NewAsset(amount int64, sym Symbol) Asset {
	return Asset{Amount: amount, Symbol: sym}
}

// ZeroOf returns the zero asset of the given symbol.
func ZeroOf(sym Symbol) Asset {
	return Asset{Amount: 0, Symbol: sym}
}

// IsValid reports whether the symbol is valid and the amount magnitude fits
// the representable range.
func (a Asset) IsValid() bool {
	if !a.Symbol.IsValid() {
		return false
	}
	return a.Amount >= -MaxAssetAmount && a.Amount <= MaxAssetAmount
}

// Add returns a + b. Both assets must share the same symbol and the result
// must stay in range.
func (a Asset) Add(b Asset) (Asset, error) {
	if !a.Symbol.Equal(b.Symbol) {
		return Asset{}, fmt.Errorf("%w: symbol mismatch: %s vs %s", ErrValidation, a.Symbol, b.Symbol)
	}
	sum := Asset{Amount: a.Amount + b.Amount, Symbol: a.Symbol}
	if !sum.IsValid() {
		return Asset{}, fmt.Errorf("%w: amount overflows representable range", ErrValidation)
	}
	return sum, nil
}

// Sub returns a - b under the same rules as Add.
func (a Asset) Sub(b Asset) (Asset, error) {
	return a.Add(Asset{Amount: -b.Amount, Symbol: b.Symbol})
}

// String formats the asset as "<amount> <CODE>" with the symbol's precision,
// e.g. amount=10000 precision=2 code=TOK -> "100.00 TOK".
func (a Asset) String() string {
	sign := ""
	amt := a.Amount
	if amt < 0 {
		sign = "-"
		amt = -amt
	}
	scale := a.Symbol.scale()
	whole := amt / scale
	if a.Symbol.Precision == 0 {
		return fmt.Sprintf("%s%d %s", sign, whole, a.Symbol.Code)
	}
	frac := amt % scale
	return fmt.Sprintf("%s%d.%0*d %s", sign, whole, a.Symbol.Precision, frac, a.Symbol.Code)
}

// ParseAsset parses the string form produced by String: a decimal amount
// followed by a symbol code, e.g. "100.00 TOK". The precision is taken from
// the number of digits after the decimal point.
func ParseAsset(s string) (Asset, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 2 {
		return Asset{}, fmt.Errorf("%w: asset must be \"<amount> <symbol>\", got %q", ErrValidation, s)
	}
	numPart, code := fields[0], fields[1]

	negative := false
	if strings.HasPrefix(numPart, "-") {
		negative = true
		numPart = numPart[1:]
	}

	whole := numPart
	frac := ""
	if dot := strings.IndexByte(numPart, '.'); dot >= 0 {
		whole, frac = numPart[:dot], numPart[dot+1:]
	}
	if whole == "" && frac == "" {
		return Asset{}, fmt.Errorf("%w: empty amount in %q", ErrValidation, s)
	}
	if len(frac) > MaxPrecision {
		return Asset{}, fmt.Errorf("%w: precision %d exceeds maximum %d", ErrValidation, len(frac), MaxPrecision)
	}

	sym := Symbol{Code: code, Precision: uint8(len(frac))}
	if !sym.IsValid() {
		return Asset{}, fmt.Errorf("%w: invalid symbol %q", ErrValidation, code)
	}

	amount := int64(0)
	for _, part := range []string{whole, frac} {
		for i := 0; i < len(part); i++ {
			c := part[i]
			if c < '0' || c > '9' {
				return Asset{}, fmt.Errorf("%w: malformed amount %q", ErrValidation, fields[0])
			}
			digit := int64(c - '0')
			if amount > (MaxAssetAmount-digit)/10 {
				return Asset{}, fmt.Errorf("%w: amount overflows representable range", ErrValidation)
			}
			amount = amount*10 + digit
		}
	}
	if negative {
		amount = -amount
	}

	return Asset{Amount: amount, Symbol: sym}, nil
}
