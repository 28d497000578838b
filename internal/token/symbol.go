package token

import (
	"fmt"
	"strconv"
	"strings"
)

// Principal is an authenticated identity capable of authorizing actions.
// Signature verification is the host's job; the core only ever compares names.
type Principal string

// MaxPrecision bounds the number of decimal places a symbol may carry.
// Precision controls display scaling only, not storage width.
const MaxPrecision = 18

// MaxSymbolCodeLen bounds the symbol code length.
const MaxSymbolCodeLen = 7

// Symbol identifies a token type: a short upper-case code plus a decimal
// precision. Two symbols are equal iff code AND precision match exactly.
type Symbol struct {
	Code      string
	Precision uint8
}

// NewSymbol builds a symbol without validating it; call IsValid before use.
func NewSymbol(code string, precision uint8) Symbol {
	return Symbol{Code: code, Precision: precision}
}

// IsValid reports whether the code is 1..7 upper-case letters and the
// precision is within range.
func (s Symbol) IsValid() bool {
	if len(s.Code) == 0 || len(s.Code) > MaxSymbolCodeLen {
		return false
	}
	for i := 0; i < len(s.Code); i++ {
		c := s.Code[i]
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return s.Precision <= MaxPrecision
}

// Equal is strict symbol equality (code and precision).
func (s Symbol) Equal(o Symbol) bool {
	return s.Code == o.Code && s.Precision == o.Precision
}

func (s Symbol) String() string {
	return fmt.Sprintf("%d,%s", s.Precision, s.Code)
}

// ParseSymbol parses the string form produced by String, e.g. "2,TOK".
func ParseSymbol(s string) (Symbol, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ",", 2)
	if len(parts) != 2 {
		return Symbol{}, fmt.Errorf("%w: symbol must be \"<precision>,<code>\", got %q", ErrValidation, s)
	}
	precision, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil || precision > MaxPrecision {
		return Symbol{}, fmt.Errorf("%w: bad precision in symbol %q", ErrValidation, s)
	}
	sym := Symbol{Code: parts[1], Precision: uint8(precision)}
	if !sym.IsValid() {
		return Symbol{}, fmt.Errorf("%w: invalid symbol code %q", ErrValidation, parts[1])
	}
	return sym, nil
}

// scale returns 10^precision for display/parse conversion.
func (s Symbol) scale() int64 {
	n := int64(1)
	for i := uint8(0); i < s.Precision; i++ {
		n *= 10
	}
	return n
}
