package token_test

import (
	"errors"
	"testing"

	"TokenLedger/internal/token"
)

func TestSymbolIsValid(t *testing.T) {
	cases := []struct {
		name      string
		code      string
		precision uint8
		want      bool
	}{
		{"simple", "TOK", 2, true},
		{"single letter", "A", 0, true},
		{"max length", "ABCDEFG", 4, true},
		{"too long", "ABCDEFGH", 4, false},
		{"empty", "", 2, false},
		{"lowercase", "tok", 2, false},
		{"digits", "TOK1", 2, false},
		{"max precision", "TOK", 18, true},
		{"precision too high", "TOK", 19, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sym := token.NewSymbol(tc.code, tc.precision)
			if got := sym.IsValid(); got != tc.want {
				t.Errorf("IsValid(%q, %d) = %v, want %v", tc.code, tc.precision, got, tc.want)
			}
		})
	}
}

func TestParseSymbolRoundTrip(t *testing.T) {
	sym := token.NewSymbol("EOS", 4)
	parsed, err := token.ParseSymbol(sym.String())
	if err != nil {
		t.Fatalf("ParseSymbol(%q): %v", sym.String(), err)
	}
	if !parsed.Equal(sym) {
		t.Errorf("round trip mismatch: got %v, want %v", parsed, sym)
	}
}

func TestParseSymbolRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "TOK", "2,tok", "19,TOK", "x,TOK", "2,TOOLONGX"} {
		if _, err := token.ParseSymbol(s); err == nil {
			t.Errorf("ParseSymbol(%q) succeeded, want error", s)
		} else if !errors.Is(err, token.ErrValidation) {
			t.Errorf("ParseSymbol(%q) error is not ErrValidation: %v", s, err)
		}
	}
}

func TestAssetString(t *testing.T) {
	cases := []struct {
		amount    int64
		precision uint8
		want      string
	}{
		{10000, 2, "100.00 TOK"},
		{1, 2, "0.01 TOK"},
		{-2550, 2, "-25.50 TOK"},
		{7, 0, "7 TOK"},
		{123456, 4, "12.3456 TOK"},
	}

	for _, tc := range cases {
		a := token.NewAsset(tc.amount, token.NewSymbol("TOK", tc.precision))
		if got := a.String(); got != tc.want {
			t.Errorf("Asset{%d, p=%d}.String() = %q, want %q", tc.amount, tc.precision, got, tc.want)
		}
	}
}

func TestParseAsset(t *testing.T) {
	a, err := token.ParseAsset("100.00 TOK")
	if err != nil {
		t.Fatalf("ParseAsset: %v", err)
	}
	if a.Amount != 10000 {
		t.Errorf("Amount = %d, want 10000", a.Amount)
	}
	if a.Symbol.Code != "TOK" || a.Symbol.Precision != 2 {
		t.Errorf("Symbol = %v, want 2,TOK", a.Symbol)
	}
}

func TestParseAssetNegative(t *testing.T) {
	a, err := token.ParseAsset("-0.50 TOK")
	if err != nil {
		t.Fatalf("ParseAsset: %v", err)
	}
	if a.Amount != -50 {
		t.Errorf("Amount = %d, want -50", a.Amount)
	}
}

func TestParseAssetRoundTrip(t *testing.T) {
	for _, s := range []string{"100.00 TOK", "0.0001 EOS", "7 SYS", "-3.141 PI"} {
		a, err := token.ParseAsset(s)
		if err != nil {
			t.Fatalf("ParseAsset(%q): %v", s, err)
		}
		if got := a.String(); got != s {
			t.Errorf("round trip: got %q, want %q", got, s)
		}
	}
}

func TestParseAssetRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"100.00",
		"TOK",
		"100.00 TOK extra",
		"1O0.00 TOK",
		"100.00 tok",
		"1.0000000000000000000 TOK", // 19 decimal places
		"9999999999999999999999 TOK",
	}
	for _, s := range bad {
		if _, err := token.ParseAsset(s); err == nil {
			t.Errorf("ParseAsset(%q) succeeded, want error", s)
		}
	}
}

func TestAssetAddSub(t *testing.T) {
	sym := token.NewSymbol("TOK", 2)
	a := token.NewAsset(100, sym)
	b := token.NewAsset(30, sym)

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if sum.Amount != 130 {
		t.Errorf("Add = %d, want 130", sum.Amount)
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if diff.Amount != 70 {
		t.Errorf("Sub = %d, want 70", diff.Amount)
	}
}

func TestAssetAddSymbolMismatch(t *testing.T) {
	a := token.NewAsset(100, token.NewSymbol("TOK", 2))
	b := token.NewAsset(100, token.NewSymbol("TOK", 4))
	if _, err := a.Add(b); !errors.Is(err, token.ErrValidation) {
		t.Errorf("Add with precision mismatch: got %v, want ErrValidation", err)
	}
}

func TestAssetAddOverflow(t *testing.T) {
	sym := token.NewSymbol("TOK", 0)
	a := token.NewAsset(token.MaxAssetAmount, sym)
	b := token.NewAsset(1, sym)
	if _, err := a.Add(b); !errors.Is(err, token.ErrValidation) {
		t.Errorf("Add overflow: got %v, want ErrValidation", err)
	}
}
