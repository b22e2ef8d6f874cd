package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		err error
	}{
		{"1", "1.00", nil},
		{"1.23", "1.23", nil},
		{"1,23", "1.23", nil},
		{" 2.50 ", "2.50", nil},
		{"", "0.00", nil},
		{"0", "0.00", nil},
		{"-1", "", ErrNegativeAmount},
		{"abc", "", ErrInvalidAmount},
		{"1.2.3", "", ErrInvalidAmount},
		{"1e3", "1000.00", nil},
		{"999999999999.99", "999999999999.99", nil},
		{"0.00000001", "0.00", nil},
		{"1e12", "", ErrInvalidAmount},
		{"1e400000000", "", ErrInvalidAmount},
		{"1E-400000000", "", ErrInvalidAmount},
		{"0.000000001", "", ErrInvalidAmount},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("%q expected %v, got %v", tc.in, tc.err, err)
			}
			continue
		}
		if err != nil || FormatAmount(got) != tc.out {
			t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, FormatAmount(got), err)
		}
	}
}

func TestCoerceAmount(t *testing.T) {
	if v := CoerceAmount("12.5"); !v.Valid || !v.Decimal.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("expected 12.5, got %+v", v)
	}
	for _, in := range []string{"", "abc", "12 euro", "1e400000000", "-1e-400000000", "2000000000000"} {
		if v := CoerceAmount(in); v.Valid {
			t.Fatalf("%q expected invalid, got %v", in, v.Decimal)
		}
	}
}

func TestHugeAmountsStayCheap(t *testing.T) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, in := range []string{"1e400000000", "1e-400000000", "9e99999999"} {
			if _, err := ParseAmount(in); !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("%q expected ErrInvalidAmount, got %v", in, err)
			}
			if v := CoerceAmount(in); v.Valid {
				t.Errorf("%q expected invalid cell", in)
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("validating huge exponents took too long")
	}
}
