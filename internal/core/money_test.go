package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"-150.50", "-150.50", true},
		{"12,34", "12.34", true},
		{" 5000 ", "5000.00", true},
		{"0.01", "0.01", true},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || FormatAmount(got) != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, FormatAmount(got), err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestValidateAmount(t *testing.T) {
	cases := []struct {
		in        string
		allowZero bool
		ok        bool
	}{
		{"-42.00", false, true},
		{"99999999.99", false, true},
		{"-99999999.99", false, true},
		{"100000000", false, false},
		{"1.005", false, false},
		{"0", false, false},
		{"0", true, true},
	}
	for _, tc := range cases {
		err := ValidateAmount(decimal.RequireFromString(tc.in), tc.allowZero)
		if tc.ok && err != nil {
			t.Fatalf("%s expected ok, got %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s expected error", tc.in)
		}
	}
}

func TestMinorRoundTrip(t *testing.T) {
	cases := []struct {
		in    string
		minor int64
	}{
		{"1000.00", 100000},
		{"-150.50", -15050},
		{"0.01", 1},
		{"-0.01", -1},
		{"0", 0},
	}
	for _, tc := range cases {
		d := decimal.RequireFromString(tc.in)
		if got := ToMinor(d); got != tc.minor {
			t.Fatalf("ToMinor(%s) = %d, want %d", tc.in, got, tc.minor)
		}
		if back := FromMinor(tc.minor); !back.Equal(d) {
			t.Fatalf("FromMinor(%d) = %s, want %s", tc.minor, back, d)
		}
	}
}
