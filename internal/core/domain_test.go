package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"groceries", CategoryGroceries, true},
		{"Dining", CategoryDining, true},
		{"  TRANSPORT  ", CategoryTransport, true},
		{"other", CategoryOther, true},
		{"crypto", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseCategory(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("ParseCategory(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
			}
		} else if !errors.Is(err, ErrInvalidCategory) {
			t.Fatalf("ParseCategory(%q) expected ErrInvalidCategory, got %v", tc.in, err)
		}
	}
}

func TestParseRiskProfile(t *testing.T) {
	for _, s := range []string{"conservative", "Balanced", " AGGRESSIVE "} {
		if _, err := ParseRiskProfile(s); err != nil {
			t.Fatalf("ParseRiskProfile(%q) unexpected error: %v", s, err)
		}
	}
	if _, err := ParseRiskProfile("reckless"); !errors.Is(err, ErrInvalidRiskProfile) {
		t.Fatalf("expected ErrInvalidRiskProfile, got %v", err)
	}
}

func TestRiskProfileRates(t *testing.T) {
	// The tier table is the single source of truth; rates must ascend.
	profiles := RiskProfiles()
	for i := 1; i < len(profiles); i++ {
		if profiles[i].AnnualRate() <= profiles[i-1].AnnualRate() {
			t.Fatalf("rate for %s not above %s", profiles[i], profiles[i-1])
		}
	}
	if Conservative.AnnualRate() != 0.04 {
		t.Fatalf("conservative rate = %v", Conservative.AnnualRate())
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:        NewDate(2025, 1, 1),
		Description: "ok",
		Amount:      Money{Cents: 100},
		Category:    CategoryGroceries,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Date: Date{Time: time.Time{}}, Description: "a", Amount: Money{Cents: 1}, Category: CategoryOther}, // zero date
		{Date: NewDate(2025, 1, 1), Description: "", Amount: Money{Cents: 1}, Category: CategoryOther},
		{Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 0}, Category: CategoryOther},
		{Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 1}, Category: "weird"},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
