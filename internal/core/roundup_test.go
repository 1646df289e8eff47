package core

import (
	"errors"
	"testing"
)

func TestCalculateRoundUp(t *testing.T) {
	cases := []struct {
		amountCents int64
		wantCents   int64
	}{
		{432, 68},    // 4.32 -> 0.68
		{1567, 33},   // 15.67 -> 0.33
		{500, 100},   // whole dollar advances to the next one
		{1, 99},      // 0.01 -> 0.99
		{99999, 1},   // 999.99 -> 0.01
		{1000, 100},  // 10.00 -> 1.00, never 0.00
		{199, 1},     // .99 gives the minimum round-up
		{100, 100},   // 1.00 -> 1.00
	}
	for _, tc := range cases {
		got, err := CalculateRoundUp(Money{Cents: tc.amountCents})
		if err != nil {
			t.Fatalf("CalculateRoundUp(%d) unexpected error: %v", tc.amountCents, err)
		}
		if got.Cents != tc.wantCents {
			t.Fatalf("CalculateRoundUp(%d) = %d, want %d", tc.amountCents, got.Cents, tc.wantCents)
		}
	}
}

func TestCalculateRoundUpInvalid(t *testing.T) {
	for _, cents := range []int64{0, -1, -500} {
		if _, err := CalculateRoundUp(Money{Cents: cents}); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("CalculateRoundUp(%d) expected ErrInvalidAmount, got %v", cents, err)
		}
	}
}

func TestCalculateRoundUpProperties(t *testing.T) {
	// For every amount the round-up is in (0, 1.00] and amount+roundUp is an
	// exact positive whole-dollar multiple.
	for cents := int64(1); cents <= 500; cents++ {
		ru, err := CalculateRoundUp(Money{Cents: cents})
		if err != nil {
			t.Fatalf("amount %d: %v", cents, err)
		}
		if ru.Cents <= 0 || ru.Cents > 100 {
			t.Fatalf("amount %d: round-up %d outside (0, 100]", cents, ru.Cents)
		}
		if (cents+ru.Cents)%100 != 0 {
			t.Fatalf("amount %d: %d + %d is not a whole-dollar multiple", cents, cents, ru.Cents)
		}
	}
}

func TestCalculateRoundUpPure(t *testing.T) {
	a, err1 := CalculateRoundUp(Money{Cents: 432})
	b, err2 := CalculateRoundUp(Money{Cents: 432})
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if a != b {
		t.Fatalf("same input produced different outputs: %v vs %v", a, b)
	}
}

func validTx(cents int64) Transaction {
	return Transaction{
		Date:        NewDate(2025, 3, 14),
		Description: "coffee",
		Amount:      Money{Cents: cents},
		Category:    CategoryDining,
	}
}

func TestProcessRoundUps(t *testing.T) {
	txs := []Transaction{validTx(432), validTx(1567), validTx(500)}

	res := ProcessRoundUps(txs)

	if res.ProcessedCount != 3 {
		t.Fatalf("ProcessedCount = %d, want 3", res.ProcessedCount)
	}
	if len(res.Rejected) != 0 {
		t.Fatalf("unexpected rejects: %v", res.Rejected)
	}
	// 0.68 + 0.33 + 1.00
	if res.TotalRoundUps.Cents != 201 {
		t.Fatalf("TotalRoundUps = %d, want 201", res.TotalRoundUps.Cents)
	}
	// Order-preserving, per-item values intact
	wantRoundUps := []int64{68, 33, 100}
	for i, p := range res.Processed {
		if p.Amount.Cents != txs[i].Amount.Cents {
			t.Fatalf("processed[%d] out of order: amount %d, want %d", i, p.Amount.Cents, txs[i].Amount.Cents)
		}
		if p.RoundUp.Cents != wantRoundUps[i] {
			t.Fatalf("processed[%d] round-up = %d, want %d", i, p.RoundUp.Cents, wantRoundUps[i])
		}
	}
}

func TestProcessRoundUpsSkipsMalformed(t *testing.T) {
	bad := validTx(0) // non-positive amount
	noCat := validTx(250)
	noCat.Category = "crypto"
	txs := []Transaction{validTx(432), bad, noCat, validTx(99)}

	res := ProcessRoundUps(txs)

	if res.ProcessedCount != 2 {
		t.Fatalf("ProcessedCount = %d, want 2", res.ProcessedCount)
	}
	if len(res.Rejected) != 2 {
		t.Fatalf("len(Rejected) = %d, want 2", len(res.Rejected))
	}
	if !errors.Is(res.Rejected[0].Reason, ErrInvalidAmount) {
		t.Fatalf("first reject reason = %v, want ErrInvalidAmount", res.Rejected[0].Reason)
	}
	if !errors.Is(res.Rejected[1].Reason, ErrInvalidCategory) {
		t.Fatalf("second reject reason = %v, want ErrInvalidCategory", res.Rejected[1].Reason)
	}
	if res.Rejected[0].Index != 1 || res.Rejected[1].Index != 2 {
		t.Fatalf("reject indexes = %d, %d, want 1, 2", res.Rejected[0].Index, res.Rejected[1].Index)
	}
	// 0.68 + 0.01
	if res.TotalRoundUps.Cents != 69 {
		t.Fatalf("TotalRoundUps = %d, want 69", res.TotalRoundUps.Cents)
	}
}

func TestProcessRoundUpsIdenticalRejectsKeepOwnIndex(t *testing.T) {
	dup := validTx(0) // invalid, appears twice
	txs := []Transaction{validTx(432), dup, validTx(99), dup}

	res := ProcessRoundUps(txs)

	if len(res.Rejected) != 2 {
		t.Fatalf("len(Rejected) = %d, want 2", len(res.Rejected))
	}
	if res.Rejected[0].Index != 1 || res.Rejected[1].Index != 3 {
		t.Fatalf("identical rejects share an index: %d, %d, want 1, 3",
			res.Rejected[0].Index, res.Rejected[1].Index)
	}
}

func TestProcessRoundUpsTotalMatchesIndividualSum(t *testing.T) {
	txs := make([]Transaction, 0, 100)
	var want int64
	for c := int64(1); c <= 100; c++ {
		txs = append(txs, validTx(c*37))
		ru, err := CalculateRoundUp(Money{Cents: c * 37})
		if err != nil {
			t.Fatal(err)
		}
		want += ru.Cents
	}

	res := ProcessRoundUps(txs)

	if res.ProcessedCount != len(txs) {
		t.Fatalf("ProcessedCount = %d, want %d", res.ProcessedCount, len(txs))
	}
	if res.TotalRoundUps.Cents != want {
		t.Fatalf("TotalRoundUps = %d, want %d", res.TotalRoundUps.Cents, want)
	}
}

func TestProcessRoundUpsEmpty(t *testing.T) {
	res := ProcessRoundUps(nil)
	if res.ProcessedCount != 0 || res.TotalRoundUps.Cents != 0 || len(res.Rejected) != 0 {
		t.Fatalf("empty batch produced %+v", res)
	}
}
